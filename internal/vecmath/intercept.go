package vecmath

import "math"

// FirstOrderIntercept predicts where a projectile of constant speed fired
// from shooterPos meets a target moving at constant velocity. When no
// forward-in-time solution exists the target's current position is returned.
func FirstOrderIntercept(shooterPos, shooterVel Vec3, shotSpeed float64, targetPos, targetVel Vec3) Vec3 {
	relPos := targetPos.Sub(shooterPos)
	relVel := targetVel.Sub(shooterVel)
	t := InterceptTime(shotSpeed, relPos, relVel)
	return targetPos.Add(relVel.Mul(t))
}

// InterceptTime solves |relPos + relVel·t| = shotSpeed·t for the earliest
// non-negative t. It returns 0 when there is no solution.
func InterceptTime(shotSpeed float64, relPos, relVel Vec3) float64 {
	velSq := relVel.SqrLen()
	if velSq < 0.001 {
		return 0
	}

	a := velSq - shotSpeed*shotSpeed
	b := 2 * relVel.Dot(relPos)
	c := relPos.SqrLen()

	// target and shot at nearly the same speed: linear equation
	if math.Abs(a) < 0.001 {
		if b == 0 {
			return 0
		}
		return math.Max(-c/b, 0)
	}

	det := b*b - 4*a*c
	switch {
	case det > 0:
		sq := math.Sqrt(det)
		t1 := (-b + sq) / (2 * a)
		t2 := (-b - sq) / (2 * a)
		if t1 > 0 {
			if t2 > 0 {
				return math.Min(t1, t2)
			}
			return t1
		}
		return math.Max(t2, 0)
	case det < 0:
		return 0
	default:
		return math.Max(-b/(2*a), 0)
	}
}
