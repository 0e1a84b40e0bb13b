package vecmath

import "math"

// Quat is a unit rotation quaternion.
type Quat struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
	Z float64 `json:"z" msgpack:"z"`
	W float64 `json:"w" msgpack:"w"`
}

var Identity = Quat{W: 1}

// AxisAngle builds a rotation of radians around axis.
func AxisAngle(axis Vec3, radians float64) Quat {
	a := axis.Normalize()
	s, c := math.Sincos(radians / 2)
	return Quat{X: a.X * s, Y: a.Y * s, Z: a.Z * s, W: c}
}

// Euler builds a rotation from degrees, applied z first, then x, then y.
func Euler(x, y, z float64) Quat {
	qx := AxisAngle(Right, x*Deg2Rad)
	qy := AxisAngle(Up, y*Deg2Rad)
	qz := AxisAngle(Forward, z*Deg2Rad)
	return qy.Mul(qx).Mul(qz)
}

// Mul composes rotations: the result applies o first, then q.
func (q Quat) Mul(o Quat) Quat {
	return Quat{
		X: q.W*o.X + q.X*o.W + q.Y*o.Z - q.Z*o.Y,
		Y: q.W*o.Y - q.X*o.Z + q.Y*o.W + q.Z*o.X,
		Z: q.W*o.Z + q.X*o.Y - q.Y*o.X + q.Z*o.W,
		W: q.W*o.W - q.X*o.X - q.Y*o.Y - q.Z*o.Z,
	}
}

func (q Quat) Conjugate() Quat { return Quat{-q.X, -q.Y, -q.Z, q.W} }

// Inverse of a unit quaternion.
func (q Quat) Inverse() Quat { return q.Conjugate() }

func (q Quat) Normalize() Quat {
	n := math.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
	if n < 1e-12 {
		return Identity
	}
	return Quat{q.X / n, q.Y / n, q.Z / n, q.W / n}
}

// Rotate applies the rotation to v.
func (q Quat) Rotate(v Vec3) Vec3 {
	u := Vec3{q.X, q.Y, q.Z}
	t := u.Cross(v).Mul(2)
	return v.Add(t.Mul(q.W)).Add(u.Cross(t))
}

func (q Quat) Forward() Vec3 { return q.Rotate(Forward) }
func (q Quat) Up() Vec3      { return q.Rotate(Up) }
func (q Quat) Right() Vec3   { return q.Rotate(Right) }

// Integrate advances q by the world-space angular velocity omega (rad/s) over dt.
func (q Quat) Integrate(omega Vec3, dt float64) Quat {
	angle := omega.Len() * dt
	if angle < 1e-12 {
		return q
	}
	return AxisAngle(omega, angle).Mul(q).Normalize()
}

// Yaw returns the heading in degrees, in [0, 360).
func (q Quat) Yaw() float64 {
	f := q.Forward()
	yaw := math.Atan2(f.X, f.Z) * Rad2Deg
	if yaw < 0 {
		yaw += 360
	}
	return yaw
}

// LookRotation returns the rotation whose forward axis points along forward
// and whose up axis is as close to up as possible.
func LookRotation(forward, up Vec3) Quat {
	f := forward.Normalize()
	if f == Zero {
		return Identity
	}
	r := up.Cross(f)
	if r.SqrLen() < 1e-12 {
		r = Perpendicular(f)
	}
	r = r.Normalize()
	u := f.Cross(r)
	return fromBasis(r, u, f)
}

// fromBasis converts an orthonormal basis (columns right, up, forward) to a quaternion.
func fromBasis(r, u, f Vec3) Quat {
	m00, m01, m02 := r.X, u.X, f.X
	m10, m11, m12 := r.Y, u.Y, f.Y
	m20, m21, m22 := r.Z, u.Z, f.Z
	tr := m00 + m11 + m22
	var q Quat
	switch {
	case tr > 0:
		s := math.Sqrt(tr+1) * 2
		q = Quat{W: 0.25 * s, X: (m21 - m12) / s, Y: (m02 - m20) / s, Z: (m10 - m01) / s}
	case m00 > m11 && m00 > m22:
		s := math.Sqrt(1+m00-m11-m22) * 2
		q = Quat{W: (m21 - m12) / s, X: 0.25 * s, Y: (m01 + m10) / s, Z: (m02 + m20) / s}
	case m11 > m22:
		s := math.Sqrt(1+m11-m00-m22) * 2
		q = Quat{W: (m02 - m20) / s, X: (m01 + m10) / s, Y: 0.25 * s, Z: (m12 + m21) / s}
	default:
		s := math.Sqrt(1+m22-m00-m11) * 2
		q = Quat{W: (m10 - m01) / s, X: (m02 + m20) / s, Y: (m12 + m21) / s, Z: 0.25 * s}
	}
	return q.Normalize()
}
