package vecmath

import "math"

const (
	Deg2Rad = math.Pi / 180
	Rad2Deg = 180 / math.Pi

	// Gravity is standard gravity in m/s².
	Gravity = 9.81
)

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// MoveTowards moves value toward target by at most speed*dt and clamps the
// result to [lo, hi].
func MoveTowards(value, target, speed, dt, lo, hi float64) float64 {
	step := speed * dt
	delta := Clamp(target-value, -step, step)
	return Clamp(value+delta, lo, hi)
}

// MoveTowards01 is MoveTowards clamped to [0, 1].
func MoveTowards01(value, target, speed, dt float64) float64 {
	return MoveTowards(value, target, speed, dt, 0, 1)
}

// Scale6 scales each axis of value by the coefficient matching the sign of
// that axis. Zero components stay zero.
func Scale6(value Vec3, posX, negX, posY, negY, posZ, negZ float64) Vec3 {
	return Vec3{
		X: pick(value.X, posX, negX),
		Y: pick(value.Y, posY, negY),
		Z: pick(value.Z, posZ, negZ),
	}
}

func pick(v, pos, neg float64) float64 {
	switch {
	case v > 0:
		return v * pos
	case v < 0:
		return v * neg
	}
	return 0
}
