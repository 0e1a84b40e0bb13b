// Package vecmath provides the 3D vector, quaternion and steering helpers
// used by the flight and weapon simulation.
//
// Frame convention: x = right, y = up, z = forward.
package vecmath

import "math"

// Vec3 is a 3D vector in metres (or metres per second, radians per second).
type Vec3 struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
	Z float64 `json:"z" msgpack:"z"`
}

var (
	Zero    = Vec3{}
	Right   = Vec3{X: 1}
	Up      = Vec3{Y: 1}
	Forward = Vec3{Z: 1}
)

// V is shorthand for Vec3{x, y, z}.
func V(x, y, z float64) Vec3 { return Vec3{X: x, Y: y, Z: z} }

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

func (v Vec3) Mul(k float64) Vec3 { return Vec3{v.X * k, v.Y * k, v.Z * k} }

func (v Vec3) Neg() Vec3 { return Vec3{-v.X, -v.Y, -v.Z} }

// Scale multiplies component-wise.
func (v Vec3) Scale(o Vec3) Vec3 { return Vec3{v.X * o.X, v.Y * o.Y, v.Z * o.Z} }

func (v Vec3) Dot(o Vec3) float64 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }

func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		X: v.Y*o.Z - v.Z*o.Y,
		Y: v.Z*o.X - v.X*o.Z,
		Z: v.X*o.Y - v.Y*o.X,
	}
}

func (v Vec3) SqrLen() float64 { return v.Dot(v) }

func (v Vec3) Len() float64 { return math.Sqrt(v.Dot(v)) }

// Normalize returns the unit vector, or Zero for vectors too short to normalize.
func (v Vec3) Normalize() Vec3 {
	n := v.Len()
	if n < 1e-9 {
		return Zero
	}
	return v.Mul(1 / n)
}

// ClampLen limits the vector magnitude to max.
func (v Vec3) ClampLen(max float64) Vec3 {
	sq := v.SqrLen()
	if sq > max*max {
		return v.Mul(max / math.Sqrt(sq))
	}
	return v
}

func (v Vec3) Dist(o Vec3) float64 { return v.Sub(o).Len() }

// ApproxEqual reports whether all components differ by at most eps.
func (v Vec3) ApproxEqual(o Vec3, eps float64) bool {
	return math.Abs(v.X-o.X) <= eps && math.Abs(v.Y-o.Y) <= eps && math.Abs(v.Z-o.Z) <= eps
}

// Angle returns the unsigned angle between a and b in degrees.
// Zero-length inputs yield 0.
func Angle(a, b Vec3) float64 {
	denom := math.Sqrt(a.SqrLen() * b.SqrLen())
	if denom < 1e-15 {
		return 0
	}
	return math.Acos(Clamp(a.Dot(b)/denom, -1, 1)) * Rad2Deg
}

// ProjectOnPlane removes the component of v along normal.
func ProjectOnPlane(v, normal Vec3) Vec3 {
	sq := normal.SqrLen()
	if sq < 1e-15 {
		return v
	}
	return v.Sub(normal.Mul(v.Dot(normal) / sq))
}

// RotateTowards rotates current toward target by at most maxRadians,
// preserving the magnitude of current. When the remaining angle fits
// within the step the result points exactly along target.
func RotateTowards(current, target Vec3, maxRadians float64) Vec3 {
	mag := current.Len()
	from := current.Normalize()
	to := target.Normalize()
	if from == Zero || to == Zero {
		return current
	}
	angle := math.Acos(Clamp(from.Dot(to), -1, 1))
	if angle <= maxRadians || angle < 1e-12 {
		return to.Mul(mag)
	}
	axis := from.Cross(to)
	if axis.SqrLen() < 1e-18 {
		axis = Perpendicular(from)
	}
	return AxisAngle(axis, maxRadians).Rotate(from).Mul(mag)
}

// Perpendicular returns an arbitrary unit vector orthogonal to v.
func Perpendicular(v Vec3) Vec3 {
	p := v.Cross(Up)
	if p.SqrLen() < 1e-12 {
		p = v.Cross(Right)
	}
	return p.Normalize()
}
