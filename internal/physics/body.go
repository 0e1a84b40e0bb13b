// Package physics provides the rigid-body integrator and the collision
// queries the simulation runs against.
package physics

import (
	"github.com/OCAP2/dogfight/internal/vecmath"
)

// ForceMode selects how a force or torque is applied, mirroring the usual
// game-engine semantics.
type ForceMode uint8

const (
	// Force is mass-dependent and continuous (N).
	Force ForceMode = iota
	// Acceleration is mass-independent and continuous (m/s²).
	Acceleration
	// VelocityChange is mass-independent and instantaneous (m/s).
	VelocityChange
)

// Body is a rigid body with an identity inertia tensor. Forces accumulate
// between Integrate calls.
type Body struct {
	Position        vecmath.Vec3
	Rotation        vecmath.Quat
	Velocity        vecmath.Vec3
	AngularVelocity vecmath.Vec3 // world frame, rad/s
	Mass            float64
	UseGravity      bool
	Kinematic       bool

	accel    vecmath.Vec3
	angAccel vecmath.Vec3
}

func NewBody(pos vecmath.Vec3, rot vecmath.Quat, mass float64) *Body {
	if mass <= 0 {
		mass = 1
	}
	return &Body{Position: pos, Rotation: rot, Mass: mass}
}

// AddForce applies a world-space force.
func (b *Body) AddForce(f vecmath.Vec3, mode ForceMode) {
	if b.Kinematic {
		return
	}
	switch mode {
	case Force:
		b.accel = b.accel.Add(f.Mul(1 / b.Mass))
	case Acceleration:
		b.accel = b.accel.Add(f)
	case VelocityChange:
		b.Velocity = b.Velocity.Add(f)
	}
}

// AddRelativeForce applies a force given in the body's local frame.
func (b *Body) AddRelativeForce(f vecmath.Vec3, mode ForceMode) {
	b.AddForce(b.Rotation.Rotate(f), mode)
}

// AddTorque applies a world-space torque. Torque modes ignore mass.
func (b *Body) AddTorque(t vecmath.Vec3, mode ForceMode) {
	if b.Kinematic {
		return
	}
	switch mode {
	case Force, Acceleration:
		b.angAccel = b.angAccel.Add(t)
	case VelocityChange:
		b.AngularVelocity = b.AngularVelocity.Add(t)
	}
}

func (b *Body) AddRelativeTorque(t vecmath.Vec3, mode ForceMode) {
	b.AddTorque(b.Rotation.Rotate(t), mode)
}

// Integrate advances the body by dt using semi-implicit Euler and clears
// accumulated forces.
func (b *Body) Integrate(dt float64) {
	if b.Kinematic {
		b.clear()
		return
	}
	a := b.accel
	if b.UseGravity {
		a = a.Add(vecmath.V(0, -vecmath.Gravity, 0))
	}
	b.Velocity = b.Velocity.Add(a.Mul(dt))
	b.AngularVelocity = b.AngularVelocity.Add(b.angAccel.Mul(dt))
	b.Position = b.Position.Add(b.Velocity.Mul(dt))
	b.Rotation = b.Rotation.Integrate(b.AngularVelocity, dt)
	b.clear()
}

// Freeze stops the body at pos with rotation rot and makes it kinematic.
func (b *Body) Freeze(pos vecmath.Vec3, rot vecmath.Quat) {
	b.Position = pos
	b.Rotation = rot
	b.Velocity = vecmath.Zero
	b.AngularVelocity = vecmath.Zero
	b.Kinematic = true
	b.clear()
}

// Local returns world-space v expressed in the body frame.
func (b *Body) Local(v vecmath.Vec3) vecmath.Vec3 {
	return b.Rotation.Inverse().Rotate(v)
}

func (b *Body) clear() {
	b.accel = vecmath.Zero
	b.angAccel = vecmath.Zero
}
