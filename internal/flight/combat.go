package flight

import (
	"github.com/OCAP2/dogfight/internal/actor"
	"github.com/OCAP2/dogfight/internal/authority"
	"github.com/OCAP2/dogfight/internal/projectile"
	"github.com/OCAP2/dogfight/internal/vecmath"
)

// ApplyDamage subtracts amount from health, flooring at zero. It fails with
// ErrNotAuthorized on any replica that does not own this aircraft's state.
func (a *Aircraft) ApplyDamage(amount float64, src DamageSource) (before, after float64, err error) {
	if err := authority.Require(a.ID, "applyDamage", a.tag, authority.State); err != nil {
		return a.health, a.health, err
	}
	before = a.health
	a.health = max0(a.health - amount)
	if amount > 0 && before > 0 {
		a.lastDamage = src
	}
	return before, a.health, nil
}

// Contact is a collision reported by the physics space.
type Contact struct {
	Point  vecmath.Vec3
	Ground bool
	Other  actor.ID
}

// Collide resolves a contact. A gentle ground contact with the gear down is
// a landing; anything else destroys the aircraft on the spot.
func (a *Aircraft) Collide(c Contact) (crashed bool, err error) {
	if err := authority.Require(a.ID, "collide", a.tag, authority.State); err != nil {
		return false, err
	}
	if a.body == nil {
		return false, ErrMissingBody
	}
	if a.crashed {
		return false, nil
	}
	if c.Ground && a.gearContact() {
		a.land(c.Point)
		return false, nil
	}

	a.health = 0
	a.crashed = true
	a.lastDamage = DamageSource{Attacker: c.Other, Cause: projectile.CauseCollision}
	a.body.Freeze(c.Point, vecmath.Euler(0, a.body.Rotation.Yaw(), 0))
	return true, nil
}

// gearContact reports whether the landing gear, which is lowered together
// with the flaps, would take this contact.
func (a *Aircraft) gearContact() bool {
	if !a.flaps {
		return false
	}
	tilt := vecmath.Angle(a.body.Rotation.Up(), vecmath.Up)
	sink := -a.body.Velocity.Y
	return tilt <= a.profile.GearMaxTilt && sink <= a.profile.GearMaxSinkRate
}

func (a *Aircraft) land(point vecmath.Vec3) {
	b := a.body
	b.Position.Y = point.Y + a.profile.ColliderRadius
	if b.Velocity.Y < 0 {
		b.Velocity.Y = 0
	}
}
