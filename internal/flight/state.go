package flight

import (
	"errors"
	"fmt"

	"github.com/OCAP2/dogfight/internal/actor"
	"github.com/OCAP2/dogfight/internal/vecmath"
	"github.com/OCAP2/dogfight/internal/weapons"
)

// ErrStateOwner rejects replicated state arriving at the replica that owns it.
var ErrStateOwner = errors.New("replica owns this state")

// State is the replicated view of an aircraft.
type State struct {
	Position        vecmath.Vec3
	Rotation        vecmath.Quat
	Velocity        vecmath.Vec3
	AngularVelocity vecmath.Vec3
	Throttle        float64
	AngleOfAttack   float64 // radians
	GForce          vecmath.Vec3
	Flaps           bool
	Airbrake        bool
	EffectiveInput  vecmath.Vec3
	Health          float64
	MaxHealth       float64
	Dead            bool
	Crashed         bool
	DamageEffect    bool
	DeathEffect     bool
	Lock            weapons.LockState
	LockDirection   vecmath.Vec3
	Target          actor.ID
}

func (a *Aircraft) State() State {
	s := State{
		Throttle:       a.throttle,
		AngleOfAttack:  a.aoa,
		GForce:         a.localGForce,
		Flaps:          a.flaps,
		Airbrake:       a.airbrake,
		EffectiveInput: a.effectiveInput,
		Health:         a.health,
		MaxHealth:      a.maxHealth,
		Dead:           a.dead,
		Crashed:        a.crashed,
		DamageEffect:   a.damageEffect,
		DeathEffect:    a.deathEffect,
		Lock:           a.lock.State(),
		LockDirection:  a.LockDirection(),
		Target:         a.target,
	}
	if a.body != nil {
		s.Position = a.body.Position
		s.Rotation = a.body.Rotation
		s.Velocity = a.body.Velocity
		s.AngularVelocity = a.body.AngularVelocity
	}
	return s
}

// ApplyRemote copies state published by the owning replica into this
// mirror. The owner itself rejects it.
func (a *Aircraft) ApplyRemote(s State) error {
	if a.tag.HasState() {
		return fmt.Errorf("applyRemote on actor %s: %w", a.ID, ErrStateOwner)
	}
	if a.body != nil {
		a.body.Position = s.Position
		a.body.Rotation = s.Rotation
		a.body.Velocity = s.Velocity
		a.body.AngularVelocity = s.AngularVelocity
		a.calculateState()
	}
	a.throttle = s.Throttle
	a.localGForce = s.GForce
	a.flaps = s.Flaps
	a.airbrake = s.Airbrake
	a.effectiveInput = s.EffectiveInput
	a.health = s.Health
	a.maxHealth = s.MaxHealth
	a.dead = a.dead || s.Dead
	a.crashed = a.crashed || s.Crashed
	a.damageEffect = s.DamageEffect
	a.deathEffect = s.DeathEffect
	a.target = s.Target
	return nil
}
