// Package projectile simulates cannon rounds and guided missiles.
package projectile

import (
	"errors"

	"github.com/OCAP2/dogfight/internal/actor"
	"github.com/OCAP2/dogfight/internal/physics"
	"github.com/OCAP2/dogfight/internal/target"
	"github.com/OCAP2/dogfight/internal/vecmath"
)

// ErrMissingBody is reported when a projectile has no physics body to move.
var ErrMissingBody = errors.New("projectile has no physics body")

// Cause names the weapon behind a damage request.
type Cause string

const (
	CauseCannon    Cause = "cannon"
	CauseMissile   Cause = "missile"
	CauseCollision Cause = "collision"
)

// Damage is a request to subtract Amount from Victim's health. It is routed
// to whichever replica owns the victim's state.
type Damage struct {
	Victim     actor.ID
	Source     actor.ID // shooting aircraft
	Projectile actor.ID
	Amount     float64
	Cause      Cause
	Point      vecmath.Vec3
}

// Outcome is how a projectile's flight ended.
type Outcome string

const (
	OutcomeNone      Outcome = ""
	OutcomeExpired   Outcome = "expired"
	OutcomeHit       Outcome = "hit"
	OutcomeDetonated Outcome = "detonated"
	OutcomeLostTrack Outcome = "lost_track"
)

// Summary describes a finished projectile for recording.
type Summary struct {
	ID      actor.ID
	Kind    actor.Kind
	Owner   actor.ID
	Target  actor.ID
	Start   vecmath.Vec3
	End     vecmath.Vec3
	Outcome Outcome
	Hit     actor.ID
	Flight  float64 // seconds
}

// World is the part of the simulation a projectile reads and writes.
type World interface {
	Space() *physics.Space
	IsAircraft(id actor.ID) bool
	RequestDamage(d Damage)
	TargetRecord(aircraft actor.ID) (*target.Record, bool)
	Locate(id actor.ID) (vecmath.Vec3, bool)
}
