package sim

import (
	"fmt"

	"github.com/OCAP2/dogfight/internal/authority"
	"github.com/OCAP2/dogfight/internal/flight"
	"github.com/OCAP2/dogfight/internal/projectile"
	"github.com/OCAP2/dogfight/pkg/core"
)

// Sender delivers damage to the replica that owns the victim's state.
// Delivery is fire-and-forget.
type Sender interface {
	SendDamage(to authority.Participant, d projectile.Damage)
}

// Route names where a damage request went.
type Route string

const (
	RouteLocal   Route = "local"
	RouteRemote  Route = "remote"
	RouteDropped Route = "dropped"
)

// Router sends each damage request to exactly one replica: the victim's
// state owner. Local damage is applied immediately.
type Router struct {
	local  authority.Participant
	world  *World
	sender Sender
}

func newRouter(local authority.Participant, w *World, s Sender) *Router {
	return &Router{local: local, world: w, sender: s}
}

// Route delivers d and reports where it went.
func (r *Router) Route(d projectile.Damage) Route {
	route := r.route(d)
	r.world.metrics.damage(route)
	return route
}

func (r *Router) route(d projectile.Damage) Route {
	owners, ok := r.world.Owners(d.Victim)
	if !ok {
		return RouteDropped
	}
	if owners.State == r.local {
		if err := r.world.applyDamage(d); err != nil {
			r.world.log.Warn("damage not applied", "victim", d.Victim.String(), "error", err)
			return RouteDropped
		}
		return RouteLocal
	}
	if r.sender == nil || owners.State == authority.Nobody {
		return RouteDropped
	}
	r.sender.SendDamage(owners.State, d)
	return RouteRemote
}

// applyDamage runs on the victim's state owner only.
func (w *World) applyDamage(d projectile.Damage) error {
	e, ok := w.aircraft.Get(d.Victim)
	if !ok {
		return fmt.Errorf("damage for %s: %w", d.Victim, ErrUnknownActor)
	}
	before, after, err := e.ac.ApplyDamage(d.Amount, flight.DamageSource{Attacker: d.Source, Cause: d.Cause})
	if err != nil {
		return err
	}
	if before == after {
		return nil
	}

	dist := 0.0
	if src, ok := w.aircraft.Get(d.Source); ok && src.ac.Body() != nil {
		dist = src.ac.Body().Position.Dist(d.Point)
	}
	w.emit(core.HitEvent{
		Time:         w.now(),
		Tick:         w.tick,
		VictimID:     uint64(d.Victim),
		ShooterID:    uint64(d.Source),
		ProjectileID: uint64(d.Projectile),
		Cause:        string(d.Cause),
		Amount:       float32(before - after),
		HealthBefore: float32(before),
		HealthAfter:  float32(after),
		Position:     pos3(d.Point),
		Distance:     float32(dist),
	})
	return nil
}
