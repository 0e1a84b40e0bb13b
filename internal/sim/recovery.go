package sim

import (
	"github.com/OCAP2/dogfight/internal/actor"
	"github.com/OCAP2/dogfight/internal/authority"
	"github.com/OCAP2/dogfight/internal/projectile"
	"github.com/OCAP2/dogfight/internal/vecmath"
	"github.com/OCAP2/dogfight/pkg/core"
)

// checkAuthority runs the input-implies-state check on every replicated
// actor. The server watches the assignment from the input owner's point of
// view and repairs it by respawning; other replicas can only report.
func (w *World) checkAuthority() {
	for _, id := range w.aircraft.IDs() {
		e, _ := w.aircraft.Get(id)
		if w.violated(id, e.owners, e.monitor) {
			w.recoverAircraft(id, e)
		}
	}
	for _, id := range w.bullets.IDs() {
		e, _ := w.bullets.Get(id)
		if w.violated(id, e.owners, e.monitor) {
			w.recoverBullet(id, e)
		}
	}
	for _, id := range w.missiles.IDs() {
		e, _ := w.missiles.Get(id)
		if w.violated(id, e.owners, e.monitor) {
			w.recoverMissile(id, e)
		}
	}
}

func (w *World) violated(id actor.ID, o authority.Owners, m *authority.Monitor) bool {
	view := w.opts.Local
	if w.opts.Server {
		view = o.Input
	}
	if !m.Observe(o.TagFor(view), w.dt) {
		return false
	}
	if !w.opts.Server {
		w.log.Warn("authority violation outlived grace window, waiting for server",
			"actor", id.String(), "input", o.Input.String(), "state", o.State.String(), "tick", w.tick)
		return false
	}
	return true
}

// repaired binds state authority to the input owner.
func repaired(o authority.Owners) authority.Owners { return authority.Bound(o.Input) }

func (w *World) recoverAircraft(id actor.ID, e *aircraftEntry) {
	ac := e.ac
	pos, rot := vecmath.Zero, vecmath.Identity
	if b := ac.Body(); b != nil {
		pos, rot = b.Position, b.Rotation
	}
	// drop the old instance now so it neither ticks nor collides with its
	// replacement
	w.space.Remove(id)
	w.aircraft.Delete(id)

	owners := repaired(e.owners)
	next := w.SpawnAircraft(AircraftSpec{
		Callsign: ac.Callsign,
		Team:     ac.Team,
		Profile:  ac.Profile(),
		Position: pos,
		Rotation: rot,
		Owners:   owners,
		Pilot:    e.pilot,
		Bot:      e.bot,
	})
	if ne, ok := w.aircraft.Get(next); ok {
		ne.input, ne.hasInput = e.input, e.hasInput
		ne.prevButtons = e.prevButtons
	}

	w.actorLog(id, ac.Callsign).Warn("authority recovered by respawn",
		"replacement", next.String(), "input", owners.Input.String(), "state", owners.State.String())
	w.emitAuthority(id, next, owners, "recovery")
}

func (w *World) recoverBullet(id actor.ID, e *bulletEntry) {
	b := e.b
	w.bullets.Delete(id)
	if b.Done() {
		return
	}

	owners := repaired(e.owners)
	cfg := w.opts.Bullet
	cfg.Lifetime = b.Remaining()
	next := w.ids.Next()
	w.bullets.Put(next, &bulletEntry{
		b:       projectile.NewBullet(next, b.Owner, owners.TagFor(w.opts.Local), b.Position(), b.Rotation(), cfg),
		owners:  owners,
		monitor: authority.NewMonitor(w.opts.Grace),
		fired:   w.tick,
	})
	w.emitAuthority(id, next, owners, "recovery")
}

func (w *World) recoverMissile(id actor.ID, e *missileEntry) {
	m := e.m
	if m.Exploded() || m.Body() == nil {
		// nothing left to hand over; let it settle
		e.monitor = authority.NewMonitor(w.opts.Grace)
		return
	}
	pos, rot := m.Body().Position, m.Body().Rotation
	w.space.Remove(id)
	w.missiles.Delete(id)
	if m.Target.Valid() {
		if rec, ok := w.TargetRecord(m.Target); ok {
			rec.NotifyMissile(id, false, w.Locate)
		}
	}

	owners := repaired(e.owners)
	cfg := w.opts.Missile
	cfg.Lifetime = m.Remaining()
	next := w.launchMissile(m.Owner, m.Target, owners, pos, rot, cfg)
	w.emitAuthority(id, next, owners, "recovery")
}

func (w *World) emitAuthority(id, replacedBy actor.ID, o authority.Owners, reason string) {
	kind := actor.KindAircraft
	switch {
	case w.bullets.Has(replacedBy) || w.bullets.Has(id):
		kind = actor.KindBullet
	case w.missiles.Has(replacedBy) || w.missiles.Has(id):
		kind = actor.KindMissile
	}
	w.emit(core.AuthorityEvent{
		Time:       w.now(),
		Tick:       w.tick,
		ActorID:    uint64(id),
		ReplacedBy: uint64(replacedBy),
		Kind:       kind.String(),
		InputOwner: int32(o.Input),
		StateOwner: int32(o.State),
		Reason:     reason,
	})
}
