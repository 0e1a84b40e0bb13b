package sim

import (
	"github.com/OCAP2/dogfight/internal/actor"
	"github.com/OCAP2/dogfight/internal/flight"
	"github.com/OCAP2/dogfight/internal/physics"
	"github.com/OCAP2/dogfight/internal/util"
	"github.com/OCAP2/dogfight/internal/vecmath"
	"github.com/OCAP2/dogfight/pkg/core"
)

// botThrottle is the constant throttle of host-driven bots.
const botThrottle = 0.6

// applyInputs feeds the latest pilot input into every aircraft this replica
// simulates.
func (w *World) applyInputs() {
	for _, id := range w.aircraft.IDs() {
		e, _ := w.aircraft.Get(id)
		ac := e.ac
		if !ac.Tag().HasState() {
			continue
		}
		if e.bot {
			e.input = Input{Actor: id, Throttle: botThrottle}
			e.hasInput = true
		}
		if !e.hasInput {
			continue
		}

		in := e.input
		ac.SetThrottleInput(in.Throttle)
		ac.SetControlInput(vecmath.V(in.PitchRoll[1], in.Yaw, -in.PitchRoll[0]))
		ac.SetCannonInput(in.FireCannon)

		pressed := in.Buttons &^ e.prevButtons
		if pressed&ButtonToggleFlaps != 0 {
			ac.ToggleFlaps()
		}
		e.prevButtons = in.Buttons

		if in.FireMissile {
			e.input.FireMissile = false
			if err := ac.TryFireMissile(); err != nil {
				w.actorLog(id, ac.Callsign).Warn("missile launch failed", "error", err)
			}
		}
	}
}

func (w *World) tickAircraft() {
	for _, id := range w.aircraft.IDs() {
		e, _ := w.aircraft.Get(id)
		ac := e.ac
		if !ac.Tag().HasState() {
			continue
		}
		r, err := ac.Tick(w.dt, w)
		if err != nil {
			w.actorLog(id, ac.Callsign).Warn("aircraft update skipped", "error", err)
			continue
		}
		if r.LockFrom != r.LockTo {
			w.actorLog(id, ac.Callsign).Debug("lock changed", "from", r.LockFrom.String(), "to", r.LockTo.String())
			w.emit(core.LockEvent{
				Time:       w.now(),
				Tick:       w.tick,
				AircraftID: uint64(id),
				TargetID:   uint64(ac.Target()),
				From:       r.LockFrom.String(),
				To:         r.LockTo.String(),
			})
		}
		if r.Died {
			w.emitKill(id, ac)
		}
	}
}

func (w *World) emitKill(id actor.ID, ac *flight.Aircraft) {
	src := ac.LastDamage()
	w.actorLog(id, ac.Callsign).Info("aircraft destroyed",
		"killer", src.Attacker.String(), "cause", string(src.Cause), "crashed", ac.Crashed())
	w.emit(core.KillEvent{
		Time:     w.now(),
		Tick:     w.tick,
		VictimID: uint64(id),
		KillerID: uint64(src.Attacker),
		Cause:    string(src.Cause),
		Position: pos3(ac.Pos()),
		Crashed:  ac.Crashed(),
	})

	killer := ""
	if e, ok := w.aircraft.Get(src.Attacker); ok && src.Attacker != id {
		killer = e.ac.Callsign
	}
	w.emitFeed("kill", util.KillFeed(killer, ac.Callsign, string(src.Cause), ac.Crashed()), map[string]any{
		"victim": uint64(id),
		"killer": uint64(src.Attacker),
	})
}

// emitFeed records a human-readable general event.
func (w *World) emitFeed(name, message string, extra map[string]any) {
	w.emit(core.GeneralEvent{
		Time:      w.now(),
		Tick:      w.tick,
		Name:      name,
		Message:   message,
		ExtraData: extra,
	})
}

func (w *World) tickBullets() {
	for _, id := range w.bullets.IDs() {
		e, _ := w.bullets.Get(id)
		if e.b.Tick(w.dt, w) {
			w.despawn(id)
		}
	}
}

func (w *World) tickMissiles() {
	for _, id := range w.missiles.IDs() {
		e, _ := w.missiles.Get(id)
		m := e.m
		if !m.Tag.HasState() {
			// mirrors coast until the owner's despawn reaches them
			if b := m.Body(); b != nil && !m.Exploded() {
				b.Integrate(w.dt)
			}
			continue
		}
		done, err := m.Tick(w.dt, w)
		if err != nil {
			w.log.Warn("missile update skipped", "actor", id.String(), "tick", w.tick, "error", err)
			continue
		}
		if done {
			w.despawn(id)
		}
	}
}

func (w *World) tickRecords() {
	for _, id := range w.aircraft.IDs() {
		e, _ := w.aircraft.Get(id)
		e.record.Tick(w.dt, w.Locate)
	}
}

func (w *World) resolveCollisions() {
	for _, c := range w.space.Contacts(physics.LayerAircraft) {
		w.collide(c.A, c.B, c.Point, c.Ground)
		if !c.Ground {
			w.collide(c.B, c.A, c.Point, false)
		}
	}
}

func (w *World) collide(id, other actor.ID, point vecmath.Vec3, ground bool) {
	e, ok := w.aircraft.Get(id)
	if !ok || !e.ac.Tag().HasState() {
		return
	}
	crashed, err := e.ac.Collide(flight.Contact{Point: point, Ground: ground, Other: other})
	if err != nil {
		w.actorLog(id, e.ac.Callsign).Warn("collision not resolved", "error", err)
		return
	}
	if crashed {
		w.actorLog(id, e.ac.Callsign).Info("aircraft crashed", "ground", ground, "other", other.String())
	}
}
