package sim

import (
	"fmt"

	"github.com/OCAP2/dogfight/internal/actor"
	"github.com/OCAP2/dogfight/internal/authority"
	"github.com/OCAP2/dogfight/internal/flight"
	"github.com/OCAP2/dogfight/internal/projectile"
	"github.com/OCAP2/dogfight/internal/util"
)

// Button bits of Input.Buttons.
const (
	ButtonToggleHelp uint8 = 1 << iota
	ButtonToggleFlaps
)

// Command is applied at the start of the next tick.
type Command interface {
	apply(w *World) error
}

// Submit queues a command for the next tick. It never blocks.
func (w *World) Submit(cmds ...Command) {
	w.inbox.Push(cmds...)
}

func (w *World) drainInbox() {
	for _, cmd := range w.inbox.Drain() {
		if err := cmd.apply(w); err != nil {
			w.log.Debug("command rejected", "command", fmt.Sprintf("%T", cmd), "tick", w.tick, "error", err)
		}
	}
}

// Input is one tick of pilot input. Axes are in [-1, 1].
type Input struct {
	Actor       actor.ID
	From        authority.Participant
	Tick        uint
	Throttle    float64
	PitchRoll   [2]float64 // roll, pitch
	Yaw         float64
	FireCannon  bool
	FireMissile bool
	Buttons     uint8
}

func (in Input) apply(w *World) error {
	e, ok := w.aircraft.Get(in.Actor)
	if !ok {
		return fmt.Errorf("input for %s: %w", in.Actor, ErrUnknownActor)
	}
	if !e.controlledBy(in.From) {
		return &authority.Error{Actor: in.Actor, Op: "input", Missing: authority.Input}
	}
	// fire is edge triggered on the client; keep a press until a tick consumes it
	if e.hasInput && e.input.FireMissile {
		in.FireMissile = true
	}
	e.input = in
	e.hasInput = true
	return nil
}

// controlledBy reports whether p may drive the aircraft: either p holds
// input authority, or the host holds it on p's behalf.
func (e *aircraftEntry) controlledBy(p authority.Participant) bool {
	if e.owners.Input == p {
		return true
	}
	return e.owners.Input == authority.Host && e.pilot == p
}

// JoinResult answers a Join.
type JoinResult struct {
	Actor actor.ID
	Team  string
	Err   error
}

// Join spawns an aircraft for a participant. The host keeps both
// authorities; the client drives it through Input.
type Join struct {
	Participant authority.Participant
	Callsign    string
	Reply       chan<- JoinResult
}

func (j Join) apply(w *World) error {
	id, team, err := w.spawnPilot(j.Participant, j.Callsign)
	if j.Reply != nil {
		j.Reply <- JoinResult{Actor: id, Team: team, Err: err}
	}
	if err == nil {
		e, _ := w.aircraft.Get(id)
		w.emitFeed("joined", util.RosterFeed(e.ac.Callsign, team, true), map[string]any{
			"participant": int32(j.Participant),
			"actor":       uint64(id),
		})
	}
	return err
}

// Leave despawns everything a participant pilots.
type Leave struct {
	Participant authority.Participant
}

func (l Leave) apply(w *World) error {
	for _, id := range w.aircraft.IDs() {
		e, _ := w.aircraft.Get(id)
		if e.pilot == l.Participant || e.owners.Input == l.Participant {
			w.despawn(id)
			w.emitFeed("left", util.RosterFeed(e.ac.Callsign, e.ac.Team, false), map[string]any{
				"participant": int32(l.Participant),
				"actor":       uint64(id),
			})
		}
	}
	return nil
}

// AuthorityChange moves input authority of an actor. State authority only
// ever moves through recovery, which respawns the actor.
type AuthorityChange struct {
	Actor actor.ID
	Input authority.Participant
}

func (c AuthorityChange) apply(w *World) error {
	owners, ok := w.Owners(c.Actor)
	if !ok {
		return fmt.Errorf("authority change for %s: %w", c.Actor, ErrUnknownActor)
	}
	if owners.Input == c.Input {
		return nil
	}
	owners.Input = c.Input
	w.setOwners(c.Actor, owners)
	w.emitAuthority(c.Actor, actor.None, owners, "handover")
	return nil
}

// RemoteState is a state update published by an actor's state owner.
type RemoteState struct {
	Actor actor.ID
	From  authority.Participant
	State flight.State
}

func (r RemoteState) apply(w *World) error {
	e, ok := w.aircraft.Get(r.Actor)
	if !ok {
		return fmt.Errorf("state for %s: %w", r.Actor, ErrUnknownActor)
	}
	if e.owners.State != r.From {
		return &authority.Error{Actor: r.Actor, Op: "remoteState", Missing: authority.State}
	}
	return e.ac.ApplyRemote(r.State)
}

// DamageRequest carries damage from another replica to this one.
type DamageRequest struct {
	Damage projectile.Damage
}

func (d DamageRequest) apply(w *World) error {
	return w.applyDamage(d.Damage)
}
