package sim

import (
	"math"
	"time"

	"github.com/OCAP2/dogfight/internal/actor"
	"github.com/OCAP2/dogfight/internal/authority"
	"github.com/OCAP2/dogfight/internal/flight"
	"github.com/OCAP2/dogfight/internal/vecmath"
	"github.com/OCAP2/dogfight/pkg/core"
)

// subscriberBuffer is how many snapshots a slow subscriber may lag behind
// before snapshots are dropped for it.
const subscriberBuffer = 8

// AircraftView is the replicated output of one aircraft.
type AircraftView struct {
	ID             actor.ID
	Callsign       string
	Team           string
	Owners         authority.Owners
	Pilot          authority.Participant
	State          flight.State
	Incoming       actor.ID // nearest homing missile
	TargetDistance float64  // 0 without a target
}

// ProjectileView is a bullet or missile in flight.
type ProjectileView struct {
	ID       actor.ID
	Kind     actor.Kind
	Owner    actor.ID
	Target   actor.ID
	Position vecmath.Vec3
	Rotation vecmath.Quat
	Velocity vecmath.Vec3
	Exploded bool
}

// Snapshot is the world as of the end of a tick, plus the events reported
// since the previous snapshot.
type Snapshot struct {
	Tick        uint
	Time        time.Time
	Aircraft    []AircraftView
	Projectiles []ProjectileView
	Events      []core.Event
}

// Subscribe returns a channel of snapshots and a function that cancels the
// subscription. Snapshots are dropped for subscribers that fall behind.
func (w *World) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, subscriberBuffer)

	w.subMu.Lock()
	id := w.nextSub
	w.nextSub++
	w.subs[id] = ch
	w.subMu.Unlock()

	return ch, func() {
		w.subMu.Lock()
		defer w.subMu.Unlock()
		if c, ok := w.subs[id]; ok {
			delete(w.subs, id)
			close(c)
		}
	}
}

func (w *World) publish() {
	if w.tick%uint(w.opts.SnapshotEvery) != 0 {
		return
	}
	snap := w.Snapshot()
	snap.Events = w.events
	w.events = nil

	w.subMu.Lock()
	defer w.subMu.Unlock()
	for _, ch := range w.subs {
		select {
		case ch <- snap:
		default:
			w.metrics.droppedSnapshot()
		}
	}
}

// Snapshot captures the current actor views. It must be called from the
// goroutine that steps the world.
func (w *World) Snapshot() Snapshot {
	snap := Snapshot{Tick: w.tick, Time: w.now()}
	for _, id := range w.aircraft.IDs() {
		e, _ := w.aircraft.Get(id)
		v := AircraftView{
			ID:       id,
			Callsign: e.ac.Callsign,
			Team:     e.ac.Team,
			Owners:   e.owners,
			Pilot:    e.pilot,
			State:    e.ac.State(),
		}
		v.Incoming, _ = e.record.IncomingMissile()
		if t, ok := w.aircraft.Get(e.ac.Target()); ok {
			v.TargetDistance = t.ac.Pos().Dist(e.ac.Pos())
		}
		snap.Aircraft = append(snap.Aircraft, v)
	}
	for _, id := range w.bullets.IDs() {
		e, _ := w.bullets.Get(id)
		snap.Projectiles = append(snap.Projectiles, ProjectileView{
			ID:       id,
			Kind:     actor.KindBullet,
			Owner:    e.b.Owner,
			Position: e.b.Position(),
			Rotation: e.b.Rotation(),
			Velocity: e.b.Velocity(),
		})
	}
	for _, id := range w.missiles.IDs() {
		e, _ := w.missiles.Get(id)
		v := ProjectileView{
			ID:       id,
			Kind:     actor.KindMissile,
			Owner:    e.m.Owner,
			Target:   e.m.Target,
			Exploded: e.m.Exploded(),
		}
		if b := e.m.Body(); b != nil {
			v.Position, v.Rotation, v.Velocity = b.Position, b.Rotation, b.Velocity
		}
		snap.Projectiles = append(snap.Projectiles, v)
	}
	return snap
}

// sampleStates hands aircraft poses to the recorder every StateEvery ticks.
func (w *World) sampleStates() {
	if w.opts.Sink == nil || w.opts.StateEvery <= 0 || w.tick%uint(w.opts.StateEvery) != 0 {
		return
	}
	t := w.now()
	for _, id := range w.aircraft.IDs() {
		e, _ := w.aircraft.Get(id)
		w.opts.Sink.Record(stateRow(id, e, w.tick, t))
	}
}

func stateRow(id actor.ID, e *aircraftEntry, tick uint, t time.Time) core.AircraftState {
	s := e.ac.State()
	heading, pitch, roll := attitude(s.Rotation)
	return core.AircraftState{
		AircraftID: uint64(id),
		Time:       t,
		Tick:       tick,
		Position:   pos3(s.Position),
		Velocity:   pos3(s.Velocity),
		Heading:    float32(heading),
		Pitch:      float32(pitch),
		Roll:       float32(roll),
		Speed:      float32(s.Velocity.Len()),
		Throttle:   float32(s.Throttle),
		Health:     float32(s.Health),
		GForce:     float32(s.GForce.Len() / vecmath.Gravity),
		Flaps:      s.Flaps,
		IsAlive:    !s.Dead,
		Crashed:    s.Crashed,
		LockState:  s.Lock.String(),
		TargetID:   uint64(s.Target),
	}
}

// attitude returns heading, pitch and roll in degrees. Positive roll is
// right wing down.
func attitude(q vecmath.Quat) (heading, pitch, roll float64) {
	heading = q.Yaw()
	pitch = 90 - vecmath.Angle(q.Forward(), vecmath.Up)
	roll = -math.Asin(vecmath.Clamp(q.Right().Y, -1, 1)) * vecmath.Rad2Deg
	return heading, pitch, roll
}
