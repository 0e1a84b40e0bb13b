// Package sim runs one replica of the world: a fixed-rate tick loop over
// aircraft, bullets and missiles, the damage router and the authority
// recovery protocol.
package sim

import (
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/OCAP2/dogfight/internal/actor"
	"github.com/OCAP2/dogfight/internal/authority"
	"github.com/OCAP2/dogfight/internal/flight"
	"github.com/OCAP2/dogfight/internal/physics"
	"github.com/OCAP2/dogfight/internal/projectile"
	"github.com/OCAP2/dogfight/internal/queue"
	"github.com/OCAP2/dogfight/internal/target"
	"github.com/OCAP2/dogfight/internal/vecmath"
	"github.com/OCAP2/dogfight/pkg/core"
)

// ErrUnknownActor is returned for handles that do not resolve on this replica.
var ErrUnknownActor = errors.New("unknown actor")

// Sink receives every event the world reports, in tick order.
type Sink interface {
	Record(e core.Event)
}

// Options configures a World replica.
type Options struct {
	Local         authority.Participant
	Server        bool
	TickRate      int
	SnapshotEvery int
	StateEvery    int // recorder sampling, in ticks
	Grace         time.Duration
	TargetRetry   time.Duration
	GroundHeight  float64
	NoGround      bool
	Seed          int64
	Bullet        projectile.BulletConfig
	Missile       projectile.MissileConfig
	SpawnPoints   map[string][]SpawnPoint
	Bots          []Bot
	Profiles      ProfileSource
	Logger        *slog.Logger
	Sender        Sender
	Sink          Sink
}

type aircraftEntry struct {
	ac      *flight.Aircraft
	owners  authority.Owners
	monitor *authority.Monitor
	record  *target.Record
	profile string
	pilot   authority.Participant
	bot     bool
	joined  uint

	input       Input
	hasInput    bool
	prevButtons uint8
	missileHeld bool
	retarget    float64
}

type bulletEntry struct {
	b       *projectile.Bullet
	owners  authority.Owners
	monitor *authority.Monitor
	fired   uint
}

type missileEntry struct {
	m       *projectile.Missile
	owners  authority.Owners
	monitor *authority.Monitor
	fired   uint
}

// World is one replica. Step and everything it calls run on a single
// goroutine; Submit and Subscribe are safe from any goroutine.
type World struct {
	opts  Options
	log   *slog.Logger
	dt    float64
	tick  uint
	ids   actor.Allocator
	space *physics.Space
	rng   *rand.Rand

	aircraft *actor.Set[*aircraftEntry]
	bullets  *actor.Set[*bulletEntry]
	missiles *actor.Set[*missileEntry]

	inbox   *queue.Queue[Command]
	router  *Router
	pending []actor.ID
	events  []core.Event
	spawned map[string]int

	subMu   sync.Mutex
	subs    map[int]chan Snapshot
	nextSub int

	metrics *metrics
}

// New creates an empty world. Zero option values fall back to defaults.
func New(opts Options) *World {
	if opts.TickRate <= 0 {
		opts.TickRate = 60
	}
	if opts.SnapshotEvery <= 0 {
		opts.SnapshotEvery = 1
	}
	if opts.Grace <= 0 {
		opts.Grace = authority.DefaultGrace
	}
	if opts.TargetRetry <= 0 {
		opts.TargetRetry = time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Profiles == nil {
		opts.Profiles = defaultProfiles
	}

	w := &World{
		opts:     opts,
		log:      opts.Logger.With("participant", opts.Local.String()),
		dt:       1 / float64(opts.TickRate),
		space:    physics.NewSpace(opts.GroundHeight, !opts.NoGround),
		rng:      rand.New(rand.NewSource(opts.Seed)),
		aircraft: actor.NewSet[*aircraftEntry](),
		bullets:  actor.NewSet[*bulletEntry](),
		missiles: actor.NewSet[*missileEntry](),
		inbox:    queue.New[Command](),
		subs:     make(map[int]chan Snapshot),
		spawned:  make(map[string]int),
	}
	w.router = newRouter(opts.Local, w, opts.Sender)
	w.metrics = newMetrics(w.log)
	return w
}

// Local is the participant this replica runs for.
func (w *World) Local() authority.Participant { return w.opts.Local }

// IsServer reports whether this replica arbitrates authority recovery.
func (w *World) IsServer() bool { return w.opts.Server }

// Tick is the number of completed steps.
func (w *World) Tick() uint { return w.tick }

// DT is the fixed step length in seconds.
func (w *World) DT() float64 { return w.dt }

func (w *World) TickRate() int { return w.opts.TickRate }

// Aircraft returns the aircraft behind a handle.
func (w *World) Aircraft(id actor.ID) (*flight.Aircraft, bool) {
	e, ok := w.aircraft.Get(id)
	if !ok {
		return nil, false
	}
	return e.ac, true
}

// AircraftIDs lists live aircraft in ID order.
func (w *World) AircraftIDs() []actor.ID { return w.aircraft.IDs() }

// Owners returns the global authority assignment of any actor.
func (w *World) Owners(id actor.ID) (authority.Owners, bool) {
	if e, ok := w.aircraft.Get(id); ok {
		return e.owners, true
	}
	if e, ok := w.bullets.Get(id); ok {
		return e.owners, true
	}
	if e, ok := w.missiles.Get(id); ok {
		return e.owners, true
	}
	return authority.Owners{}, false
}

// Bullet returns an in-flight bullet.
func (w *World) Bullet(id actor.ID) (*projectile.Bullet, bool) {
	e, ok := w.bullets.Get(id)
	if !ok {
		return nil, false
	}
	return e.b, true
}

// Missile returns a live or settling missile.
func (w *World) Missile(id actor.ID) (*projectile.Missile, bool) {
	e, ok := w.missiles.Get(id)
	if !ok {
		return nil, false
	}
	return e.m, true
}

func (w *World) BulletIDs() []actor.ID  { return w.bullets.IDs() }
func (w *World) MissileIDs() []actor.ID { return w.missiles.IDs() }

// Step advances the replica by one fixed tick.
func (w *World) Step() {
	start := time.Now()

	w.drainInbox()
	w.checkAuthority()
	w.updateTargets()
	w.applyInputs()
	w.tickAircraft()
	w.tickBullets()
	w.tickMissiles()
	w.tickRecords()
	w.resolveCollisions()
	w.flushDespawns()

	w.tick++
	w.sampleStates()
	w.publish()

	w.metrics.observeTick(w.tick, time.Since(start), w.aircraft.Len(), w.bullets.Len()+w.missiles.Len())
}

// Space is the collision space shared by every actor of this replica.
func (w *World) Space() *physics.Space { return w.space }

// IsAircraft reports whether id resolves to a live aircraft.
func (w *World) IsAircraft(id actor.ID) bool { return w.aircraft.Has(id) }

// RequestDamage routes damage to the victim's state owner.
func (w *World) RequestDamage(d projectile.Damage) { w.router.Route(d) }

// TargetRecord returns the tracking record of an aircraft.
func (w *World) TargetRecord(id actor.ID) (*target.Record, bool) {
	e, ok := w.aircraft.Get(id)
	if !ok {
		return nil, false
	}
	return e.record, true
}

// Locate resolves aircraft and missile handles to a position.
func (w *World) Locate(id actor.ID) (vecmath.Vec3, bool) {
	if e, ok := w.aircraft.Get(id); ok && e.ac.Body() != nil {
		return e.ac.Body().Position, true
	}
	if e, ok := w.missiles.Get(id); ok && e.m.Body() != nil {
		return e.m.Body().Position, true
	}
	return vecmath.Zero, false
}

func (w *World) emit(e core.Event) {
	w.events = append(w.events, e)
	if w.opts.Sink != nil {
		w.opts.Sink.Record(e)
	}
}

func (w *World) now() time.Time { return time.Now() }

// actorLog returns a logger carrying the actor context.
func (w *World) actorLog(id actor.ID, callsign string) *slog.Logger {
	return w.log.With("actor", id.String(), "callsign", callsign, "tick", w.tick)
}

var (
	_ projectile.World = (*World)(nil)
	_ flight.Armory    = (*World)(nil)
)
