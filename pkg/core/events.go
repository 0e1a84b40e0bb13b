package core

import "time"

// Event is anything the world reports during a tick.
type Event interface {
	EventKind() string
}

// Event kinds, one per concrete type below.
const (
	KindAircraftAdded = "aircraft_added"
	KindAircraftState = "aircraft_state"
	KindFired         = "fired"
	KindHit           = "hit"
	KindKill          = "kill"
	KindProjectile    = "projectile"
	KindLock          = "lock"
	KindAuthority     = "authority"
	KindGeneral       = "general"
)

// AircraftAdded wraps a registration so it can travel as an Event.
type AircraftAdded struct {
	Aircraft Aircraft
}

// FiredEvent is a cannon round or missile leaving an aircraft.
type FiredEvent struct {
	Time         time.Time
	Tick         uint
	ShooterID    uint64
	ProjectileID uint64
	Weapon       string // "cannon" or "missile"
	Hardpoint    int
	TargetID     uint64 // 0 for unguided
	Position     Position3D
	Direction    Position3D
}

// HitEvent is damage applied on the victim's state owner.
type HitEvent struct {
	ID           uint
	Time         time.Time
	Tick         uint
	VictimID     uint64
	ShooterID    uint64
	ProjectileID uint64
	Cause        string
	Amount       float32
	HealthBefore float32
	HealthAfter  float32
	Position     Position3D
	Distance     float32
}

// KillEvent is an aircraft reaching zero health.
type KillEvent struct {
	ID       uint
	Time     time.Time
	Tick     uint
	VictimID uint64
	KillerID uint64 // 0 when nobody is to blame
	Cause    string
	Position Position3D
	Crashed  bool
}

// TrajectoryPoint is one sampled projectile position.
type TrajectoryPoint struct {
	Position Position3D
	Tick     uint
}

// ProjectileEvent is written when a bullet or missile despawns.
type ProjectileEvent struct {
	Time         time.Time
	LaunchTick   uint
	EndTick      uint
	ProjectileID uint64
	Kind         string
	OwnerID      uint64
	TargetID     uint64
	Outcome      string
	HitID        uint64
	FlightTime   float32
	Trajectory   []TrajectoryPoint
}

// LockEvent is a lock state transition.
type LockEvent struct {
	Time       time.Time
	Tick       uint
	AircraftID uint64
	TargetID   uint64
	From       string
	To         string
}

// AuthorityEvent is a change of ownership of a replicated actor.
type AuthorityEvent struct {
	Time       time.Time
	Tick       uint
	ActorID    uint64
	ReplacedBy uint64 // set when recovery respawned the actor
	Kind       string
	InputOwner int32
	StateOwner int32
	Reason     string
}

// GeneralEvent is a free-form event.
type GeneralEvent struct {
	ID        uint
	Time      time.Time
	Tick      uint
	Name      string
	Message   string
	ExtraData map[string]any
}

// ServerPerformance is a periodic tick loop health sample.
type ServerPerformance struct {
	Time         time.Time
	Tick         uint
	TickAvgMs    float32
	TickMaxMs    float32
	Aircraft     int
	Projectiles  int
	Clients      int
	DroppedInput int
}

func (AircraftAdded) EventKind() string   { return KindAircraftAdded }
func (AircraftState) EventKind() string   { return KindAircraftState }
func (FiredEvent) EventKind() string      { return KindFired }
func (HitEvent) EventKind() string        { return KindHit }
func (KillEvent) EventKind() string       { return KindKill }
func (ProjectileEvent) EventKind() string { return KindProjectile }
func (LockEvent) EventKind() string       { return KindLock }
func (AuthorityEvent) EventKind() string  { return KindAuthority }
func (GeneralEvent) EventKind() string    { return KindGeneral }
