package weapons

import (
	"github.com/OCAP2/dogfight/internal/vecmath"
)

type LockState uint8

const (
	Unlocked LockState = iota
	Tracking
	Locked
)

func (s LockState) String() string {
	switch s {
	case Tracking:
		return "tracking"
	case Locked:
		return "locked"
	}
	return "unlocked"
}

type LockConfig struct {
	Range float64 // metres
	Angle float64 // degrees off the nose
	Speed float64 // degrees per second
}

// LockTarget is what the lock sees of the current target.
type LockTarget struct {
	Position vecmath.Vec3
	Alive    bool
}

// Lock steers a seeker direction, held in the aircraft's local frame,
// toward the target bearing and reports the resulting lock state.
type Lock struct {
	cfg   LockConfig
	dir   vecmath.Vec3
	state LockState
}

func NewLock(cfg LockConfig) *Lock {
	return &Lock{cfg: cfg, dir: vecmath.Forward}
}

func (l *Lock) State() LockState { return l.state }

// Direction is the seeker direction in the aircraft's local frame.
func (l *Lock) Direction() vecmath.Vec3 { return l.dir }

func (l *Lock) Locked() bool { return l.state == Locked }

// Update advances the seeker using the aircraft pose integrated this tick.
// tgt is nil when no target is assigned. It returns the previous state.
func (l *Lock) Update(dt float64, pos vecmath.Vec3, rot vecmath.Quat, tgt *LockTarget) LockState {
	prev := l.state
	want := vecmath.Forward
	tracking := false

	if tgt != nil && tgt.Alive {
		errVec := tgt.Position.Sub(pos)
		local := rot.Inverse().Rotate(errVec.Normalize())
		if errVec.Len() <= l.cfg.Range && vecmath.Angle(vecmath.Forward, local) <= l.cfg.Angle {
			tracking = true
			want = local
		}
	}

	step := l.cfg.Speed * dt
	l.dir = vecmath.RotateTowards(l.dir, want, step*vecmath.Deg2Rad)

	switch {
	case tracking && vecmath.Angle(l.dir, want) < step:
		l.state = Locked
	case tracking:
		l.state = Tracking
	default:
		l.state = Unlocked
	}
	return prev
}

// Reset points the seeker forward and drops any lock.
func (l *Lock) Reset() {
	l.dir = vecmath.Forward
	l.state = Unlocked
}
