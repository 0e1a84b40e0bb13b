package parser

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync/atomic"
	"unicode"

	"github.com/OCAP2/dogfight/internal/actor"
	"github.com/OCAP2/dogfight/internal/authority"
	"github.com/OCAP2/dogfight/internal/flight"
	"github.com/OCAP2/dogfight/internal/sim"
	"github.com/OCAP2/dogfight/internal/vecmath"
	"github.com/OCAP2/dogfight/pkg/streaming"
)

// ErrInvalidInput rejects a client message that cannot be applied.
var ErrInvalidInput = errors.New("invalid input")

// MaxCallsign is the longest callsign accepted, in runes.
const MaxCallsign = 16

const knownButtons = sim.ButtonToggleHelp | sim.ButtonToggleFlaps

// Parser converts client wire messages into world commands. Axes are
// clamped to their ranges; non-finite numbers are rejected.
type Parser struct {
	logger  *slog.Logger
	clamped atomic.Uint64
}

// NewParser creates a new parser with only a logger dependency
func NewParser(logger *slog.Logger) *Parser {
	return &Parser{logger: logger}
}

// Clamped reports how many messages had an out-of-range axis clamped.
func (p *Parser) Clamped() uint64 {
	return p.clamped.Load()
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// clamp reports whether v was outside [lo, hi].
func clamp(v *float64, lo, hi float64) bool {
	c := vecmath.Clamp(*v, lo, hi)
	if c == *v {
		return false
	}
	*v = c
	return true
}

// ParseInput validates one tick of pilot input sent by from.
func (p *Parser) ParseInput(from authority.Participant, m streaming.InputMsg) (sim.Input, error) {
	if m.Actor == 0 {
		return sim.Input{}, invalid("input without actor")
	}
	if !finite(m.Throttle, m.PitchRoll[0], m.PitchRoll[1], m.Yaw) {
		return sim.Input{}, invalid("non-finite axis from participant %d", from)
	}

	changed := clamp(&m.Throttle, -1, 1)
	changed = clamp(&m.PitchRoll[0], -1, 1) || changed
	changed = clamp(&m.PitchRoll[1], -1, 1) || changed
	changed = clamp(&m.Yaw, -1, 1) || changed
	if changed {
		p.clamped.Add(1)
		p.logger.Debug("input axes clamped", "participant", from, "actor", m.Actor)
	}
	if m.Buttons&^knownButtons != 0 {
		p.logger.Debug("unknown button bits ignored", "participant", from, "buttons", m.Buttons)
	}

	return sim.Input{
		Actor:       actor.ID(m.Actor),
		From:        from,
		Tick:        m.Tick,
		Throttle:    m.Throttle,
		PitchRoll:   m.PitchRoll,
		Yaw:         m.Yaw,
		FireCannon:  m.FireCannon,
		FireMissile: m.FireMissile,
		Buttons:     m.Buttons & knownButtons,
	}, nil
}

// ParseJoin returns a cleaned callsign. An empty callsign is allowed; the
// caller names the pilot.
func (p *Parser) ParseJoin(m streaming.JoinMsg) (string, error) {
	name := strings.TrimSpace(m.Callsign)
	if len([]rune(name)) > MaxCallsign {
		return "", invalid("callsign longer than %d", MaxCallsign)
	}
	for _, r := range name {
		if !unicode.IsPrint(r) {
			return "", invalid("callsign has unprintable rune %q", r)
		}
	}
	return name, nil
}

// ParseAuthority turns a claim into an input handover to from, and a
// release into a handover back to the host.
func (p *Parser) ParseAuthority(from authority.Participant, m streaming.AuthorityMsg) (sim.AuthorityChange, error) {
	if m.Actor == 0 {
		return sim.AuthorityChange{}, invalid("authority without actor")
	}
	to := from
	if !m.Claim {
		to = authority.Host
	}
	return sim.AuthorityChange{Actor: actor.ID(m.Actor), Input: to}, nil
}

// ParseState validates a state update from a client that owns an actor's
// state. The rotation is renormalized.
func (p *Parser) ParseState(from authority.Participant, m streaming.StateMsg) (sim.RemoteState, error) {
	if m.Actor == 0 {
		return sim.RemoteState{}, invalid("state without actor")
	}
	nums := []float64{m.Throttle, m.Health, m.MaxHealth}
	nums = append(nums, m.Position[:]...)
	nums = append(nums, m.Rotation[:]...)
	nums = append(nums, m.Velocity[:]...)
	nums = append(nums, m.AngularVelocity[:]...)
	if !finite(nums...) {
		return sim.RemoteState{}, invalid("non-finite state for actor %d", m.Actor)
	}
	if m.Health < 0 || m.MaxHealth <= 0 || m.Health > m.MaxHealth {
		return sim.RemoteState{}, invalid("health %.1f/%.1f", m.Health, m.MaxHealth)
	}
	rot := vecmath.Quat{X: m.Rotation[0], Y: m.Rotation[1], Z: m.Rotation[2], W: m.Rotation[3]}
	if rot.X == 0 && rot.Y == 0 && rot.Z == 0 && rot.W == 0 {
		return sim.RemoteState{}, invalid("zero rotation")
	}

	return sim.RemoteState{
		Actor: actor.ID(m.Actor),
		From:  from,
		State: flight.State{
			Position:        vec(m.Position),
			Rotation:        rot.Normalize(),
			Velocity:        vec(m.Velocity),
			AngularVelocity: vec(m.AngularVelocity),
			Throttle:        vecmath.Clamp(m.Throttle, 0, 1),
			Health:          m.Health,
			MaxHealth:       m.MaxHealth,
			Flaps:           m.Flaps,
			Dead:            m.Dead,
			Crashed:         m.Crashed,
		},
	}, nil
}

func vec(a [3]float64) vecmath.Vec3 { return vecmath.V(a[0], a[1], a[2]) }
