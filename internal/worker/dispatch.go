package worker

import (
	"fmt"

	"github.com/OCAP2/dogfight/internal/dispatcher"
	"github.com/OCAP2/dogfight/internal/storage"
	"github.com/OCAP2/dogfight/pkg/core"
)

// Recorder commands. Each world event kind has one.
const (
	CmdMatchStart  = ":MATCH:START:"
	CmdMatchEnd    = ":MATCH:END:"
	CmdAircraft    = ":RECORD:AIRCRAFT:"
	CmdState       = ":RECORD:STATE:"
	CmdFired       = ":RECORD:FIRED:"
	CmdHit         = ":RECORD:HIT:"
	CmdKill        = ":RECORD:KILL:"
	CmdProjectile  = ":RECORD:PROJECTILE:"
	CmdLock        = ":RECORD:LOCK:"
	CmdAuthority   = ":RECORD:AUTHORITY:"
	CmdEvent       = ":RECORD:EVENT:"
	CmdPerformance = ":RECORD:PERFORMANCE:"
)

var commandByKind = map[string]string{
	core.KindAircraftAdded: CmdAircraft,
	core.KindAircraftState: CmdState,
	core.KindFired:         CmdFired,
	core.KindHit:           CmdHit,
	core.KindKill:          CmdKill,
	core.KindProjectile:    CmdProjectile,
	core.KindLock:          CmdLock,
	core.KindAuthority:     CmdAuthority,
	core.KindGeneral:       CmdEvent,
}

// CommandFor returns the recorder command for an event kind.
func CommandFor(kind string) (string, bool) {
	cmd, ok := commandByKind[kind]
	return cmd, ok
}

// RegisterHandlers registers all record handlers with the dispatcher.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	// Match lifecycle and registration - sync (states need the cache filled)
	d.Register(CmdMatchStart, m.handleMatchStart, dispatcher.Logged())
	d.Register(CmdMatchEnd, m.handleMatchEnd, dispatcher.Logged())
	d.Register(CmdAircraft, m.handleAircraft, dispatcher.Logged())

	// High-volume state samples - buffered
	d.Register(CmdState, m.handleState, dispatcher.Buffered(10000))

	// Combat events - buffered
	d.Register(CmdFired, m.handleFired, dispatcher.Buffered(5000), dispatcher.Logged())
	d.Register(CmdHit, m.handleHit, dispatcher.Buffered(2000), dispatcher.Logged())
	d.Register(CmdKill, m.handleKill, dispatcher.Buffered(1000), dispatcher.Logged())
	d.Register(CmdProjectile, m.handleProjectile, dispatcher.Buffered(5000), dispatcher.Logged())
	d.Register(CmdLock, m.handleLock, dispatcher.Buffered(2000), dispatcher.Logged())

	// Ownership, general and performance - buffered
	d.Register(CmdAuthority, m.handleAuthority, dispatcher.Buffered(1000), dispatcher.Logged())
	d.Register(CmdEvent, m.handleGeneral, dispatcher.Buffered(1000), dispatcher.Logged())
	d.Register(CmdPerformance, m.handlePerformance, dispatcher.Buffered(100), dispatcher.Logged())
}

func payload[T any](e dispatcher.Event) (T, error) {
	switch p := e.Payload.(type) {
	case T:
		return p, nil
	case *T:
		if p != nil {
			return *p, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("%s: unexpected payload %T", e.Command, e.Payload)
}

func (m *Manager) handleMatchStart(e dispatcher.Event) (any, error) {
	match, err := payload[core.Match](e)
	if err != nil {
		return nil, err
	}
	m.deps.EntityCache.Reset()
	if err := m.backend.StartMatch(&match); err != nil {
		return nil, fmt.Errorf("failed to start match: %w", err)
	}
	return match.ID, nil
}

func (m *Manager) handleMatchEnd(dispatcher.Event) (any, error) {
	if err := m.backend.EndMatch(); err != nil {
		return nil, fmt.Errorf("failed to end match: %w", err)
	}
	return nil, nil
}

func (m *Manager) handleAircraft(e dispatcher.Event) (any, error) {
	added, err := payload[core.AircraftAdded](e)
	if err != nil {
		return nil, err
	}
	// Always cache for state handler lookups
	m.deps.EntityCache.AddAircraft(added.Aircraft)
	return nil, m.backend.AddAircraft(&added.Aircraft)
}

func (m *Manager) handleState(e dispatcher.Event) (any, error) {
	s, err := payload[core.AircraftState](e)
	if err != nil {
		return nil, err
	}
	if _, ok := m.deps.EntityCache.GetAircraft(s.AircraftID); !ok {
		m.early.Inc()
		return nil, ErrTooEarlyForStateAssociation
	}
	return nil, m.backend.RecordAircraftState(&s)
}

func (m *Manager) handleFired(e dispatcher.Event) (any, error) {
	ev, err := payload[core.FiredEvent](e)
	if err != nil {
		return nil, err
	}
	return nil, m.backend.RecordFiredEvent(&ev)
}

func (m *Manager) handleHit(e dispatcher.Event) (any, error) {
	ev, err := payload[core.HitEvent](e)
	if err != nil {
		return nil, err
	}
	return nil, m.backend.RecordHitEvent(&ev)
}

func (m *Manager) handleKill(e dispatcher.Event) (any, error) {
	ev, err := payload[core.KillEvent](e)
	if err != nil {
		return nil, err
	}
	return nil, m.backend.RecordKillEvent(&ev)
}

func (m *Manager) handleProjectile(e dispatcher.Event) (any, error) {
	ev, err := payload[core.ProjectileEvent](e)
	if err != nil {
		return nil, err
	}
	return nil, m.backend.RecordProjectileEvent(&ev)
}

func (m *Manager) handleLock(e dispatcher.Event) (any, error) {
	ev, err := payload[core.LockEvent](e)
	if err != nil {
		return nil, err
	}
	return nil, m.backend.RecordLockEvent(&ev)
}

func (m *Manager) handleAuthority(e dispatcher.Event) (any, error) {
	ev, err := payload[core.AuthorityEvent](e)
	if err != nil {
		return nil, err
	}
	return nil, m.backend.RecordAuthorityEvent(&ev)
}

func (m *Manager) handleGeneral(e dispatcher.Event) (any, error) {
	ev, err := payload[core.GeneralEvent](e)
	if err != nil {
		return nil, err
	}
	return nil, m.backend.RecordGeneralEvent(&ev)
}

// handlePerformance is a no-op for backends that do not keep samples.
func (m *Manager) handlePerformance(e dispatcher.Event) (any, error) {
	p, err := payload[core.ServerPerformance](e)
	if err != nil {
		return nil, err
	}
	rec, ok := m.backend.(storage.PerformanceRecorder)
	if !ok {
		return nil, nil
	}
	return nil, rec.RecordServerPerformance(&p)
}
