// Package memory records a match in memory and exports it as JSON when the
// match ends.
package memory

import (
	"fmt"
	"sync"

	"github.com/OCAP2/dogfight/internal/config"
	"github.com/OCAP2/dogfight/internal/geo"
	v1 "github.com/OCAP2/dogfight/internal/storage/memory/export/v1"
	"github.com/OCAP2/dogfight/pkg/core"
)

// Backend stores match data in memory and exports to JSON
type Backend struct {
	cfg    config.MemoryConfig
	match  *core.Match
	origin geo.Origin

	aircraft map[uint64]*v1.AircraftRecord // keyed by actor ID

	hitEvents        []core.HitEvent
	killEvents       []core.KillEvent
	lockEvents       []core.LockEvent
	authorityEvents  []core.AuthorityEvent
	generalEvents    []core.GeneralEvent
	projectileEvents []core.ProjectileEvent

	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:      cfg,
		aircraft: make(map[uint64]*v1.AircraftRecord),
	}
}

func (b *Backend) Init() error  { return nil }
func (b *Backend) Close() error { return nil }

// StartMatch begins recording a new match and drops anything left over from
// the previous one.
func (b *Backend) StartMatch(match *core.Match) error {
	origin, err := geo.NewOrigin(match.OriginLat, match.OriginLon)
	if err != nil {
		return fmt.Errorf("match origin: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.match = match
	b.origin = origin
	b.aircraft = make(map[uint64]*v1.AircraftRecord)
	b.hitEvents = nil
	b.killEvents = nil
	b.lockEvents = nil
	b.authorityEvents = nil
	b.generalEvents = nil
	b.projectileEvents = nil
	b.lastExportPath = ""
	return nil
}

// EndMatch exports the match to disk
func (b *Backend) EndMatch() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.match == nil {
		return fmt.Errorf("no match to end")
	}
	return b.exportJSON()
}

// AddAircraft registers an aircraft. Re-adding an ID keeps its history.
func (b *Backend) AddAircraft(a *core.Aircraft) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if record, ok := b.aircraft[a.ID]; ok {
		record.Aircraft = *a
		return nil
	}
	b.aircraft[a.ID] = &v1.AircraftRecord{
		Aircraft: *a,
		States:   make([]core.AircraftState, 0),
	}
	return nil
}

// GetAircraft looks up an aircraft by actor ID
func (b *Backend) GetAircraft(id uint64) (*core.Aircraft, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if record, ok := b.aircraft[id]; ok {
		return &record.Aircraft, true
	}
	return nil, false
}

// RecordAircraftState appends a sampled state. States of unknown aircraft
// are ignored.
func (b *Backend) RecordAircraftState(s *core.AircraftState) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if record, ok := b.aircraft[s.AircraftID]; ok {
		record.States = append(record.States, *s)
	}
	return nil
}

// RecordFiredEvent attaches the shot to the shooter
func (b *Backend) RecordFiredEvent(e *core.FiredEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if record, ok := b.aircraft[e.ShooterID]; ok {
		record.FiredEvents = append(record.FiredEvents, *e)
	}
	return nil
}

func (b *Backend) RecordHitEvent(e *core.HitEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hitEvents = append(b.hitEvents, *e)
	return nil
}

func (b *Backend) RecordKillEvent(e *core.KillEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.killEvents = append(b.killEvents, *e)
	return nil
}

func (b *Backend) RecordProjectileEvent(e *core.ProjectileEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.projectileEvents = append(b.projectileEvents, *e)
	return nil
}

func (b *Backend) RecordLockEvent(e *core.LockEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lockEvents = append(b.lockEvents, *e)
	return nil
}

func (b *Backend) RecordAuthorityEvent(e *core.AuthorityEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.authorityEvents = append(b.authorityEvents, *e)
	return nil
}

func (b *Backend) RecordGeneralEvent(e *core.GeneralEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.generalEvents = append(b.generalEvents, *e)
	return nil
}
