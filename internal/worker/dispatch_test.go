package worker

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/dogfight/internal/cache"
	"github.com/OCAP2/dogfight/internal/dispatcher"
	"github.com/OCAP2/dogfight/internal/sim"
	"github.com/OCAP2/dogfight/internal/storage"
	"github.com/OCAP2/dogfight/pkg/core"
)

var (
	_ sim.Sink        = (*Sink)(nil)
	_ storage.Backend = (*mockBackend)(nil)
)

// mockLogger implements dispatcher.Logger for testing
type mockLogger struct{}

func (mockLogger) Debug(string, ...any) {}
func (mockLogger) Info(string, ...any)  {}
func (mockLogger) Error(string, ...any) {}

// mockBackend implements storage.Backend for testing
type mockBackend struct {
	mu sync.Mutex

	match       *core.Match
	ended       bool
	aircraft    []core.Aircraft
	states      []core.AircraftState
	fired       []core.FiredEvent
	hits        []core.HitEvent
	kills       []core.KillEvent
	projectiles []core.ProjectileEvent
	locks       []core.LockEvent
	authority   []core.AuthorityEvent
	general     []core.GeneralEvent
	perf        []core.ServerPerformance
	failAdd     error
}

func (b *mockBackend) Init() error  { return nil }
func (b *mockBackend) Close() error { return nil }

func (b *mockBackend) StartMatch(m *core.Match) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	m.ID = 42
	b.match = m
	return nil
}

func (b *mockBackend) EndMatch() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ended = true
	return nil
}

func (b *mockBackend) AddAircraft(a *core.Aircraft) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failAdd != nil {
		return b.failAdd
	}
	b.aircraft = append(b.aircraft, *a)
	return nil
}

func (b *mockBackend) RecordAircraftState(s *core.AircraftState) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.states = append(b.states, *s)
	return nil
}

func (b *mockBackend) RecordFiredEvent(e *core.FiredEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fired = append(b.fired, *e)
	return nil
}

func (b *mockBackend) RecordHitEvent(e *core.HitEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hits = append(b.hits, *e)
	return nil
}

func (b *mockBackend) RecordKillEvent(e *core.KillEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.kills = append(b.kills, *e)
	return nil
}

func (b *mockBackend) RecordProjectileEvent(e *core.ProjectileEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.projectiles = append(b.projectiles, *e)
	return nil
}

func (b *mockBackend) RecordLockEvent(e *core.LockEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.locks = append(b.locks, *e)
	return nil
}

func (b *mockBackend) RecordAuthorityEvent(e *core.AuthorityEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.authority = append(b.authority, *e)
	return nil
}

func (b *mockBackend) RecordGeneralEvent(e *core.GeneralEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.general = append(b.general, *e)
	return nil
}

func (b *mockBackend) RecordServerPerformance(p *core.ServerPerformance) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.perf = append(b.perf, *p)
	return nil
}

func setup(t *testing.T) (*Manager, *mockBackend, *dispatcher.Dispatcher) {
	t.Helper()
	d, err := dispatcher.New(mockLogger{})
	require.NoError(t, err)
	backend := &mockBackend{}
	m := NewManager(Dependencies{EntityCache: cache.NewEntityCache()}, backend)
	m.RegisterHandlers(d)
	return m, backend, d
}

func TestRegisterHandlers(t *testing.T) {
	_, _, d := setup(t)
	defer d.Close()

	for _, cmd := range []string{
		CmdMatchStart, CmdMatchEnd, CmdAircraft, CmdState, CmdFired, CmdHit, CmdKill,
		CmdProjectile, CmdLock, CmdAuthority, CmdEvent, CmdPerformance,
	} {
		assert.True(t, d.HasHandler(cmd), cmd)
	}
}

func TestEveryEventKindHasCommand(t *testing.T) {
	events := []core.Event{
		core.AircraftAdded{}, core.AircraftState{}, core.FiredEvent{}, core.HitEvent{},
		core.KillEvent{}, core.ProjectileEvent{}, core.LockEvent{}, core.AuthorityEvent{},
		core.GeneralEvent{},
	}
	for _, e := range events {
		_, ok := CommandFor(e.EventKind())
		assert.True(t, ok, e.EventKind())
	}
}

func TestMatchStartResetsCacheAndReturnsID(t *testing.T) {
	m, backend, d := setup(t)
	defer d.Close()
	m.deps.EntityCache.AddAircraft(core.Aircraft{ID: 9})

	id, err := d.Dispatch(dispatcher.Event{Command: CmdMatchStart, Payload: core.Match{Name: "Furball"}})
	require.NoError(t, err)

	assert.Equal(t, uint(42), id)
	assert.Equal(t, "Furball", backend.match.Name)
	assert.Zero(t, m.deps.EntityCache.Len())

	_, err = d.Dispatch(dispatcher.Event{Command: CmdMatchEnd})
	require.NoError(t, err)
	assert.True(t, backend.ended)
}

func TestSinkRecordsEventsInBackend(t *testing.T) {
	m, backend, d := setup(t)
	sink := m.Sink(d)

	sink.Record(core.AircraftAdded{Aircraft: core.Aircraft{ID: 1, Callsign: "Viper"}})
	sink.Record(core.AircraftState{AircraftID: 1, Tick: 3})
	sink.Record(core.FiredEvent{ShooterID: 1, ProjectileID: 5})
	sink.Record(core.HitEvent{VictimID: 2, ProjectileID: 5})
	sink.Record(core.KillEvent{VictimID: 2, KillerID: 1})
	sink.Record(core.ProjectileEvent{ProjectileID: 5})
	sink.Record(core.LockEvent{AircraftID: 1, To: "locked"})
	sink.Record(core.AuthorityEvent{ActorID: 2})
	sink.Record(core.GeneralEvent{Name: "note"})
	_, err := d.Dispatch(dispatcher.Event{Command: CmdPerformance, Payload: &core.ServerPerformance{Tick: 60}})
	require.NoError(t, err)

	// Close drains the buffered handlers.
	d.Close()

	backend.mu.Lock()
	defer backend.mu.Unlock()
	require.Len(t, backend.aircraft, 1)
	assert.Equal(t, "Viper", backend.aircraft[0].Callsign)
	assert.Len(t, backend.states, 1)
	assert.Len(t, backend.fired, 1)
	assert.Len(t, backend.hits, 1)
	assert.Len(t, backend.kills, 1)
	assert.Len(t, backend.projectiles, 1)
	assert.Len(t, backend.locks, 1)
	assert.Len(t, backend.authority, 1)
	assert.Len(t, backend.general, 1)
	assert.Len(t, backend.perf, 1)
	assert.Zero(t, m.Dropped())
}

func TestStateBeforeRegistrationIsTooEarly(t *testing.T) {
	m, backend, d := setup(t)

	m.Sink(d).Record(core.AircraftState{AircraftID: 7})
	d.Close()

	assert.Empty(t, backend.states)
	assert.Equal(t, 1, m.TooEarly())
}

func TestHandlerRejectsWrongPayload(t *testing.T) {
	_, _, d := setup(t)
	defer d.Close()

	_, err := d.Dispatch(dispatcher.Event{Command: CmdAircraft, Payload: "not an aircraft"})
	assert.ErrorContains(t, err, "unexpected payload string")
}

func TestSinkCountsDropsAfterClose(t *testing.T) {
	m, _, d := setup(t)
	d.Close()

	m.Sink(d).Record(core.HitEvent{VictimID: 1})

	assert.Equal(t, 1, m.Dropped())
}

func TestSinkLogsBackendFailure(t *testing.T) {
	m, backend, d := setup(t)
	defer d.Close()
	backend.failAdd = errors.New("disk full")

	m.Sink(d).Record(core.AircraftAdded{Aircraft: core.Aircraft{ID: 1}})

	// The aircraft is cached even when the backend refuses it.
	_, ok := m.deps.EntityCache.GetAircraft(1)
	assert.True(t, ok)
	assert.Zero(t, m.Dropped())
}

type slowDB struct{ *mockBackend }

func (slowDB) LastWriteDuration() time.Duration { return 3 * time.Millisecond }

func TestLastWriteDuration(t *testing.T) {
	m := NewManager(Dependencies{}, &mockBackend{})
	assert.Zero(t, m.LastWriteDuration())

	m = NewManager(Dependencies{}, slowDB{&mockBackend{}})
	assert.Equal(t, 3*time.Millisecond, m.LastWriteDuration())
}
