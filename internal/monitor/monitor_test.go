package monitor

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/dogfight/internal/dispatcher"
	"github.com/OCAP2/dogfight/internal/match"
	"github.com/OCAP2/dogfight/internal/sim"
	"github.com/OCAP2/dogfight/internal/worker"
	"github.com/OCAP2/dogfight/pkg/core"
)

type fakeWorld struct{ stats sim.Stats }

func (w fakeWorld) Stats() sim.Stats { return w.stats }

type fakeClients struct{}

func (fakeClients) Clients() int         { return 3 }
func (fakeClients) Dropped() uint64      { return 7 }
func (fakeClients) DroppedInput() uint64 { return 2 }

type capture struct {
	mu     sync.Mutex
	events []dispatcher.Event
	perf   []core.ServerPerformance
}

func (c *capture) Dispatch(e dispatcher.Event) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil, nil
}

func (c *capture) RecordServerPerformance(p *core.ServerPerformance) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.perf = append(c.perf, *p)
	return nil
}

func (c *capture) counts() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events), len(c.perf)
}

func testWorld() fakeWorld {
	return fakeWorld{stats: sim.Stats{
		Tick:        600,
		Ticks:       60,
		Average:     1500 * time.Microsecond,
		Max:         4 * time.Millisecond,
		Aircraft:    4,
		Projectiles: 12,
	}}
}

func TestSample(t *testing.T) {
	mc := match.NewContext()
	require.NoError(t, mc.Start(&core.Match{SessionID: "s1"}))

	s := NewService(Dependencies{
		World:   testWorld(),
		Clients: fakeClients{},
		Worker:  worker.NewManager(worker.Dependencies{}, nil),
		Match:   mc,
	}, 0)
	st := s.Sample()

	assert.Equal(t, "s1", st.Match)
	assert.Equal(t, uint(600), st.Performance.Tick)
	assert.InDelta(t, 1.5, st.Performance.TickAvgMs, 1e-6)
	assert.InDelta(t, 4, st.Performance.TickMaxMs, 1e-6)
	assert.Equal(t, 4, st.Performance.Aircraft)
	assert.Equal(t, 12, st.Performance.Projectiles)
	assert.Equal(t, 3, st.Performance.Clients)
	assert.Equal(t, 2, st.Performance.DroppedInput)
	assert.Equal(t, uint64(7), st.OutboundDropped)
	assert.Zero(t, st.LastWriteMs)
}

type backlogDispatcher struct{ capture }

func (*backlogDispatcher) Backlog() map[string]int { return map[string]int{worker.CmdState: 40} }

func TestSampleReportsDispatcherBacklog(t *testing.T) {
	s := NewService(Dependencies{World: testWorld(), Dispatcher: &backlogDispatcher{}}, 0)
	assert.Equal(t, map[string]int{worker.CmdState: 40}, s.Sample().Backlog)

	s = NewService(Dependencies{World: testWorld(), Dispatcher: &capture{}}, 0)
	assert.Nil(t, s.Sample().Backlog)
}

func TestRunPublishesDuringMatch(t *testing.T) {
	mc := match.NewContext()
	require.NoError(t, mc.Start(&core.Match{SessionID: "s1"}))
	sink := &capture{}
	path := filepath.Join(t.TempDir(), "status.json")

	s := NewService(Dependencies{
		World:      testWorld(),
		Dispatcher: sink,
		Influx:     sink,
		Match:      mc,
		StatusPath: path,
	}, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		events, perf := sink.counts()
		return events >= 2 && perf >= 2
	}, 2*time.Second, 5*time.Millisecond)
	assert.True(t, s.IsRunning())
	assert.Error(t, s.Run(ctx), "second Run")

	cancel()
	require.NoError(t, <-done)
	assert.False(t, s.IsRunning())

	sink.mu.Lock()
	e := sink.events[0]
	sink.mu.Unlock()
	assert.Equal(t, worker.CmdPerformance, e.Command)
	assert.IsType(t, core.ServerPerformance{}, e.Payload)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var st Status
	require.NoError(t, json.Unmarshal(data, &st))
	assert.Equal(t, "s1", st.Match)
	assert.Equal(t, "s1", s.Last().Match)
}

func TestRunIdleBetweenMatches(t *testing.T) {
	sink := &capture{}
	s := NewService(Dependencies{
		World:      testWorld(),
		Dispatcher: sink,
		Match:      match.NewContext(),
	}, 2*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	require.NoError(t, s.Run(ctx))

	events, _ := sink.counts()
	assert.Zero(t, events)
	assert.Equal(t, uint(600), s.Last().Performance.Tick)
}
