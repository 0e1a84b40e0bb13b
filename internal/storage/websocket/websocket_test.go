package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/dogfight/pkg/core"
	"github.com/OCAP2/dogfight/pkg/streaming"
)

// recordingServer upgrades every request, logs each envelope per connection
// and acks start_match and end_match. dropAfter, when set, closes the first
// connection once it sees that message type.
type recordingServer struct {
	*httptest.Server

	mu        sync.Mutex
	conns     [][]streaming.Envelope
	secrets   []string
	dropAfter string
}

func newRecordingServer(t *testing.T, dropAfter string) *recordingServer {
	t.Helper()
	rs := &recordingServer{dropAfter: dropAfter}
	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer c.Close()

		rs.mu.Lock()
		idx := len(rs.conns)
		rs.conns = append(rs.conns, nil)
		rs.secrets = append(rs.secrets, r.URL.Query().Get("secret"))
		rs.mu.Unlock()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}
			var env streaming.Envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				continue
			}
			rs.mu.Lock()
			rs.conns[idx] = append(rs.conns[idx], env)
			rs.mu.Unlock()

			if idx == 0 && env.Type == rs.dropAfter {
				return
			}
			if env.Type == streaming.TypeStartMatch || env.Type == streaming.TypeEndMatch {
				data, _ := json.Marshal(streaming.AckMessage{Type: "ack", For: env.Type})
				if err := c.WriteMessage(ws.TextMessage, data); err != nil {
					return
				}
			}
		}
	}))
	t.Cleanup(rs.Close)
	return rs
}

func (rs *recordingServer) url() string {
	return "ws" + strings.TrimPrefix(rs.URL, "http")
}

func (rs *recordingServer) types(conn int) []string {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if conn >= len(rs.conns) {
		return nil
	}
	out := make([]string, 0, len(rs.conns[conn]))
	for _, env := range rs.conns[conn] {
		out = append(out, env.Type)
	}
	return out
}

func (rs *recordingServer) connCount() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.conns)
}

func newBackend(t *testing.T, rs *recordingServer) *Backend {
	t.Helper()
	b := New(Config{URL: rs.url(), Secret: "hunter2"}, nil)
	b.link.backoff = func(int) time.Duration { return time.Millisecond }
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestStartAndEndMatch(t *testing.T) {
	rs := newRecordingServer(t, "")
	b := newBackend(t, rs)

	require.NoError(t, b.StartMatch(&core.Match{Name: "Furball", TickRate: 60}))
	require.NoError(t, b.EndMatch())

	got := rs.types(0)
	require.Len(t, got, 2)
	assert.Equal(t, streaming.TypeStartMatch, got[0])
	assert.Equal(t, streaming.TypeEndMatch, got[1])

	rs.mu.Lock()
	assert.Equal(t, "hunter2", rs.secrets[0])
	var payload streaming.StartMatchPayload
	require.NoError(t, json.Unmarshal(rs.conns[0][0].Payload, &payload))
	rs.mu.Unlock()
	assert.Equal(t, "Furball", payload.Match.Name)
}

func TestFireAndForgetMessages(t *testing.T) {
	rs := newRecordingServer(t, "")
	b := newBackend(t, rs)

	require.NoError(t, b.StartMatch(&core.Match{Name: "M"}))
	require.NoError(t, b.AddAircraft(&core.Aircraft{ID: 1, Callsign: "Viper"}))
	require.NoError(t, b.RecordAircraftState(&core.AircraftState{AircraftID: 1, Tick: 1}))
	require.NoError(t, b.RecordFiredEvent(&core.FiredEvent{ShooterID: 1, ProjectileID: 9}))
	require.NoError(t, b.RecordHitEvent(&core.HitEvent{VictimID: 2}))
	require.NoError(t, b.RecordKillEvent(&core.KillEvent{VictimID: 2}))
	require.NoError(t, b.RecordProjectileEvent(&core.ProjectileEvent{ProjectileID: 9}))
	require.NoError(t, b.RecordLockEvent(&core.LockEvent{AircraftID: 1}))
	require.NoError(t, b.RecordAuthorityEvent(&core.AuthorityEvent{ActorID: 1}))
	require.NoError(t, b.RecordGeneralEvent(&core.GeneralEvent{Name: "test"}))
	require.NoError(t, b.RecordServerPerformance(&core.ServerPerformance{Tick: 60}))
	require.NoError(t, b.EndMatch())

	// end_match is acked, so everything queued before it has arrived.
	counts := map[string]int{}
	for _, typ := range rs.types(0) {
		counts[typ]++
	}
	for _, typ := range []string{
		streaming.TypeStartMatch, streaming.TypeAddAircraft, streaming.TypeAircraftState,
		streaming.TypeFiredEvent, streaming.TypeHitEvent, streaming.TypeKillEvent,
		streaming.TypeProjectileEvent, streaming.TypeLockEvent, streaming.TypeAuthorityEvent,
		streaming.TypeGeneralEvent, streaming.TypeServerPerf, streaming.TypeEndMatch,
	} {
		assert.Equal(t, 1, counts[typ], typ)
	}
}

func TestReconnectReplaysMatchAndRoster(t *testing.T) {
	rs := newRecordingServer(t, streaming.TypeAircraftState)
	b := newBackend(t, rs)

	require.NoError(t, b.StartMatch(&core.Match{Name: "M"}))
	require.NoError(t, b.AddAircraft(&core.Aircraft{ID: 2, Callsign: "Bandit"}))
	require.NoError(t, b.AddAircraft(&core.Aircraft{ID: 1, Callsign: "Viper"}))
	require.NoError(t, b.RecordAircraftState(&core.AircraftState{AircraftID: 1}))

	require.Eventually(t, func() bool {
		return rs.connCount() == 2 && len(rs.types(1)) >= 3
	}, 5*time.Second, 10*time.Millisecond)

	got := rs.types(1)
	assert.Equal(t, []string{
		streaming.TypeStartMatch, streaming.TypeAddAircraft, streaming.TypeAddAircraft,
	}, got[:3])

	rs.mu.Lock()
	var first core.Aircraft
	require.NoError(t, json.Unmarshal(rs.conns[1][1].Payload, &first))
	rs.mu.Unlock()
	assert.Equal(t, uint64(1), first.ID)

	require.Eventually(t, b.Connected, time.Second, 5*time.Millisecond)
	require.NoError(t, b.EndMatch())
}

func TestInitRejectsBadURL(t *testing.T) {
	b := New(Config{URL: "http://example.invalid/api"}, nil)
	assert.Error(t, b.Init())

	b = New(Config{URL: "ws://127.0.0.1:1/api"}, nil)
	assert.Error(t, b.Init())
}

func TestCloseIsIdempotent(t *testing.T) {
	rs := newRecordingServer(t, "")
	b := newBackend(t, rs)

	assert.NoError(t, b.Close())
	assert.NoError(t, b.Close())
	assert.False(t, b.Connected())
}

func TestExpBackoff(t *testing.T) {
	assert.Equal(t, time.Second, expBackoff(1))
	assert.Equal(t, 4*time.Second, expBackoff(3))
	assert.Equal(t, maxBackoff, expBackoff(10))
	assert.Equal(t, maxBackoff, expBackoff(80))
}
