package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/dogfight/internal/actor"
	"github.com/OCAP2/dogfight/internal/dispatcher"
	"github.com/OCAP2/dogfight/internal/parser"
	"github.com/OCAP2/dogfight/internal/projectile"
	"github.com/OCAP2/dogfight/internal/sim"
	"github.com/OCAP2/dogfight/internal/vecmath"
	"github.com/OCAP2/dogfight/pkg/streaming"
)

var _ sim.Sender = (*Hub)(nil)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

type harness struct {
	hub   *Hub
	world *sim.World
	srv   *httptest.Server
}

// newHarness runs a server world, the hub and an HTTP test server until
// the test ends.
func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	world := sim.New(sim.Options{Server: true, TickRate: 60, Seed: 1})
	hub := New(cfg, world, parser.NewParser(slog.Default()), nil)

	d, err := dispatcher.New(nopLogger{})
	require.NoError(t, err)
	hub.RegisterHandlers(d)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{}, 2)
	go func() { _ = world.Run(ctx); done <- struct{}{} }()
	go func() { _ = hub.Run(ctx); done <- struct{}{} }()

	srv := httptest.NewServer(hub.Handler())
	t.Cleanup(func() {
		cancel()
		<-done
		<-done
		srv.Close()
		d.Close()
	})
	return &harness{hub: hub, world: world, srv: srv}
}

func (h *harness) dial(t *testing.T) *ws.Conn {
	t.Helper()
	conn, _, err := ws.DefaultDialer.Dial("ws"+strings.TrimPrefix(h.srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *ws.Conn, msgType string, payload any) {
	t.Helper()
	data, err := streaming.Encode(msgType, payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(ws.BinaryMessage, data))
}

// await reads frames until one of type msgType arrives and decodes it.
func await(t *testing.T, conn *ws.Conn, msgType string, v any) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		f, err := streaming.Decode(data)
		require.NoError(t, err)
		if f.Type == msgType {
			require.NoError(t, f.Into(v))
			return
		}
	}
}

func joinAs(t *testing.T, conn *ws.Conn, callsign string) streaming.WelcomeMsg {
	t.Helper()
	send(t, conn, streaming.MsgJoin, streaming.JoinMsg{Callsign: callsign})
	var welcome streaming.WelcomeMsg
	await(t, conn, streaming.MsgWelcome, &welcome)
	return welcome
}

func findAircraft(s streaming.SnapshotMsg, id uint64) (streaming.AircraftMsg, bool) {
	for _, a := range s.Aircraft {
		if a.ID == id {
			return a, true
		}
	}
	return streaming.AircraftMsg{}, false
}

func TestJoinReceivesWelcomeAndSnapshots(t *testing.T) {
	h := newHarness(t, Config{})
	conn := h.dial(t)

	welcome := joinAs(t, conn, "Maverick")
	assert.Equal(t, int32(1), welcome.Participant)
	assert.NotZero(t, welcome.Actor)
	assert.Equal(t, 60, welcome.TickRate)
	assert.Equal(t, sim.TeamOf(1), welcome.Team)

	var snap streaming.SnapshotMsg
	for {
		await(t, conn, streaming.MsgSnapshot, &snap)
		if a, ok := findAircraft(snap, welcome.Actor); ok {
			assert.Equal(t, "Maverick", a.Callsign)
			assert.Equal(t, int32(1), a.Pilot)
			break
		}
	}
}

func TestJoinTwiceIsRejected(t *testing.T) {
	h := newHarness(t, Config{})
	conn := h.dial(t)
	joinAs(t, conn, "Iceman")

	send(t, conn, streaming.MsgJoin, streaming.JoinMsg{Callsign: "again"})
	var e streaming.ErrorMsg
	await(t, conn, streaming.MsgError, &e)
	assert.Equal(t, streaming.MsgJoin, e.For)
	assert.Contains(t, e.Message, ErrAlreadyJoined.Error())
}

func TestInputReachesAircraft(t *testing.T) {
	h := newHarness(t, Config{})
	conn := h.dial(t)
	welcome := joinAs(t, conn, "Goose")

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		send(t, conn, streaming.MsgInput, streaming.InputMsg{Actor: welcome.Actor, Throttle: 1})
		var snap streaming.SnapshotMsg
		await(t, conn, streaming.MsgSnapshot, &snap)
		if a, ok := findAircraft(snap, welcome.Actor); ok && a.Throttle > 0.5 {
			return
		}
	}
	t.Fatal("throttle never followed input")
}

func TestInvalidMessagesGetErrors(t *testing.T) {
	h := newHarness(t, Config{})
	conn := h.dial(t)

	send(t, conn, "teleport", struct{}{})
	var e streaming.ErrorMsg
	await(t, conn, streaming.MsgError, &e)
	assert.Equal(t, "teleport", e.For)

	send(t, conn, streaming.MsgJoin, streaming.JoinMsg{Callsign: strings.Repeat("x", parser.MaxCallsign+1)})
	await(t, conn, streaming.MsgError, &e)
	assert.Equal(t, streaming.MsgJoin, e.For)

	require.NoError(t, conn.WriteMessage(ws.BinaryMessage, []byte{0xff, 0x00}))
	await(t, conn, streaming.MsgError, &e)
	assert.Empty(t, e.For)
}

func TestSendDamageReachesStateOwner(t *testing.T) {
	h := newHarness(t, Config{})
	conn := h.dial(t)
	welcome := joinAs(t, conn, "Viper")

	h.hub.SendDamage(1, projectile.Damage{
		Victim: actor.ID(welcome.Actor), Source: 99, Amount: 12.5,
		Cause: projectile.CauseCannon, Point: vecmath.V(1, 2, 3),
	})
	// Unknown participants are ignored.
	h.hub.SendDamage(40, projectile.Damage{Victim: 1})

	var d streaming.DamageMsg
	await(t, conn, streaming.MsgDamage, &d)
	assert.Equal(t, welcome.Actor, d.Victim)
	assert.Equal(t, 12.5, d.Amount)
	assert.Equal(t, "cannon", d.Cause)
	assert.Equal(t, [3]float64{1, 2, 3}, d.Point)
}

func TestDisconnectDespawnsAircraft(t *testing.T) {
	h := newHarness(t, Config{})
	pilot := h.dial(t)
	watcher := h.dial(t)
	welcome := joinAs(t, pilot, "Jester")

	require.Eventually(t, func() bool { return h.hub.Clients() == 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, pilot.Close())
	require.Eventually(t, func() bool { return h.hub.Clients() == 1 }, 5*time.Second, 5*time.Millisecond)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		var snap streaming.SnapshotMsg
		await(t, watcher, streaming.MsgSnapshot, &snap)
		if _, ok := findAircraft(snap, welcome.Actor); !ok {
			return
		}
	}
	t.Fatal("aircraft still in snapshots after disconnect")
}

func TestServerFull(t *testing.T) {
	h := newHarness(t, Config{MaxPlayers: 1})
	h.dial(t)
	require.Eventually(t, func() bool { return h.hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	_, resp, err := ws.DefaultDialer.Dial("ws"+strings.TrimPrefix(h.srv.URL, "http")+"/ws", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	h := newHarness(t, Config{})

	resp, err := http.Get(h.srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 60, body["tickRate"])
}

func TestSnapshotMsgFlattensViews(t *testing.T) {
	at := time.UnixMilli(1_700_000_000_000)
	msg := snapshotMsg(sim.Snapshot{
		Tick: 9,
		Time: at,
		Projectiles: []sim.ProjectileView{{
			ID: 5, Kind: actor.KindMissile, Owner: 1, Target: 2,
			Position: vecmath.V(1, 2, 3), Rotation: vecmath.Quat{W: 1},
		}},
	})

	assert.Equal(t, uint(9), msg.Tick)
	assert.Equal(t, int64(1_700_000_000_000), msg.Time)
	assert.Empty(t, msg.Aircraft)
	require.Len(t, msg.Projectiles, 1)
	p := msg.Projectiles[0]
	assert.Equal(t, actor.KindMissile.String(), p.Kind)
	assert.Equal(t, [3]float64{1, 2, 3}, p.Position)
	assert.Equal(t, [4]float64{0, 0, 0, 1}, p.Rotation)
}
