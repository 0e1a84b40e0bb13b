package sim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/dogfight/internal/actor"
	"github.com/OCAP2/dogfight/internal/authority"
	"github.com/OCAP2/dogfight/internal/flight"
	"github.com/OCAP2/dogfight/internal/vecmath"
	"github.com/OCAP2/dogfight/pkg/core"
)

func join(t *testing.T, w *World, p authority.Participant) actor.ID {
	t.Helper()
	reply := make(chan JoinResult, 1)
	w.Submit(Join{Participant: p, Callsign: "pilot", Reply: reply})
	w.Step()
	res := <-reply
	require.NoError(t, res.Err)
	return res.Actor
}

func TestJoinUsesTeamSpawnPoints(t *testing.T) {
	opts := testOptions()
	opts.SpawnPoints = map[string][]SpawnPoint{
		TeamA: {{Position: vecmath.V(0, 1500, -3000), Heading: 0}},
		TeamB: {{Position: vecmath.V(0, 1500, 3000), Heading: 180}},
	}
	w := New(opts)

	a := join(t, w, 2)
	b := join(t, w, 3)

	acA, _ := w.Aircraft(a)
	acB, _ := w.Aircraft(b)
	assert.Equal(t, TeamA, acA.Team)
	assert.Equal(t, TeamB, acB.Team)
	assert.Less(t, acA.Pos().Z, -2000.0)
	assert.Greater(t, acB.Pos().Z, 2000.0)
	// team B faces back toward A
	assert.Less(t, acB.Body().Rotation.Forward().Z, -0.99)

	owners, _ := w.Owners(a)
	assert.Equal(t, authority.Bound(authority.Host), owners)
}

func TestInputOnlyFromPilot(t *testing.T) {
	w := New(testOptions())
	id := join(t, w, 7)

	w.Submit(Input{Actor: id, From: 8, Throttle: 1})
	w.Step()
	ac, _ := w.Aircraft(id)
	assert.Zero(t, ac.Throttle())

	w.Submit(Input{Actor: id, From: 7, Throttle: 1})
	w.Step()
	assert.Greater(t, ac.Throttle(), 0.0)
}

func TestFlapsToggleIsEdgeTriggered(t *testing.T) {
	w := New(testOptions())
	id := spawnStill(w, "slow", vecmath.V(0, 1000, 0), authority.Bound(authority.Host))
	ac, _ := w.Aircraft(id)
	ac.Body().Velocity = vecmath.Zero

	w.Submit(Input{Actor: id, From: authority.Host, Buttons: ButtonToggleFlaps})
	for i := 0; i < 5; i++ {
		w.Step()
	}
	assert.True(t, ac.Flaps(), "held button toggles once")

	w.Submit(Input{Actor: id, From: authority.Host})
	w.Step()
	w.Submit(Input{Actor: id, From: authority.Host, Buttons: ButtonToggleFlaps | ButtonToggleHelp})
	w.Step()
	assert.False(t, ac.Flaps())
}

func TestFireMissileOncePerPress(t *testing.T) {
	sink := &recordingSink{}
	opts := testOptions()
	opts.Sink = sink
	w := New(opts)
	id := spawnStill(w, "shooter", vecmath.V(0, 1000, 0), authority.Bound(authority.Host))

	w.Submit(Input{Actor: id, From: authority.Host, FireMissile: true})
	w.Step()
	w.Step()

	assert.Len(t, w.MissileIDs(), 1)
	fired := sink.kind(core.KindFired)
	require.Len(t, fired, 1)
	assert.Equal(t, "missile", fired[0].(core.FiredEvent).Weapon)
}

func TestTargetsNearestAndRetargetsOnDeath(t *testing.T) {
	w := New(testOptions())
	hunter := spawnStill(w, "hunter", vecmath.V(0, 1000, 0), authority.Bound(authority.Host))
	near := spawnStill(w, "near", vecmath.V(0, 1000, 300), authority.Bound(authority.Host))
	far := spawnStill(w, "far", vecmath.V(0, 1000, 900), authority.Bound(authority.Host))

	w.Step()
	h, _ := w.Aircraft(hunter)
	assert.Equal(t, near, h.Target())

	n, _ := w.Aircraft(near)
	_, _, err := n.ApplyDamage(1000, flight.DamageSource{Attacker: hunter})
	require.NoError(t, err)
	w.Step() // near dies in its own tick
	w.Step() // hunter notices and searches again

	assert.Equal(t, far, h.Target())
}

func TestUnassignedTargetRetriesAtInterval(t *testing.T) {
	w := New(testOptions())
	lonely := spawnStill(w, "lonely", vecmath.V(0, 1000, 0), authority.Bound(authority.Host))
	w.Step()

	other := spawnStill(w, "late", vecmath.V(0, 1000, 500), authority.Bound(authority.Host))
	ac, _ := w.Aircraft(lonely)
	for i := 0; i < 30; i++ {
		w.Step()
	}
	assert.False(t, ac.Target().Valid(), "retries wait for the interval")

	for i := 0; i < 40; i++ {
		w.Step()
	}
	assert.Equal(t, other, ac.Target())
}

func TestGroundCrashEmitsKill(t *testing.T) {
	sink := &recordingSink{}
	opts := testOptions()
	opts.NoGround = false
	opts.Sink = sink
	w := New(opts)

	id := w.SpawnAircraft(AircraftSpec{
		Callsign: "low",
		Team:     TeamA,
		Profile:  flight.DefaultProfile(),
		Position: vecmath.V(0, 3, 0),
		Rotation: vecmath.Euler(30, 0, 0),
		Owners:   authority.Bound(authority.Host),
	})
	w.Step()
	w.Step()

	ac, _ := w.Aircraft(id)
	assert.True(t, ac.Crashed())
	assert.True(t, ac.Dead())
	kills := sink.kind(core.KindKill)
	require.Len(t, kills, 1)
	k := kills[0].(core.KillEvent)
	assert.True(t, k.Crashed)
	assert.Equal(t, "collision", k.Cause)

	feed := sink.kind(core.KindGeneral)
	require.Len(t, feed, 1)
	assert.Equal(t, "low crashed", feed[0].(core.GeneralEvent).Message)
}

func TestLeaveDespawnsPilotedAircraft(t *testing.T) {
	sink := &recordingSink{}
	opts := testOptions()
	opts.Sink = sink
	w := New(opts)
	id := join(t, w, 9)
	other := join(t, w, 10)

	w.Submit(Leave{Participant: 9})
	w.Step()

	_, ok := w.Aircraft(id)
	assert.False(t, ok)
	_, ok = w.Aircraft(other)
	assert.True(t, ok)

	var names []string
	for _, e := range sink.kind(core.KindGeneral) {
		names = append(names, e.(core.GeneralEvent).Name)
	}
	assert.Equal(t, []string{"joined", "joined", "left"}, names)
}

func TestBotsFlyOnHost(t *testing.T) {
	opts := testOptions()
	opts.Bots = []Bot{{Callsign: "drone", Team: TeamB, Profile: "default"}}
	w := New(opts)
	require.NoError(t, w.SpawnBots())

	for i := 0; i < 60; i++ {
		w.Step()
	}
	ids := w.AircraftIDs()
	require.Len(t, ids, 1)
	ac, _ := w.Aircraft(ids[0])
	// throttle ramps toward full at ThrottleSpeed scaled by the bot's input
	assert.Greater(t, ac.Throttle(), 0.25)
}

func TestSubscribeReceivesSnapshots(t *testing.T) {
	opts := testOptions()
	opts.SnapshotEvery = 2
	w := New(opts)
	spawnStill(w, "seen", vecmath.V(0, 1000, 0), authority.Bound(authority.Host))

	snaps, cancel := w.Subscribe()
	w.Step()
	w.Step()

	select {
	case s := <-snaps:
		assert.Equal(t, uint(2), s.Tick)
		require.Len(t, s.Aircraft, 1)
		assert.Equal(t, "seen", s.Aircraft[0].Callsign)
		require.NotEmpty(t, s.Events)
		assert.Equal(t, core.KindAircraftAdded, s.Events[0].EventKind())
	default:
		t.Fatal("no snapshot published")
	}

	cancel()
	_, open := <-snaps
	assert.False(t, open)
}

func TestRunStopsOnCancel(t *testing.T) {
	w := New(testOptions())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
	assert.Greater(t, w.Stats().Ticks, int64(0))
}

func TestUnknownActorCommandsAreRejected(t *testing.T) {
	w := New(testOptions())
	err := Input{Actor: actor.ID(42), From: authority.Host}.apply(w)
	assert.ErrorIs(t, err, ErrUnknownActor)
	err = AuthorityChange{Actor: actor.ID(42), Input: 1}.apply(w)
	assert.ErrorIs(t, err, ErrUnknownActor)
}
