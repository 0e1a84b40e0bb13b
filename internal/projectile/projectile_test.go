package projectile

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/dogfight/internal/actor"
	"github.com/OCAP2/dogfight/internal/authority"
	"github.com/OCAP2/dogfight/internal/physics"
	"github.com/OCAP2/dogfight/internal/target"
	"github.com/OCAP2/dogfight/internal/vecmath"
)

type bodyView struct{ b *physics.Body }

func (v bodyView) Pos() vecmath.Vec3 { return v.b.Position }
func (v bodyView) Vel() vecmath.Vec3 { return v.b.Velocity }

// fakeWorld applies damage directly to a health table.
type fakeWorld struct {
	space   *physics.Space
	health  map[actor.ID]float64
	records map[actor.ID]*target.Record
	damage  []Damage
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{
		space:   physics.NewSpace(0, true),
		health:  make(map[actor.ID]float64),
		records: make(map[actor.ID]*target.Record),
	}
}

func (w *fakeWorld) addAircraft(id actor.ID, pos vecmath.Vec3) *physics.Body {
	b := physics.NewBody(pos, vecmath.Identity, 1)
	w.space.Add(&physics.Collider{ID: id, Layer: physics.LayerAircraft, Radius: 5, Body: b})
	w.health[id] = 100
	w.records[id] = target.NewRecord(id.String(), id, bodyView{b})
	return b
}

func (w *fakeWorld) Space() *physics.Space { return w.space }

func (w *fakeWorld) IsAircraft(id actor.ID) bool {
	_, ok := w.health[id]
	return ok
}

func (w *fakeWorld) RequestDamage(d Damage) {
	w.damage = append(w.damage, d)
	w.health[d.Victim] = math.Max(0, w.health[d.Victim]-d.Amount)
}

func (w *fakeWorld) TargetRecord(id actor.ID) (*target.Record, bool) {
	r, ok := w.records[id]
	return r, ok
}

func (w *fakeWorld) Locate(id actor.ID) (vecmath.Vec3, bool) {
	if c, ok := w.space.Get(id); ok {
		return c.Body.Position, true
	}
	return vecmath.Zero, false
}

var bulletCfg = BulletConfig{Speed: 100, Damage: 10, Lifetime: 2, Mask: physics.LayerAircraft | physics.LayerGround}

func TestBulletExpiresAfterLifetime(t *testing.T) {
	w := newFakeWorld()
	dt := 1.0 / 16
	b := NewBullet(1, 99, authority.State, vecmath.V(0, 100, 0), vecmath.Identity, bulletCfg)

	moves := int(math.Ceil(bulletCfg.Lifetime / dt))
	for i := 0; i < moves; i++ {
		require.False(t, b.Tick(dt, w), "tick %d", i)
	}
	assert.InDelta(t, bulletCfg.Speed*dt*float64(moves), b.Position().Z, 1e-6)

	assert.True(t, b.Tick(dt, w))
	assert.Equal(t, OutcomeExpired, b.Summary().Outcome)
}

func TestBulletDamagesVictim(t *testing.T) {
	w := newFakeWorld()
	w.addAircraft(2, vecmath.V(0, 100, 1))

	b := NewBullet(1, 99, authority.State, vecmath.V(0, 100, 0), vecmath.Identity, bulletCfg)
	assert.True(t, b.Tick(0.1, w))
	require.Len(t, w.damage, 1)
	assert.Equal(t, actor.ID(2), w.damage[0].Victim)
	assert.Equal(t, CauseCannon, w.damage[0].Cause)
	assert.Equal(t, 90.0, w.health[2])
	assert.Equal(t, OutcomeHit, b.Summary().Outcome)
}

func TestBulletSelfHitDespawnsWithoutDamage(t *testing.T) {
	w := newFakeWorld()
	w.addAircraft(5, vecmath.V(0, 100, 1))

	b := NewBullet(1, 5, authority.State, vecmath.V(0, 100, 0), vecmath.Identity, bulletCfg)
	assert.True(t, b.Tick(0.1, w))
	assert.Empty(t, w.damage)
	assert.Equal(t, 100.0, w.health[5])
}

func TestBulletWithoutStateAuthorityDoesNotDamage(t *testing.T) {
	w := newFakeWorld()
	w.addAircraft(2, vecmath.V(0, 100, 1))

	b := NewBullet(1, 99, authority.Input, vecmath.V(0, 100, 0), vecmath.Identity, bulletCfg)
	assert.True(t, b.Tick(0.1, w))
	assert.Empty(t, w.damage)
}

func TestThreeBulletsAccumulate(t *testing.T) {
	w := newFakeWorld()
	w.addAircraft(2, vecmath.V(0, 100, 5))

	// two shooters in the same tick
	owners := []actor.ID{10, 11, 10}
	for i, owner := range owners {
		b := NewBullet(actor.ID(20+i), owner, authority.State, vecmath.V(0, 100, 0), vecmath.Identity, bulletCfg)
		assert.True(t, b.Tick(0.1, w))
	}
	assert.Equal(t, 70.0, w.health[2])
	assert.Len(t, w.damage, 3)
}

var missileCfg = MissileConfig{
	Lifetime:      10,
	Speed:         300,
	TrackingAngle: 60,
	Damage:        50,
	DamageRadius:  20,
	TurningGForce: 30,
	SettleTime:    0.5,
	Mask:          physics.LayerAircraft | physics.LayerGround,
	DamageMask:    physics.LayerAircraft,
}

func TestMissileSplashDamage(t *testing.T) {
	w := newFakeWorld()
	w.addAircraft(1, vecmath.V(0, 500, 15))
	w.addAircraft(2, vecmath.V(0, 500, -25))
	w.addAircraft(3, vecmath.V(0, 500, 5)) // owner

	body := physics.NewBody(vecmath.V(0, 500, 0), vecmath.Identity, 1)
	m := Launch(50, 3, actor.None, authority.Input|authority.State, body, missileCfg)
	m.Detonate(w)

	assert.Equal(t, 50.0, w.health[1])
	assert.Equal(t, 100.0, w.health[2])
	assert.Equal(t, 100.0, w.health[3], "owner is exempt")
	assert.True(t, m.Exploded())
	assert.True(t, body.Kinematic)

	m.Detonate(w)
	assert.Equal(t, 50.0, w.health[1], "second detonation is a no-op")
	assert.Len(t, w.damage, 1)
}

func TestMissileRegistersAndDeregistersWithTarget(t *testing.T) {
	w := newFakeWorld()
	w.addAircraft(1, vecmath.V(0, 500, 3000))

	body := physics.NewBody(vecmath.V(0, 500, 0), vecmath.Identity, 1)
	w.space.Add(&physics.Collider{ID: 50, Layer: physics.LayerProjectile, Radius: 0.5, Body: body})
	m := Launch(50, 9, 1, authority.State, body, missileCfg)
	_, ok := w.records[1].IncomingMissile()
	assert.False(t, ok, "launch alone does not register")

	m.Register(w)
	id, ok := w.records[1].IncomingMissile()
	require.True(t, ok)
	assert.Equal(t, actor.ID(50), id)

	m.Detonate(w)
	_, ok = w.records[1].IncomingMissile()
	assert.False(t, ok)
}

func TestMissileHomesAndHits(t *testing.T) {
	w := newFakeWorld()
	tb := w.addAircraft(1, vecmath.V(200, 500, 1500))
	tb.Velocity = vecmath.V(20, 0, 0)

	body := physics.NewBody(vecmath.V(0, 500, 0), vecmath.Identity, 1)
	m := Launch(50, 9, 1, authority.State, body, missileCfg)

	dt := 1.0 / 60
	done := false
	for i := 0; i < 600 && !m.Exploded(); i++ {
		tb.Integrate(dt)
		var err error
		done, err = m.Tick(dt, w)
		require.NoError(t, err)
	}
	require.True(t, m.Exploded())
	assert.False(t, done, "wreck lingers for the settle time")
	assert.Equal(t, OutcomeHit, m.Summary().Outcome)
	assert.Equal(t, 50.0, w.health[1])

	for i := 0; i < 29; i++ {
		done, _ = m.Tick(dt, w)
		assert.False(t, done)
	}
	done, _ = m.Tick(dt, w)
	assert.True(t, done)
}

func TestMissileSelfDestructsWhenTargetBehind(t *testing.T) {
	w := newFakeWorld()
	w.addAircraft(1, vecmath.V(0, 500, -1000))

	body := physics.NewBody(vecmath.V(0, 500, 0), vecmath.Identity, 1)
	m := Launch(50, 9, 1, authority.State, body, missileCfg)
	_, err := m.Tick(1.0/60, w)
	require.NoError(t, err)
	assert.True(t, m.Exploded())
	assert.Equal(t, OutcomeLostTrack, m.Summary().Outcome)
}

func TestMissileTurnRateLimited(t *testing.T) {
	w := newFakeWorld()
	w.addAircraft(1, vecmath.V(1000, 500, 1000))

	body := physics.NewBody(vecmath.V(0, 500, 0), vecmath.Identity, 1)
	m := Launch(50, 9, 1, authority.State, body, missileCfg)
	dt := 0.01
	_, err := m.Tick(dt, w)
	require.NoError(t, err)

	turned := vecmath.Angle(vecmath.Forward, body.Rotation.Forward())
	assert.InDelta(t, missileCfg.TurnRate()*dt*vecmath.Rad2Deg, turned, 1e-6)
	assert.InDelta(t, missileCfg.Speed, body.Velocity.Len(), 1e-9)
}

func TestMissileLifetimeExpiry(t *testing.T) {
	w := newFakeWorld()
	cfg := missileCfg
	cfg.Lifetime = 0.1
	cfg.SettleTime = 0

	body := physics.NewBody(vecmath.V(0, 500, 0), vecmath.Identity, 1)
	m := Launch(50, 9, actor.None, authority.State, body, cfg)
	done := false
	ticks := 0
	for !done && ticks < 100 {
		var err error
		done, err = m.Tick(0.05, w)
		require.NoError(t, err)
		ticks++
	}
	assert.Equal(t, 2, ticks)
	assert.Equal(t, OutcomeExpired, m.Summary().Outcome)
}

func TestMissileMissingBody(t *testing.T) {
	w := newFakeWorld()
	m := Launch(50, 9, actor.None, authority.State, nil, missileCfg)
	_, err := m.Tick(0.1, w)
	assert.True(t, errors.Is(err, ErrMissingBody))
	assert.InDelta(t, missileCfg.Lifetime, m.Remaining(), 1e-12, "state unchanged")
}

func TestMissileMirrorDoesNothing(t *testing.T) {
	w := newFakeWorld()
	body := physics.NewBody(vecmath.V(0, 500, 0), vecmath.Identity, 1)
	m := Launch(50, 9, actor.None, authority.Input, body, missileCfg)
	done, err := m.Tick(0.1, w)
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, vecmath.V(0, 500, 0), body.Position)
}
