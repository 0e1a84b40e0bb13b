package weapons

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/dogfight/internal/vecmath"
)

func TestLockReachesLockedWithinBound(t *testing.T) {
	cfg := LockConfig{Range: 2000, Angle: 45, Speed: 60}
	dt := 0.1
	l := NewLock(cfg)

	tgt := &LockTarget{Alive: true, Position: vecmath.Euler(0, 30, 0).Forward().Mul(1000)}
	bound := int(math.Ceil(30 / (cfg.Speed * dt)))

	ticks := 0
	for l.State() != Locked && ticks < 100 {
		l.Update(dt, vecmath.Zero, vecmath.Identity, tgt)
		ticks++
		if l.State() != Locked {
			assert.Equal(t, Tracking, l.State())
		}
	}
	assert.Equal(t, Locked, l.State())
	assert.LessOrEqual(t, ticks, bound)
}

func TestLockDropsWithinOneTick(t *testing.T) {
	cfg := LockConfig{Range: 2000, Angle: 45, Speed: 180}
	tests := []struct {
		name  string
		after *LockTarget
	}{
		{"target dies", &LockTarget{Alive: false, Position: vecmath.V(0, 0, 500)}},
		{"target out of range", &LockTarget{Alive: true, Position: vecmath.V(0, 0, 5000)}},
		{"target outside cone", &LockTarget{Alive: true, Position: vecmath.V(500, 0, -10)}},
		{"target cleared", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLock(cfg)
			tgt := &LockTarget{Alive: true, Position: vecmath.V(0, 0, 500)}
			l.Update(0.1, vecmath.Zero, vecmath.Identity, tgt)
			require.Equal(t, Locked, l.State())

			prev := l.Update(0.1, vecmath.Zero, vecmath.Identity, tt.after)
			assert.Equal(t, Locked, prev)
			assert.Equal(t, Unlocked, l.State())
		})
	}
}

func TestLockDirectionReturnsForward(t *testing.T) {
	l := NewLock(LockConfig{Range: 2000, Angle: 60, Speed: 10})
	tgt := &LockTarget{Alive: true, Position: vecmath.V(500, 0, 500)}
	for i := 0; i < 20; i++ {
		l.Update(0.1, vecmath.Zero, vecmath.Identity, tgt)
	}
	off := vecmath.Angle(vecmath.Forward, l.Direction())
	assert.InDelta(t, 20, off, 1e-6)

	l.Update(0.1, vecmath.Zero, vecmath.Identity, nil)
	assert.InDelta(t, 19, vecmath.Angle(vecmath.Forward, l.Direction()), 1e-6)

	l.Reset()
	assert.Equal(t, vecmath.Forward, l.Direction())
}

func TestCannonRateOfFire(t *testing.T) {
	c := NewCannon(CannonConfig{FireRate: 600, Spread: 0}, rand.New(rand.NewSource(7)))
	dt := 1.0 / 60

	shots := 0
	c.SetTrigger(true)
	for i := 0; i < 60; i++ {
		c.Cooldown(dt)
		if _, ok := c.TryFire(); ok {
			shots++
		}
	}
	assert.Equal(t, 10, shots, "600 rpm for one second")

	c.SetTrigger(false)
	for i := 0; i < 60; i++ {
		c.Cooldown(dt)
		_, ok := c.TryFire()
		assert.False(t, ok)
	}
}

func TestCannonSpreadStaysInDisk(t *testing.T) {
	c := NewCannon(CannonConfig{FireRate: 6000, Spread: 2}, rand.New(rand.NewSource(42)))
	c.SetTrigger(true)
	for i := 0; i < 200; i++ {
		c.Cooldown(1)
		rot, ok := c.TryFire()
		require.True(t, ok)
		assert.LessOrEqual(t, vecmath.Angle(vecmath.Forward, rot.Forward()), 2.0+1e-6)
	}
}

func TestHardpointsRotationReloadAndDebounce(t *testing.T) {
	h := NewHardpoints(2, 5, 0.2)

	idx, ok := h.TryFire()
	require.True(t, ok)
	assert.Equal(t, 0, idx)

	_, ok = h.TryFire()
	assert.False(t, ok, "debounce blocks the second rail in the same instant")

	h.Cooldown(0.2)
	idx, ok = h.TryFire()
	require.True(t, ok)
	assert.Equal(t, 1, idx)

	h.Cooldown(0.2)
	_, ok = h.TryFire()
	assert.False(t, ok, "both rails reloading")
	assert.Equal(t, []bool{false, false}, h.Ready())

	h.Cooldown(4.6)
	idx, ok = h.TryFire()
	require.True(t, ok)
	assert.Equal(t, 0, idx, "rail 0 reloaded first")
	assert.Len(t, h.ReloadTimers(), 2)
}
