package authority

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagFor(t *testing.T) {
	tests := []struct {
		owners Owners
		local  Participant
		want   Tag
	}{
		{Bound(Host), Host, Input | State},
		{Owners{Input: 3, State: Host}, Host, State},
		{Owners{Input: 3, State: Host}, 3, Input},
		{Owners{Input: 3, State: 4}, 5, None},
		{Owners{Input: Nobody, State: Nobody}, Nobody, None},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.owners.TagFor(tt.local), "%+v as %s", tt.owners, tt.local)
	}
}

func TestConsistent(t *testing.T) {
	assert.True(t, None.Consistent())
	assert.True(t, State.Consistent())
	assert.True(t, (Input | State).Consistent())
	assert.False(t, Input.Consistent())
}

func TestRequire(t *testing.T) {
	require.NoError(t, Require(1, "applyDamage", Input|State, State))

	err := Require(7, "applyDamage", Input, State)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotAuthorized))

	var aerr *Error
	require.True(t, errors.As(err, &aerr))
	assert.Equal(t, State, aerr.Missing)
	assert.Contains(t, err.Error(), "applyDamage on actor #7")
}

func TestMonitorGraceWindow(t *testing.T) {
	m := NewMonitor(3 * time.Second)
	dt := 1.0 / 60

	fired := 0
	for i := 0; i < 179; i++ {
		if m.Observe(Input, dt) {
			fired++
		}
	}
	assert.Zero(t, fired, "still inside the grace window")
	assert.True(t, m.Observe(Input, dt), "fires once 3s have elapsed")
	assert.InDelta(t, 0, m.Elapsed(), 1e-12, "re-armed")
}

func TestMonitorResetsOnConsistentTag(t *testing.T) {
	m := NewMonitor(0)
	for i := 0; i < 100; i++ {
		m.Observe(Input, 0.02)
	}
	assert.Greater(t, m.Elapsed(), 1.0)
	assert.False(t, m.Observe(Input|State, 0.02))
	assert.Zero(t, m.Elapsed())
}
