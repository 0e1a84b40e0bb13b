package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/dogfight/internal/authority"
	"github.com/OCAP2/dogfight/internal/config"
	"github.com/OCAP2/dogfight/internal/vecmath"
)

func TestWorldOptions(t *testing.T) {
	cfg := config.SimConfig{
		TickRate:       60,
		SnapshotEvery:  3,
		StateEvery:     6,
		AuthorityGrace: 2 * time.Second,
		TargetRetry:    500 * time.Millisecond,
		GroundHeight:   -10,
		Seed:           7,
		SpawnPoints: map[string][]config.SpawnPoint{
			"blue": {{Position: []float64{1, 2, 3}, Heading: 90}},
			"red":  {{Position: []float64{4, 5, 6}}, {Position: []float64{7, 8, 9}, Heading: 180}},
		},
		Bots: []config.BotConfig{{Callsign: "viper", Team: "red", Profile: "fighter"}},
	}

	opts := worldOptions(cfg, config.Projectiles{}, nil)

	assert.Equal(t, authority.Host, opts.Local)
	assert.True(t, opts.Server)
	assert.Equal(t, 60, opts.TickRate)
	assert.Equal(t, 3, opts.SnapshotEvery)
	assert.Equal(t, 6, opts.StateEvery)
	assert.Equal(t, 2*time.Second, opts.Grace)
	assert.Equal(t, 500*time.Millisecond, opts.TargetRetry)
	assert.Equal(t, -10.0, opts.GroundHeight)
	assert.EqualValues(t, 7, opts.Seed)

	require.Len(t, opts.SpawnPoints["blue"], 1)
	assert.Equal(t, vecmath.Vec3{X: 1, Y: 2, Z: 3}, opts.SpawnPoints["blue"][0].Position)
	assert.Equal(t, 90.0, opts.SpawnPoints["blue"][0].Heading)
	require.Len(t, opts.SpawnPoints["red"], 2)
	assert.Equal(t, vecmath.Vec3{X: 7, Y: 8, Z: 9}, opts.SpawnPoints["red"][1].Position)

	require.Len(t, opts.Bots, 1)
	assert.Equal(t, "viper", opts.Bots[0].Callsign)
	assert.Equal(t, "red", opts.Bots[0].Team)
	assert.Equal(t, "fighter", opts.Bots[0].Profile)
	assert.NotNil(t, opts.Profiles)
}

func TestSnapshotsPerSecond(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.SimConfig
		want int
	}{
		{"every tick", config.SimConfig{TickRate: 60, SnapshotEvery: 1}, 60},
		{"every third", config.SimConfig{TickRate: 60, SnapshotEvery: 3}, 20},
		{"zero treated as one", config.SimConfig{TickRate: 30}, 30},
		{"slower than once a second", config.SimConfig{TickRate: 10, SnapshotEvery: 20}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, snapshotsPerSecond(tt.cfg))
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	found, err := loadConfig(t.TempDir())
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRunUnknownCommand(t *testing.T) {
	err := run([]string{"--config-dir", t.TempDir(), "replay"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}
