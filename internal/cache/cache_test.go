package cache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/dogfight/pkg/core"
)

func TestEntityCache_AddAndGetAircraft(t *testing.T) {
	cache := NewEntityCache()

	cache.AddAircraft(core.Aircraft{ID: 42, Callsign: "Viper"})

	got, ok := cache.GetAircraft(42)
	require.True(t, ok)
	assert.Equal(t, "Viper", got.Callsign)
	assert.Equal(t, 1, cache.Len())
}

func TestEntityCache_GetAircraft_NotFound(t *testing.T) {
	cache := NewEntityCache()

	_, ok := cache.GetAircraft(999)
	assert.False(t, ok)
}

func TestEntityCache_Reset(t *testing.T) {
	cache := NewEntityCache()
	cache.AddAircraft(core.Aircraft{ID: 1})
	cache.AddAircraft(core.Aircraft{ID: 2})

	cache.Reset()

	assert.Equal(t, 0, cache.Len())
	_, ok := cache.GetAircraft(1)
	assert.False(t, ok)
}

func TestEntityCache_Concurrent(t *testing.T) {
	cache := NewEntityCache()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func(id uint64) {
			defer wg.Done()
			cache.AddAircraft(core.Aircraft{ID: id})
		}(uint64(i))
		go func(id uint64) {
			defer wg.Done()
			cache.GetAircraft(id)
		}(uint64(i))
	}
	wg.Wait()

	assert.Equal(t, 100, cache.Len())
}

func TestEntityCacheReregisterReplaces(t *testing.T) {
	cache := NewEntityCache()
	cache.AddAircraft(core.Aircraft{ID: 5, Callsign: "Goose"})
	cache.AddAircraft(core.Aircraft{ID: 5, Callsign: "Iceman"})

	got, ok := cache.GetAircraft(5)
	require.True(t, ok)
	assert.Equal(t, "Iceman", got.Callsign)
	assert.Equal(t, 1, cache.Len())
}

func TestCounter(t *testing.T) {
	var c Counter
	assert.Zero(t, c.Value())

	var wg sync.WaitGroup
	for range 1000 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Inc()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1000, c.Value())
}
