// Package cache holds the recorder's in-process lookups for the running
// match.
package cache

import (
	"sync"
	"sync/atomic"

	"github.com/OCAP2/dogfight/pkg/core"
)

// EntityCache keeps every aircraft registered in the current match so state
// rows can be checked against it without a round trip to the backend.
type EntityCache struct {
	mu       sync.RWMutex
	aircraft map[uint64]core.Aircraft
}

func NewEntityCache() *EntityCache {
	return &EntityCache{aircraft: make(map[uint64]core.Aircraft)}
}

// Reset forgets every aircraft; called when a match starts.
func (c *EntityCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.aircraft)
}

func (c *EntityCache) GetAircraft(id uint64) (core.Aircraft, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.aircraft[id]
	return a, ok
}

// AddAircraft registers a, replacing an earlier registration of the same ID.
func (c *EntityCache) AddAircraft(a core.Aircraft) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aircraft[a.ID] = a
}

// Len is the number of aircraft registered since the last Reset.
func (c *EntityCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.aircraft)
}

// Counter counts events across goroutines. The zero value is ready to use.
type Counter struct{ n atomic.Int64 }

func (c *Counter) Inc()       { c.n.Add(1) }
func (c *Counter) Value() int { return int(c.n.Load()) }
