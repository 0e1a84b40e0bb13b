package cache

import "sync"

// HitCache maps a projectile ID to the database ID of the hit row it caused
// in the current match.
type HitCache struct {
	mu   sync.RWMutex
	hits map[uint64]uint
}

// NewHitCache creates a new HitCache
func NewHitCache() *HitCache {
	return &HitCache{
		hits: make(map[uint64]uint),
	}
}

// Get returns the hit row ID for a projectile
func (c *HitCache) Get(projectile uint64) (uint, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.hits[projectile]
	return id, ok
}

// Set stores the hit row ID for a projectile. The first hit wins; a missile
// splash that damages several aircraft keeps the earliest row.
func (c *HitCache) Set(projectile uint64, id uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.hits[projectile]; ok {
		return
	}
	c.hits[projectile] = id
}

// Delete forgets a projectile once its summary has been written
func (c *HitCache) Delete(projectile uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.hits, projectile)
}

// Reset clears the cache at match start
func (c *HitCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hits = make(map[uint64]uint)
}
