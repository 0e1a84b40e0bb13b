// Package match tracks the match currently being recorded.
package match

import (
	"sync"

	"github.com/OCAP2/dogfight/internal/geo"
	"github.com/OCAP2/dogfight/pkg/core"
)

// Context holds the running match and its geodetic origin.
type Context struct {
	mu     sync.RWMutex
	match  *core.Match
	origin geo.Origin
}

// NewContext creates a Context with no match running.
func NewContext() *Context {
	return &Context{}
}

// Match returns the running match, or nil.
func (c *Context) Match() *core.Match {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.match
}

// Origin returns the origin of the running match.
func (c *Context) Origin() geo.Origin {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.origin
}

// SessionID is the running match's session ID, or "" between matches.
func (c *Context) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.match == nil {
		return ""
	}
	return c.match.SessionID
}

// Start makes m the running match.
func (c *Context) Start(m *core.Match) error {
	origin, err := geo.NewOrigin(m.OriginLat, m.OriginLon)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.match = m
	c.origin = origin
	return nil
}

// End clears the running match and returns it.
func (c *Context) End() *core.Match {
	c.mu.Lock()
	defer c.mu.Unlock()
	m := c.match
	c.match = nil
	return m
}
