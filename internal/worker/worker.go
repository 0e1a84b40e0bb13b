// Package worker moves world events from the tick loop to the recorder
// backend through the dispatcher.
package worker

import (
	"errors"
	"log/slog"
	"time"

	"github.com/OCAP2/dogfight/internal/cache"
	"github.com/OCAP2/dogfight/internal/storage"
)

// ErrTooEarlyForStateAssociation rejects a state row for an aircraft the
// recorder has not seen registered yet.
var ErrTooEarlyForStateAssociation = errors.New("too early for state association")

// Dependencies of the Manager. Zero values get defaults.
type Dependencies struct {
	EntityCache *cache.EntityCache
	Logger      *slog.Logger
}

// Manager owns the record handlers.
type Manager struct {
	deps    Dependencies
	backend storage.Backend

	dropped cache.Counter
	early   cache.Counter
}

// NewManager returns a manager recording into backend.
func NewManager(deps Dependencies, backend storage.Backend) *Manager {
	if deps.EntityCache == nil {
		deps.EntityCache = cache.NewEntityCache()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Manager{
		deps:    deps,
		backend: backend,
	}
}

// Backend is the recorder events end up in.
func (m *Manager) Backend() storage.Backend { return m.backend }

// Dropped is how many events the sink could not hand to a full queue.
func (m *Manager) Dropped() int { return m.dropped.Value() }

// TooEarly is how many states arrived for aircraft not yet registered.
func (m *Manager) TooEarly() int { return m.early.Value() }

// WriteTimer is a backend that batches writes and times them.
type WriteTimer interface {
	LastWriteDuration() time.Duration
}

// LastWriteDuration is how long the backend's last batch write took, zero
// for backends that write through.
func (m *Manager) LastWriteDuration() time.Duration {
	if t, ok := m.backend.(WriteTimer); ok {
		return t.LastWriteDuration()
	}
	return 0
}
