package worker

import (
	"errors"

	"github.com/OCAP2/dogfight/internal/dispatcher"
	"github.com/OCAP2/dogfight/pkg/core"
)

// Sink adapts the dispatcher to the world's event sink. It runs on the tick
// goroutine, so it never blocks: a full queue drops the event.
type Sink struct {
	m *Manager
	d *dispatcher.Dispatcher
}

// Sink returns the event sink to hand to the world.
func (m *Manager) Sink(d *dispatcher.Dispatcher) *Sink {
	return &Sink{m: m, d: d}
}

// Record dispatches e under the command of its kind.
func (s *Sink) Record(e core.Event) {
	cmd, ok := CommandFor(e.EventKind())
	if !ok {
		s.m.deps.Logger.Debug("no recorder command for event", "kind", e.EventKind())
		return
	}
	_, err := s.d.Dispatch(dispatcher.Event{Command: cmd, Source: "sim", Payload: e})
	switch {
	case err == nil:
	case errors.Is(err, dispatcher.ErrQueueFull), errors.Is(err, dispatcher.ErrClosed):
		s.m.dropped.Inc()
	case errors.Is(err, ErrTooEarlyForStateAssociation):
	default:
		s.m.deps.Logger.Warn("recording event failed", "kind", e.EventKind(), "error", err)
	}
}
