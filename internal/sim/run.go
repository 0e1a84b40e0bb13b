package sim

import (
	"context"
	"time"
)

// Run steps the world at its tick rate until ctx is cancelled.
func (w *World) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Second / time.Duration(w.opts.TickRate))
	defer ticker.Stop()

	w.log.Info("world running", "tickRate", w.opts.TickRate, "server", w.opts.Server)
	for {
		select {
		case <-ctx.Done():
			w.log.Info("world stopped", "tick", w.tick)
			w.closeSubscribers()
			return nil
		case <-ticker.C:
			w.Step()
		}
	}
}

func (w *World) closeSubscribers() {
	w.subMu.Lock()
	defer w.subMu.Unlock()
	for id, ch := range w.subs {
		delete(w.subs, id)
		close(ch)
	}
}
