package sim

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/OCAP2/dogfight/internal/sim"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// metrics records tick loop health through the global OTel meter (no-op
// if none is configured). Gauges read atomics so the callback never touches
// world state.
type metrics struct {
	tickDuration metric.Float64Histogram
	damageRoutes metric.Int64Counter
	dropped      metric.Int64Counter

	aircraft    atomic.Int64
	projectiles atomic.Int64
	maxTick     atomic.Int64
	ticks       atomic.Int64
	totalTick   atomic.Int64
	lastTick    atomic.Uint64
}

func newMetrics(log *slog.Logger) *metrics {
	m := &metrics{}
	mt := meter()

	var err error
	m.tickDuration, err = mt.Float64Histogram(
		"sim.tick.duration",
		metric.WithDescription("Wall time spent in one world step"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		log.Warn("creating tick histogram", "error", err)
	}

	m.damageRoutes, err = mt.Int64Counter(
		"sim.damage.requests",
		metric.WithDescription("Damage requests by route"),
	)
	if err != nil {
		log.Warn("creating damage counter", "error", err)
	}

	m.dropped, err = mt.Int64Counter(
		"sim.snapshots.dropped",
		metric.WithDescription("Snapshots dropped for slow subscribers"),
	)
	if err != nil {
		log.Warn("creating dropped counter", "error", err)
	}

	actors, err := mt.Int64ObservableGauge(
		"sim.actors",
		metric.WithDescription("Live actors by kind"),
	)
	if err != nil {
		log.Warn("creating actor gauge", "error", err)
		return m
	}
	_, err = mt.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(actors, m.aircraft.Load(), metric.WithAttributes(attribute.String("kind", "aircraft")))
			o.ObserveInt64(actors, m.projectiles.Load(), metric.WithAttributes(attribute.String("kind", "projectile")))
			return nil
		},
		actors,
	)
	if err != nil {
		log.Warn("registering actor callback", "error", err)
	}
	return m
}

func (m *metrics) observeTick(tick uint, d time.Duration, aircraft, projectiles int) {
	m.lastTick.Store(uint64(tick))
	m.aircraft.Store(int64(aircraft))
	m.projectiles.Store(int64(projectiles))
	m.ticks.Add(1)
	m.totalTick.Add(int64(d))
	for {
		cur := m.maxTick.Load()
		if int64(d) <= cur || m.maxTick.CompareAndSwap(cur, int64(d)) {
			break
		}
	}
	if m.tickDuration != nil {
		m.tickDuration.Record(context.Background(), float64(d)/float64(time.Millisecond))
	}
}

func (m *metrics) damage(r Route) {
	if m.damageRoutes != nil {
		m.damageRoutes.Add(context.Background(), 1, metric.WithAttributes(attribute.String("route", string(r))))
	}
}

func (m *metrics) droppedSnapshot() {
	if m.dropped != nil {
		m.dropped.Add(context.Background(), 1)
	}
}

// Stats is a tick loop health sample. Average and Max cover the ticks
// since the previous call.
type Stats struct {
	Tick        uint // last completed tick
	Ticks       int64
	Average     time.Duration
	Max         time.Duration
	Aircraft    int
	Projectiles int
}

// Stats returns and resets the tick timing window. Safe from any goroutine.
func (w *World) Stats() Stats {
	m := w.metrics
	n := m.ticks.Swap(0)
	total := m.totalTick.Swap(0)
	s := Stats{
		Tick:        uint(m.lastTick.Load()),
		Ticks:       n,
		Max:         time.Duration(m.maxTick.Swap(0)),
		Aircraft:    int(m.aircraft.Load()),
		Projectiles: int(m.projectiles.Load()),
	}
	if n > 0 {
		s.Average = time.Duration(total / n)
	}
	return s
}

// LastTick is the last completed tick. Safe from any goroutine.
func (w *World) LastTick() uint { return uint(w.metrics.lastTick.Load()) }
