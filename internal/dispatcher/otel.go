package dispatcher

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/OCAP2/dogfight/internal/dispatcher"

// instruments are the dispatcher's metrics, taken from the global meter
// provider so they are no-ops until one is installed.
type instruments struct {
	backlog   metric.Int64ObservableGauge
	processed metric.Int64Counter
	dropped   metric.Int64Counter
	wait      metric.Float64Histogram
}

func newInstruments(d *Dispatcher) (*instruments, error) {
	m := otel.Meter(instrumentationName)
	in := &instruments{}

	var err error
	if in.backlog, err = m.Int64ObservableGauge("dogfight.dispatcher.backlog",
		metric.WithDescription("Events waiting in a buffered handler's queue")); err != nil {
		return nil, fmt.Errorf("backlog gauge: %w", err)
	}
	if _, err = m.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		for cmd, n := range d.Backlog() {
			o.ObserveInt64(in.backlog, int64(n), metric.WithAttributes(attribute.String("command", cmd)))
		}
		return nil
	}, in.backlog); err != nil {
		return nil, fmt.Errorf("backlog callback: %w", err)
	}
	if in.processed, err = m.Int64Counter("dogfight.dispatcher.processed",
		metric.WithDescription("Buffered events handled")); err != nil {
		return nil, fmt.Errorf("processed counter: %w", err)
	}
	if in.dropped, err = m.Int64Counter("dogfight.dispatcher.dropped",
		metric.WithDescription("Events dropped on a full queue")); err != nil {
		return nil, fmt.Errorf("dropped counter: %w", err)
	}
	if in.wait, err = m.Float64Histogram("dogfight.dispatcher.wait",
		metric.WithDescription("Time from dispatch to handling of a buffered event"),
		metric.WithUnit("ms")); err != nil {
		return nil, fmt.Errorf("wait histogram: %w", err)
	}
	return in, nil
}
