// Package dispatcher routes commands to handlers. Client messages and world
// events both pass through it; buffered handlers run on their own goroutine
// so the producer never waits on storage or the tick loop.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrQueueFull      = errors.New("queue full")
	ErrClosed         = errors.New("dispatcher closed")
)

// Queued is the result of a dispatch to a buffered handler.
const Queued = "queued"

// Event is a command for a handler: a client message, or a world event on
// its way to the recorder.
type Event struct {
	Command   string
	Source    string // participant or subsystem that produced the event
	Payload   any
	Timestamp time.Time
}

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(Event) (any, error)

// Logger is what the dispatcher logs through.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures a handler at registration.
type Option func(*options)

type options struct {
	buffer   int
	blocking bool
	logged   bool
}

// Buffered runs the handler on its own goroutine behind a queue of size n.
// A full queue drops the event.
func Buffered(n int) Option { return func(o *options) { o.buffer = n } }

// Blocking makes a full buffered queue wait instead of dropping.
func Blocking() Option { return func(o *options) { o.blocking = true } }

// Logged logs each event and its outcome.
func Logged() Option { return func(o *options) { o.logged = true } }

type queue struct {
	events chan Event
	attr   metric.MeasurementOption
}

// Dispatcher holds the handler table. Register everything before the first
// Dispatch; the table is read without locking afterwards.
type Dispatcher struct {
	handlers map[string]HandlerFunc
	log      Logger
	metrics  *instruments

	mu      sync.RWMutex
	queues  map[string]*queue
	closed  bool
	workers sync.WaitGroup
}

// New creates a dispatcher. Metrics go to the global OTel meter provider.
func New(log Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		queues:   make(map[string]*queue),
		log:      log,
	}
	in, err := newInstruments(d)
	if err != nil {
		return nil, err
	}
	d.metrics = in
	return d, nil
}

// Register installs the handler for command, replacing any previous one.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logged {
		h = d.logged(command, h)
	}
	if o.buffer > 0 {
		h = d.buffered(command, o.buffer, o.blocking, h)
	}
	d.handlers[command] = h
}

// Dispatch hands e to its handler. Buffered handlers return Queued.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	h, ok := d.handlers[e.Command]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, e.Command)
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	return h(e)
}

// HasHandler reports whether command is registered.
func (d *Dispatcher) HasHandler(command string) bool {
	_, ok := d.handlers[command]
	return ok
}

// Backlog is the number of events waiting per buffered command.
func (d *Dispatcher) Backlog() map[string]int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]int, len(d.queues))
	for cmd, q := range d.queues {
		out[cmd] = len(q.events)
	}
	return out
}

// Close stops buffered handlers from accepting events and waits for their
// queues to drain. Unbuffered handlers keep working.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, q := range d.queues {
		close(q.events)
	}
	d.mu.Unlock()
	d.workers.Wait()
}

func (d *Dispatcher) buffered(command string, size int, blocking bool, h HandlerFunc) HandlerFunc {
	q := &queue{
		events: make(chan Event, size),
		attr:   metric.WithAttributes(attribute.String("command", command)),
	}
	d.mu.Lock()
	d.queues[command] = q
	d.mu.Unlock()

	d.workers.Add(1)
	go func() {
		defer d.workers.Done()
		ctx := context.Background()
		for e := range q.events {
			d.metrics.wait.Record(ctx, float64(time.Since(e.Timestamp).Microseconds())/1000, q.attr)
			if _, err := h(e); err != nil {
				d.log.Debug("buffered event failed", "command", command, "error", err)
			}
			d.metrics.processed.Add(ctx, 1, q.attr)
		}
	}()

	return func(e Event) (any, error) {
		// held for reading so Close cannot close the channel mid-send
		d.mu.RLock()
		defer d.mu.RUnlock()
		if d.closed {
			return nil, ErrClosed
		}
		if blocking {
			q.events <- e
			return Queued, nil
		}
		select {
		case q.events <- e:
			return Queued, nil
		default:
			d.metrics.dropped.Add(context.Background(), 1, q.attr)
			return nil, fmt.Errorf("%w: %s", ErrQueueFull, command)
		}
	}
}

func (d *Dispatcher) logged(command string, h HandlerFunc) HandlerFunc {
	return func(e Event) (any, error) {
		start := time.Now()
		res, err := h(e)
		if err != nil {
			d.log.Error("event failed", "command", command, "source", e.Source, "took", time.Since(start), "error", err)
			return res, err
		}
		d.log.Debug("event handled", "command", command, "source", e.Source, "payload", fmt.Sprintf("%T", e.Payload), "took", time.Since(start))
		return res, nil
	}
}
