// Package queue is a mutex-guarded FIFO for handing batches between
// goroutines: the world's command inbox and the SQL writer's row queues.
package queue

import "sync"

// Queue is a FIFO safe for concurrent use. A bounded queue drops its
// oldest items to make room.
type Queue[T any] struct {
	mu      sync.Mutex
	items   []T
	limit   int
	dropped int
}

// New returns an unbounded queue.
func New[T any]() *Queue[T] { return &Queue[T]{} }

// NewBounded returns a queue holding at most limit items.
func NewBounded[T any](limit int) *Queue[T] { return &Queue[T]{limit: limit} }

// Push appends items.
func (q *Queue[T]) Push(items ...T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, items...)
	q.trim()
}

// Requeue puts items back at the head, ahead of anything pushed since they
// were drained.
func (q *Queue[T]) Requeue(items []T) {
	if len(items) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(append(make([]T, 0, len(items)+len(q.items)), items...), q.items...)
	q.trim()
}

// Drain removes and returns everything queued, oldest first.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}

// Len is the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Dropped is how many items a bounded queue has discarded.
func (q *Queue[T]) Dropped() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

func (q *Queue[T]) trim() {
	if q.limit <= 0 || len(q.items) <= q.limit {
		return
	}
	n := len(q.items) - q.limit
	clear(q.items[:n])
	q.items = q.items[n:]
	q.dropped += n
}
