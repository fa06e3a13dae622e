package queue

import (
	"context"
	"errors"
	"sync"
)

// ErrQueueClosed is returned when operations are attempted on a closed queue.
var ErrQueueClosed = errors.New("queue is closed")

// Stats tracks queue throughput.
type Stats struct {
	Pushed   int64
	Popped   int64
	Drained  int64
	PeakSize int
}

// Queue is an unbounded FIFO with a single blocking consumer. Push never
// blocks, so producers on a latency-sensitive goroutine are not held up.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	ready  chan struct{}
	closed bool
	stats  Stats
}

// New creates an empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{ready: make(chan struct{}, 1)}
}

// Push appends item.
func (q *Queue[T]) Push(item T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	q.items = append(q.items, item)
	q.stats.Pushed++
	if len(q.items) > q.stats.PeakSize {
		q.stats.PeakSize = len(q.items)
	}

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return nil
}

// Pop removes the oldest item, waiting until one arrives. It returns
// ErrQueueClosed once the queue is closed and empty.
func (q *Queue[T]) Pop(ctx context.Context) (T, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			item := q.items[0]
			var zero T
			q.items[0] = zero
			q.items = q.items[1:]
			q.stats.Popped++
			q.mu.Unlock()
			return item, nil
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			var zero T
			return zero, ErrQueueClosed
		}

		select {
		case <-q.ready:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// Drain removes and returns everything queued.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.items
	q.items = nil
	q.stats.Drained += int64(len(items))
	return items
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close stops further pushes and wakes the consumer.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.ready)
}

// Stats returns a copy of the counters.
func (q *Queue[T]) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stats
}
