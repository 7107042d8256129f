// Package queue provides the unbounded producer/consumer queue that decouples
// streaming producers from consumers. Producers never block on Push; consumers
// block in Pop until an item, a close, or context cancellation arrives.
package queue

import (
	"context"
	"sync"
)

// Unbounded is a FIFO queue with no capacity limit. It is safe for concurrent
// use by any number of producers and consumers.
type Unbounded[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool
	err    error
	wake   chan struct{}
}

// NewUnbounded returns an empty open queue.
func NewUnbounded[T any]() *Unbounded[T] {
	return &Unbounded[T]{wake: make(chan struct{})}
}

// Push appends v to the queue. It reports false when the queue is already
// closed and the item was discarded.
func (q *Unbounded[T]) Push(v T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.items = append(q.items, v)
	q.broadcast()
	return true
}

// Close marks the queue terminated. Items pushed before Close remain
// poppable; once drained, Pop returns ok=false with err (nil for a clean
// close). Subsequent calls are no-ops.
func (q *Unbounded[T]) Close(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.err = err
	q.broadcast()
}

// Pop removes and returns the oldest item. It blocks until an item is
// available, the queue is closed and drained, or ctx is done. The bool result
// is true only when an item is returned.
func (q *Unbounded[T]) Pop(ctx context.Context) (T, bool, error) {
	var zero T
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			v := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return v, true, nil
		}
		if q.closed {
			err := q.err
			q.mu.Unlock()
			return zero, false, err
		}
		wake := q.wake
		q.mu.Unlock()

		select {
		case <-wake:
		case <-ctx.Done():
			return zero, false, ctx.Err()
		}
	}
}

// broadcast wakes every blocked Pop. Callers must hold q.mu.
func (q *Unbounded[T]) broadcast() {
	close(q.wake)
	q.wake = make(chan struct{})
}
