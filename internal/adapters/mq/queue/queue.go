// Package queue buffers state transitions between the session and the
// dispatcher that fans them out to listeners.
package queue

import (
	"context"
	"sync"

	"github.com/okian/wellness/internal/domain/model"
	"github.com/okian/wellness/pkg/metrics"
)

const defaultQueueCapacity = 256

// Transition is the payload flowing through the queue.
type Transition = model.Transition

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a transition. It returns false, without blocking, when
	// the queue is full, closed or ctx is done.
	Enqueue(ctx context.Context, t Transition) bool

	// Dequeue returns a channel that receives transitions in enqueue order.
	// The channel is closed when the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Transition

	// Len returns the number of pending transitions.
	Len() int

	// Close stops accepting transitions.
	Close() error

	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	events   chan Transition
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryQueue creates a bounded queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.events = make(chan Transition, q.capacity)
	metrics.UpdateNotifyQueueSize(0)
	return q
}

// Enqueue adds a transition. Dropped transitions are counted.
func (q *InMemoryQueue) Enqueue(ctx context.Context, t Transition) bool { //nolint:gocritic // hugeParam: passed by value for channel semantics
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.drop("closed")
		return false
	}
	if ctx.Err() != nil {
		q.drop("context_cancelled")
		return false
	}

	select {
	case q.events <- t:
		metrics.UpdateNotifyQueueSize(len(q.events))
		return true
	default:
		q.drop("queue_full")
		return false
	}
}

func (q *InMemoryQueue) drop(reason string) {
	metrics.RecordTransitionDropped()
	metrics.RecordErrorByComponent("queue", reason)
}

// Dequeue returns a channel that receives transitions as they arrive.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Transition {
	out := make(chan Transition)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case t, ok := <-q.events:
				if !ok {
					return
				}
				metrics.UpdateNotifyQueueSize(len(q.events))
				select {
				case out <- t:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Len returns the number of pending transitions.
func (q *InMemoryQueue) Len() int {
	return len(q.events)
}

// Close stops the queue. Pending transitions are still delivered.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.events)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
