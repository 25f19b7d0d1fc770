// Package worker delivers queued transitions to listeners.
package worker

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/wellness/internal/domain/model"
	"github.com/okian/wellness/pkg/logger"
	"github.com/okian/wellness/pkg/metrics"
)

// Listener reacts to one transition. Listeners run on the dispatcher
// goroutine and must not block for long.
type Listener func(ctx context.Context, t model.Transition)

// Queue defines how the dispatcher receives transitions.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Transition
}

// Dispatcher reads a queue on a single goroutine, so listeners observe
// transitions in the order they were published.
type Dispatcher struct {
	queue     Queue
	name      string
	mu        sync.RWMutex
	listeners []Listener

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewDispatcher creates a dispatcher for q.
func NewDispatcher(q Queue, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		queue:    q,
		name:     "dispatcher",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("dispatcher"),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.name != "dispatcher" {
		d.logger = d.logger.Named(d.name)
	}
	return d
}

// Subscribe adds a listener. It returns a function that removes it.
func (d *Dispatcher) Subscribe(l Listener) (unsubscribe func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, l)
	idx := len(d.listeners) - 1

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			defer d.mu.Unlock()
			if idx < len(d.listeners) {
				d.listeners[idx] = nil
			}
		})
	}
}

// Run delivers transitions until ctx is done, Shutdown is called or the
// queue closes.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.done)

	events := d.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.shutdown:
			return
		case t, ok := <-events:
			if !ok {
				return
			}
			d.deliver(ctx, t)
		}
	}
}

// Shutdown stops the dispatcher and waits for the loop to exit.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.shutdownOnce.Do(func() { close(d.shutdown) })

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		d.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed when Run returns.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

func (d *Dispatcher) deliver(ctx context.Context, t model.Transition) { //nolint:gocritic // hugeParam: passed by value for channel semantics
	d.mu.RLock()
	listeners := make([]Listener, 0, len(d.listeners))
	for _, l := range d.listeners {
		if l != nil {
			listeners = append(listeners, l)
		}
	}
	d.mu.RUnlock()

	for _, l := range listeners {
		d.call(ctx, l, t)
	}
}

// call isolates a panicking listener so the loop keeps running.
func (d *Dispatcher) call(ctx context.Context, l Listener, t model.Transition) { //nolint:gocritic // hugeParam
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordErrorByComponent("dispatcher", "listener_panic")
			d.logger.Error(ctx, "listener panicked",
				logger.String("axis", string(t.Axis)),
				logger.Any("panic", r),
			)
		}
	}()
	l(ctx, t)
}
