// Package worker delivers queued transitions to listeners.
package worker

import (
	"github.com/okian/wellness/pkg/logger"
)

// Option applies a configuration option to the Dispatcher.
type Option func(*Dispatcher)

// WithName sets the dispatcher name for logging.
func WithName(name string) Option {
	return func(d *Dispatcher) {
		if name != "" {
			d.name = name
		}
	}
}

// WithLogger sets a custom logger for the dispatcher.
func WithLogger(l logger.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithListener registers a listener at construction time.
func WithListener(l Listener) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.listeners = append(d.listeners, l)
		}
	}
}
