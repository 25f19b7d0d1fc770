// Package metrics provides Prometheus metrics for the wellness client.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Components used as the metric subsystem.
const (
	ComponentClient = "client"
	ComponentStub   = "stub"
)

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithComponent names the process emitting the metrics. It becomes the
// subsystem, so the CLI and the stub can be scraped side by side.
func WithComponent(component string) Option {
	return func(m *Manager) {
		if component != "" {
			m.subsystem = component
		}
	}
}

// WithNamespace overrides the "wellness" namespace.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithLatencyBuckets sets the millisecond buckets shared by the remote call
// and stub request histograms.
func WithLatencyBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.histogramBuckets = buckets
		}
	}
}

// WithMetricsEnabled turns every Record and Update helper into a no-op when
// false.
func WithMetricsEnabled(enabled bool) Option {
	return func(m *Manager) {
		m.enabled = enabled
	}
}

// WithConstLabel adds a constant label to every metric, for example the
// deployment environment.
func WithConstLabel(name, value string) Option {
	return func(m *Manager) {
		if name == "" {
			return
		}
		if m.customLabels == nil {
			m.customLabels = map[string]string{}
		}
		m.customLabels[name] = value
	}
}

// WithPrometheusRegistry registers metrics on registry instead of the
// default registerer.
func WithPrometheusRegistry(registry prometheus.Registerer) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}
