package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server timeouts for the metrics endpoint.
const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Manager manages all Prometheus metrics for the wellness client.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Remote service calls
	remoteRequests        *prometheus.CounterVec
	remoteRequestDuration *prometheus.HistogramVec

	// Session behaviour
	submissionSequences *prometheus.CounterVec
	scorePredictions    *prometheus.CounterVec
	wellnessScore       prometheus.Gauge
	historyEntries      prometheus.Gauge
	transitions         *prometheus.CounterVec
	transitionsDropped  prometheus.Counter
	notifyQueueSize     prometheus.Gauge
	navigations         *prometheus.CounterVec

	// Stub service HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "wellness",
		subsystem:        ComponentClient,
		histogramBuckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		enabled:          true,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	m.remoteRequests = m.counterVec("remote_requests_total",
		"Remote service calls by operation, outcome and failure kind",
		"op", "outcome", "kind")
	m.remoteRequestDuration = m.histogramVec("remote_request_duration_milliseconds",
		"Remote service call latency in milliseconds", "op")

	m.submissionSequences = m.counterVec("submission_sequences_total",
		"Submission sequences by result", "result")
	m.scorePredictions = m.counterVec("score_predictions_total",
		"Score requests by result (scored, unavailable)", "result")
	m.wellnessScore = m.gauge("wellness_score",
		"Latest wellness score shown to the user (0 when absent)")
	m.historyEntries = m.gauge("history_entries",
		"Number of entries in the loaded history")
	m.transitions = m.counterVec("state_transitions_total",
		"Session state transitions by axis and target state", "axis", "to")
	m.transitionsDropped = promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "state_transitions_dropped_total",
		Help:        "Transitions dropped because the notify queue was full or closed",
		ConstLabels: m.customLabels,
	})
	m.notifyQueueSize = m.gauge("notify_queue_size",
		"Pending transitions waiting for the dispatcher")
	m.navigations = m.counterVec("navigations_total",
		"Screen changes by target screen and trigger", "to", "trigger")

	m.httpRequests = m.counterVec("http_requests_total",
		"Stub service HTTP requests by endpoint, method and status",
		"endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds",
		"Stub service HTTP request duration in milliseconds",
		"endpoint", "method", "status_code")

	m.errorsByComponent = m.counterVec("errors_total",
		"Errors by component and type", "component", "type")
}

// Remote call metrics.

// RecordRemoteRequest counts one remote call.
func RecordRemoteRequest(op, outcome, kind string) {
	if globalManager.enabled {
		globalManager.remoteRequests.WithLabelValues(op, outcome, kind).Inc()
	}
}

// RecordRemoteLatency records remote call latency in milliseconds.
func RecordRemoteLatency(op string, latencyMs float64) {
	if globalManager.enabled {
		globalManager.remoteRequestDuration.WithLabelValues(op).Observe(latencyMs)
	}
}

// Session metrics.

// RecordSubmissionSequence counts a finished or rejected submission sequence.
func RecordSubmissionSequence(result string) {
	if globalManager.enabled {
		globalManager.submissionSequences.WithLabelValues(result).Inc()
	}
}

// RecordScorePrediction counts a score request outcome.
func RecordScorePrediction(result string) {
	if globalManager.enabled {
		globalManager.scorePredictions.WithLabelValues(result).Inc()
	}
}

// UpdateWellnessScore sets the displayed score; pass 0 when absent.
func UpdateWellnessScore(score float64) {
	if globalManager.enabled {
		globalManager.wellnessScore.Set(score)
	}
}

// UpdateHistoryEntries sets the loaded history size.
func UpdateHistoryEntries(count int) {
	if globalManager.enabled {
		globalManager.historyEntries.Set(float64(count))
	}
}

// RecordTransition counts a state transition.
func RecordTransition(axis, to string) {
	if globalManager.enabled {
		globalManager.transitions.WithLabelValues(axis, to).Inc()
	}
}

// RecordTransitionDropped counts a transition that never reached listeners.
func RecordTransitionDropped() {
	if globalManager.enabled {
		globalManager.transitionsDropped.Inc()
	}
}

// UpdateNotifyQueueSize sets the pending transition count.
func UpdateNotifyQueueSize(size int) {
	if globalManager.enabled {
		globalManager.notifyQueueSize.Set(float64(size))
	}
}

// RecordNavigation counts a screen change.
func RecordNavigation(to, trigger string) {
	if globalManager.enabled {
		globalManager.navigations.WithLabelValues(to, trigger).Inc()
	}
}

// Stub HTTP metrics.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if globalManager.enabled {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if globalManager.enabled {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
	}
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	if globalManager.enabled {
		globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
	}
}

// Configure replaces the global manager with one built from opts on a fresh
// registry. Call it once at startup, before anything records metrics.
func Configure(opts ...Option) {
	registry := prometheus.NewRegistry()
	globalManager = NewManager(append([]Option{WithPrometheusRegistry(registry)}, opts...)...)
	customRegistry = registry
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Handler serves the custom registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(customRegistry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("%w: %w", ErrServe, err)
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	}
}
