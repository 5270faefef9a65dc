// Package metrics provides Prometheus metrics for the z-score calculator service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultNamespace       = "zscore"
	defaultSubsystem       = "calculator"
	defaultRefreshInterval = 10 * time.Second
)

// Manager owns every collector the service exports.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Engine
	calculations       *prometheus.CounterVec
	validationFailures *prometheus.CounterVec
	formActions        *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByEndpoint    *prometheus.CounterVec

	// Live form sessions
	liveSessions prometheus.Gauge
	liveMessages *prometheus.CounterVec

	// Configuration
	configReloads *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Init replaces the global manager with one built from opts on a fresh
// registry. It must run at startup before metrics are recorded or served.
func Init(opts ...Option) {
	reg := prometheus.NewRegistry()
	globalManager = NewManager(append([]Option{WithPrometheusRegistry(reg)}, opts...)...)
	customRegistry = reg
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        defaultNamespace,
		subsystem:        defaultSubsystem,
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.calculations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "calculations_total",
		Help:        "Total number of z-score calculations by interpretation tier",
		ConstLabels: m.constLabels,
	}, []string{"tier"})

	m.validationFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "validation_failures_total",
		Help:        "Total number of rejected inputs by field and error kind",
		ConstLabels: m.constLabels,
	}, []string{"field", "kind"})

	m.formActions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "form_actions_total",
		Help:        "Total number of form interactions by action type",
		ConstLabels: m.constLabels,
	}, []string{"action"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_requests_total",
		Help:        "Total number of HTTP requests by endpoint and method",
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "errors_by_endpoint_total",
		Help:        "Total number of failed HTTP requests by endpoint, method and error type",
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "error_type"})

	m.liveSessions = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "live_sessions",
		Help:        "Current number of connected live form sessions",
		ConstLabels: m.constLabels,
	})

	m.liveMessages = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "live_messages_total",
		Help:        "Total number of live form frames by direction",
		ConstLabels: m.constLabels,
	}, []string{"direction"})

	m.configReloads = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "config_reloads_total",
		Help:        "Total number of configuration reload attempts by result",
		ConstLabels: m.constLabels,
	}, []string{"result"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        "memory_usage_bytes",
		Help:        "Current heap allocation in bytes",
		ConstLabels: m.constLabels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        "goroutines",
		Help:        "Current number of goroutines",
		ConstLabels: m.constLabels,
	})
}

// RecordCalculation counts one calculation in tier.
func (m *Manager) RecordCalculation(tier string) {
	if m.enabled {
		m.calculations.WithLabelValues(tier).Inc()
	}
}

// RecordValidationFailure counts one rejected field.
func (m *Manager) RecordValidationFailure(field, kind string) {
	if m.enabled {
		m.validationFailures.WithLabelValues(field, kind).Inc()
	}
}

// RecordFormAction counts one form interaction.
func (m *Manager) RecordFormAction(action string) {
	if m.enabled {
		m.formActions.WithLabelValues(action).Inc()
	}
}

// RecordHTTPRequest records an HTTP request and its duration.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	if m.enabled {
		m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
		m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
	}
}

// RecordErrorByEndpoint records a failed HTTP request.
func (m *Manager) RecordErrorByEndpoint(endpoint, method, errorType string) {
	if m.enabled {
		m.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
	}
}

// UpdateLiveSessions sets the connected live session count.
func (m *Manager) UpdateLiveSessions(count int) {
	if m.enabled {
		m.liveSessions.Set(float64(count))
	}
}

// RecordLiveMessage counts one live form frame; direction is "in" or "out".
func (m *Manager) RecordLiveMessage(direction string) {
	if m.enabled {
		m.liveMessages.WithLabelValues(direction).Inc()
	}
}

// RecordConfigReload counts a reload attempt; result is "ok" or "error".
func (m *Manager) RecordConfigReload(result string) {
	if m.enabled {
		m.configReloads.WithLabelValues(result).Inc()
	}
}

// UpdateSystemMemoryUsage sets the heap allocation in bytes.
func (m *Manager) UpdateSystemMemoryUsage(bytes uint64) {
	if m.enabled {
		m.systemMemoryUsage.Set(float64(bytes))
	}
}

// UpdateSystemGoroutineCount sets the goroutine count.
func (m *Manager) UpdateSystemGoroutineCount(count int) {
	if m.enabled {
		m.systemGoroutineCount.Set(float64(count))
	}
}

// RefreshInterval is how often gauge updaters should run.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

// Package-level helpers operate on the global manager.

// RecordCalculation counts one calculation in tier.
func RecordCalculation(tier string) { globalManager.RecordCalculation(tier) }

// RecordValidationFailure counts one rejected field.
func RecordValidationFailure(field, kind string) { globalManager.RecordValidationFailure(field, kind) }

// RecordFormAction counts one form interaction.
func RecordFormAction(action string) { globalManager.RecordFormAction(action) }

// RecordHTTPRequest records an HTTP request and its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.RecordHTTPRequest(endpoint, method, statusCode, durationMs)
}

// RecordErrorByEndpoint records a failed HTTP request.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.RecordErrorByEndpoint(endpoint, method, errorType)
}

// UpdateLiveSessions sets the connected live session count.
func UpdateLiveSessions(count int) { globalManager.UpdateLiveSessions(count) }

// RecordLiveMessage counts one live form frame.
func RecordLiveMessage(direction string) { globalManager.RecordLiveMessage(direction) }

// RecordConfigReload counts a configuration reload attempt.
func RecordConfigReload(result string) { globalManager.RecordConfigReload(result) }

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.UpdateSystemMemoryUsage(bytes) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) { globalManager.UpdateSystemGoroutineCount(count) }

// RefreshInterval is the global manager's gauge refresh interval.
func RefreshInterval() time.Duration { return globalManager.RefreshInterval() }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
