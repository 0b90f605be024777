// Package metrics provides Prometheus metrics for the cardioviz service.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Manager owns every Prometheus collector exported by cardioviz.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Refresh lifecycle
	refreshRequests   *prometheus.CounterVec
	refreshResults    *prometheus.CounterVec
	refreshDuplicates prometheus.Counter
	fetchLatency      prometheus.Histogram
	loading           prometheus.Gauge

	// Session contents
	records      prometheus.Gauge
	patients     prometheus.Gauge
	activePanels prometheus.Gauge
	panelToggles *prometheus.CounterVec

	// Refresh queue
	queueSize          prometheus.Gauge
	queueEnqueueErrors prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec

	// Runtime
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // registry without default Go collectors

func init() { //nolint:gochecknoinits // global metrics setup
	m, err := NewManager(WithPrometheusRegistry(customRegistry))
	if err != nil {
		panic(err)
	}
	globalManager = m
}

// NewManager builds a manager and registers its collectors on the configured registry.
func NewManager(opts ...Option) (*Manager, error) {
	m := &Manager{
		namespace:        "cardioviz",
		subsystem:        "dashboard",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	if err := m.initializeMetrics(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help}, labels)
}

func (m *Manager) initializeMetrics() error {
	m.refreshRequests = m.counterVec("refresh_requests_total", "Refresh requests by trigger (api, scheduled, startup, tui)", "trigger")
	m.refreshResults = m.counterVec("refresh_results_total", "Refresh outcomes (success, failure, in_flight)", "result")
	m.refreshDuplicates = m.counter("refresh_duplicates_total", "Refresh requests rejected as duplicates by request id")
	m.fetchLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "fetch_latency_milliseconds",
		Help:      "Latency of data source fetches in milliseconds",
		Buckets:   []float64{10, 50, 100, 250, 500, 1000, 2000, 5000, 10000},
	})
	m.loading = m.gauge("loading", "1 while a refresh is in flight")

	m.records = m.gauge("records", "Number of measurement records in the session")
	m.patients = m.gauge("patients", "Number of distinct patients in the session")
	m.activePanels = m.gauge("active_panels", "Number of visible panels")
	m.panelToggles = m.counterVec("panel_toggles_total", "Panel toggles by panel id", "panel")

	m.queueSize = m.gauge("refresh_queue_size", "Pending refresh requests")
	m.queueEnqueueErrors = m.counter("refresh_queue_enqueue_errors_total", "Refresh requests rejected by a full or closed queue")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = m.counterVec("errors_total", "Errors by component and type", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap memory in use")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")

	for _, c := range []prometheus.Collector{
		m.refreshRequests, m.refreshResults, m.refreshDuplicates, m.fetchLatency, m.loading,
		m.records, m.patients, m.activePanels, m.panelToggles,
		m.queueSize, m.queueEnqueueErrors,
		m.httpRequests, m.httpRequestDuration,
		m.errorsByComponent,
		m.systemMemoryUsage, m.systemGoroutineCount,
	} {
		if err := m.registry.Register(c); err != nil {
			return fmt.Errorf("%w: %w", ErrRegister, err)
		}
	}
	return nil
}

// RecordRefreshRequest counts a refresh request by what triggered it.
func RecordRefreshRequest(trigger string) {
	globalManager.refreshRequests.WithLabelValues(trigger).Inc()
}

// RecordRefreshResult counts a refresh outcome.
func RecordRefreshResult(result string) {
	globalManager.refreshResults.WithLabelValues(result).Inc()
}

// RecordRefreshDuplicate counts a refresh request dropped by idempotency.
func RecordRefreshDuplicate() {
	globalManager.refreshDuplicates.Inc()
}

// RecordFetchLatency records data source latency in milliseconds.
func RecordFetchLatency(latencyMs float64) {
	globalManager.fetchLatency.Observe(latencyMs)
}

// SetLoading mirrors the session loading flag.
func SetLoading(loading bool) {
	if loading {
		globalManager.loading.Set(1)
		return
	}
	globalManager.loading.Set(0)
}

// UpdateRecords sets the record count.
func UpdateRecords(count int) {
	globalManager.records.Set(float64(count))
}

// UpdatePatients sets the distinct patient count.
func UpdatePatients(count int) {
	globalManager.patients.Set(float64(count))
}

// UpdateActivePanels sets the number of visible panels.
func UpdateActivePanels(count int) {
	globalManager.activePanels.Set(float64(count))
}

// RecordPanelToggle counts a toggle of the given panel.
func RecordPanelToggle(panel string) {
	globalManager.panelToggles.WithLabelValues(panel).Inc()
}

// UpdateQueueSize sets the number of pending refresh requests.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// RecordQueueEnqueueError counts a rejected enqueue.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent counts an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by cardioviz.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
