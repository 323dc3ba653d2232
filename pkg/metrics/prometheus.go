package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Workflow
	runsStarted        prometheus.Counter
	runsFinished       *prometheus.CounterVec
	runsActive         prometheus.Gauge
	stageDuration      *prometheus.HistogramVec
	iterationsPerRun   prometheus.Histogram
	reflectionDecision *prometheus.CounterVec
	retrievedRecords   prometheus.Counter

	// Analysis
	recordsAnalyzed    *prometheus.CounterVec
	analysisLatency    prometheus.Histogram
	reasoningFallbacks prometheus.Counter
	scoringErrors      prometheus.Counter
	recommendations    *prometheus.CounterVec

	// Queue and workers
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueEnqueued    prometheus.Counter
	queueRejected    *prometheus.CounterVec
	workerCount      prometheus.Gauge
	workerBusy       prometheus.Gauge
	workerProcessing prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "callscout",
		subsystem:        "workflow",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.runsStarted = m.counter("runs_started_total", "Total number of workflow runs started")
	m.runsFinished = m.counterVec("runs_finished_total", "Total number of workflow runs by terminal status", "status")
	m.runsActive = m.gauge("runs_active", "Number of workflow runs currently executing")
	m.stageDuration = m.histogramVec("stage_duration_milliseconds", "Time spent in each workflow stage", "stage")
	m.iterationsPerRun = m.histogram("iterations_per_run", "Planning iterations used by finished runs", []float64{1, 2, 3, 4, 5, 8, 10})
	m.reflectionDecision = m.counterVec("reflection_decisions_total", "Reflection decisions by outcome", "decision")
	m.retrievedRecords = m.counter("retrieved_records_total", "Total number of opportunity records retrieved")

	m.recordsAnalyzed = m.counterVec("records_analyzed_total", "Opportunity records analyzed by scoring mode", "mode")
	m.analysisLatency = m.histogram("analysis_latency_milliseconds", "Per-record analysis latency including reasoning", m.histogramBuckets)
	m.reasoningFallbacks = m.counter("reasoning_fallbacks_total", "Records scored deterministically after a reasoning failure")
	m.scoringErrors = m.counter("scoring_errors_total", "Records that received the neutral score after a scoring failure")
	m.recommendations = m.counterVec("recommendations_total", "Final recommendation labels assigned", "recommendation")

	m.queueSize = m.gauge("queue_size", "Current number of analysis jobs waiting")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum analysis queue capacity")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Total analysis jobs enqueued")
	m.queueRejected = m.counterVec("queue_rejected_total", "Analysis jobs rejected by reason", "reason")
	m.workerCount = m.gauge("worker_count", "Number of analysis workers")
	m.workerBusy = m.gauge("worker_busy", "Number of analysis workers currently processing a job")
	m.workerProcessing = m.histogram("worker_processing_latency_milliseconds", "Worker job processing latency", m.histogramBuckets)

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Total number of errors by component", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

// RecordRunStarted marks a run as started and active.
func RecordRunStarted() {
	globalManager.runsStarted.Inc()
	globalManager.runsActive.Inc()
}

// RecordRunFinished marks a run as finished with its terminal status and iteration count.
func RecordRunFinished(status string, iterations int) {
	globalManager.runsFinished.WithLabelValues(status).Inc()
	globalManager.runsActive.Dec()
	globalManager.iterationsPerRun.Observe(float64(iterations))
}

// RecordStageDuration records how long a stage took.
func RecordStageDuration(stage string, ms float64) {
	globalManager.stageDuration.WithLabelValues(stage).Observe(ms)
}

// RecordReflectionDecision counts a reflection outcome.
func RecordReflectionDecision(decision string) {
	globalManager.reflectionDecision.WithLabelValues(decision).Inc()
}

// RecordRetrievedRecords adds retrieved records.
func RecordRetrievedRecords(n int) {
	globalManager.retrievedRecords.Add(float64(n))
}

// RecordRecordAnalyzed counts an analyzed record by scoring mode and recommendation.
func RecordRecordAnalyzed(mode, recommendation string) {
	globalManager.recordsAnalyzed.WithLabelValues(mode).Inc()
	globalManager.recommendations.WithLabelValues(recommendation).Inc()
}

// RecordAnalysisLatency records per-record analysis latency in milliseconds.
func RecordAnalysisLatency(ms float64) {
	globalManager.analysisLatency.Observe(ms)
}

// RecordReasoningFallback counts a deterministic fallback.
func RecordReasoningFallback() {
	globalManager.reasoningFallbacks.Inc()
}

// RecordScoringError counts a neutral-score substitution.
func RecordScoringError() {
	globalManager.scoringErrors.Inc()
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue counts an accepted job.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueRejected counts a rejected job.
func RecordQueueRejected(reason string) {
	globalManager.queueRejected.WithLabelValues(reason).Inc()
}

// UpdateWorkerCount sets the number of workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// AddWorkerBusy adjusts the busy worker gauge.
func AddWorkerBusy(delta int) {
	globalManager.workerBusy.Add(float64(delta))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(ms float64) {
	globalManager.workerProcessing.Observe(ms)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(ms)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
