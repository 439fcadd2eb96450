// Package observability holds the Prometheus metrics and OpenTelemetry
// tracer shared by services, worker and HTTP adapters.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "neoosi"

// Metrics groups every collector of the service. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	AnswersTotal             *prometheus.CounterVec
	AnswerDurationSeconds    *prometheus.HistogramVec
	RetrievedChunks          prometheus.Histogram
	GenerationAttemptsTotal  *prometheus.CounterVec
	GenerationFallbacksTotal prometheus.Counter
	ClassificationDefaults   *prometheus.CounterVec
	IndexBuildSeconds        *prometheus.HistogramVec
	IndexChunks              prometheus.Gauge
	TasksTotal               *prometheus.CounterVec
	HTTPRequestSeconds       *prometheus.HistogramVec
}

// NewMetrics registers the collectors with reg. Pass prometheus.DefaultRegisterer
// in production and prometheus.NewRegistry() in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		AnswersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "assistant",
				Name:      "answers_total",
				Help:      "Answers returned by tier and outcome",
			},
			[]string{"tier", "outcome"},
		),
		AnswerDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: "assistant",
				Name:      "answer_duration_seconds",
				Help:      "End to end answer latency",
				Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"tier"},
		),
		RetrievedChunks: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: "retrieval",
				Name:      "chunks",
				Help:      "Chunks returned by the retriever after document expansion",
				Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250},
			},
		),
		GenerationAttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "generation",
				Name:      "attempts_total",
				Help:      "Generation backend calls by backend and outcome",
			},
			[]string{"backend", "outcome"},
		),
		GenerationFallbacksTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "generation",
				Name:      "fallbacks_total",
				Help:      "Calls handed to the secondary backend",
			},
		),
		ClassificationDefaults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "classifier",
				Name:      "defaults_total",
				Help:      "Classifier outputs that did not parse and resolved to the default",
			},
			[]string{"classifier"},
		),
		IndexBuildSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: "index",
				Name:      "build_seconds",
				Help:      "Time to publish an index snapshot by source",
				Buckets:   []float64{0.1, 1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"source"},
		),
		IndexChunks: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: "index",
				Name:      "chunks",
				Help:      "Chunks in the live index snapshot",
			},
		),
		TasksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "worker",
				Name:      "tasks_total",
				Help:      "Background tasks processed by type and outcome",
			},
			[]string{"type", "outcome"},
		),
		HTTPRequestSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency by method, route and status",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
	}
}

// ObserveAnswer records one answer
func (m *Metrics) ObserveAnswer(tier, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.AnswersTotal.WithLabelValues(tier, outcome).Inc()
	m.AnswerDurationSeconds.WithLabelValues(tier).Observe(d.Seconds())
}

// ObserveRetrieval records the size of one retrieval result
func (m *Metrics) ObserveRetrieval(chunks int) {
	if m == nil {
		return
	}
	m.RetrievedChunks.Observe(float64(chunks))
}

// ObserveGenerationAttempt records one backend call
func (m *Metrics) ObserveGenerationAttempt(backend, outcome string) {
	if m == nil {
		return
	}
	m.GenerationAttemptsTotal.WithLabelValues(backend, outcome).Inc()
}

// ObserveFallback records a hand-off to the secondary backend
func (m *Metrics) ObserveFallback() {
	if m == nil {
		return
	}
	m.GenerationFallbacksTotal.Inc()
}

// ObserveClassificationDefault records an unparseable classifier output
func (m *Metrics) ObserveClassificationDefault(classifier string) {
	if m == nil {
		return
	}
	m.ClassificationDefaults.WithLabelValues(classifier).Inc()
}

// ObserveIndexPublished records a published snapshot
func (m *Metrics) ObserveIndexPublished(source string, chunks int, d time.Duration) {
	if m == nil {
		return
	}
	m.IndexBuildSeconds.WithLabelValues(source).Observe(d.Seconds())
	m.IndexChunks.Set(float64(chunks))
}

// ObserveTask records one processed background task
func (m *Metrics) ObserveTask(taskType, outcome string) {
	if m == nil {
		return
	}
	m.TasksTotal.WithLabelValues(taskType, outcome).Inc()
}

// ObserveHTTPRequest records one served request
func (m *Metrics) ObserveHTTPRequest(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestSeconds.WithLabelValues(method, route, status).Observe(d.Seconds())
}
