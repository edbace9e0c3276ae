package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "oficios"

// MetricsService owns a private registry holding the HTTP, cache, lifecycle
// and letter collectors. Every recorder is safe on a nil receiver.
type MetricsService struct {
	handler http.Handler

	httpDuration *prometheus.HistogramVec
	httpTotal    *prometheus.CounterVec

	cacheLookups  *prometheus.CounterVec
	cacheDuration *prometheus.HistogramVec

	transitions *prometheus.CounterVec
	failures    *prometheus.CounterVec
	txDuration  *prometheus.HistogramVec

	letterDuration prometheus.Histogram
	letterBytes    prometheus.Histogram
	letterFailures prometheus.Counter
}

// NewMetricsService registers the collectors on a fresh registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &MetricsService{
		handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),

		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route template.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		httpTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests served by route template.",
		}, []string{"method", "route", "status"}),

		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Cache lookups by result.",
		}, []string{"result"}),
		cacheDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "cache",
			Name:      "operation_duration_seconds",
			Help:      "Cache round trip latency by operation.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		}, []string{"operation"}),

		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "lifecycle_transitions_total",
			Help:      "Lifecycle transitions committed, by entity and resulting status.",
		}, []string{"entity", "status"}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "lifecycle_failures_total",
			Help:      "Lifecycle operations rolled back, by operation and error code.",
		}, []string{"operation", "code"}),
		txDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "unit_of_work_duration_seconds",
			Help:      "Duration of lifecycle transactions.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),

		letterDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "letter",
			Name:      "render_duration_seconds",
			Help:      "Time spent loading and rendering a response letter.",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
		letterBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "letter",
			Name:      "size_bytes",
			Help:      "Size of rendered letters.",
			Buckets:   prometheus.ExponentialBuckets(4096, 2, 8),
		}),
		letterFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "letter",
			Name:      "render_failures_total",
			Help:      "Letters that failed to render.",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records one served request.
func (m *MetricsService) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.httpDuration.WithLabelValues(method, route, code).Observe(duration.Seconds())
	m.httpTotal.WithLabelValues(method, route, code).Inc()
}

// RecordCacheOperation records a lookup and whether it hit.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
	m.cacheDuration.WithLabelValues("get").Observe(duration.Seconds())
}

// ObserveCacheWrite records a cache write.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheDuration.WithLabelValues("set").Observe(duration.Seconds())
}

// RecordTransition counts a committed lifecycle transition.
func (m *MetricsService) RecordTransition(entity, status string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(entity, status).Inc()
}

// RecordFailure counts a rolled back lifecycle operation.
func (m *MetricsService) RecordFailure(operation, code string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(operation, code).Inc()
}

// ObserveUnitOfWork records how long a lifecycle transaction took.
func (m *MetricsService) ObserveUnitOfWork(operation string, duration time.Duration) {
	if m == nil {
		return
	}
	m.txDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveLetter records a render attempt. size is ignored when err is set.
func (m *MetricsService) ObserveLetter(duration time.Duration, size int, err error) {
	if m == nil {
		return
	}
	m.letterDuration.Observe(duration.Seconds())
	if err != nil {
		m.letterFailures.Inc()
		return
	}
	m.letterBytes.Observe(float64(size))
}
