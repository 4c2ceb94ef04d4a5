package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal     *prometheus.CounterVec
	httpRequestDuration   *prometheus.HistogramVec
	upstreamRequestsTotal *prometheus.CounterVec
	upstreamDuration      *prometheus.HistogramVec
	pipelineDegraded      *prometheus.CounterVec
	pipelineEmptyInput    prometheus.Counter
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "polyglot_http_requests_total",
				Help: "Total number of HTTP requests handled.",
			},
			[]string{"route", "method", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "polyglot_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method", "status"},
		),
		upstreamRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "polyglot_upstream_requests_total",
				Help: "Total upstream OpenAI-compatible API requests.",
			},
			[]string{"backend", "endpoint", "status"},
		),
		upstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "polyglot_upstream_request_duration_seconds",
				Help:    "Upstream request duration in seconds.",
				Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 30, 60},
			},
			[]string{"backend", "endpoint", "status"},
		),
		pipelineDegraded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "polyglot_pipeline_degraded_total",
				Help: "Pipeline runs where a speech stage failed and was skipped.",
			},
			[]string{"stage"},
		),
		pipelineEmptyInput: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "polyglot_pipeline_empty_input_total",
				Help: "Pipeline runs that ended early because no usable input text was available.",
			},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.upstreamRequestsTotal,
		m.upstreamDuration,
		m.pipelineDegraded,
		m.pipelineEmptyInput,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveHTTP(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	if method == "" {
		method = "UNKNOWN"
	}
	statusLabel := strconv.Itoa(status)
	m.httpRequestsTotal.WithLabelValues(route, method, statusLabel).Inc()
	m.httpRequestDuration.WithLabelValues(route, method, statusLabel).Observe(duration.Seconds())
}

// UpstreamObserver returns an observer bound to one backend, suitable for
// openai.WithObserver.
func (m *Metrics) UpstreamObserver(backend string) func(endpoint string, status int, duration time.Duration) {
	return func(endpoint string, status int, duration time.Duration) {
		m.ObserveUpstream(backend, endpoint, status, duration)
	}
}

func (m *Metrics) ObserveUpstream(backend, endpoint string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if backend == "" {
		backend = "unknown"
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	statusLabel := strconv.Itoa(status)
	m.upstreamRequestsTotal.WithLabelValues(backend, endpoint, statusLabel).Inc()
	m.upstreamDuration.WithLabelValues(backend, endpoint, statusLabel).Observe(duration.Seconds())
}

func (m *Metrics) IncPipelineDegraded(stage string) {
	if m == nil {
		return
	}
	m.pipelineDegraded.WithLabelValues(stage).Inc()
}

func (m *Metrics) IncPipelineEmptyInput() {
	if m == nil {
		return
	}
	m.pipelineEmptyInput.Inc()
}
