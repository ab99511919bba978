// Package metrics exposes Prometheus counters for the domain operations and
// HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a registry and the collectors registered on it.
type Metrics struct {
	registry *prometheus.Registry

	QuizSubmissions  *prometheus.CounterVec
	CatalogRequests  *prometheus.CounterVec
	TrackerMutations *prometheus.CounterVec
	ChatMessages     *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestCount     *prometheus.CounterVec
}

// New creates a registry with process and Go runtime collectors plus the
// application counters.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		QuizSubmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "compass_quiz_submissions_total",
			Help: "Quiz submissions by outcome.",
		}, []string{"outcome"}),
		CatalogRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "compass_catalog_requests_total",
			Help: "Catalog list requests by record kind and outcome.",
		}, []string{"kind", "outcome"}),
		TrackerMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "compass_tracker_mutations_total",
			Help: "Tracker mutations by operation.",
		}, []string{"op"}),
		ChatMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "compass_chat_messages_total",
			Help: "Chat sends by outcome.",
		}, []string{"outcome"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "compass_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		}, []string{"method", "route"}),
		RequestCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "compass_http_requests_total",
			Help: "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.QuizSubmissions,
		m.CatalogRequests,
		m.TrackerMutations,
		m.ChatMessages,
		m.RequestDuration,
		m.RequestCount,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Quiz records a quiz submission outcome. Safe on a nil receiver.
func (m *Metrics) Quiz(outcome string) {
	if m == nil {
		return
	}
	m.QuizSubmissions.WithLabelValues(outcome).Inc()
}

// Catalog records a catalog request outcome. Safe on a nil receiver.
func (m *Metrics) Catalog(kind, outcome string) {
	if m == nil {
		return
	}
	m.CatalogRequests.WithLabelValues(kind, outcome).Inc()
}

// Tracker records a tracker mutation. Safe on a nil receiver.
func (m *Metrics) Tracker(op string) {
	if m == nil {
		return
	}
	m.TrackerMutations.WithLabelValues(op).Inc()
}

// Chat records a chat send outcome. Safe on a nil receiver.
func (m *Metrics) Chat(outcome string) {
	if m == nil {
		return
	}
	m.ChatMessages.WithLabelValues(outcome).Inc()
}

// Middleware records latency and status for every request. route should be
// the registered pattern, not the raw path, to keep label cardinality bounded.
func (m *Metrics) Middleware(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		m.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		m.RequestCount.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer, which the
// WebSocket upgrade needs.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
