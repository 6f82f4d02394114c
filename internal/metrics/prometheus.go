// Package metrics exposes Prometheus metrics for proxy resolution and the
// lookup service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rennerdo30/proxycfg/internal/sysproxy"
)

// Metrics holds all Prometheus metrics for proxycfg.
type Metrics struct {
	// Resolution metrics
	ResolveAttempts *prometheus.CounterVec
	Decisions       *prometheus.CounterVec

	// Lookup service metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	CacheEvents     *prometheus.CounterVec

	// System metrics
	Uptime     prometheus.Gauge
	GoRoutines prometheus.Gauge

	registry *prometheus.Registry
}

// New creates a Metrics instance on its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.ResolveAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proxycfg_resolve_attempts_total",
			Help: "Proxy source queries by source and result kind",
		},
		[]string{"source", "result"},
	)

	m.Decisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proxycfg_decisions_total",
			Help: "Per-URL proxy decisions by outcome and scheme",
		},
		[]string{"outcome", "scheme"},
	)

	m.RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proxycfg_http_requests_total",
			Help: "Lookup service requests",
		},
		[]string{"method", "route", "status"},
	)

	m.RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "proxycfg_http_request_duration_seconds",
			Help:    "Lookup service request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	m.CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proxycfg_cache_events_total",
			Help: "Resolved configuration cache events (hit, miss, invalidate)",
		},
		[]string{"event"},
	)

	m.Uptime = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "proxycfg_uptime_seconds",
			Help: "Service uptime in seconds",
		},
	)

	m.GoRoutines = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "proxycfg_goroutines",
			Help: "Number of goroutines",
		},
	)

	m.registry.MustRegister(
		m.ResolveAttempts,
		m.Decisions,
		m.RequestsTotal,
		m.RequestDuration,
		m.CacheEvents,
		m.Uptime,
		m.GoRoutines,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// ObserveAttempt counts one provider attempt. Its signature matches
// sysproxy.Observer.
func (m *Metrics) ObserveAttempt(source string, err error) {
	m.ResolveAttempts.WithLabelValues(source, sysproxy.ErrorKind(err)).Inc()
}

// ObserveDecision counts one per-URL decision.
func (m *Metrics) ObserveDecision(d sysproxy.Decision) {
	m.Decisions.WithLabelValues(d.Outcome.String(), d.Scheme).Inc()
}

// RecordRequest records a lookup service request.
func (m *Metrics) RecordRequest(method, route, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, route, status).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordCache records a cache event: "hit", "miss" or "invalidate".
func (m *Metrics) RecordCache(event string) {
	m.CacheEvents.WithLabelValues(event).Inc()
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
