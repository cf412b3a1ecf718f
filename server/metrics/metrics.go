// Package metrics holds the Prometheus metrics of the HTTP server. Every
// stack gets its own registry, so a configuration reload starts from zero.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chatline"

// Metrics are the server's collectors, all registered on one registry.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec   // endpoint, status
	RequestDuration *prometheus.HistogramVec // endpoint
	ActiveRequests  *prometheus.GaugeVec     // endpoint
	ErrorsTotal     *prometheus.CounterVec   // type
	RateLimitHits   *prometheus.CounterVec   // endpoint
	Classifications *prometheus.CounterVec   // category
	ChatFailures    *prometheus.CounterVec   // type
	Panics          prometheus.Counter
}

// NewMetrics creates the collectors on a fresh registry, along with the Go
// runtime and process collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, labels)
	}

	m := &Metrics{
		registry:      registry,
		RequestsTotal: counter("http_requests_total", "HTTP requests by endpoint and status", "endpoint", "status"),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		ActiveRequests: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_active_requests",
			Help:      "HTTP requests in flight, plus the queued and processing totals of the chat queue",
		}, []string{"endpoint"}),
		ErrorsTotal:     counter("errors_total", "HTTP-layer errors by type", "type"),
		RateLimitHits:   counter("rate_limit_hits_total", "Rate-limited requests by endpoint", "endpoint"),
		Classifications: counter("classifications_total", "Chat messages by detected category", "category"),
		ChatFailures:    counter("chat_failures_total", "Failed chat requests by failure class", "type"),
		Panics: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "panics_recovered_total",
			Help:      "Handler panics turned into 500 responses",
		}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Export the queue gauges before the first chat request
	m.ActiveRequests.WithLabelValues("queued")
	m.ActiveRequests.WithLabelValues("processing")

	return m
}

// Registry returns the registry so other components can add their metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
