package generation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type clientMetrics struct {
	attempts     *prometheus.CounterVec
	results      *prometheus.CounterVec
	deduplicated prometheus.Counter
	inFlight     prometheus.Gauge
	latency      prometheus.Histogram
	breakerState prometheus.Gauge
}

// newClientMetrics registers the client's metrics with reg. A nil reg
// leaves them unregistered.
func newClientMetrics(reg prometheus.Registerer) *clientMetrics {
	factory := promauto.With(reg)
	return &clientMetrics{
		attempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chatline_generation_attempts_total",
			Help: "Upstream generation attempts by outcome",
		}, []string{"outcome"}),
		results: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chatline_generation_results_total",
			Help: "Generation requests by final outcome after retries",
		}, []string{"outcome"}),
		deduplicated: factory.NewCounter(prometheus.CounterOpts{
			Name: "chatline_generation_deduplicated_total",
			Help: "Generation requests served by an identical in-flight request",
		}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "chatline_generation_in_flight",
			Help: "Generation requests currently holding a concurrency slot",
		}),
		latency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "chatline_generation_latency_seconds",
			Help:    "Latency of successful upstream attempts",
			Buckets: prometheus.DefBuckets,
		}),
		breakerState: factory.NewGauge(prometheus.GaugeOpts{
			Name: "chatline_circuit_breaker_state",
			Help: "Current state of the upstream circuit breaker (0=closed, 1=half-open, 2=open)",
		}),
	}
}
