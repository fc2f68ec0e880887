package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all application metrics
type Metrics struct {
	Registry *prometheus.Registry

	// Upstream fetch metrics
	FetchAttempts *prometheus.CounterVec
	FetchLatency  prometheus.Histogram
	FetchInFlight prometheus.Gauge
	BreakerState  *prometheus.GaugeVec

	// Store metrics
	PatientsStored   prometheus.Gauge
	StoreMutations   *prometheus.CounterVec
	CleanupCacheHits *prometheus.CounterVec

	// HTTP metrics
	RequestDuration *prometheus.HistogramVec
	RequestTotal    *prometheus.CounterVec
}

// New creates all metrics on a dedicated registry so tests can build
// several instances side by side.
func New(namespace string) *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		FetchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "attempts_total",
			Help:      "Total number of patient fetch attempts by outcome",
		}, []string{"outcome"}),
		FetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "duration_seconds",
			Help:      "Time spent fetching the patient collection",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		FetchInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "in_flight",
			Help:      "Current number of fetch attempts in flight",
		}),
		BreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "breaker_state",
			Help:      "Set to 1 for the current upstream circuit breaker state",
		}, []string{"state"}),
		PatientsStored: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "patients",
			Help:      "Number of patients held by the store",
		}),
		StoreMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "mutations_total",
			Help:      "Total number of store mutations by operation",
		}, []string{"operation"}),
		CleanupCacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "cleanup_cache_total",
			Help:      "Sanitized view lookups by result",
		}, []string{"result"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"method", "path", "status"}),
		RequestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
	}

	m.Registry.MustRegister(
		m.FetchAttempts,
		m.FetchLatency,
		m.FetchInFlight,
		m.BreakerState,
		m.PatientsStored,
		m.StoreMutations,
		m.CleanupCacheHits,
		m.RequestDuration,
		m.RequestTotal,
	)
	return m
}

// SetBreakerState marks the given state as current.
func (m *Metrics) SetBreakerState(state string) {
	for _, s := range []string{"closed", "half-open", "open"} {
		v := 0.0
		if s == state {
			v = 1
		}
		m.BreakerState.WithLabelValues(s).Set(v)
	}
}
