// Package metrics collects and exposes Prometheus metrics for the gate terminal.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the metrics interface used by the gate and the backend adapters.
type Recorder interface {
	RecordTransition(state string)
	RecordOutcome(state string, duration time.Duration)
	RecordError(kind string)
	RecordBackendCall(endpoint string, duration time.Duration, err error)
	RecordBusy()
}

// Collector is the Prometheus Recorder implementation.
type Collector struct {
	transitions     *prometheus.CounterVec
	outcomes        *prometheus.CounterVec
	sessionDuration prometheus.Histogram
	errors          *prometheus.CounterVec
	backendLatency  *prometheus.HistogramVec
	busy            prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gate_state_transitions_total",
			Help: "Session state transitions by target state",
		}, []string{"state"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gate_sessions_total",
			Help: "Finished sessions by terminal state",
		}, []string{"outcome"}),
		sessionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gate_session_duration_seconds",
			Help:    "Time from scan trigger to terminal state",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gate_errors_total",
			Help: "Sessions ending in an error, by error kind",
		}, []string{"kind"}),
		backendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gate_backend_request_duration_seconds",
			Help:    "Latency of verification backend calls",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint", "result"}),
		busy: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gate_busy_rejections_total",
			Help: "Triggers rejected because a session was in progress",
		}),
	}

	reg.MustRegister(
		c.transitions,
		c.outcomes,
		c.sessionDuration,
		c.errors,
		c.backendLatency,
		c.busy,
	)

	return c
}

func (c *Collector) RecordTransition(state string) {
	c.transitions.WithLabelValues(state).Inc()
}

// RecordOutcome counts a session that reached a terminal state.
func (c *Collector) RecordOutcome(state string, duration time.Duration) {
	c.outcomes.WithLabelValues(state).Inc()
	c.sessionDuration.Observe(duration.Seconds())
}

func (c *Collector) RecordError(kind string) {
	c.errors.WithLabelValues(kind).Inc()
}

// RecordBackendCall observes one backend round trip. result is "ok" or "error".
func (c *Collector) RecordBackendCall(endpoint string, duration time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.backendLatency.WithLabelValues(endpoint, result).Observe(duration.Seconds())
}

func (c *Collector) RecordBusy() {
	c.busy.Inc()
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordTransition(string)                        {}
func (Nop) RecordOutcome(string, time.Duration)            {}
func (Nop) RecordError(string)                             {}
func (Nop) RecordBackendCall(string, time.Duration, error) {}
func (Nop) RecordBusy()                                    {}

// Handler returns the Prometheus scrape handler.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
