package server

import (
	"errors"

	"github.com/etnz/advisory"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the advisory pipeline.
type Metrics struct {
	// Requests by outcome: succeeded, failed, not_found, incomplete, canceled, error.
	Requests *prometheus.CounterVec

	// Rejected model outputs by audit.
	AuditFailures *prometheus.CounterVec

	// Model attempts used by each finished request.
	Attempts prometheus.Histogram

	// Pipeline state transitions by target state.
	Transitions *prometheus.CounterVec

	// Full request latency.
	Latency prometheus.Histogram
}

// NewMetrics creates the metrics, registered in reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "advisory_requests_total",
			Help: "Total advisory requests by outcome",
		}, []string{"outcome"}),

		AuditFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "advisory_audit_failures_total",
			Help: "Total model outputs rejected, by audit",
		}, []string{"audit"}),

		Attempts: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "advisory_attempts",
			Help:    "Model attempts used per advisory request",
			Buckets: []float64{1, 2, 3, 4, 5},
		}),

		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "advisory_state_transitions_total",
			Help: "Total pipeline state transitions by target state",
		}, []string{"state"}),

		Latency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "advisory_request_duration_seconds",
			Help:    "Duration of advisory requests including every model attempt",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		}),
	}
}

// Observe records a pipeline transition. A rejected output is reported by exactly one event:
// the retry it caused, or the final failure.
func (m *Metrics) Observe(e advisory.Event) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(e.To.String()).Inc()
	if e.To.Terminal() {
		m.Attempts.Observe(float64(e.Attempt))
	}
	var aerr *advisory.AuditError
	if errors.As(e.Err, &aerr) {
		for _, f := range aerr.Failures {
			m.AuditFailures.WithLabelValues(string(f.Audit)).Inc()
		}
	}
}

// IncrementOutcome records a request outcome.
func (m *Metrics) IncrementOutcome(outcome string) {
	if m != nil {
		m.Requests.WithLabelValues(outcome).Inc()
	}
}
