package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the claim mutation engine.
type Metrics struct {
	Transitions        *prometheus.CounterVec
	TransitionFailures *prometheus.CounterVec
	OperationDuration  *prometheus.HistogramVec
}

// New creates a Metrics instance with all claim-engine metrics registered.
func New() *Metrics {
	return &Metrics{
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "alapay_claim_transitions_total",
			Help: "Successful claim status transitions by claim kind and new status",
		}, []string{"kind", "status"}),
		TransitionFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "alapay_claim_transition_failures_total",
			Help: "Rejected claim mutations by claim kind and error code",
		}, []string{"kind", "code"}),
		OperationDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "alapay_claim_operation_duration_seconds",
			Help:    "Duration of claim mutation operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
	}
}

// IncrementTransition records a committed status change.
func (m *Metrics) IncrementTransition(kind, status string) {
	m.Transitions.WithLabelValues(kind, status).Inc()
}

// IncrementFailure records a rejected mutation with its domain error code.
func (m *Metrics) IncrementFailure(kind, code string) {
	m.TransitionFailures.WithLabelValues(kind, code).Inc()
}

// ObserveOperation records the duration of a mutation operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveOperation(operation string, start time.Time) {
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
