package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the ownership gate. The gate sits on
// every HMO-scoped mutation path, so denial spikes are an early signal of
// misconfigured administrator sets.
type Metrics struct {
	AuthorizeGranted  prometheus.Counter
	AuthorizeDenied   *prometheus.CounterVec
	AuthorizeDuration prometheus.Histogram
}

// New creates a Metrics instance with all ownership-gate metrics registered.
func New() *Metrics {
	return &Metrics{
		AuthorizeGranted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "alapay_ownership_authorize_granted_total",
			Help: "Total number of ownership checks that passed",
		}),
		AuthorizeDenied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "alapay_ownership_authorize_denied_total",
			Help: "Total number of ownership checks that failed, by reason",
		}, []string{"reason"}),
		AuthorizeDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "alapay_ownership_authorize_duration_seconds",
			Help:    "Duration of ownership checks (claim mutation critical path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementGranted records a passed ownership check.
func (m *Metrics) IncrementGranted() {
	m.AuthorizeGranted.Inc()
}

// IncrementDenied records a failed ownership check with its reason
// ("not_found" or "forbidden").
func (m *Metrics) IncrementDenied(reason string) {
	m.AuthorizeDenied.WithLabelValues(reason).Inc()
}

// ObserveAuthorize records the duration of an ownership check.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveAuthorize(start time.Time) {
	m.AuthorizeDuration.Observe(time.Since(start).Seconds())
}
