package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cpehesara/StayOps-sub001/internal/notify"
)

// Metrics collects hold lifecycle and sweeper counters.
type Metrics struct {
	HoldEvents       *prometheus.CounterVec
	SweeperRuns      *prometheus.CounterVec
	SweeperProcessed *prometheus.CounterVec
	SweeperFailures  *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		HoldEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "stayops_hold_events_total",
			Help: "Hold lifecycle transitions by event type",
		}, []string{"event"}),

		SweeperRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "stayops_sweeper_runs_total",
			Help: "Sweeper runs by job",
		}, []string{"job"}),

		SweeperProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "stayops_sweeper_processed_total",
			Help: "Items successfully processed by sweeper job",
		}, []string{"job"}),

		SweeperFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "stayops_sweeper_failures_total",
			Help: "Per-item sweeper failures by job",
		}, []string{"job"}),
	}
}

// Hook counts hold lifecycle events as a post-commit callback.
func (m *Metrics) Hook(_ context.Context, ev notify.Event) error {
	m.HoldEvents.WithLabelValues(ev.Type).Inc()
	return nil
}
