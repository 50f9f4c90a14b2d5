package sweeper

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cpehesara/StayOps-sub001/internal/metrics"
)

// Job is one sweep pass returning the number of items processed.
type Job func(ctx context.Context) (int, error)

// Runner drives a Job on a fixed period until its context is cancelled.
// Failed runs are logged and counted, never fatal to the schedule.
type Runner struct {
	name     string
	interval time.Duration
	job      Job
	log      zerolog.Logger
	metrics  *metrics.Metrics
	wg       sync.WaitGroup
}

func NewRunner(name string, interval time.Duration, job Job, log zerolog.Logger, m *metrics.Metrics) *Runner {
	return &Runner{
		name:     name,
		interval: interval,
		job:      job,
		log:      log.With().Str("job", name).Logger(),
		metrics:  m,
	}
}

// Start launches the periodic loop. Stop by cancelling ctx, then Wait.
func (r *Runner) Start(ctx context.Context) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		r.log.Info().Dur("interval", r.interval).Msg("sweeper started")
		for {
			select {
			case <-ticker.C:
				r.runOnce(ctx)
			case <-ctx.Done():
				r.log.Info().Msg("sweeper stopped")
				return
			}
		}
	}()
}

// Wait blocks until the loop has exited.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) runOnce(ctx context.Context) {
	if r.metrics != nil {
		r.metrics.SweeperRuns.WithLabelValues(r.name).Inc()
	}

	processed, err := r.job(ctx)
	if err != nil {
		if r.metrics != nil {
			r.metrics.SweeperFailures.WithLabelValues(r.name).Inc()
		}
		r.log.Error().Err(err).Msg("sweep run failed")
		return
	}
	if r.metrics != nil {
		r.metrics.SweeperProcessed.WithLabelValues(r.name).Add(float64(processed))
	}
}
