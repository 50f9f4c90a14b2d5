package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/cpehesara/StayOps-sub001/internal/clock"
	"github.com/cpehesara/StayOps-sub001/internal/domain"
	"github.com/cpehesara/StayOps-sub001/internal/notify"
)

type SweepRepository interface {
	ListDueHoldTokens(ctx context.Context, now time.Time, includePaymentPending bool, limit int) ([]string, error)
	ExpireHold(ctx context.Context, token string, now time.Time, includePaymentPending bool) (bool, error)
}

// SweepConfig controls the expiry sweep.
type SweepConfig struct {
	// IncludePaymentPending also expires payment_pending holds past their
	// deadline, the backstop when the payment sweeper is down.
	IncludePaymentPending bool
	BatchSize             int
}

// SweepService releases holds whose deadline has passed.
type SweepService struct {
	repo  SweepRepository
	clock clock.Clock
	cfg   SweepConfig
	hooks *notify.Hooks
	log   zerolog.Logger
}

func NewSweepService(repo SweepRepository, clk clock.Clock, cfg SweepConfig, hooks *notify.Hooks, log zerolog.Logger) *SweepService {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	return &SweepService{
		repo:  repo,
		clock: clk,
		cfg:   cfg,
		hooks: hooks,
		log:   log,
	}
}

// ExpireOverdueHolds expires every live hold past its deadline. Each hold is
// its own critical section: one failing item is logged and counted, the rest
// of the batch proceeds. Returns the number of holds expired this run; a
// second run over the same data finds nothing live and reports zero.
func (s *SweepService) ExpireOverdueHolds(ctx context.Context) (int, error) {
	now := s.clock.Now()
	tokens, err := s.repo.ListDueHoldTokens(ctx, now, s.cfg.IncludePaymentPending, s.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	processed := 0
	failures := 0
	for _, token := range tokens {
		expired, err := s.repo.ExpireHold(ctx, token, now, s.cfg.IncludePaymentPending)
		if err != nil {
			failures++
			s.log.Error().Err(err).Str("hold_token", token).Msg("expiry sweep item failed")
			continue
		}
		if !expired {
			// Resolved concurrently (extended, converted, cancelled or
			// already swept); not this run's work.
			continue
		}
		processed++
		s.hooks.Fire(ctx, notify.Event{
			Type:      notify.EventHoldExpired,
			HoldToken: token,
			At:        now,
		})
	}

	if processed > 0 || failures > 0 {
		s.log.Info().
			Int("processed", processed).
			Int("failures", failures).
			Int("candidates", len(tokens)).
			Msg("expiry sweep complete")
	}
	return processed, nil
}

type PaymentSweepRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	ListStalePendingIDs(ctx context.Context, cutoff time.Time, limit int) ([]string, error)
	MarkTimedOut(ctx context.Context, id string, now time.Time) (*domain.PaymentTransaction, error)
	TransitionHold(ctx context.Context, token string, to domain.HoldStatus, from ...domain.HoldStatus) (bool, error)
}

// PaymentSweepService fails payments stuck in pending and releases the
// inventory they were holding.
type PaymentSweepService struct {
	repo      PaymentSweepRepository
	clock     clock.Clock
	batchSize int
	hooks     *notify.Hooks
	log       zerolog.Logger
}

func NewPaymentSweepService(repo PaymentSweepRepository, clk clock.Clock, batchSize int, hooks *notify.Hooks, log zerolog.Logger) *PaymentSweepService {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &PaymentSweepService{
		repo:      repo,
		clock:     clk,
		batchSize: batchSize,
		hooks:     hooks,
		log:       log,
	}
}

// TimeoutStalePayments moves pending payments older than threshold to the
// terminal timeout status (no gateway response, distinct from an explicit
// failure) and cascade-cancels a linked payment_pending hold in the same
// per-item transaction, so rooms free immediately instead of waiting out the
// hold TTL. Returns the number of payments timed out.
func (s *PaymentSweepService) TimeoutStalePayments(ctx context.Context, threshold time.Duration) (int, error) {
	now := s.clock.Now()
	cutoff := now.Add(-threshold)

	ids, err := s.repo.ListStalePendingIDs(ctx, cutoff, s.batchSize)
	if err != nil {
		return 0, err
	}

	processed := 0
	failures := 0
	for _, id := range ids {
		var payment *domain.PaymentTransaction
		var holdCancelled bool

		err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
			p, err := s.repo.MarkTimedOut(txCtx, id, now)
			if err != nil {
				return err
			}
			if p == nil {
				return nil
			}
			payment = p

			if p.HoldToken != "" {
				cancelled, err := s.repo.TransitionHold(txCtx, p.HoldToken,
					domain.HoldStatusCancelled, domain.HoldStatusPaymentPending)
				if err != nil {
					return err
				}
				holdCancelled = cancelled
			}
			return nil
		})
		if err != nil {
			failures++
			s.log.Error().Err(err).Str("payment_id", id).Msg("payment timeout sweep item failed")
			continue
		}
		if payment == nil {
			continue
		}

		processed++
		s.hooks.Fire(ctx, notify.Event{
			Type:      notify.EventPaymentTimeout,
			HoldToken: payment.HoldToken,
			PaymentID: payment.ID,
			At:        now,
		})
		if holdCancelled {
			s.hooks.Fire(ctx, notify.Event{
				Type:      notify.EventHoldCancelled,
				HoldToken: payment.HoldToken,
				At:        now,
			})
		}
	}

	if processed > 0 || failures > 0 {
		s.log.Info().
			Int("processed", processed).
			Int("failures", failures).
			Int("candidates", len(ids)).
			Msg("payment timeout sweep complete")
	}
	return processed, nil
}
