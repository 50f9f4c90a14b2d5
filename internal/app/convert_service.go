package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cpehesara/StayOps-sub001/internal/clock"
	"github.com/cpehesara/StayOps-sub001/internal/domain"
	"github.com/cpehesara/StayOps-sub001/internal/notify"
)

type ReservationRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetHoldForUpdate(ctx context.Context, token string) (domain.Hold, error)
	TransitionHold(ctx context.Context, token string, to domain.HoldStatus, from ...domain.HoldStatus) (bool, error)
	CreateReservation(ctx context.Context, res domain.Reservation) error
	GetReservationByHoldToken(ctx context.Context, token string) (*domain.Reservation, error)
	CapturePendingPayment(ctx context.Context, holdToken string, now time.Time) error
}

// ConvertService turns a hold into a confirmed reservation exactly once.
type ConvertService struct {
	repo  ReservationRepository
	clock clock.Clock
	hooks *notify.Hooks
}

func NewConvertService(repo ReservationRepository, clk clock.Clock, hooks *notify.Hooks) *ConvertService {
	return &ConvertService{
		repo:  repo,
		clock: clk,
		hooks: hooks,
	}
}

type ConvertHoldResult struct {
	Reservation domain.Reservation
	Created     bool
}

// ConvertHold creates the reservation from the hold's rooms and dates and
// flips the hold to converted in the same transaction, both or neither.
// Concurrent converts serialize on the hold row lock; whichever call loses
// the race observes ErrHoldAlreadyConverted. A pending payment linked to the
// hold is captured alongside.
func (s *ConvertService) ConvertHold(ctx context.Context, token string) (ConvertHoldResult, error) {
	if token == "" {
		return ConvertHoldResult{}, domain.ErrHoldNotFound
	}

	now := s.clock.Now()
	var result ConvertHoldResult

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		hold, err := s.repo.GetHoldForUpdate(txCtx, token)
		if err != nil {
			return err
		}

		switch {
		case hold.Status == domain.HoldStatusConverted:
			return domain.ErrHoldAlreadyConverted
		case hold.Status == domain.HoldStatusCancelled || hold.Status == domain.HoldStatusExpired:
			return domain.ErrInvalidHoldState
		}
		if hold.ExpiredAt(now) {
			if _, err := s.repo.TransitionHold(txCtx, token, domain.HoldStatusExpired,
				domain.HoldStatusActive, domain.HoldStatusPaymentPending); err != nil {
				return err
			}
			return domain.ErrHoldExpired
		}

		reservation := domain.Reservation{
			ID:        uuid.NewString(),
			HoldToken: token,
			GuestID:   hold.GuestID,
			RoomIDs:   hold.RoomIDs,
			CheckIn:   hold.CheckIn,
			CheckOut:  hold.CheckOut,
			CreatedAt: now,
		}

		if err := s.repo.CreateReservation(txCtx, reservation); err != nil {
			// The unique hold_token constraint is the exactly-once backstop:
			// re-read so a racing duplicate gets the same reservation back.
			if err == domain.ErrHoldAlreadyConverted {
				existing, readErr := s.repo.GetReservationByHoldToken(txCtx, token)
				if readErr != nil {
					return readErr
				}
				if existing != nil {
					result = ConvertHoldResult{Reservation: *existing, Created: false}
					return nil
				}
			}
			return err
		}

		flipped, err := s.repo.TransitionHold(txCtx, token, domain.HoldStatusConverted,
			domain.HoldStatusActive, domain.HoldStatusPaymentPending)
		if err != nil {
			return err
		}
		if !flipped {
			return domain.ErrInvalidHoldState
		}
		if err := s.repo.CapturePendingPayment(txCtx, token, now); err != nil {
			return err
		}

		result = ConvertHoldResult{Reservation: reservation, Created: true}
		return nil
	})
	if err != nil {
		return ConvertHoldResult{}, err
	}

	if result.Created {
		s.hooks.Fire(ctx, notify.Event{
			Type:          notify.EventHoldConverted,
			HoldToken:     token,
			GuestID:       result.Reservation.GuestID,
			RoomIDs:       result.Reservation.RoomIDs,
			ReservationID: result.Reservation.ID,
			At:            now,
		})
	}
	return result, nil
}
