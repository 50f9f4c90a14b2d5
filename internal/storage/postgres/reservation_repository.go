package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/cpehesara/StayOps-sub001/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ReservationRepository struct {
	q querier
}

func NewReservationRepository(pool *pgxpool.Pool) *ReservationRepository {
	return &ReservationRepository{q: querier{pool: pool}}
}

func (r *ReservationRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.q.pool, fn)
}

func (r *ReservationRepository) GetHoldForUpdate(ctx context.Context, token string) (domain.Hold, error) {
	holdRepo := HoldRepository{q: r.q}
	return holdRepo.GetHoldForUpdate(ctx, token)
}

func (r *ReservationRepository) TransitionHold(ctx context.Context, token string, to domain.HoldStatus, from ...domain.HoldStatus) (bool, error) {
	holdRepo := HoldRepository{q: r.q}
	return holdRepo.TransitionHold(ctx, token, to, from...)
}

// CreateReservation inserts the reservation and its room rows. The unique
// index on hold_token is the exactly-once backstop: a concurrent convert that
// slipped past the row lock surfaces here as ErrHoldAlreadyConverted.
func (r *ReservationRepository) CreateReservation(ctx context.Context, res domain.Reservation) error {
	const stmt = `
INSERT INTO reservations (id, hold_token, guest_id, check_in, check_out, created_at)
VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6)`

	_, err := r.q.exec(ctx, stmt,
		res.ID, res.HoldToken, res.GuestID, res.CheckIn, res.CheckOut, res.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrHoldAlreadyConverted
		}
		return fmt.Errorf("create reservation: %w", err)
	}

	const roomStmt = `INSERT INTO reservation_rooms (reservation_id, room_id) VALUES ($1, $2)`
	for _, roomID := range res.RoomIDs {
		if _, err := r.q.exec(ctx, roomStmt, res.ID, roomID); err != nil {
			return fmt.Errorf("create reservation room: %w", err)
		}
	}
	return nil
}

func (r *ReservationRepository) GetReservationByHoldToken(ctx context.Context, token string) (*domain.Reservation, error) {
	const query = `
SELECT res.id, res.hold_token, COALESCE(res.guest_id, ''), res.check_in, res.check_out, res.created_at,
       ARRAY(SELECT rr.room_id FROM reservation_rooms rr WHERE rr.reservation_id = res.id ORDER BY rr.room_id)
FROM reservations res
WHERE res.hold_token = $1`

	var res domain.Reservation
	err := r.q.queryRow(ctx, query, token).Scan(
		&res.ID, &res.HoldToken, &res.GuestID, &res.CheckIn, &res.CheckOut, &res.CreatedAt, &res.RoomIDs,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get reservation by hold: %w", err)
	}
	return &res, nil
}

// CapturePendingPayment settles the hold's pending payment when the hold
// converts. No row is not an error; most holds convert without one.
func (r *ReservationRepository) CapturePendingPayment(ctx context.Context, holdToken string, now time.Time) error {
	const stmt = `
UPDATE payment_transactions
SET status = 'captured', updated_at = $2
WHERE hold_token = $1 AND status = 'pending'`

	if _, err := r.q.exec(ctx, stmt, holdToken, now); err != nil {
		return fmt.Errorf("capture pending payment: %w", err)
	}
	return nil
}
