package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/cpehesara/StayOps-sub001/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PaymentRepository struct {
	q querier
}

func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{q: querier{pool: pool}}
}

func (r *PaymentRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.q.pool, fn)
}

func (r *PaymentRepository) CreatePayment(ctx context.Context, p domain.PaymentTransaction) error {
	const stmt = `
INSERT INTO payment_transactions (id, hold_token, amount, currency, status, created_at, updated_at)
VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7)`

	_, err := r.q.exec(ctx, stmt,
		p.ID, p.HoldToken, p.Amount, p.Currency, p.Status, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrHoldNotFound
		}
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

func (r *PaymentRepository) GetPayment(ctx context.Context, id string) (domain.PaymentTransaction, error) {
	const query = `
SELECT id, COALESCE(hold_token, ''), amount, currency, status, created_at, updated_at
FROM payment_transactions
WHERE id = $1`

	var p domain.PaymentTransaction
	err := r.q.queryRow(ctx, query, id).Scan(
		&p.ID, &p.HoldToken, &p.Amount, &p.Currency, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.PaymentTransaction{}, domain.ErrPaymentNotFound
		}
		return domain.PaymentTransaction{}, fmt.Errorf("get payment: %w", err)
	}
	return p, nil
}

// ListStalePendingIDs returns pending payments created at or before cutoff.
func (r *PaymentRepository) ListStalePendingIDs(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	const query = `
SELECT id
FROM payment_transactions
WHERE status = 'pending' AND created_at <= $1
ORDER BY created_at
LIMIT $2`

	rows, err := r.q.query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale pending payments: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list stale pending payments scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list stale pending payments rows: %w", err)
	}
	return ids, nil
}

// MarkTimedOut flips a still-pending payment to timeout and returns the
// updated row. Returns nil when someone else already resolved the payment,
// which keeps the sweep idempotent.
func (r *PaymentRepository) MarkTimedOut(ctx context.Context, id string, now time.Time) (*domain.PaymentTransaction, error) {
	const stmt = `
UPDATE payment_transactions
SET status = 'timeout', updated_at = $2
WHERE id = $1 AND status = 'pending'
RETURNING id, COALESCE(hold_token, ''), amount, currency, status, created_at, updated_at`

	var p domain.PaymentTransaction
	err := r.q.queryRow(ctx, stmt, id, now).Scan(
		&p.ID, &p.HoldToken, &p.Amount, &p.Currency, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("mark payment timed out: %w", err)
	}
	return &p, nil
}

func (r *PaymentRepository) TransitionHold(ctx context.Context, token string, to domain.HoldStatus, from ...domain.HoldStatus) (bool, error) {
	holdRepo := HoldRepository{q: r.q}
	return holdRepo.TransitionHold(ctx, token, to, from...)
}
