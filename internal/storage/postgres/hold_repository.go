package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/cpehesara/StayOps-sub001/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type HoldRepository struct {
	q querier
}

func NewHoldRepository(pool *pgxpool.Pool) *HoldRepository {
	return &HoldRepository{q: querier{pool: pool}}
}

func (r *HoldRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.q.pool, fn)
}

// LockRooms takes row locks on the given rooms in ascending id order so that
// intersecting createHold calls serialize while disjoint ones run in
// parallel. Returns the locked rooms; a missing id is ErrRoomNotFound.
func (r *HoldRepository) LockRooms(ctx context.Context, roomIDs []int64) ([]domain.Room, error) {
	const query = `
SELECT id, room_number, room_type, created_at
FROM rooms
WHERE id = ANY($1)
ORDER BY id
FOR UPDATE`

	rooms, err := r.scanRooms(ctx, query, roomIDs)
	if err != nil {
		return nil, fmt.Errorf("lock rooms: %w", err)
	}
	if len(rooms) != len(dedupe(roomIDs)) {
		return nil, domain.ErrRoomNotFound
	}
	return rooms, nil
}

// LockRoomsByType locks every room of the type, ascending id, so type-level
// hold resolution picks candidates deterministically under the same locks.
func (r *HoldRepository) LockRoomsByType(ctx context.Context, roomType string) ([]domain.Room, error) {
	const query = `
SELECT id, room_number, room_type, created_at
FROM rooms
WHERE room_type = $1
ORDER BY id
FOR UPDATE`

	rooms, err := r.scanRooms(ctx, query, roomType)
	if err != nil {
		return nil, fmt.Errorf("lock rooms by type: %w", err)
	}
	return rooms, nil
}

// RoomsWithConflicts returns the subset of roomIDs that have either a
// confirmed reservation or a live, unexpired hold overlapping the half-open
// [checkIn, checkOut) range. excludeToken ignores one hold (extend paths).
func (r *HoldRepository) RoomsWithConflicts(ctx context.Context, roomIDs []int64, checkIn, checkOut, now time.Time, excludeToken string) ([]int64, error) {
	const query = `
SELECT DISTINCT hr.room_id
FROM holds h
JOIN hold_rooms hr ON hr.hold_token = h.token
WHERE hr.room_id = ANY($1)
  AND h.status IN ('active', 'payment_pending')
  AND h.expires_at > $2
  AND h.check_in < $4
  AND $3 < h.check_out
  AND h.token <> $5
UNION
SELECT DISTINCT rr.room_id
FROM reservations res
JOIN reservation_rooms rr ON rr.reservation_id = res.id
WHERE rr.room_id = ANY($1)
  AND res.check_in < $4
  AND $3 < res.check_out`

	rows, err := r.q.query(ctx, query, roomIDs, now, checkIn, checkOut, excludeToken)
	if err != nil {
		return nil, fmt.Errorf("rooms with conflicts: %w", err)
	}
	defer rows.Close()

	var conflicted []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("rooms with conflicts scan: %w", err)
		}
		conflicted = append(conflicted, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rooms with conflicts rows: %w", err)
	}
	return conflicted, nil
}

func (r *HoldRepository) CreateHold(ctx context.Context, hold domain.Hold) error {
	const holdStmt = `
INSERT INTO holds (token, session_id, guest_id, check_in, check_out, status, expires_at, created_at)
VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8)`

	_, err := r.q.exec(ctx, holdStmt,
		hold.Token,
		hold.SessionID,
		hold.GuestID,
		hold.CheckIn,
		hold.CheckOut,
		hold.Status,
		hold.ExpiresAt,
		hold.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create hold: duplicate token: %w", err)
		}
		return fmt.Errorf("create hold: %w", err)
	}

	const roomStmt = `INSERT INTO hold_rooms (hold_token, room_id) VALUES ($1, $2)`
	for _, roomID := range hold.RoomIDs {
		if _, err := r.q.exec(ctx, roomStmt, hold.Token, roomID); err != nil {
			if isForeignKeyViolation(err) {
				return domain.ErrRoomNotFound
			}
			return fmt.Errorf("create hold room: %w", err)
		}
	}
	return nil
}

func (r *HoldRepository) GetHold(ctx context.Context, token string) (domain.Hold, error) {
	return r.getHold(ctx, token, false)
}

// GetHoldForUpdate locks the hold row for the duration of the transaction.
func (r *HoldRepository) GetHoldForUpdate(ctx context.Context, token string) (domain.Hold, error) {
	return r.getHold(ctx, token, true)
}

func (r *HoldRepository) getHold(ctx context.Context, token string, forUpdate bool) (domain.Hold, error) {
	query := `
SELECT h.token, h.session_id, COALESCE(h.guest_id, ''), h.check_in, h.check_out,
       h.status, h.expires_at, h.created_at,
       ARRAY(SELECT hr.room_id FROM hold_rooms hr WHERE hr.hold_token = h.token ORDER BY hr.room_id)
FROM holds h
WHERE h.token = $1`
	if forUpdate {
		query += `
FOR UPDATE OF h`
	}

	var h domain.Hold
	err := r.q.queryRow(ctx, query, token).Scan(
		&h.Token, &h.SessionID, &h.GuestID, &h.CheckIn, &h.CheckOut,
		&h.Status, &h.ExpiresAt, &h.CreatedAt, &h.RoomIDs,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Hold{}, domain.ErrHoldNotFound
		}
		return domain.Hold{}, fmt.Errorf("get hold: %w", err)
	}
	return h, nil
}

// TransitionHold moves a hold to the target status only if its current status
// is one of from. Reports whether a row changed, which makes lazy expiry,
// cancellation and sweeping idempotent.
func (r *HoldRepository) TransitionHold(ctx context.Context, token string, to domain.HoldStatus, from ...domain.HoldStatus) (bool, error) {
	const stmt = `UPDATE holds SET status = $2 WHERE token = $1 AND status = ANY($3)`

	states := make([]string, len(from))
	for i, s := range from {
		states[i] = string(s)
	}
	tag, err := r.q.exec(ctx, stmt, token, to, states)
	if err != nil {
		return false, fmt.Errorf("transition hold: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ExpireHold flips a live hold to expired only if it is still past due at
// now, so a hold extended between candidate listing and the update survives.
func (r *HoldRepository) ExpireHold(ctx context.Context, token string, now time.Time, includePaymentPending bool) (bool, error) {
	states := []string{string(domain.HoldStatusActive)}
	if includePaymentPending {
		states = append(states, string(domain.HoldStatusPaymentPending))
	}

	const stmt = `
UPDATE holds
SET status = 'expired'
WHERE token = $1 AND status = ANY($2) AND expires_at <= $3`

	tag, err := r.q.exec(ctx, stmt, token, states, now)
	if err != nil {
		return false, fmt.Errorf("expire hold: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// UpdateHoldExpiry pushes expires_at for an active hold.
func (r *HoldRepository) UpdateHoldExpiry(ctx context.Context, token string, expiresAt time.Time) error {
	const stmt = `UPDATE holds SET expires_at = $2 WHERE token = $1 AND status = 'active'`

	tag, err := r.q.exec(ctx, stmt, token, expiresAt)
	if err != nil {
		return fmt.Errorf("update hold expiry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInvalidHoldState
	}
	return nil
}

// ListHoldsByGuest returns the guest's live holds, newest first. Overdue
// ones are included; the service lazily expires them before answering.
func (r *HoldRepository) ListHoldsByGuest(ctx context.Context, guestID string) ([]domain.Hold, error) {
	const query = `
SELECT h.token, h.session_id, COALESCE(h.guest_id, ''), h.check_in, h.check_out,
       h.status, h.expires_at, h.created_at,
       ARRAY(SELECT hr.room_id FROM hold_rooms hr WHERE hr.hold_token = h.token ORDER BY hr.room_id)
FROM holds h
WHERE h.guest_id = $1
  AND h.status IN ('active', 'payment_pending')
ORDER BY h.created_at DESC`

	rows, err := r.q.query(ctx, query, guestID)
	if err != nil {
		return nil, fmt.Errorf("list holds by guest: %w", err)
	}
	defer rows.Close()

	var holds []domain.Hold
	for rows.Next() {
		var h domain.Hold
		if err := rows.Scan(
			&h.Token, &h.SessionID, &h.GuestID, &h.CheckIn, &h.CheckOut,
			&h.Status, &h.ExpiresAt, &h.CreatedAt, &h.RoomIDs,
		); err != nil {
			return nil, fmt.Errorf("list holds by guest scan: %w", err)
		}
		holds = append(holds, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list holds by guest rows: %w", err)
	}
	return holds, nil
}

// ListDueHoldTokens returns tokens of live holds past expiry at now.
func (r *HoldRepository) ListDueHoldTokens(ctx context.Context, now time.Time, includePaymentPending bool, limit int) ([]string, error) {
	states := []string{string(domain.HoldStatusActive)}
	if includePaymentPending {
		states = append(states, string(domain.HoldStatusPaymentPending))
	}

	const query = `
SELECT token
FROM holds
WHERE status = ANY($1) AND expires_at <= $2
ORDER BY expires_at
LIMIT $3`

	rows, err := r.q.query(ctx, query, states, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list due holds: %w", err)
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("list due holds scan: %w", err)
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list due holds rows: %w", err)
	}
	return tokens, nil
}

func (r *HoldRepository) scanRooms(ctx context.Context, query string, arg any) ([]domain.Room, error) {
	rows, err := r.q.query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []domain.Room
	for rows.Next() {
		var room domain.Room
		if err := rows.Scan(&room.ID, &room.RoomNumber, &room.RoomType, &room.CreatedAt); err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
