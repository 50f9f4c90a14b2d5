package app

import (
	"context"
	"sort"
	"time"

	"github.com/cpehesara/StayOps-sub001/internal/domain"
)

// fakeHoldRepo is an in-memory HoldRepository and SweepRepository.
type fakeHoldRepo struct {
	rooms        map[int64]domain.Room
	holds        map[string]domain.Hold
	reservations map[string]domain.Reservation // keyed by hold token
	expireErr    map[string]error
}

func newFakeHoldRepo(rooms []domain.Room, holds []domain.Hold) *fakeHoldRepo {
	repo := &fakeHoldRepo{
		rooms:        make(map[int64]domain.Room, len(rooms)),
		holds:        make(map[string]domain.Hold, len(holds)),
		reservations: make(map[string]domain.Reservation),
		expireErr:    make(map[string]error),
	}
	for _, room := range rooms {
		repo.rooms[room.ID] = room
	}
	for _, hold := range holds {
		repo.holds[hold.Token] = hold
	}
	return repo
}

func (r *fakeHoldRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (r *fakeHoldRepo) LockRooms(_ context.Context, roomIDs []int64) ([]domain.Room, error) {
	seen := make(map[int64]struct{}, len(roomIDs))
	out := make([]domain.Room, 0, len(roomIDs))
	for _, id := range roomIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		room, ok := r.rooms[id]
		if !ok {
			return nil, domain.ErrRoomNotFound
		}
		out = append(out, room)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeHoldRepo) LockRoomsByType(_ context.Context, roomType string) ([]domain.Room, error) {
	out := make([]domain.Room, 0)
	for _, room := range r.rooms {
		if room.RoomType == roomType {
			out = append(out, room)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeHoldRepo) RoomsWithConflicts(_ context.Context, roomIDs []int64, checkIn, checkOut, now time.Time, excludeToken string) ([]int64, error) {
	wanted := make(map[int64]struct{}, len(roomIDs))
	for _, id := range roomIDs {
		wanted[id] = struct{}{}
	}
	conflicted := make(map[int64]struct{})

	for token, hold := range r.holds {
		if token == excludeToken || !hold.Status.Live() || !hold.ExpiresAt.After(now) {
			continue
		}
		if !domain.RangesOverlap(hold.CheckIn, hold.CheckOut, checkIn, checkOut) {
			continue
		}
		for _, id := range hold.RoomIDs {
			if _, ok := wanted[id]; ok {
				conflicted[id] = struct{}{}
			}
		}
	}
	for _, res := range r.reservations {
		if !domain.RangesOverlap(res.CheckIn, res.CheckOut, checkIn, checkOut) {
			continue
		}
		for _, id := range res.RoomIDs {
			if _, ok := wanted[id]; ok {
				conflicted[id] = struct{}{}
			}
		}
	}

	out := make([]int64, 0, len(conflicted))
	for id := range conflicted {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (r *fakeHoldRepo) CreateHold(_ context.Context, hold domain.Hold) error {
	r.holds[hold.Token] = hold
	return nil
}

func (r *fakeHoldRepo) GetHold(_ context.Context, token string) (domain.Hold, error) {
	hold, ok := r.holds[token]
	if !ok {
		return domain.Hold{}, domain.ErrHoldNotFound
	}
	return hold, nil
}

func (r *fakeHoldRepo) GetHoldForUpdate(ctx context.Context, token string) (domain.Hold, error) {
	return r.GetHold(ctx, token)
}

func (r *fakeHoldRepo) TransitionHold(_ context.Context, token string, to domain.HoldStatus, from ...domain.HoldStatus) (bool, error) {
	hold, ok := r.holds[token]
	if !ok {
		return false, nil
	}
	for _, status := range from {
		if hold.Status == status {
			hold.Status = to
			r.holds[token] = hold
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeHoldRepo) UpdateHoldExpiry(_ context.Context, token string, expiresAt time.Time) error {
	hold, ok := r.holds[token]
	if !ok {
		return domain.ErrHoldNotFound
	}
	if hold.Status != domain.HoldStatusActive {
		return domain.ErrInvalidHoldState
	}
	hold.ExpiresAt = expiresAt
	r.holds[token] = hold
	return nil
}

func (r *fakeHoldRepo) ListHoldsByGuest(_ context.Context, guestID string) ([]domain.Hold, error) {
	out := make([]domain.Hold, 0)
	for _, hold := range r.holds {
		if hold.GuestID == guestID && hold.Status.Live() {
			out = append(out, hold)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeHoldRepo) ListDueHoldTokens(_ context.Context, now time.Time, includePaymentPending bool, limit int) ([]string, error) {
	out := make([]string, 0)
	for token, hold := range r.holds {
		if !hold.ExpiredAt(now) {
			continue
		}
		if hold.Status == domain.HoldStatusPaymentPending && !includePaymentPending {
			continue
		}
		out = append(out, token)
	}
	sort.Strings(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeHoldRepo) ExpireHold(_ context.Context, token string, now time.Time, includePaymentPending bool) (bool, error) {
	if err := r.expireErr[token]; err != nil {
		return false, err
	}
	hold, ok := r.holds[token]
	if !ok {
		return false, nil
	}
	if !hold.ExpiredAt(now) {
		return false, nil
	}
	if hold.Status == domain.HoldStatusPaymentPending && !includePaymentPending {
		return false, nil
	}
	hold.Status = domain.HoldStatusExpired
	r.holds[token] = hold
	return true, nil
}

// fakePaymentRepo is an in-memory PaymentCreator and PaymentSweepRepository.
// It shares a hold map with the hold fake so cascades are observable.
type fakePaymentRepo struct {
	payments  map[string]domain.PaymentTransaction
	holds     *fakeHoldRepo
	createErr error
}

func newFakePaymentRepo(holds *fakeHoldRepo) *fakePaymentRepo {
	return &fakePaymentRepo{
		payments: make(map[string]domain.PaymentTransaction),
		holds:    holds,
	}
}

func (r *fakePaymentRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (r *fakePaymentRepo) CreatePayment(_ context.Context, p domain.PaymentTransaction) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.payments[p.ID] = p
	return nil
}

func (r *fakePaymentRepo) ListStalePendingIDs(_ context.Context, cutoff time.Time, limit int) ([]string, error) {
	out := make([]string, 0)
	for id, p := range r.payments {
		if p.Status == domain.PaymentStatusPending && !p.CreatedAt.After(cutoff) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakePaymentRepo) MarkTimedOut(_ context.Context, id string, now time.Time) (*domain.PaymentTransaction, error) {
	p, ok := r.payments[id]
	if !ok || p.Status != domain.PaymentStatusPending {
		return nil, nil
	}
	p.Status = domain.PaymentStatusTimeout
	p.UpdatedAt = now
	r.payments[id] = p
	return &p, nil
}

func (r *fakePaymentRepo) TransitionHold(ctx context.Context, token string, to domain.HoldStatus, from ...domain.HoldStatus) (bool, error) {
	return r.holds.TransitionHold(ctx, token, to, from...)
}

// fakeReservationRepo is an in-memory ReservationRepository over a shared
// hold fake.
type fakeReservationRepo struct {
	holds        *fakeHoldRepo
	reservations map[string]domain.Reservation // keyed by hold token
	captured     []string
}

func newFakeReservationRepo(holds *fakeHoldRepo) *fakeReservationRepo {
	return &fakeReservationRepo{
		holds:        holds,
		reservations: make(map[string]domain.Reservation),
	}
}

func (r *fakeReservationRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (r *fakeReservationRepo) GetHoldForUpdate(ctx context.Context, token string) (domain.Hold, error) {
	return r.holds.GetHold(ctx, token)
}

func (r *fakeReservationRepo) TransitionHold(ctx context.Context, token string, to domain.HoldStatus, from ...domain.HoldStatus) (bool, error) {
	return r.holds.TransitionHold(ctx, token, to, from...)
}

func (r *fakeReservationRepo) CreateReservation(_ context.Context, res domain.Reservation) error {
	if _, exists := r.reservations[res.HoldToken]; exists {
		return domain.ErrHoldAlreadyConverted
	}
	r.reservations[res.HoldToken] = res
	return nil
}

func (r *fakeReservationRepo) GetReservationByHoldToken(_ context.Context, token string) (*domain.Reservation, error) {
	res, ok := r.reservations[token]
	if !ok {
		return nil, nil
	}
	return &res, nil
}

func (r *fakeReservationRepo) CapturePendingPayment(_ context.Context, holdToken string, _ time.Time) error {
	r.captured = append(r.captured, holdToken)
	return nil
}
