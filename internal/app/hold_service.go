package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cpehesara/StayOps-sub001/internal/clock"
	"github.com/cpehesara/StayOps-sub001/internal/domain"
	"github.com/cpehesara/StayOps-sub001/internal/notify"
)

type HoldRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	LockRooms(ctx context.Context, roomIDs []int64) ([]domain.Room, error)
	LockRoomsByType(ctx context.Context, roomType string) ([]domain.Room, error)
	RoomsWithConflicts(ctx context.Context, roomIDs []int64, checkIn, checkOut, now time.Time, excludeToken string) ([]int64, error)
	CreateHold(ctx context.Context, hold domain.Hold) error
	GetHold(ctx context.Context, token string) (domain.Hold, error)
	GetHoldForUpdate(ctx context.Context, token string) (domain.Hold, error)
	TransitionHold(ctx context.Context, token string, to domain.HoldStatus, from ...domain.HoldStatus) (bool, error)
	UpdateHoldExpiry(ctx context.Context, token string, expiresAt time.Time) error
	ListHoldsByGuest(ctx context.Context, guestID string) ([]domain.Hold, error)
}

// PaymentCreator is the slice of the payment subsystem BeginPayment needs.
type PaymentCreator interface {
	CreatePayment(ctx context.Context, p domain.PaymentTransaction) error
}

// HoldLimits are the configured TTL bounds for holds.
type HoldLimits struct {
	DefaultTTL time.Duration
	MinTTL     time.Duration
	MaxTTL     time.Duration
	// MaxAbsoluteTTL caps a hold's total lifetime from creation across extends.
	MaxAbsoluteTTL time.Duration
}

func DefaultHoldLimits() HoldLimits {
	return HoldLimits{
		DefaultTTL:     15 * time.Minute,
		MinTTL:         1 * time.Minute,
		MaxTTL:         24 * time.Hour,
		MaxAbsoluteTTL: 48 * time.Hour,
	}
}

type HoldService struct {
	repo     HoldRepository
	payments PaymentCreator
	clock    clock.Clock
	limits   HoldLimits
	hooks    *notify.Hooks
	log      zerolog.Logger
}

func NewHoldService(repo HoldRepository, payments PaymentCreator, clk clock.Clock, opts ...HoldServiceOption) *HoldService {
	svc := &HoldService{
		repo:     repo,
		payments: payments,
		clock:    clk,
		limits:   DefaultHoldLimits(),
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type HoldServiceOption func(*HoldService)

// WithHoldLimits overrides the default TTL bounds.
func WithHoldLimits(limits HoldLimits) HoldServiceOption {
	return func(s *HoldService) {
		if limits.DefaultTTL > 0 {
			s.limits = limits
		}
	}
}

// WithHoldHooks installs post-commit callbacks for lifecycle transitions.
func WithHoldHooks(hooks *notify.Hooks) HoldServiceOption {
	return func(s *HoldService) {
		s.hooks = hooks
	}
}

// WithHoldLogger sets the service logger.
func WithHoldLogger(log zerolog.Logger) HoldServiceOption {
	return func(s *HoldService) {
		s.log = log
	}
}

type CreateHoldInput struct {
	SessionID string
	GuestID   string
	// Either explicit RoomIDs or RoomType+RoomCount.
	RoomIDs    []int64
	RoomType   string
	RoomCount  int
	CheckIn    time.Time
	CheckOut   time.Time
	TTLMinutes int // 0 means the configured default; otherwise clamped to bounds
}

// CreateHold places a hold on concrete rooms. The availability check and the
// insert run inside one transaction under per-room row locks taken in
// ascending id order, so calls over intersecting room sets serialize and the
// loser sees ErrNoAvailability rather than a silently overlapping hold.
func (s *HoldService) CreateHold(ctx context.Context, in CreateHoldInput) (domain.Hold, error) {
	explicit := len(in.RoomIDs) > 0
	byType := in.RoomType != ""
	if explicit == byType {
		return domain.Hold{}, domain.ErrInvalidRoomCount
	}
	if byType && in.RoomCount <= 0 {
		return domain.Hold{}, domain.ErrInvalidRoomCount
	}
	if in.TTLMinutes < 0 {
		return domain.Hold{}, domain.ErrInvalidTTL
	}

	now := s.clock.Now()
	checkIn := domain.Midnight(in.CheckIn)
	checkOut := domain.Midnight(in.CheckOut)
	if !domain.ValidStayRange(checkIn, checkOut, domain.Midnight(now)) {
		return domain.Hold{}, domain.ErrInvalidDateRange
	}

	ttl := s.clampTTL(in.TTLMinutes)
	var result domain.Hold

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		roomIDs, err := s.resolveRooms(txCtx, in, checkIn, checkOut, now)
		if err != nil {
			return err
		}

		hold := domain.Hold{
			Token:     newHoldToken(),
			SessionID: in.SessionID,
			GuestID:   in.GuestID,
			RoomIDs:   roomIDs,
			CheckIn:   checkIn,
			CheckOut:  checkOut,
			Status:    domain.HoldStatusActive,
			ExpiresAt: now.Add(ttl),
			CreatedAt: now,
		}
		if err := s.repo.CreateHold(txCtx, hold); err != nil {
			return err
		}
		result = hold
		return nil
	})
	if err != nil {
		return domain.Hold{}, err
	}

	s.fire(ctx, notify.EventHoldCreated, result, "")
	return result, nil
}

// resolveRooms locks the relevant room rows and returns the concrete room ids
// the hold will cover, or ErrNoAvailability. Runs inside the caller's tx.
func (s *HoldService) resolveRooms(ctx context.Context, in CreateHoldInput, checkIn, checkOut, now time.Time) ([]int64, error) {
	if len(in.RoomIDs) > 0 {
		rooms, err := s.repo.LockRooms(ctx, in.RoomIDs)
		if err != nil {
			return nil, err
		}
		ids := roomIDsOf(rooms)
		conflicts, err := s.repo.RoomsWithConflicts(ctx, ids, checkIn, checkOut, now, "")
		if err != nil {
			return nil, err
		}
		if len(conflicts) > 0 {
			return nil, domain.ErrNoAvailability
		}
		return ids, nil
	}

	candidates, err := s.repo.LockRoomsByType(ctx, in.RoomType)
	if err != nil {
		return nil, err
	}
	if len(candidates) < in.RoomCount {
		return nil, domain.ErrNoAvailability
	}

	candidateIDs := roomIDsOf(candidates)
	conflicts, err := s.repo.RoomsWithConflicts(ctx, candidateIDs, checkIn, checkOut, now, "")
	if err != nil {
		return nil, err
	}
	conflicted := make(map[int64]struct{}, len(conflicts))
	for _, id := range conflicts {
		conflicted[id] = struct{}{}
	}

	// Candidates arrive in ascending id order; taking the first free N keeps
	// assignment reproducible.
	picked := make([]int64, 0, in.RoomCount)
	for _, id := range candidateIDs {
		if _, busy := conflicted[id]; busy {
			continue
		}
		picked = append(picked, id)
		if len(picked) == in.RoomCount {
			return picked, nil
		}
	}
	return nil, domain.ErrNoAvailability
}

// GetHoldByToken returns the hold, lazily expiring it first when it is live
// but past its deadline, so expiry is observable before any sweeper run.
func (s *HoldService) GetHoldByToken(ctx context.Context, token string) (domain.Hold, error) {
	if token == "" {
		return domain.Hold{}, domain.ErrHoldNotFound
	}

	hold, err := s.repo.GetHold(ctx, token)
	if err != nil {
		return domain.Hold{}, err
	}

	now := s.clock.Now()
	if hold.ExpiredAt(now) {
		expired, err := s.repo.TransitionHold(ctx, token, domain.HoldStatusExpired,
			domain.HoldStatusActive, domain.HoldStatusPaymentPending)
		if err != nil {
			return domain.Hold{}, err
		}
		hold.Status = domain.HoldStatusExpired
		if expired {
			s.fire(ctx, notify.EventHoldExpired, hold, "")
		}
	}
	return hold, nil
}

// ExtendHold pushes the deadline of an active hold forward by
// additionalMinutes from max(current expiry, now), never beyond
// created_at + MaxAbsoluteTTL. Rooms stay as they are; no availability
// re-check is needed since the hold already owns them.
func (s *HoldService) ExtendHold(ctx context.Context, token string, additionalMinutes int) (domain.Hold, error) {
	if additionalMinutes <= 0 {
		return domain.Hold{}, domain.ErrInvalidTTL
	}

	now := s.clock.Now()
	var result domain.Hold

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		hold, err := s.repo.GetHoldForUpdate(txCtx, token)
		if err != nil {
			return err
		}
		if hold.ExpiredAt(now) {
			if _, err := s.repo.TransitionHold(txCtx, token, domain.HoldStatusExpired,
				domain.HoldStatusActive, domain.HoldStatusPaymentPending); err != nil {
				return err
			}
			return domain.ErrHoldExpired
		}
		if hold.Status != domain.HoldStatusActive {
			return domain.ErrInvalidHoldState
		}

		base := hold.ExpiresAt
		if base.Before(now) {
			base = now
		}
		newExpiry := base.Add(time.Duration(additionalMinutes) * time.Minute)
		cap := hold.CreatedAt.Add(s.limits.MaxAbsoluteTTL)
		if newExpiry.After(cap) {
			newExpiry = cap
		}
		if newExpiry.Before(hold.ExpiresAt) {
			newExpiry = hold.ExpiresAt
		}

		if err := s.repo.UpdateHoldExpiry(txCtx, token, newExpiry); err != nil {
			return err
		}
		hold.ExpiresAt = newExpiry
		result = hold
		return nil
	})
	if err != nil {
		return domain.Hold{}, err
	}

	s.fire(ctx, notify.EventHoldExtended, result, "")
	return result, nil
}

// CancelHold releases the rooms immediately. Cancelling a terminal hold is a
// no-op, never an error, so racing double-cancels stay quiet.
func (s *HoldService) CancelHold(ctx context.Context, token string) (domain.Hold, error) {
	now := s.clock.Now()
	var result domain.Hold
	var cancelled bool

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		hold, err := s.repo.GetHoldForUpdate(txCtx, token)
		if err != nil {
			return err
		}
		if hold.Status.Terminal() {
			result = hold
			return nil
		}
		if hold.ExpiredAt(now) {
			if _, err := s.repo.TransitionHold(txCtx, token, domain.HoldStatusExpired,
				domain.HoldStatusActive, domain.HoldStatusPaymentPending); err != nil {
				return err
			}
			hold.Status = domain.HoldStatusExpired
			result = hold
			return nil
		}

		changed, err := s.repo.TransitionHold(txCtx, token, domain.HoldStatusCancelled,
			domain.HoldStatusActive, domain.HoldStatusPaymentPending)
		if err != nil {
			return err
		}
		hold.Status = domain.HoldStatusCancelled
		result = hold
		cancelled = changed
		return nil
	})
	if err != nil {
		return domain.Hold{}, err
	}

	if cancelled {
		s.fire(ctx, notify.EventHoldCancelled, result, "")
	}
	return result, nil
}

// ActiveHoldsByGuest returns the guest's live holds, newest first, lazily
// expiring any found past their deadline.
func (s *HoldService) ActiveHoldsByGuest(ctx context.Context, guestID string) ([]domain.Hold, error) {
	if guestID == "" {
		return nil, domain.ErrInvalidID
	}

	holds, err := s.repo.ListHoldsByGuest(ctx, guestID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	live := make([]domain.Hold, 0, len(holds))
	for _, hold := range holds {
		if !hold.ExpiredAt(now) {
			live = append(live, hold)
			continue
		}
		expired, err := s.repo.TransitionHold(ctx, hold.Token, domain.HoldStatusExpired,
			domain.HoldStatusActive, domain.HoldStatusPaymentPending)
		if err != nil {
			s.log.Error().Err(err).Str("hold_token", hold.Token).Msg("lazy expiry failed")
			continue
		}
		if expired {
			hold.Status = domain.HoldStatusExpired
			s.fire(ctx, notify.EventHoldExpired, hold, "")
		}
	}
	return live, nil
}

type BeginPaymentInput struct {
	Token    string
	Amount   float64
	Currency string
}

// BeginPayment attaches a pending payment transaction to an active hold and
// moves the hold to payment_pending while the gateway is awaited. The
// payment timeout sweeper resolves transactions the gateway never answers.
func (s *HoldService) BeginPayment(ctx context.Context, in BeginPaymentInput) (domain.PaymentTransaction, error) {
	if in.Amount <= 0 || in.Currency == "" {
		return domain.PaymentTransaction{}, domain.ErrInvalidID
	}

	now := s.clock.Now()
	var payment domain.PaymentTransaction
	var hold domain.Hold

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		h, err := s.repo.GetHoldForUpdate(txCtx, in.Token)
		if err != nil {
			return err
		}
		if h.ExpiredAt(now) {
			if _, err := s.repo.TransitionHold(txCtx, in.Token, domain.HoldStatusExpired,
				domain.HoldStatusActive, domain.HoldStatusPaymentPending); err != nil {
				return err
			}
			return domain.ErrHoldExpired
		}
		if h.Status != domain.HoldStatusActive {
			return domain.ErrInvalidHoldState
		}

		payment = domain.PaymentTransaction{
			ID:        uuid.NewString(),
			HoldToken: in.Token,
			Amount:    in.Amount,
			Currency:  in.Currency,
			Status:    domain.PaymentStatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.payments.CreatePayment(txCtx, payment); err != nil {
			return err
		}

		if _, err := s.repo.TransitionHold(txCtx, in.Token, domain.HoldStatusPaymentPending,
			domain.HoldStatusActive); err != nil {
			return err
		}
		h.Status = domain.HoldStatusPaymentPending
		hold = h
		return nil
	})
	if err != nil {
		return domain.PaymentTransaction{}, err
	}

	s.firePayment(ctx, notify.EventHoldPaymentPending, hold, payment.ID)
	return payment, nil
}

func (s *HoldService) clampTTL(minutes int) time.Duration {
	if minutes == 0 {
		return s.limits.DefaultTTL
	}
	ttl := time.Duration(minutes) * time.Minute
	if ttl < s.limits.MinTTL {
		return s.limits.MinTTL
	}
	if ttl > s.limits.MaxTTL {
		return s.limits.MaxTTL
	}
	return ttl
}

func (s *HoldService) fire(ctx context.Context, eventType string, hold domain.Hold, reservationID string) {
	s.hooks.Fire(ctx, notify.Event{
		Type:          eventType,
		HoldToken:     hold.Token,
		GuestID:       hold.GuestID,
		RoomIDs:       hold.RoomIDs,
		ReservationID: reservationID,
		At:            s.clock.Now(),
	})
}

func (s *HoldService) firePayment(ctx context.Context, eventType string, hold domain.Hold, paymentID string) {
	s.hooks.Fire(ctx, notify.Event{
		Type:      eventType,
		HoldToken: hold.Token,
		GuestID:   hold.GuestID,
		RoomIDs:   hold.RoomIDs,
		PaymentID: paymentID,
		At:        s.clock.Now(),
	})
}

func roomIDsOf(rooms []domain.Room) []int64 {
	ids := make([]int64, len(rooms))
	for i, room := range rooms {
		ids[i] = room.ID
	}
	return ids
}
