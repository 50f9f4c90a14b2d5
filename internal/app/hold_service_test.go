package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/cpehesara/StayOps-sub001/internal/clock"
	"github.com/cpehesara/StayOps-sub001/internal/domain"
	"github.com/cpehesara/StayOps-sub001/internal/notify"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func recordingHooks(events *[]notify.Event) *notify.Hooks {
	return notify.NewHooks(zerolog.Nop(), func(_ context.Context, ev notify.Event) error {
		*events = append(*events, ev)
		return nil
	})
}

func TestHoldService_CreateHold(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	checkIn := date(2026, 3, 10)
	checkOut := date(2026, 3, 12)

	standardRooms := []domain.Room{
		{ID: 1, RoomNumber: "101", RoomType: "standard"},
		{ID: 2, RoomNumber: "102", RoomType: "standard"},
		{ID: 3, RoomNumber: "103", RoomType: "standard"},
	}

	makeSvc := func(rooms []domain.Room, holds []domain.Hold) (*HoldService, *fakeHoldRepo, *[]notify.Event) {
		repo := newFakeHoldRepo(rooms, holds)
		events := &[]notify.Event{}
		svc := NewHoldService(repo, newFakePaymentRepo(repo), clock.NewFixed(now),
			WithHoldHooks(recordingHooks(events)))
		return svc, repo, events
	}

	t.Run("creates hold on free rooms", func(t *testing.T) {
		svc, repo, events := makeSvc(standardRooms, nil)

		hold, err := svc.CreateHold(context.Background(), CreateHoldInput{
			SessionID: "sess-1",
			GuestID:   "guest-1",
			RoomIDs:   []int64{1, 2},
			CheckIn:   checkIn,
			CheckOut:  checkOut,
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if hold.Token == "" {
			t.Fatalf("expected token to be set")
		}
		if hold.Status != domain.HoldStatusActive {
			t.Fatalf("expected status active, got %s", hold.Status)
		}
		if !hold.ExpiresAt.Equal(now.Add(15 * time.Minute)) {
			t.Fatalf("expected default 15m expiry, got %v", hold.ExpiresAt)
		}
		if len(repo.holds) != 1 {
			t.Fatalf("expected 1 hold stored, got %d", len(repo.holds))
		}
		if len(*events) != 1 || (*events)[0].Type != notify.EventHoldCreated {
			t.Fatalf("expected hold.created event, got %+v", *events)
		}
	})

	t.Run("overlapping live hold blocks the room", func(t *testing.T) {
		svc, _, _ := makeSvc(standardRooms, []domain.Hold{{
			Token:     "held",
			RoomIDs:   []int64{2},
			CheckIn:   date(2026, 3, 11),
			CheckOut:  date(2026, 3, 14),
			Status:    domain.HoldStatusActive,
			ExpiresAt: now.Add(10 * time.Minute),
		}})

		_, err := svc.CreateHold(context.Background(), CreateHoldInput{
			SessionID: "sess-2",
			RoomIDs:   []int64{1, 2},
			CheckIn:   checkIn,
			CheckOut:  checkOut,
		})
		if !errors.Is(err, domain.ErrNoAvailability) {
			t.Fatalf("expected ErrNoAvailability, got %v", err)
		}
	})

	t.Run("back to back stays do not conflict", func(t *testing.T) {
		svc, _, _ := makeSvc(standardRooms, []domain.Hold{{
			Token:     "held",
			RoomIDs:   []int64{1},
			CheckIn:   checkOut, // starts the day the new stay ends
			CheckOut:  date(2026, 3, 15),
			Status:    domain.HoldStatusActive,
			ExpiresAt: now.Add(10 * time.Minute),
		}})

		_, err := svc.CreateHold(context.Background(), CreateHoldInput{
			SessionID: "sess-3",
			RoomIDs:   []int64{1},
			CheckIn:   checkIn,
			CheckOut:  checkOut,
		})
		if err != nil {
			t.Fatalf("expected no error for adjacent range, got %v", err)
		}
	})

	t.Run("overdue hold frees its rooms before any sweep", func(t *testing.T) {
		svc, _, _ := makeSvc(standardRooms, []domain.Hold{{
			Token:     "overdue",
			RoomIDs:   []int64{1},
			CheckIn:   checkIn,
			CheckOut:  checkOut,
			Status:    domain.HoldStatusActive,
			ExpiresAt: now.Add(-time.Second),
		}})

		_, err := svc.CreateHold(context.Background(), CreateHoldInput{
			SessionID: "sess-4",
			RoomIDs:   []int64{1},
			CheckIn:   checkIn,
			CheckOut:  checkOut,
		})
		if err != nil {
			t.Fatalf("expected overdue hold to be ignored, got %v", err)
		}
	})

	t.Run("confirmed reservation blocks the room", func(t *testing.T) {
		svc, repo, _ := makeSvc(standardRooms, nil)
		repo.reservations["res-hold"] = domain.Reservation{
			ID:       "res-1",
			RoomIDs:  []int64{1},
			CheckIn:  checkIn,
			CheckOut: checkOut,
		}

		_, err := svc.CreateHold(context.Background(), CreateHoldInput{
			SessionID: "sess-5",
			RoomIDs:   []int64{1},
			CheckIn:   checkIn,
			CheckOut:  checkOut,
		})
		if !errors.Is(err, domain.ErrNoAvailability) {
			t.Fatalf("expected ErrNoAvailability, got %v", err)
		}
	})

	t.Run("by type picks the lowest free room ids", func(t *testing.T) {
		svc, _, _ := makeSvc(standardRooms, []domain.Hold{{
			Token:     "held",
			RoomIDs:   []int64{1},
			CheckIn:   checkIn,
			CheckOut:  checkOut,
			Status:    domain.HoldStatusPaymentPending,
			ExpiresAt: now.Add(10 * time.Minute),
		}})

		hold, err := svc.CreateHold(context.Background(), CreateHoldInput{
			SessionID: "sess-6",
			RoomType:  "standard",
			RoomCount: 2,
			CheckIn:   checkIn,
			CheckOut:  checkOut,
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(hold.RoomIDs) != 2 || hold.RoomIDs[0] != 2 || hold.RoomIDs[1] != 3 {
			t.Fatalf("expected rooms [2 3], got %v", hold.RoomIDs)
		}
	})

	t.Run("by type fails when too few rooms are free", func(t *testing.T) {
		svc, _, _ := makeSvc(standardRooms, []domain.Hold{{
			Token:     "held",
			RoomIDs:   []int64{1, 2},
			CheckIn:   checkIn,
			CheckOut:  checkOut,
			Status:    domain.HoldStatusActive,
			ExpiresAt: now.Add(10 * time.Minute),
		}})

		_, err := svc.CreateHold(context.Background(), CreateHoldInput{
			SessionID: "sess-7",
			RoomType:  "standard",
			RoomCount: 2,
			CheckIn:   checkIn,
			CheckOut:  checkOut,
		})
		if !errors.Is(err, domain.ErrNoAvailability) {
			t.Fatalf("expected ErrNoAvailability, got %v", err)
		}
	})

	t.Run("rejects invalid selections and ranges", func(t *testing.T) {
		svc, _, _ := makeSvc(standardRooms, nil)

		cases := []struct {
			name string
			in   CreateHoldInput
			want error
		}{
			{"neither rooms nor type", CreateHoldInput{SessionID: "s", CheckIn: checkIn, CheckOut: checkOut}, domain.ErrInvalidRoomCount},
			{"both rooms and type", CreateHoldInput{SessionID: "s", RoomIDs: []int64{1}, RoomType: "standard", RoomCount: 1, CheckIn: checkIn, CheckOut: checkOut}, domain.ErrInvalidRoomCount},
			{"type with zero count", CreateHoldInput{SessionID: "s", RoomType: "standard", CheckIn: checkIn, CheckOut: checkOut}, domain.ErrInvalidRoomCount},
			{"checkout not after checkin", CreateHoldInput{SessionID: "s", RoomIDs: []int64{1}, CheckIn: checkOut, CheckOut: checkIn}, domain.ErrInvalidDateRange},
			{"checkin in the past", CreateHoldInput{SessionID: "s", RoomIDs: []int64{1}, CheckIn: date(2026, 2, 1), CheckOut: checkOut}, domain.ErrInvalidDateRange},
			{"negative ttl", CreateHoldInput{SessionID: "s", RoomIDs: []int64{1}, CheckIn: checkIn, CheckOut: checkOut, TTLMinutes: -5}, domain.ErrInvalidTTL},
			{"unknown room", CreateHoldInput{SessionID: "s", RoomIDs: []int64{99}, CheckIn: checkIn, CheckOut: checkOut}, domain.ErrRoomNotFound},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				if _, err := svc.CreateHold(context.Background(), tc.in); !errors.Is(err, tc.want) {
					t.Fatalf("expected %v, got %v", tc.want, err)
				}
			})
		}
	})

	t.Run("clamps requested ttl to bounds", func(t *testing.T) {
		svc, _, _ := makeSvc(standardRooms, nil)

		hold, err := svc.CreateHold(context.Background(), CreateHoldInput{
			SessionID:  "sess-8",
			RoomIDs:    []int64{1},
			CheckIn:    checkIn,
			CheckOut:   checkOut,
			TTLMinutes: 100000,
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !hold.ExpiresAt.Equal(now.Add(24 * time.Hour)) {
			t.Fatalf("expected expiry clamped to 24h, got %v", hold.ExpiresAt)
		}
	})
}

func TestHoldService_GetHoldByToken(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("returns live hold unchanged", func(t *testing.T) {
		repo := newFakeHoldRepo(nil, []domain.Hold{{
			Token:     "h1",
			Status:    domain.HoldStatusActive,
			ExpiresAt: now.Add(5 * time.Minute),
		}})
		svc := NewHoldService(repo, newFakePaymentRepo(repo), clock.NewFixed(now))

		hold, err := svc.GetHoldByToken(context.Background(), "h1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if hold.Status != domain.HoldStatusActive {
			t.Fatalf("expected active, got %s", hold.Status)
		}
	})

	t.Run("read just past the deadline expires the hold", func(t *testing.T) {
		repo := newFakeHoldRepo(nil, []domain.Hold{{
			Token:     "h1",
			Status:    domain.HoldStatusActive,
			ExpiresAt: now.Add(-61 * time.Second),
		}})
		events := &[]notify.Event{}
		svc := NewHoldService(repo, newFakePaymentRepo(repo), clock.NewFixed(now),
			WithHoldHooks(recordingHooks(events)))

		hold, err := svc.GetHoldByToken(context.Background(), "h1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if hold.Status != domain.HoldStatusExpired {
			t.Fatalf("expected expired, got %s", hold.Status)
		}
		if repo.holds["h1"].Status != domain.HoldStatusExpired {
			t.Fatalf("expected stored status expired, got %s", repo.holds["h1"].Status)
		}
		if len(*events) != 1 || (*events)[0].Type != notify.EventHoldExpired {
			t.Fatalf("expected hold.expired event, got %+v", *events)
		}
	})

	t.Run("unknown token", func(t *testing.T) {
		repo := newFakeHoldRepo(nil, nil)
		svc := NewHoldService(repo, newFakePaymentRepo(repo), clock.NewFixed(now))

		if _, err := svc.GetHoldByToken(context.Background(), "nope"); !errors.Is(err, domain.ErrHoldNotFound) {
			t.Fatalf("expected ErrHoldNotFound, got %v", err)
		}
	})
}

func TestHoldService_ExtendHold(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	makeSvc := func(hold domain.Hold) (*HoldService, *fakeHoldRepo) {
		repo := newFakeHoldRepo(nil, []domain.Hold{hold})
		svc := NewHoldService(repo, newFakePaymentRepo(repo), clock.NewFixed(now))
		return svc, repo
	}

	t.Run("extends from the current expiry", func(t *testing.T) {
		svc, _ := makeSvc(domain.Hold{
			Token:     "h1",
			Status:    domain.HoldStatusActive,
			ExpiresAt: now.Add(10 * time.Minute),
			CreatedAt: now.Add(-5 * time.Minute),
		})

		hold, err := svc.ExtendHold(context.Background(), "h1", 15)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !hold.ExpiresAt.Equal(now.Add(25 * time.Minute)) {
			t.Fatalf("expected expiry now+25m, got %v", hold.ExpiresAt)
		}
	})

	t.Run("caps at the absolute lifetime", func(t *testing.T) {
		created := now.Add(-47 * time.Hour)
		svc, _ := makeSvc(domain.Hold{
			Token:     "h1",
			Status:    domain.HoldStatusActive,
			ExpiresAt: now.Add(30 * time.Minute),
			CreatedAt: created,
		})

		hold, err := svc.ExtendHold(context.Background(), "h1", 600)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !hold.ExpiresAt.Equal(created.Add(48 * time.Hour)) {
			t.Fatalf("expected expiry capped at creation+48h, got %v", hold.ExpiresAt)
		}
	})

	t.Run("overdue hold is expired, not extended", func(t *testing.T) {
		svc, repo := makeSvc(domain.Hold{
			Token:     "h1",
			Status:    domain.HoldStatusActive,
			ExpiresAt: now.Add(-time.Minute),
			CreatedAt: now.Add(-20 * time.Minute),
		})

		if _, err := svc.ExtendHold(context.Background(), "h1", 15); !errors.Is(err, domain.ErrHoldExpired) {
			t.Fatalf("expected ErrHoldExpired, got %v", err)
		}
		if repo.holds["h1"].Status != domain.HoldStatusExpired {
			t.Fatalf("expected stored status expired, got %s", repo.holds["h1"].Status)
		}
	})

	t.Run("only active holds can be extended", func(t *testing.T) {
		svc, _ := makeSvc(domain.Hold{
			Token:     "h1",
			Status:    domain.HoldStatusPaymentPending,
			ExpiresAt: now.Add(10 * time.Minute),
			CreatedAt: now,
		})

		if _, err := svc.ExtendHold(context.Background(), "h1", 15); !errors.Is(err, domain.ErrInvalidHoldState) {
			t.Fatalf("expected ErrInvalidHoldState, got %v", err)
		}
	})

	t.Run("rejects non-positive minutes", func(t *testing.T) {
		svc, _ := makeSvc(domain.Hold{Token: "h1", Status: domain.HoldStatusActive, ExpiresAt: now.Add(time.Minute)})

		if _, err := svc.ExtendHold(context.Background(), "h1", 0); !errors.Is(err, domain.ErrInvalidTTL) {
			t.Fatalf("expected ErrInvalidTTL, got %v", err)
		}
	})
}

func TestHoldService_CancelHold(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("cancels an active hold", func(t *testing.T) {
		repo := newFakeHoldRepo(nil, []domain.Hold{{
			Token:     "h1",
			Status:    domain.HoldStatusActive,
			ExpiresAt: now.Add(10 * time.Minute),
		}})
		events := &[]notify.Event{}
		svc := NewHoldService(repo, newFakePaymentRepo(repo), clock.NewFixed(now),
			WithHoldHooks(recordingHooks(events)))

		hold, err := svc.CancelHold(context.Background(), "h1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if hold.Status != domain.HoldStatusCancelled {
			t.Fatalf("expected cancelled, got %s", hold.Status)
		}
		if len(*events) != 1 || (*events)[0].Type != notify.EventHoldCancelled {
			t.Fatalf("expected hold.cancelled event, got %+v", *events)
		}
	})

	t.Run("cancelling a terminal hold is a quiet no-op", func(t *testing.T) {
		repo := newFakeHoldRepo(nil, []domain.Hold{{
			Token:  "h1",
			Status: domain.HoldStatusConverted,
		}})
		events := &[]notify.Event{}
		svc := NewHoldService(repo, newFakePaymentRepo(repo), clock.NewFixed(now),
			WithHoldHooks(recordingHooks(events)))

		hold, err := svc.CancelHold(context.Background(), "h1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if hold.Status != domain.HoldStatusConverted {
			t.Fatalf("expected converted unchanged, got %s", hold.Status)
		}
		if len(*events) != 0 {
			t.Fatalf("expected no events, got %+v", *events)
		}
	})

	t.Run("overdue hold expires instead of cancelling", func(t *testing.T) {
		repo := newFakeHoldRepo(nil, []domain.Hold{{
			Token:     "h1",
			Status:    domain.HoldStatusActive,
			ExpiresAt: now.Add(-time.Minute),
		}})
		svc := NewHoldService(repo, newFakePaymentRepo(repo), clock.NewFixed(now))

		hold, err := svc.CancelHold(context.Background(), "h1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if hold.Status != domain.HoldStatusExpired {
			t.Fatalf("expected expired, got %s", hold.Status)
		}
	})

	t.Run("unknown token", func(t *testing.T) {
		repo := newFakeHoldRepo(nil, nil)
		svc := NewHoldService(repo, newFakePaymentRepo(repo), clock.NewFixed(now))

		if _, err := svc.CancelHold(context.Background(), "nope"); !errors.Is(err, domain.ErrHoldNotFound) {
			t.Fatalf("expected ErrHoldNotFound, got %v", err)
		}
	})
}

func TestHoldService_ActiveHoldsByGuest(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	repo := newFakeHoldRepo(nil, []domain.Hold{
		{Token: "live", GuestID: "g1", Status: domain.HoldStatusActive, ExpiresAt: now.Add(5 * time.Minute), CreatedAt: now.Add(-time.Minute)},
		{Token: "overdue", GuestID: "g1", Status: domain.HoldStatusActive, ExpiresAt: now.Add(-time.Minute), CreatedAt: now.Add(-time.Hour)},
		{Token: "other", GuestID: "g2", Status: domain.HoldStatusActive, ExpiresAt: now.Add(5 * time.Minute)},
	})
	svc := NewHoldService(repo, newFakePaymentRepo(repo), clock.NewFixed(now))

	holds, err := svc.ActiveHoldsByGuest(context.Background(), "g1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(holds) != 1 || holds[0].Token != "live" {
		t.Fatalf("expected only the live hold, got %+v", holds)
	}
	if repo.holds["overdue"].Status != domain.HoldStatusExpired {
		t.Fatalf("expected overdue hold lazily expired, got %s", repo.holds["overdue"].Status)
	}

	if _, err := svc.ActiveHoldsByGuest(context.Background(), ""); !errors.Is(err, domain.ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID for empty guest, got %v", err)
	}
}

func TestHoldService_BeginPayment(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	makeSvc := func(hold domain.Hold) (*HoldService, *fakeHoldRepo, *fakePaymentRepo) {
		repo := newFakeHoldRepo(nil, []domain.Hold{hold})
		payments := newFakePaymentRepo(repo)
		svc := NewHoldService(repo, payments, clock.NewFixed(now))
		return svc, repo, payments
	}

	t.Run("attaches pending payment and parks the hold", func(t *testing.T) {
		svc, repo, payments := makeSvc(domain.Hold{
			Token:     "h1",
			Status:    domain.HoldStatusActive,
			ExpiresAt: now.Add(10 * time.Minute),
		})

		payment, err := svc.BeginPayment(context.Background(), BeginPaymentInput{
			Token:    "h1",
			Amount:   249.50,
			Currency: "USD",
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if payment.Status != domain.PaymentStatusPending {
			t.Fatalf("expected pending payment, got %s", payment.Status)
		}
		if payment.HoldToken != "h1" {
			t.Fatalf("expected payment linked to hold, got %q", payment.HoldToken)
		}
		if repo.holds["h1"].Status != domain.HoldStatusPaymentPending {
			t.Fatalf("expected hold payment_pending, got %s", repo.holds["h1"].Status)
		}
		if len(payments.payments) != 1 {
			t.Fatalf("expected 1 payment stored, got %d", len(payments.payments))
		}
	})

	t.Run("only active holds accept payments", func(t *testing.T) {
		svc, _, _ := makeSvc(domain.Hold{
			Token:     "h1",
			Status:    domain.HoldStatusPaymentPending,
			ExpiresAt: now.Add(10 * time.Minute),
		})

		_, err := svc.BeginPayment(context.Background(), BeginPaymentInput{Token: "h1", Amount: 10, Currency: "USD"})
		if !errors.Is(err, domain.ErrInvalidHoldState) {
			t.Fatalf("expected ErrInvalidHoldState, got %v", err)
		}
	})

	t.Run("overdue hold expires instead", func(t *testing.T) {
		svc, repo, _ := makeSvc(domain.Hold{
			Token:     "h1",
			Status:    domain.HoldStatusActive,
			ExpiresAt: now.Add(-time.Minute),
		})

		_, err := svc.BeginPayment(context.Background(), BeginPaymentInput{Token: "h1", Amount: 10, Currency: "USD"})
		if !errors.Is(err, domain.ErrHoldExpired) {
			t.Fatalf("expected ErrHoldExpired, got %v", err)
		}
		if repo.holds["h1"].Status != domain.HoldStatusExpired {
			t.Fatalf("expected stored status expired, got %s", repo.holds["h1"].Status)
		}
	})
}
