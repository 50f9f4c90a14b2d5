package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Event types fired on hold lifecycle transitions.
const (
	EventHoldCreated        = "hold.created"
	EventHoldExtended       = "hold.extended"
	EventHoldConverted      = "hold.converted"
	EventHoldCancelled      = "hold.cancelled"
	EventHoldExpired        = "hold.expired"
	EventHoldPaymentPending = "hold.payment_pending"
	EventPaymentTimeout     = "payment.timeout"
)

// Event is the payload delivered to post-commit hooks.
type Event struct {
	Type          string    `json:"type"`
	HoldToken     string    `json:"hold_token"`
	GuestID       string    `json:"guest_id,omitempty"`
	RoomIDs       []int64   `json:"room_ids,omitempty"`
	ReservationID string    `json:"reservation_id,omitempty"`
	PaymentID     string    `json:"payment_id,omitempty"`
	At            time.Time `json:"at"`
}

// Hook is invoked after a state transition has committed. Hooks must not
// influence the transaction outcome; errors are logged, never propagated.
type Hook func(ctx context.Context, ev Event) error

// Hooks is an ordered list of post-commit callbacks. It replaces
// interception-style side-effect dispatch with explicit invocation.
type Hooks struct {
	log   zerolog.Logger
	hooks []Hook
}

func NewHooks(log zerolog.Logger, hooks ...Hook) *Hooks {
	return &Hooks{log: log, hooks: hooks}
}

// Register appends a hook. Not safe for concurrent use with Fire; register
// everything during wiring.
func (h *Hooks) Register(hook Hook) {
	h.hooks = append(h.hooks, hook)
}

// Fire runs every hook in order. A failing hook is logged and skipped.
func (h *Hooks) Fire(ctx context.Context, ev Event) {
	if h == nil {
		return
	}
	for _, hook := range h.hooks {
		if err := hook(ctx, ev); err != nil {
			h.log.Error().
				Err(err).
				Str("event", ev.Type).
				Str("hold_token", ev.HoldToken).
				Msg("post-commit hook failed")
		}
	}
}
