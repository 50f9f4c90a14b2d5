package domain

import "time"

type HoldStatus string

const (
	HoldStatusActive         HoldStatus = "active"
	HoldStatusPaymentPending HoldStatus = "payment_pending"
	HoldStatusExpired        HoldStatus = "expired"
	HoldStatusConverted      HoldStatus = "converted"
	HoldStatusCancelled      HoldStatus = "cancelled"
)

// Live reports whether the hold still occupies its rooms. Only live holds
// count against availability and only live holds can expire.
func (s HoldStatus) Live() bool {
	return s == HoldStatusActive || s == HoldStatusPaymentPending
}

// Terminal reports whether the status admits no further transitions.
func (s HoldStatus) Terminal() bool {
	return s == HoldStatusExpired || s == HoldStatusConverted || s == HoldStatusCancelled
}

// Hold is a time-bounded soft-lock on a set of rooms over a [CheckIn, CheckOut)
// date range. Token is the only external handle. The room set is immutable
// after creation; only Status and ExpiresAt mutate.
type Hold struct {
	Token     string
	SessionID string
	GuestID   string
	RoomIDs   []int64
	CheckIn   time.Time
	CheckOut  time.Time
	Status    HoldStatus
	ExpiresAt time.Time
	CreatedAt time.Time
}

// ExpiredAt reports whether the hold is live but past its deadline at now.
func (h Hold) ExpiredAt(now time.Time) bool {
	return h.Status.Live() && !h.ExpiresAt.After(now)
}
