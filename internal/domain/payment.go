package domain

import "time"

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusCaptured PaymentStatus = "captured"
	PaymentStatusFailed   PaymentStatus = "failed"
	// PaymentStatusTimeout marks a payment the gateway never answered for,
	// as opposed to an explicit rejection (failed).
	PaymentStatusTimeout PaymentStatus = "timeout"
)

// PaymentTransaction is the slice of the payment subsystem the timeout
// sweeper operates on. HoldToken links a pending payment to the hold it is
// meant to convert; it is empty for payments raised outside the hold flow.
type PaymentTransaction struct {
	ID        string
	HoldToken string
	Amount    float64
	Currency  string
	Status    PaymentStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}
