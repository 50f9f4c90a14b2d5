package domain

import "errors"

var (
	ErrHoldNotFound         = errors.New("hold not found")
	ErrHoldExpired          = errors.New("hold expired")
	ErrHoldAlreadyConverted = errors.New("hold already converted")
	ErrInvalidHoldState     = errors.New("operation not valid for hold state")
	ErrNoAvailability       = errors.New("requested rooms not available")
	ErrRoomNotFound         = errors.New("room not found")
	ErrInvalidDateRange     = errors.New("invalid date range")
	ErrInvalidRoomCount     = errors.New("invalid room count")
	ErrInvalidTTL           = errors.New("invalid hold ttl")
	ErrPaymentNotFound      = errors.New("payment transaction not found")
	ErrInvalidID            = errors.New("invalid id")
)
