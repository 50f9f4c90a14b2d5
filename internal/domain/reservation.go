package domain

import "time"

// Reservation is the confirmed booking produced when a hold converts.
// HoldToken is unique: a hold converts into at most one reservation.
type Reservation struct {
	ID        string
	HoldToken string
	GuestID   string
	RoomIDs   []int64
	CheckIn   time.Time
	CheckOut  time.Time
	CreatedAt time.Time
}
