package domain

import "time"

// Room is the catalog entry type-level holds resolve against.
type Room struct {
	ID         int64
	RoomNumber string
	RoomType   string
	CreatedAt  time.Time
}
