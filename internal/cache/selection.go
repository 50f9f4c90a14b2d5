// Package cache holds the guest room-selection store: the rooms a session
// has picked while browsing, before any hold exists. Entries are bounded and
// TTL-evicted, both on access and by a periodic sweep.
package cache

import (
	"context"
	"errors"
	"time"
)

var ErrSelectionNotFound = errors.New("selection not found")

// Selection is a session's picked rooms.
type Selection struct {
	RoomIDs  []int64   `json:"room_ids"`
	CheckIn  time.Time `json:"check_in"`
	CheckOut time.Time `json:"check_out"`
}

// SelectionStore is a bounded TTL map keyed by session id.
type SelectionStore interface {
	Put(ctx context.Context, sessionID string, sel Selection) error
	// Get returns ErrSelectionNotFound for missing or expired entries and
	// evicts expired entries on access.
	Get(ctx context.Context, sessionID string) (Selection, error)
	Delete(ctx context.Context, sessionID string) error
}
