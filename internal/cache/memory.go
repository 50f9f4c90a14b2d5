package cache

import (
	"context"
	"sync"
	"time"

	"github.com/cpehesara/StayOps-sub001/internal/clock"
)

type memoryEntry struct {
	sel       Selection
	expiresAt time.Time
}

// MemoryStore is an in-process SelectionStore: a mutex-guarded map with a
// hard entry bound, expiry on access and a periodic sweep.
type MemoryStore struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	ttl        time.Duration
	maxEntries int
	clock      clock.Clock
}

func NewMemoryStore(ttl time.Duration, maxEntries int, clk clock.Clock) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	return &MemoryStore{
		entries:    make(map[string]memoryEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
		clock:      clk,
	}
}

func (s *MemoryStore) Put(_ context.Context, sessionID string, sel Selection) error {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[sessionID]; !exists && len(s.entries) >= s.maxEntries {
		s.evictLocked(now)
	}
	s.entries[sessionID] = memoryEntry{sel: sel, expiresAt: now.Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) (Selection, error) {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[sessionID]
	if !ok {
		return Selection{}, ErrSelectionNotFound
	}
	if !entry.expiresAt.After(now) {
		delete(s.entries, sessionID)
		return Selection{}, ErrSelectionNotFound
	}
	return entry.sel, nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, sessionID)
	return nil
}

// Sweep drops every expired entry and returns how many were removed.
func (s *MemoryStore) Sweep(_ context.Context) (int, error) {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, entry := range s.entries {
		if !entry.expiresAt.After(now) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed, nil
}

// Len reports the current entry count.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// evictLocked makes room when the store is full: expired entries first, then
// the entry closest to expiry.
func (s *MemoryStore) evictLocked(now time.Time) {
	var oldestID string
	var oldestExpiry time.Time

	for id, entry := range s.entries {
		if !entry.expiresAt.After(now) {
			delete(s.entries, id)
			return
		}
		if oldestID == "" || entry.expiresAt.Before(oldestExpiry) {
			oldestID = id
			oldestExpiry = entry.expiresAt
		}
	}
	if oldestID != "" {
		delete(s.entries, oldestID)
	}
}
