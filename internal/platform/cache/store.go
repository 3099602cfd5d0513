package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value     any
	expiresAt time.Time
}

// Store is an in-process key/value cache with per-entry expiry. Expired
// entries are dropped lazily on read and by Sweep.
type Store struct {
	mu         sync.RWMutex
	entries    map[string]entry
	defaultTTL time.Duration
	now        func() time.Time
}

func NewStore(defaultTTL time.Duration) *Store {
	return &Store{
		entries:    make(map[string]entry),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

func (s *Store) Get(_ context.Context, key string) (any, bool) {
	if key == "" {
		return nil, false
	}

	now := s.now()
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !e.expiresAt.IsZero() && !e.expiresAt.After(now) {
		s.mu.Lock()
		if current, still := s.entries[key]; still && current.expiresAt.Equal(e.expiresAt) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return nil, false
	}

	return e.value, true
}

// Set stores value under key. A non-positive ttl falls back to the store
// default; when both are zero the entry never expires.
func (s *Store) Set(_ context.Context, key string, value any, ttl time.Duration) {
	if key == "" {
		return
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	expiresAt := time.Time{}
	if ttl > 0 {
		expiresAt = s.now().Add(ttl)
	}

	s.mu.Lock()
	s.entries[key] = entry{
		value:     value,
		expiresAt: expiresAt,
	}
	s.mu.Unlock()
}

func (s *Store) Delete(_ context.Context, key string) {
	if key == "" {
		return
	}

	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// Sweep removes expired entries and returns how many were dropped.
func (s *Store) Sweep() int {
	now := s.now()
	removed := 0

	s.mu.Lock()
	for key, e := range s.entries {
		if !e.expiresAt.IsZero() && !e.expiresAt.After(now) {
			delete(s.entries, key)
			removed++
		}
	}
	s.mu.Unlock()

	return removed
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
