package store

import (
	"errors"
	"sync"
	"time"

	"github.com/i474232898/flight-route-planner/internal/weather"
)

var (
	// ErrNotFound is returned when no fresh snapshot is cached for a key.
	ErrNotFound = errors.New("no cached weather for position")
)

type entry struct {
	snapshot weather.Snapshot
	savedAt  time.Time
}

// MemoryStore is a concurrency-safe in-memory cache of weather snapshots.
type MemoryStore struct {
	mu sync.RWMutex

	// key: position key
	data map[string]entry

	// retention configuration
	maxEntries int           // max number of cached positions (0 = unlimited)
	maxAge     time.Duration // entries older than this are stale

	now func() time.Time
}

// NewMemoryStore creates a new MemoryStore. If maxEntries is <= 0 the cache
// is unbounded.
func NewMemoryStore(maxEntries int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string]entry),
		maxEntries: maxEntries,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// SaveSnapshot stores a snapshot and enforces the size limit.
func (s *MemoryStore) SaveSnapshot(key string, snapshot weather.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.data[key] = entry{snapshot: snapshot, savedAt: now}

	if s.maxEntries > 0 && len(s.data) > s.maxEntries {
		s.pruneLocked(now)
	}
	// Still over: evict the oldest entries.
	for s.maxEntries > 0 && len(s.data) > s.maxEntries {
		var oldestKey string
		var oldest time.Time
		for k, e := range s.data {
			if oldestKey == "" || e.savedAt.Before(oldest) {
				oldestKey, oldest = k, e.savedAt
			}
		}
		delete(s.data, oldestKey)
	}
}

// GetSnapshot returns the cached snapshot for key if it is still fresh.
func (s *MemoryStore) GetSnapshot(key string) (weather.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[key]
	if !ok || s.expired(e, s.now()) {
		return weather.Snapshot{}, ErrNotFound
	}
	return e.snapshot, nil
}

// Prune removes expired entries and returns how many were dropped.
func (s *MemoryStore) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pruneLocked(s.now())
}

// Len returns the number of cached entries, fresh or not.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func (s *MemoryStore) pruneLocked(now time.Time) int {
	removed := 0
	for k, e := range s.data {
		if s.expired(e, now) {
			delete(s.data, k)
			removed++
		}
	}
	return removed
}

func (s *MemoryStore) expired(e entry, now time.Time) bool {
	return s.maxAge > 0 && now.Sub(e.savedAt) > s.maxAge
}
