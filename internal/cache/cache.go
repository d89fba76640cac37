package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

const keyPrefix = "weather:"

// Store is a flat city -> JSON payload cache with per-entry TTL. Get returns
// ok=false on miss or expiry. A stored value that is no longer valid JSON is
// reported as an error, not silently dropped; callers decide how to recover.
type Store interface {
	Get(ctx context.Context, city string) (json.RawMessage, bool, error)
	Set(ctx context.Context, city string, payload json.RawMessage, ttl time.Duration) error
	Ping(ctx context.Context) error
	Close() error
}

// ErrCorruptEntry wraps a stored value that failed JSON validation on read.
type ErrCorruptEntry struct {
	City string
}

func (e *ErrCorruptEntry) Error() string {
	return fmt.Sprintf("cache: corrupt entry for %q", e.City)
}

// InMemoryStore implements Store with a mutex-guarded map. Used for dev
// deployments without a shared store and as the test double.
type InMemoryStore struct {
	mu   sync.Mutex
	data map[string]memEntry
	now  func() time.Time
}

type memEntry struct {
	payload   []byte
	expiresAt time.Time
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		data: make(map[string]memEntry),
		now:  time.Now,
	}
}

// Get returns the cached payload for city if present and not expired.
// Expired entries are removed on access.
func (s *InMemoryStore) Get(ctx context.Context, city string) (json.RawMessage, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.data[city]
	if !ok {
		return nil, false, nil
	}
	if s.now().After(entry.expiresAt) {
		delete(s.data, city)
		return nil, false, nil
	}
	if !json.Valid(entry.payload) {
		return nil, false, &ErrCorruptEntry{City: city}
	}
	return entry.payload, true, nil
}

// Set stores the payload unconditionally; last write wins.
func (s *InMemoryStore) Set(ctx context.Context, city string, payload json.RawMessage, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[city] = memEntry{
		payload:   append([]byte(nil), payload...),
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

func (s *InMemoryStore) Ping(ctx context.Context) error { return nil }

func (s *InMemoryStore) Close() error { return nil }
