package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on a shared Redis instance. Values are the raw
// JSON response bodies; expiry is delegated to SET EX.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing client. The caller remains responsible for
// closing the client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) key(city string) string {
	return keyPrefix + city
}

// Get returns the stored payload for city, or ok=false when no live entry
// exists. A value that fails JSON validation is surfaced as ErrCorruptEntry.
func (s *RedisStore) Get(ctx context.Context, city string) (json.RawMessage, bool, error) {
	val, err := s.client.Get(ctx, s.key(city)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if !json.Valid(val) {
		return nil, false, &ErrCorruptEntry{City: city}
	}
	return val, true, nil
}

// Set stores the payload with the given TTL, overwriting unconditionally.
func (s *RedisStore) Set(ctx context.Context, city string, payload json.RawMessage, ttl time.Duration) error {
	return s.client.Set(ctx, s.key(city), []byte(payload), ttl).Err()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close is a no-op: the client is shared with the rate limiter and closed by
// the process, not the store.
func (s *RedisStore) Close() error {
	return nil
}
