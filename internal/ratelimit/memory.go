package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter implements Limiter with per-identifier timestamp lists.
// Same sliding-window semantics as RedisLimiter, but scoped to one process.
type MemoryLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	entries map[string][]time.Time
	now     func() time.Time
}

// NewMemoryLimiter creates a limiter allowing limit requests per window for
// each identifier.
func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:   limit,
		window:  window,
		entries: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Check implements Limiter.
func (l *MemoryLimiter) Check(ctx context.Context, identifier string) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	kept := l.entries[identifier][:0]
	for _, ts := range l.entries[identifier] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= l.limit {
		l.entries[identifier] = kept
		retry := kept[0].Add(l.window).Sub(now)
		return Result{Allowed: false, RetryAfter: retry}, nil
	}

	l.entries[identifier] = append(kept, now)
	return Result{Allowed: true}, nil
}
