// Package ratelimit implements a per-identifier sliding-window request
// counter. The Redis backend shares one quota across all proxy instances;
// the in-memory backend covers single-process deployments and tests.
package ratelimit

import (
	"context"
	"time"
)

// Result is the outcome of one quota check. RetryAfter is only meaningful
// when Allowed is false: it is the time until the oldest request in the
// window falls out.
type Result struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Limiter decides whether a request from the given identifier may proceed.
// Each allowed call consumes one slot in the identifier's window.
type Limiter interface {
	Check(ctx context.Context, identifier string) (Result, error)
}

// RetryAfterSeconds converts a retry hint to whole seconds, rounded up, with
// a floor of 1. Used for the Retry-After header and the rejection message.
func RetryAfterSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}
