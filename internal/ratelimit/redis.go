package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "ratelimit:"

// slidingWindow prunes entries older than the window from the identifier's
// ZSET, then either records the request or reports how long until the oldest
// entry expires. Runs atomically inside Redis, so concurrent handler
// instances share one quota without application-level locking.
// Returns {allowed, retry_after_ms}.
var slidingWindow = redis.NewScript(`
redis.replicate_commands()

local key = KEYS[1]
local window = tonumber(ARGV[1])
local limit = tonumber(ARGV[2])

local t = redis.call('TIME')
local now = t[1] * 1000 + math.floor(t[2] / 1000)

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)

local count = redis.call('ZCARD', key)
if count < limit then
    redis.call('ZADD', key, now, now .. '-' .. count)
    redis.call('PEXPIRE', key, window)
    return {1, 0}
end

local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local retry = window
if oldest[2] then
    retry = tonumber(oldest[2]) + window - now
end
return {0, retry}
`)

// RedisLimiter implements Limiter on a shared Redis instance.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewRedisLimiter creates a limiter allowing limit requests per window for
// each identifier. The client is shared with the caller and not closed here.
func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

// Check implements Limiter.
func (l *RedisLimiter) Check(ctx context.Context, identifier string) (Result, error) {
	key := redisKeyPrefix + identifier
	args := []interface{}{l.window.Milliseconds(), l.limit}

	raw, err := slidingWindow.Run(ctx, l.client, []string{key}, args...).Result()
	if err != nil {
		return Result{}, fmt.Errorf("rate limit check for %s: %w", identifier, err)
	}

	vals, ok := raw.([]interface{})
	if !ok || len(vals) != 2 {
		return Result{}, fmt.Errorf("rate limit check for %s: unexpected script reply %v", identifier, raw)
	}
	allowed, _ := vals[0].(int64)
	retryMs, _ := vals[1].(int64)

	return Result{
		Allowed:    allowed == 1,
		RetryAfter: time.Duration(retryMs) * time.Millisecond,
	}, nil
}
