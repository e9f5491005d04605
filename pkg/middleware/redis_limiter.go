package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// fixedWindowScript increments the window counter, setting its expiry on the
// first hit, and returns the new count and the remaining TTL in ms.
var fixedWindowScript = redis.NewScript(`
local current = redis.call('INCR', KEYS[1])
if current == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// RedisLimiter is a fixed-window limiter shared by every replica through
// Redis.
type RedisLimiter struct {
	client redis.Scripter
	limit  Limit
	prefix string
}

// NewRedisLimiter creates a Redis-backed limiter. Keys are namespaced by
// prefix.
func NewRedisLimiter(client redis.Scripter, l Limit, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisLimiter{client: client, limit: l, prefix: prefix}
}

// Allow counts one request against key's current window.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	vals, err := fixedWindowScript.Run(ctx, l.client,
		[]string{l.prefix + ":" + key},
		l.limit.Window.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("redis rate limit: %w", err)
	}
	if len(vals) != 2 {
		return Result{}, fmt.Errorf("redis rate limit: unexpected reply length %d", len(vals))
	}

	count, ttl := vals[0], time.Duration(vals[1])*time.Millisecond
	res := Result{
		Allowed:   count <= int64(l.limit.Requests),
		Limit:     l.limit.Requests,
		Remaining: l.limit.Requests - int(count),
	}
	if !res.Allowed {
		res.RetryAfter = ttl
	}
	return res, nil
}

var _ Limiter = (*RedisLimiter)(nil)
