package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/healingbudsglobal/walletgate/ports"
)

// RedisLimiter implements RateLimiter with a Redis counter per key and
// window. Shared across instances, unlike MemoryLimiter.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
}

// NewRedisLimiter creates a limiter allowing limit requests per window.
func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		prefix: "walletgate:ratelimit:",
		limit:  limit,
		window: window,
	}
}

var _ ports.RateLimiter = (*RedisLimiter)(nil)

// allowScript increments the counter and sets its expiry on first use, in
// one round trip.
var allowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// Allow reports whether one more request is permitted for the key.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	count, err := allowScript.Run(ctx, l.client, []string{l.prefix + key}, l.window.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %w", err)
	}
	return count <= l.limit, nil
}
