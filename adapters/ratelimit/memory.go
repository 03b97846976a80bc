package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/healingbudsglobal/walletgate/ports"
)

// MemoryLimiter implements RateLimiter with an in-memory sliding window per
// key. The sliding window avoids the burst at fixed-window boundaries.
type MemoryLimiter struct {
	limit  int
	window time.Duration

	mu      sync.Mutex
	buckets map[string][]time.Time
}

// NewMemoryLimiter creates a limiter allowing limit requests per window.
func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:   limit,
		window:  window,
		buckets: make(map[string][]time.Time),
	}
}

var _ ports.RateLimiter = (*MemoryLimiter)(nil)

// Allow reports whether one more request is permitted for the key and
// records it if so.
func (l *MemoryLimiter) Allow(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-l.window)

	timestamps := l.buckets[key]
	i := 0
	for ; i < len(timestamps); i++ {
		if timestamps[i].After(cutoff) {
			break
		}
	}
	timestamps = timestamps[i:]

	if len(timestamps) >= l.limit {
		l.buckets[key] = timestamps
		return false, nil
	}

	l.buckets[key] = append(timestamps, now)
	return true, nil
}
