package ports

import "context"

// RateLimiter throttles challenge issuance per key (normalized address).
type RateLimiter interface {
	// Allow reports whether one more request is permitted for the key.
	Allow(ctx context.Context, key string) (bool, error)
}
