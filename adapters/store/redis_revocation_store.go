package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/healingbudsglobal/walletgate/core"
	"github.com/healingbudsglobal/walletgate/ports"
)

// RedisRevocationStore is a Redis implementation of the RevocationStore
// interface.
type RedisRevocationStore struct {
	client      *redis.Client
	tokenPrefix string
	addrPrefix  string
}

// NewRedisRevocationStore creates a new Redis revocation store
func NewRedisRevocationStore(client *redis.Client) *RedisRevocationStore {
	return &RedisRevocationStore{
		client:      client,
		tokenPrefix: "walletgate:invalidated:",
		addrPrefix:  "walletgate:revoked-addr:",
	}
}

var _ ports.RevocationStore = (*RedisRevocationStore)(nil)

// InvalidateToken marks a token as invalidated in Redis
func (s *RedisRevocationStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	if err := s.client.Set(ctx, s.tokenPrefix+tokenID, "1", expiry).Err(); err != nil {
		return fmt.Errorf("failed to invalidate token: %w", err)
	}
	return nil
}

// IsTokenInvalidated checks if a token is invalidated in Redis
func (s *RedisRevocationStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	val, err := s.client.Exists(ctx, s.tokenPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token invalidation: %w", err)
	}
	return val > 0, nil
}

// RevokeAddress marks an address as revoked in Redis
func (s *RedisRevocationStore) RevokeAddress(ctx context.Context, address string, expiry time.Duration) error {
	if err := s.client.Set(ctx, s.addrPrefix+core.NormalizeAddress(address), "1", expiry).Err(); err != nil {
		return fmt.Errorf("failed to revoke address: %w", err)
	}
	return nil
}

// IsAddressRevoked checks if an address is revoked in Redis
func (s *RedisRevocationStore) IsAddressRevoked(ctx context.Context, address string) (bool, error) {
	val, err := s.client.Exists(ctx, s.addrPrefix+core.NormalizeAddress(address)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check address revocation: %w", err)
	}
	return val > 0, nil
}
