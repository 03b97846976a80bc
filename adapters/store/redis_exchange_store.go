package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/healingbudsglobal/walletgate/core"
	"github.com/healingbudsglobal/walletgate/ports"
)

// RedisExchangeStore is a Redis implementation of the ExchangeTokenStore
// interface. GETDEL makes redemption atomic and single-use.
type RedisExchangeStore struct {
	client *redis.Client
	prefix string
}

// NewRedisExchangeStore creates a new Redis exchange token store
func NewRedisExchangeStore(client *redis.Client) *RedisExchangeStore {
	return &RedisExchangeStore{
		client: client,
		prefix: "walletgate:exchange:",
	}
}

var _ ports.ExchangeTokenStore = (*RedisExchangeStore)(nil)

type redisExchangeToken struct {
	Token      string `json:"token"`
	Address    string `json:"address"`
	IdentityID string `json:"identity_id"`
	Purpose    string `json:"purpose"`
	IssuedAt   int64  `json:"iat"`
	ExpiresAt  int64  `json:"exp"`
}

// Put stores the token with a TTL matching its expiry.
func (s *RedisExchangeStore) Put(ctx context.Context, token *core.ExchangeToken) error {
	payload, err := json.Marshal(redisExchangeToken{
		Token:      token.Token,
		Address:    token.Address,
		IdentityID: token.IdentityID,
		Purpose:    string(token.Purpose),
		IssuedAt:   token.IssuedAt.Unix(),
		ExpiresAt:  token.ExpiresAt.Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal exchange token: %w", err)
	}

	if err := s.client.Set(ctx, s.prefix+token.Token, payload, time.Until(token.ExpiresAt)).Err(); err != nil {
		return fmt.Errorf("failed to store exchange token: %w", err)
	}
	return nil
}

// Redeem atomically consumes the token via GETDEL; a replayed token is
// simply gone.
func (s *RedisExchangeStore) Redeem(ctx context.Context, token string, now time.Time) (*core.ExchangeToken, error) {
	raw, err := s.client.GetDel(ctx, s.prefix+token).Result()
	if err == redis.Nil {
		return nil, core.ErrExchangeTokenInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("failed to redeem exchange token: %w", err)
	}

	var rec redisExchangeToken
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal exchange token: %w", err)
	}
	if now.Unix() > rec.ExpiresAt {
		return nil, core.ErrExchangeTokenInvalid
	}

	return &core.ExchangeToken{
		Token:      rec.Token,
		Address:    rec.Address,
		IdentityID: rec.IdentityID,
		Purpose:    core.Purpose(rec.Purpose),
		IssuedAt:   time.Unix(rec.IssuedAt, 0).UTC(),
		ExpiresAt:  time.Unix(rec.ExpiresAt, 0).UTC(),
	}, nil
}
