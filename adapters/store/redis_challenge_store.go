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

// RedisChallengeStore is a Redis implementation of the ChallengeStore
// interface. Keys expire with the challenge, so Redis garbage-collects
// abandoned nonces on its own.
type RedisChallengeStore struct {
	client *redis.Client
	prefix string
}

// NewRedisChallengeStore creates a new Redis challenge store
func NewRedisChallengeStore(client *redis.Client) *RedisChallengeStore {
	return &RedisChallengeStore{
		client: client,
		prefix: "walletgate:challenge:",
	}
}

var _ ports.ChallengeStore = (*RedisChallengeStore)(nil)

type redisChallenge struct {
	ID        string `json:"id"`
	Address   string `json:"address"`
	Purpose   string `json:"purpose"`
	Nonce     string `json:"nonce"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
	Consumed  bool   `json:"consumed"`
}

func (s *RedisChallengeStore) key(address string, purpose core.Purpose) string {
	return s.prefix + string(purpose) + ":" + address
}

func toRedisChallenge(c *core.Challenge) redisChallenge {
	return redisChallenge{
		ID:        c.ID,
		Address:   c.Address,
		Purpose:   string(c.Purpose),
		Nonce:     c.Nonce,
		IssuedAt:  c.IssuedAt.Unix(),
		ExpiresAt: c.ExpiresAt.Unix(),
		Consumed:  c.Consumed,
	}
}

func (r redisChallenge) toCore() *core.Challenge {
	return &core.Challenge{
		ID:        r.ID,
		Address:   r.Address,
		Purpose:   core.Purpose(r.Purpose),
		Nonce:     r.Nonce,
		IssuedAt:  time.Unix(r.IssuedAt, 0).UTC(),
		ExpiresAt: time.Unix(r.ExpiresAt, 0).UTC(),
		Consumed:  r.Consumed,
	}
}

// Put stores a challenge under its pair key with a TTL slightly past expiry,
// replacing any prior challenge for the pair.
func (s *RedisChallengeStore) Put(ctx context.Context, challenge *core.Challenge) error {
	payload, err := json.Marshal(toRedisChallenge(challenge))
	if err != nil {
		return fmt.Errorf("failed to marshal challenge: %w", err)
	}

	// Keep the record around for a minute past expiry so replays can still
	// be classified as expired instead of not found.
	ttl := time.Until(challenge.ExpiresAt) + time.Minute
	if err := s.client.Set(ctx, s.key(challenge.Address, challenge.Purpose), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store challenge: %w", err)
	}
	return nil
}

// Get returns the stored challenge for the pair regardless of state.
func (s *RedisChallengeStore) Get(ctx context.Context, address string, purpose core.Purpose) (*core.Challenge, error) {
	raw, err := s.client.Get(ctx, s.key(address, purpose)).Result()
	if err == redis.Nil {
		return nil, core.ErrNonceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load challenge: %w", err)
	}

	var rec redisChallenge
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal challenge: %w", err)
	}
	return rec.toCore(), nil
}

// consumeScript atomically checks and marks a challenge consumed. Running it
// as a single Lua script closes the window between two concurrent
// verifications of the same nonce.
var consumeScript = redis.NewScript(`
local raw = redis.call("GET", KEYS[1])
if not raw then
	return "__notfound"
end
local rec = cjson.decode(raw)
if rec.nonce ~= ARGV[1] then
	return "__notfound"
end
if rec.consumed then
	return "__consumed"
end
if tonumber(ARGV[2]) > rec.exp then
	return "__expired"
end
rec.consumed = true
redis.call("SET", KEYS[1], cjson.encode(rec), "KEEPTTL")
return cjson.encode(rec)
`)

// Consume atomically marks the challenge consumed.
func (s *RedisChallengeStore) Consume(ctx context.Context, address string, purpose core.Purpose, nonce string, now time.Time) (*core.Challenge, error) {
	res, err := consumeScript.Run(ctx, s.client, []string{s.key(address, purpose)}, nonce, now.Unix()).Text()
	if err != nil {
		return nil, fmt.Errorf("failed to consume challenge: %w", err)
	}

	switch res {
	case "__notfound":
		return nil, core.ErrNonceNotFound
	case "__consumed":
		return nil, core.ErrNonceAlreadyConsumed
	case "__expired":
		return nil, core.ErrNonceExpired
	}

	var rec redisChallenge
	if err := json.Unmarshal([]byte(res), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal consumed challenge: %w", err)
	}
	return rec.toCore(), nil
}

// DeleteExpired is a no-op for Redis; key TTLs handle garbage collection.
func (s *RedisChallengeStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	return 0, nil
}
