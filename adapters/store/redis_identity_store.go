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

// RedisIdentityStore is a Redis implementation of the IdentityStore
// interface. Records are stored by ID with an address index and per-role
// membership sets.
type RedisIdentityStore struct {
	client *redis.Client
	prefix string
}

// NewRedisIdentityStore creates a new Redis identity store
func NewRedisIdentityStore(client *redis.Client) *RedisIdentityStore {
	return &RedisIdentityStore{
		client: client,
		prefix: "walletgate:identity:",
	}
}

var _ ports.IdentityStore = (*RedisIdentityStore)(nil)

type redisIdentity struct {
	ID            string `json:"id"`
	Address       string `json:"address"`
	Role          string `json:"role"`
	KYCVerified   bool   `json:"kyc_verified"`
	AdminApproved bool   `json:"admin_approved"`
	CreatedAt     int64  `json:"created_at"`
}

func (s *RedisIdentityStore) idKey(id string) string        { return s.prefix + "id:" + id }
func (s *RedisIdentityStore) addrKey(addr string) string    { return s.prefix + "addr:" + addr }
func (s *RedisIdentityStore) roleKey(role core.Role) string { return s.prefix + "role:" + string(role) }

// Save stores or updates an identity record and its indexes.
func (s *RedisIdentityStore) Save(ctx context.Context, identity *core.Identity) error {
	payload, err := json.Marshal(redisIdentity{
		ID:            identity.ID,
		Address:       identity.Address,
		Role:          string(identity.Role),
		KYCVerified:   identity.KYCVerified,
		AdminApproved: identity.AdminApproved,
		CreatedAt:     identity.CreatedAt.Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal identity: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.idKey(identity.ID), payload, 0)
	pipe.Set(ctx, s.addrKey(identity.Address), identity.ID, 0)
	pipe.SAdd(ctx, s.roleKey(identity.Role), identity.ID)
	for _, other := range []core.Role{core.RolePatient, core.RoleAdmin} {
		if other != identity.Role {
			pipe.SRem(ctx, s.roleKey(other), identity.ID)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save identity: %w", err)
	}
	return nil
}

// FindByAddress resolves an address through the index, then loads by ID.
func (s *RedisIdentityStore) FindByAddress(ctx context.Context, address string) (*core.Identity, error) {
	id, err := s.client.Get(ctx, s.addrKey(address)).Result()
	if err == redis.Nil {
		return nil, core.ErrIdentityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve identity address: %w", err)
	}
	return s.FindByID(ctx, id)
}

// FindByID returns the identity with the given ID.
func (s *RedisIdentityStore) FindByID(ctx context.Context, id string) (*core.Identity, error) {
	raw, err := s.client.Get(ctx, s.idKey(id)).Result()
	if err == redis.Nil {
		return nil, core.ErrIdentityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load identity: %w", err)
	}

	var rec redisIdentity
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal identity: %w", err)
	}
	return &core.Identity{
		ID:            rec.ID,
		Address:       rec.Address,
		Role:          core.Role(rec.Role),
		KYCVerified:   rec.KYCVerified,
		AdminApproved: rec.AdminApproved,
		CreatedAt:     time.Unix(rec.CreatedAt, 0).UTC(),
	}, nil
}

// ListByRole loads all members of a role set.
func (s *RedisIdentityStore) ListByRole(ctx context.Context, role core.Role) ([]*core.Identity, error) {
	ids, err := s.client.SMembers(ctx, s.roleKey(role)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list role members: %w", err)
	}

	var out []*core.Identity
	for _, id := range ids {
		identity, err := s.FindByID(ctx, id)
		if err == core.ErrIdentityNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, identity)
	}
	return out, nil
}
