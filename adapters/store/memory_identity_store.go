package store

import (
	"context"
	"sync"

	"github.com/healingbudsglobal/walletgate/core"
	"github.com/healingbudsglobal/walletgate/ports"
)

// MemoryIdentityStore is an in-memory implementation of the IdentityStore
// interface.
type MemoryIdentityStore struct {
	byAddress map[string]*core.Identity
	byID      map[string]*core.Identity
	mu        sync.RWMutex
}

// NewMemoryIdentityStore creates a new in-memory identity store
func NewMemoryIdentityStore() *MemoryIdentityStore {
	return &MemoryIdentityStore{
		byAddress: make(map[string]*core.Identity),
		byID:      make(map[string]*core.Identity),
	}
}

var _ ports.IdentityStore = (*MemoryIdentityStore)(nil)

// Save stores or updates an identity record.
func (s *MemoryIdentityStore) Save(ctx context.Context, identity *core.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *identity
	s.byAddress[identity.Address] = &cp
	s.byID[identity.ID] = &cp
	return nil
}

// FindByAddress returns the identity for a normalized address.
func (s *MemoryIdentityStore) FindByAddress(ctx context.Context, address string) (*core.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	identity, ok := s.byAddress[address]
	if !ok {
		return nil, core.ErrIdentityNotFound
	}
	cp := *identity
	return &cp, nil
}

// FindByID returns the identity with the given ID.
func (s *MemoryIdentityStore) FindByID(ctx context.Context, id string) (*core.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	identity, ok := s.byID[id]
	if !ok {
		return nil, core.ErrIdentityNotFound
	}
	cp := *identity
	return &cp, nil
}

// ListByRole returns all identities with the given role.
func (s *MemoryIdentityStore) ListByRole(ctx context.Context, role core.Role) ([]*core.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*core.Identity
	for _, identity := range s.byID {
		if identity.Role == role {
			cp := *identity
			out = append(out, &cp)
		}
	}
	return out, nil
}
