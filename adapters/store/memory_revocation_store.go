package store

import (
	"context"
	"sync"
	"time"

	"github.com/healingbudsglobal/walletgate/core"
	"github.com/healingbudsglobal/walletgate/ports"
)

// MemoryRevocationStore is an in-memory implementation of the
// RevocationStore interface.
type MemoryRevocationStore struct {
	invalidatedTokens map[string]time.Time
	revokedAddresses  map[string]time.Time
	mu                sync.RWMutex
}

// NewMemoryRevocationStore creates a new in-memory revocation store
func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{
		invalidatedTokens: make(map[string]time.Time),
		revokedAddresses:  make(map[string]time.Time),
	}
}

var _ ports.RevocationStore = (*MemoryRevocationStore)(nil)

// InvalidateToken marks a token as invalidated until expiry
func (s *MemoryRevocationStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markLocked(s.invalidatedTokens, tokenID, expiry)
	return nil
}

// IsTokenInvalidated checks if a token is invalidated
func (s *MemoryRevocationStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return activeLocked(s.invalidatedTokens, tokenID), nil
}

// RevokeAddress marks every session for an address as revoked until expiry
func (s *MemoryRevocationStore) RevokeAddress(ctx context.Context, address string, expiry time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markLocked(s.revokedAddresses, core.NormalizeAddress(address), expiry)
	return nil
}

// IsAddressRevoked checks if an address is revoked
func (s *MemoryRevocationStore) IsAddressRevoked(ctx context.Context, address string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return activeLocked(s.revokedAddresses, core.NormalizeAddress(address)), nil
}

// markLocked records an entry and schedules its cleanup. The cleanup
// goroutine only deletes if the expiry has not been extended since.
func (s *MemoryRevocationStore) markLocked(entries map[string]time.Time, key string, expiry time.Duration) {
	expiryTime := time.Now().Add(expiry)
	entries[key] = expiryTime

	go func() {
		time.Sleep(expiry)

		s.mu.Lock()
		defer s.mu.Unlock()

		if stored, exists := entries[key]; exists && !stored.After(expiryTime) {
			delete(entries, key)
		}
	}()
}

func activeLocked(entries map[string]time.Time, key string) bool {
	expiryTime, exists := entries[key]
	if !exists {
		return false
	}
	return !time.Now().After(expiryTime)
}
