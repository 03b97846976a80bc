package store

import (
	"context"
	"sync"
	"time"

	"github.com/healingbudsglobal/walletgate/core"
	"github.com/healingbudsglobal/walletgate/ports"
)

// MemoryExchangeStore is an in-memory implementation of the
// ExchangeTokenStore interface.
type MemoryExchangeStore struct {
	tokens map[string]*core.ExchangeToken
	mu     sync.Mutex
}

// NewMemoryExchangeStore creates a new in-memory exchange token store
func NewMemoryExchangeStore() *MemoryExchangeStore {
	return &MemoryExchangeStore{
		tokens: make(map[string]*core.ExchangeToken),
	}
}

var _ ports.ExchangeTokenStore = (*MemoryExchangeStore)(nil)

// Put stores a freshly minted token.
func (s *MemoryExchangeStore) Put(ctx context.Context, token *core.ExchangeToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *token
	s.tokens[token.Token] = &cp
	return nil
}

// Redeem removes and returns the token. Deleting under the lock makes the
// second of two racing redemptions observe core.ErrExchangeTokenInvalid.
func (s *MemoryExchangeStore) Redeem(ctx context.Context, token string, now time.Time) (*core.ExchangeToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.tokens[token]
	if !ok {
		return nil, core.ErrExchangeTokenInvalid
	}
	delete(s.tokens, token)

	if record.Expired(now) {
		return nil, core.ErrExchangeTokenInvalid
	}
	cp := *record
	return &cp, nil
}
