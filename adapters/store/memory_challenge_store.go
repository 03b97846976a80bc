package store

import (
	"context"
	"sync"
	"time"

	"github.com/healingbudsglobal/walletgate/core"
	"github.com/healingbudsglobal/walletgate/ports"
)

type challengeKey struct {
	address string
	purpose core.Purpose
}

// MemoryChallengeStore is an in-memory implementation of the ChallengeStore
// interface, keyed by (address, purpose).
type MemoryChallengeStore struct {
	challenges map[challengeKey]*core.Challenge
	mu         sync.RWMutex
}

// NewMemoryChallengeStore creates a new in-memory challenge store
func NewMemoryChallengeStore() *MemoryChallengeStore {
	return &MemoryChallengeStore{
		challenges: make(map[challengeKey]*core.Challenge),
	}
}

var _ ports.ChallengeStore = (*MemoryChallengeStore)(nil)

// Put stores a challenge, replacing any prior one for the same pair so stale
// nonces never accumulate.
func (s *MemoryChallengeStore) Put(ctx context.Context, challenge *core.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *challenge
	s.challenges[challengeKey{address: challenge.Address, purpose: challenge.Purpose}] = &cp
	return nil
}

// Get returns the stored challenge for the pair regardless of state.
func (s *MemoryChallengeStore) Get(ctx context.Context, address string, purpose core.Purpose) (*core.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	challenge, ok := s.challenges[challengeKey{address: address, purpose: purpose}]
	if !ok {
		return nil, core.ErrNonceNotFound
	}
	cp := *challenge
	return &cp, nil
}

// Consume atomically marks the challenge consumed. The mutex guarantees two
// racing calls for the same nonce cannot both succeed.
func (s *MemoryChallengeStore) Consume(ctx context.Context, address string, purpose core.Purpose, nonce string, now time.Time) (*core.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	challenge, ok := s.challenges[challengeKey{address: address, purpose: purpose}]
	if !ok || challenge.Nonce != nonce {
		return nil, core.ErrNonceNotFound
	}
	if challenge.Consumed {
		return nil, core.ErrNonceAlreadyConsumed
	}
	if challenge.Expired(now) {
		return nil, core.ErrNonceExpired
	}

	challenge.Consumed = true
	cp := *challenge
	return &cp, nil
}

// DeleteExpired removes challenges past their expiry.
func (s *MemoryChallengeStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for key, challenge := range s.challenges {
		if challenge.Expired(now) {
			delete(s.challenges, key)
			deleted++
		}
	}
	return deleted, nil
}
