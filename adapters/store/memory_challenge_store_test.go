package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/healingbudsglobal/walletgate/core"
)

const testAddress = "0x1111111111111111111111111111111111111111"

func newChallenge(address string, purpose core.Purpose, nonce string, ttl time.Duration) *core.Challenge {
	now := time.Now()
	return &core.Challenge{
		ID:        nonce + "-id",
		Address:   address,
		Purpose:   purpose,
		Nonce:     nonce,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
}

type MemoryChallengeStoreSuite struct {
	suite.Suite
	store *MemoryChallengeStore
	ctx   context.Context
}

func TestMemoryChallengeStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryChallengeStoreSuite))
}

func (s *MemoryChallengeStoreSuite) SetupTest() {
	s.store = NewMemoryChallengeStore()
	s.ctx = context.Background()
}

func (s *MemoryChallengeStoreSuite) TestGetMissing() {
	_, err := s.store.Get(s.ctx, testAddress, core.PurposeLogin)
	s.Require().ErrorIs(err, core.ErrNonceNotFound)
}

func (s *MemoryChallengeStoreSuite) TestPutReplacesPriorChallenge() {
	first := newChallenge(testAddress, core.PurposeLogin, "nonce-1", time.Minute)
	second := newChallenge(testAddress, core.PurposeLogin, "nonce-2", time.Minute)

	s.Require().NoError(s.store.Put(s.ctx, first))
	s.Require().NoError(s.store.Put(s.ctx, second))

	got, err := s.store.Get(s.ctx, testAddress, core.PurposeLogin)
	s.Require().NoError(err)
	s.Equal("nonce-2", got.Nonce)

	// The replaced nonce is gone entirely.
	_, err = s.store.Consume(s.ctx, testAddress, core.PurposeLogin, "nonce-1", time.Now())
	s.Require().ErrorIs(err, core.ErrNonceNotFound)
}

func (s *MemoryChallengeStoreSuite) TestPurposesAreIndependent() {
	login := newChallenge(testAddress, core.PurposeLogin, "nonce-login", time.Minute)
	link := newChallenge(testAddress, core.PurposeLink, "nonce-link", time.Minute)

	s.Require().NoError(s.store.Put(s.ctx, login))
	s.Require().NoError(s.store.Put(s.ctx, link))

	got, err := s.store.Get(s.ctx, testAddress, core.PurposeLogin)
	s.Require().NoError(err)
	s.Equal("nonce-login", got.Nonce)

	got, err = s.store.Get(s.ctx, testAddress, core.PurposeLink)
	s.Require().NoError(err)
	s.Equal("nonce-link", got.Nonce)
}

func (s *MemoryChallengeStoreSuite) TestConsume() {
	s.Run("consume succeeds once", func() {
		c := newChallenge(testAddress, core.PurposeLogin, "nonce-a", time.Minute)
		s.Require().NoError(s.store.Put(s.ctx, c))

		got, err := s.store.Consume(s.ctx, testAddress, core.PurposeLogin, "nonce-a", time.Now())
		s.Require().NoError(err)
		s.True(got.Consumed)

		_, err = s.store.Consume(s.ctx, testAddress, core.PurposeLogin, "nonce-a", time.Now())
		s.Require().ErrorIs(err, core.ErrNonceAlreadyConsumed)
	})

	s.Run("expired challenge is rejected", func() {
		c := newChallenge(testAddress, core.PurposeLogin, "nonce-b", time.Minute)
		s.Require().NoError(s.store.Put(s.ctx, c))

		_, err := s.store.Consume(s.ctx, testAddress, core.PurposeLogin, "nonce-b", time.Now().Add(2*time.Minute))
		s.Require().ErrorIs(err, core.ErrNonceExpired)
	})

	s.Run("wrong nonce is not found", func() {
		c := newChallenge(testAddress, core.PurposeLogin, "nonce-c", time.Minute)
		s.Require().NoError(s.store.Put(s.ctx, c))

		_, err := s.store.Consume(s.ctx, testAddress, core.PurposeLogin, "other", time.Now())
		s.Require().ErrorIs(err, core.ErrNonceNotFound)
	})
}

func (s *MemoryChallengeStoreSuite) TestDeleteExpired() {
	live := newChallenge(testAddress, core.PurposeLogin, "nonce-live", time.Hour)
	dead := newChallenge("0x2222222222222222222222222222222222222222", core.PurposeLogin, "nonce-dead", -time.Minute)

	s.Require().NoError(s.store.Put(s.ctx, live))
	s.Require().NoError(s.store.Put(s.ctx, dead))

	deleted, err := s.store.DeleteExpired(s.ctx, time.Now())
	s.Require().NoError(err)
	s.Equal(1, deleted)

	_, err = s.store.Get(s.ctx, testAddress, core.PurposeLogin)
	s.Require().NoError(err)
}

// Two concurrent verification attempts against the same nonce: exactly one
// may win the consume.
func TestMemoryChallengeStoreConsumeRace(t *testing.T) {
	store := NewMemoryChallengeStore()
	ctx := context.Background()

	c := newChallenge(testAddress, core.PurposeLogin, "race-nonce", time.Minute)
	require.NoError(t, store.Put(ctx, c))

	const attempts = 32
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Consume(ctx, testAddress, core.PurposeLogin, "race-nonce", time.Now())
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins, replays int
	for err := range results {
		switch {
		case err == nil:
			wins++
		default:
			require.ErrorIs(t, err, core.ErrNonceAlreadyConsumed)
			replays++
		}
	}
	require.Equal(t, 1, wins)
	require.Equal(t, attempts-1, replays)
}
