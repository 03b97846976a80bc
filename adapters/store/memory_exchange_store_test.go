package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/healingbudsglobal/walletgate/core"
)

func newExchangeToken(value string, ttl time.Duration) *core.ExchangeToken {
	now := time.Now()
	return &core.ExchangeToken{
		Token:      value,
		Address:    testAddress,
		IdentityID: "identity-1",
		Purpose:    core.PurposeLogin,
		IssuedAt:   now,
		ExpiresAt:  now.Add(ttl),
	}
}

func TestMemoryExchangeStoreRedeemOnce(t *testing.T) {
	store := NewMemoryExchangeStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, newExchangeToken("tok-1", time.Minute)))

	got, err := store.Redeem(ctx, "tok-1", time.Now())
	require.NoError(t, err)
	require.Equal(t, "identity-1", got.IdentityID)

	_, err = store.Redeem(ctx, "tok-1", time.Now())
	require.ErrorIs(t, err, core.ErrExchangeTokenInvalid)
}

func TestMemoryExchangeStoreUnknownToken(t *testing.T) {
	store := NewMemoryExchangeStore()

	_, err := store.Redeem(context.Background(), "nope", time.Now())
	require.ErrorIs(t, err, core.ErrExchangeTokenInvalid)
}

func TestMemoryExchangeStoreExpiredToken(t *testing.T) {
	store := NewMemoryExchangeStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, newExchangeToken("tok-exp", time.Minute)))

	_, err := store.Redeem(ctx, "tok-exp", time.Now().Add(2*time.Minute))
	require.ErrorIs(t, err, core.ErrExchangeTokenInvalid)

	// Expired redemption still burns the token.
	_, err = store.Redeem(ctx, "tok-exp", time.Now())
	require.ErrorIs(t, err, core.ErrExchangeTokenInvalid)
}

func TestMemoryExchangeStoreRedeemRace(t *testing.T) {
	store := NewMemoryExchangeStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, newExchangeToken("tok-race", time.Minute)))

	const attempts = 32
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Redeem(ctx, "tok-race", time.Now())
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins int
	for err := range results {
		if err == nil {
			wins++
		} else {
			require.ErrorIs(t, err, core.ErrExchangeTokenInvalid)
		}
	}
	require.Equal(t, 1, wins)
}
