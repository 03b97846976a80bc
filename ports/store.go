package ports

import (
	"context"
	"time"

	"github.com/healingbudsglobal/walletgate/core"
)

// ChallengeStore persists outstanding authentication challenges. At most one
// unconsumed challenge exists per (address, purpose) pair; Put replaces any
// prior one.
type ChallengeStore interface {
	// Put stores a challenge, replacing an existing one for the same pair.
	Put(ctx context.Context, challenge *core.Challenge) error

	// Get returns the stored challenge for the pair regardless of its
	// consumed or expired state, or core.ErrNonceNotFound.
	Get(ctx context.Context, address string, purpose core.Purpose) (*core.Challenge, error)

	// Consume atomically marks the challenge consumed. It fails with
	// core.ErrNonceNotFound, core.ErrNonceExpired or
	// core.ErrNonceAlreadyConsumed; under concurrent calls for the same
	// nonce exactly one succeeds.
	Consume(ctx context.Context, address string, purpose core.Purpose, nonce string, now time.Time) (*core.Challenge, error)

	// DeleteExpired garbage-collects challenges past their expiry.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// ExchangeTokenStore persists one-time session-exchange tokens.
type ExchangeTokenStore interface {
	// Put stores a freshly minted token.
	Put(ctx context.Context, token *core.ExchangeToken) error

	// Redeem atomically consumes the token. A second redemption of the same
	// value fails with core.ErrExchangeTokenInvalid, as does redemption
	// after expiry.
	Redeem(ctx context.Context, token string, now time.Time) (*core.ExchangeToken, error)
}

// IdentityStore persists identity records keyed by wallet address.
type IdentityStore interface {
	Save(ctx context.Context, identity *core.Identity) error
	FindByAddress(ctx context.Context, address string) (*core.Identity, error)
	FindByID(ctx context.Context, id string) (*core.Identity, error)

	// ListByRole returns all identities with the given role. Used by the
	// periodic holdings re-check.
	ListByRole(ctx context.Context, role core.Role) ([]*core.Identity, error)
}

// RevocationStore tracks invalidated session tokens and revoked addresses.
type RevocationStore interface {
	InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error
	IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error)

	// RevokeAddress invalidates every session for an address until expiry.
	RevokeAddress(ctx context.Context, address string, expiry time.Duration) error
	IsAddressRevoked(ctx context.Context, address string) (bool, error)
}
