package core

import "time"

// ExchangeToken is the one-time credential bridging a successful
// verification to a durable session. It is redeemed atomically exactly once.
type ExchangeToken struct {
	Token      string    // Unguessable one-time value
	Address    string    // Verified wallet address, normalized
	IdentityID string    // Identity the session will attach to
	Purpose    Purpose   // Purpose the verification was performed for
	IssuedAt   time.Time // When the token was minted
	ExpiresAt  time.Time // When the token becomes unredeemable
}

// Expired reports whether the token is past its expiry at the given time.
func (t *ExchangeToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// Session represents an authenticated user session.
type Session struct {
	ID            string    // Unique session identifier
	Address       string    // Wallet address, normalized
	IdentityID    string    // Identity record the session belongs to
	Role          Role      // Role snapshot at session creation
	IssuedAt      time.Time // When the session was created
	RefreshExpiry time.Time // When the refresh capability expires
	AccessExpiry  time.Time // When the access capability expires
	RefreshID     string    // Unique identifier for the refresh token
}
