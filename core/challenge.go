package core

import (
	"strings"
	"time"
)

// Purpose tags what an authentication challenge is for. The set is closed;
// unknown purposes are rejected at the edge.
type Purpose string

const (
	// PurposeLogin authenticates a wallet into the gated portal.
	PurposeLogin Purpose = "login"

	// PurposeLink proves control of a wallet without granting portal access,
	// e.g. attaching a wallet to an existing account.
	PurposeLink Purpose = "link"
)

// ParsePurpose validates a purpose string.
func ParsePurpose(s string) (Purpose, error) {
	switch Purpose(s) {
	case PurposeLogin, PurposeLink:
		return Purpose(s), nil
	default:
		return "", ErrInvalidPurpose
	}
}

// PurposePolicy decides which checks a purpose requires.
type PurposePolicy struct {
	// RequiresHolding gates verification on ownership of the configured
	// on-chain asset.
	RequiresHolding bool
}

// DefaultPurposePolicies is the explicit purpose -> policy table. Logging in
// to the gated surface requires the asset; plain wallet linking does not.
var DefaultPurposePolicies = map[Purpose]PurposePolicy{
	PurposeLogin: {RequiresHolding: true},
	PurposeLink:  {RequiresHolding: false},
}

// Challenge represents a single-use authentication challenge issued for one
// (address, purpose) pair.
type Challenge struct {
	ID        string    // Unique identifier for the challenge
	Address   string    // Wallet address, normalized to lower case
	Purpose   Purpose   // What the challenge authorizes
	Nonce     string    // Random nonce to be signed
	IssuedAt  time.Time // When the challenge was created
	ExpiresAt time.Time // When the challenge expires
	Consumed  bool      // Set once by a successful verification
}

// Expired reports whether the challenge is past its expiry at the given time.
func (c *Challenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// NormalizeAddress lower-cases a wallet address so that store keys and
// signature comparisons are case-insensitive.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
