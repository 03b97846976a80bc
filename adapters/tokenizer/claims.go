package tokenizer

import "github.com/golang-jwt/jwt/v5"

// AccessClaims combines standard claims with access-specific ones
type AccessClaims struct {
	jwt.RegisteredClaims
	IdentityID string `json:"idn"` // Identity the session belongs to
	Role       string `json:"role"`
	RefreshID  string `json:"rid"` // ID of the paired refresh token
}

// RefreshClaims carry the identity alongside the standard claims so a
// refresh can rebuild the session without a store round trip
type RefreshClaims struct {
	jwt.RegisteredClaims
	IdentityID string `json:"idn"`
	Role       string `json:"role"`
}
