package core

import "errors"

var (
	// ErrInvalidAddress is returned when a wallet address is malformed
	ErrInvalidAddress = errors.New("invalid wallet address")

	// ErrInvalidPurpose is returned when a purpose is not in the closed set
	ErrInvalidPurpose = errors.New("invalid purpose")

	// ErrRateLimited is returned when an address requests challenges too frequently
	ErrRateLimited = errors.New("too many challenge requests")

	// ErrNonceNotFound is returned when no challenge exists for the pair
	ErrNonceNotFound = errors.New("nonce not found")

	// ErrNonceExpired is returned when the challenge is past its expiry
	ErrNonceExpired = errors.New("nonce has expired")

	// ErrNonceAlreadyConsumed is returned on replay of a redeemed nonce
	ErrNonceAlreadyConsumed = errors.New("nonce already consumed")

	// ErrSignatureMismatch is returned when the recovered signer does not
	// match the claimed address, or the submitted message deviates from the
	// issued one
	ErrSignatureMismatch = errors.New("signature mismatch")

	// ErrAccessDenied is returned when the verified address does not hold
	// the gating asset
	ErrAccessDenied = errors.New("access denied")

	// ErrExchangeTokenInvalid is returned when a session-exchange token is
	// unknown or already redeemed
	ErrExchangeTokenInvalid = errors.New("exchange token invalid or already redeemed")

	// ErrSessionCreationFailed is returned when redemption cannot establish
	// a durable session
	ErrSessionCreationFailed = errors.New("session creation failed")

	// ErrTokenExpired is returned when a session token has expired
	ErrTokenExpired = errors.New("token has expired")

	// ErrTokenInvalidated is returned when a session token has been revoked
	ErrTokenInvalidated = errors.New("token has been invalidated")

	// ErrInvalidToken is returned when a session token is malformed
	ErrInvalidToken = errors.New("invalid token")

	// ErrIdentityNotFound is returned when no identity record exists
	ErrIdentityNotFound = errors.New("identity not found")
)
