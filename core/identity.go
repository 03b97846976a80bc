package core

import "time"

// Role classifies an identity within the portal.
type Role string

const (
	RolePatient Role = "patient"
	RoleAdmin   Role = "admin"
)

// Identity is the durable record a verified wallet resolves to. Role and
// verification flags are authoritative only when read from the identity
// store at decision time; they are never cached by callers.
type Identity struct {
	ID            string    // Unique identifier
	Address       string    // Wallet address, normalized
	Role          Role      // Portal role
	KYCVerified   bool      // Identity verification completed
	AdminApproved bool      // Manually approved by an administrator
	CreatedAt     time.Time // When the record was first created
}

// GateDecision is the outcome of evaluating the access gate for a session.
type GateDecision int

const (
	// GateAllow renders the protected view.
	GateAllow GateDecision = iota

	// GateDenyNoSession redirects to the authentication entry point.
	GateDenyNoSession

	// GateDenyUnverified redirects to the verification status page.
	GateDenyUnverified
)

func (d GateDecision) String() string {
	switch d {
	case GateAllow:
		return "allow"
	case GateDenyNoSession:
		return "no_session"
	case GateDenyUnverified:
		return "unverified"
	default:
		return "unknown"
	}
}
