package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/healingbudsglobal/walletgate/adapters/metrics"
	"github.com/healingbudsglobal/walletgate/core"
	"github.com/healingbudsglobal/walletgate/ports"
)

// Gate evaluates whether a session may enter a protected surface. The
// identity record is re-read on every evaluation; role and verification
// flags are never trusted from a cached copy.
type Gate struct {
	identities ports.IdentityStore
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// GateOption configures optional gate behavior.
type GateOption func(g *Gate)

// WithGateLogger attaches a structured logger.
func WithGateLogger(logger *slog.Logger) GateOption {
	return func(g *Gate) { g.logger = logger }
}

// WithGateMetrics attaches Prometheus counters.
func WithGateMetrics(m *metrics.Metrics) GateOption {
	return func(g *Gate) { g.metrics = m }
}

// NewGate creates a new access gate.
func NewGate(identities ports.IdentityStore, opts ...GateOption) *Gate {
	g := &Gate{
		identities: identities,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Evaluate decides access for a session, in order: session present, admin
// role bypass, then KYC-verified and admin-approved. Every input resolves
// before a decision is returned; an error means no decision could be made.
func (g *Gate) Evaluate(ctx context.Context, session *core.Session) (core.GateDecision, error) {
	if session == nil {
		return g.deny(core.GateDenyNoSession), nil
	}

	identity, err := g.identities.FindByID(ctx, session.IdentityID)
	if err != nil {
		if errors.Is(err, core.ErrIdentityNotFound) {
			// A session without a backing identity cannot be trusted.
			return g.deny(core.GateDenyNoSession), nil
		}
		return core.GateDenyNoSession, fmt.Errorf("identity lookup failed: %w", err)
	}

	if identity.Role == core.RoleAdmin {
		return core.GateAllow, nil
	}

	if identity.KYCVerified && identity.AdminApproved {
		return core.GateAllow, nil
	}

	g.logger.Debug("gate denied", "identity", identity.ID, "kyc", identity.KYCVerified, "approved", identity.AdminApproved)
	return g.deny(core.GateDenyUnverified), nil
}

func (g *Gate) deny(decision core.GateDecision) core.GateDecision {
	if g.metrics != nil {
		g.metrics.GateDenials.WithLabelValues(decision.String()).Inc()
	}
	return decision
}
