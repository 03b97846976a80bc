package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/healingbudsglobal/walletgate/core"
	"github.com/healingbudsglobal/walletgate/ports"
)

// Revoker invalidates all sessions of an address. *AuthService satisfies it.
type Revoker interface {
	RevokeAddress(ctx context.Context, address string) error
}

// Refresher periodically re-checks gating-asset holdings for admin
// identities and revokes sessions of addresses that sold or transferred the
// asset. The check is idempotent; running it twice in a row has the same
// effect as once.
type Refresher struct {
	identities ports.IdentityStore
	oracle     ports.OwnershipOracle
	revoker    Revoker
	eventPub   ports.EventPublisher

	interval time.Duration
	logger   *slog.Logger
}

// NewRefresher creates a refresher with the given check interval.
func NewRefresher(identities ports.IdentityStore, oracle ports.OwnershipOracle, revoker Revoker, eventPub ports.EventPublisher, interval time.Duration, logger *slog.Logger) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{
		identities: identities,
		oracle:     oracle,
		revoker:    revoker,
		eventPub:   eventPub,
		interval:   interval,
		logger:     logger,
	}
}

// Run checks holdings on the configured interval until ctx is cancelled.
func (r *Refresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.CheckOnce(ctx); err != nil {
				r.logger.Error("holdings re-check failed", "error", err)
			}
		}
	}
}

// CheckOnce performs a single holdings sweep over admin identities.
func (r *Refresher) CheckOnce(ctx context.Context) error {
	admins, err := r.identities.ListByRole(ctx, core.RoleAdmin)
	if err != nil {
		return err
	}

	for _, identity := range admins {
		holds, err := r.oracle.HoldsGatingAsset(ctx, identity.Address)
		if err != nil {
			// An oracle outage must not revoke anyone.
			r.logger.Warn("holdings query failed, skipping", "address", identity.Address, "error", err)
			continue
		}
		if holds {
			continue
		}

		if err := r.revoker.RevokeAddress(ctx, identity.Address); err != nil {
			r.logger.Error("failed to revoke address", "address", identity.Address, "error", err)
			continue
		}
		if err := r.eventPub.PublishHoldingsLost(ctx, identity.Address); err != nil {
			r.logger.Warn("failed to publish holdings-lost event", "error", err)
		}
		r.logger.Info("revoked sessions after holdings loss", "address", identity.Address)
	}

	return nil
}
