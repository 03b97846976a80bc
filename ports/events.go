package ports

import "context"

// EventPublisher notifies other instances about auth lifecycle changes
type EventPublisher interface {
	// PublishLogin announces an established session for an address.
	PublishLogin(ctx context.Context, address, identityID string) error

	// PublishLogout announces an invalidated refresh token.
	PublishLogout(ctx context.Context, address, tokenID string) error

	// PublishHoldingsLost announces that an address no longer holds the
	// gating asset and its sessions were revoked.
	PublishHoldingsLost(ctx context.Context, address string) error
}
