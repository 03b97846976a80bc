package ports

import "context"

// OwnershipOracle answers whether an address holds the gating asset. It is
// an external read-only source of truth queried fresh on every decision;
// results carry no local caching authority.
type OwnershipOracle interface {
	HoldsGatingAsset(ctx context.Context, address string) (bool, error)
}
