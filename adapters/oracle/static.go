package oracle

import (
	"context"
	"sync"

	"github.com/healingbudsglobal/walletgate/core"
	"github.com/healingbudsglobal/walletgate/ports"
)

// StaticOracle answers from a fixed allowlist. Used in development and
// tests when no chain endpoint is configured.
type StaticOracle struct {
	mu      sync.RWMutex
	holders map[string]bool
}

// NewStaticOracle creates an oracle treating the given addresses as holders.
func NewStaticOracle(holders ...string) *StaticOracle {
	o := &StaticOracle{holders: make(map[string]bool)}
	for _, address := range holders {
		o.holders[core.NormalizeAddress(address)] = true
	}
	return o
}

var _ ports.OwnershipOracle = (*StaticOracle)(nil)

// HoldsGatingAsset reports membership in the allowlist.
func (o *StaticOracle) HoldsGatingAsset(ctx context.Context, address string) (bool, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.holders[core.NormalizeAddress(address)], nil
}

// SetHolder adds or removes an address from the allowlist.
func (o *StaticOracle) SetHolder(address string, holds bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if holds {
		o.holders[core.NormalizeAddress(address)] = true
	} else {
		delete(o.holders, core.NormalizeAddress(address))
	}
}
