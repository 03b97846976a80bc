package oracle

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/healingbudsglobal/walletgate/core"
	"github.com/healingbudsglobal/walletgate/ports"
)

// AssetStandard selects how the gating contract's balance is interpreted.
type AssetStandard string

const (
	// StandardERC721 gates on owning at least one token.
	StandardERC721 AssetStandard = "erc721"

	// StandardERC20 gates on a minimum balance threshold.
	StandardERC20 AssetStandard = "erc20"
)

// balanceOfABI covers the one view shared by ERC-20 and ERC-721.
const balanceOfABI = `[{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}]`

// ContractCaller is the slice of the chain client the oracle needs.
// *ethclient.Client satisfies it.
type ContractCaller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// ChainOracle answers holdings queries against the chain on every call.
// Nothing is cached; the chain stays the source of truth.
type ChainOracle struct {
	caller   ContractCaller
	contract common.Address
	standard AssetStandard
	parsed   abi.ABI

	// ERC-20 only: minimum balance in whole tokens, and the token's decimals
	// used to scale the raw balance.
	minBalance decimal.Decimal
	decimals   int32
}

// NewChainOracle creates an oracle for the given gating contract.
func NewChainOracle(caller ContractCaller, contract common.Address, standard AssetStandard, minBalance decimal.Decimal, decimals int32) (*ChainOracle, error) {
	parsed, err := abi.JSON(strings.NewReader(balanceOfABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse balanceOf ABI: %w", err)
	}

	switch standard {
	case StandardERC721, StandardERC20:
	default:
		return nil, fmt.Errorf("unsupported asset standard %q", standard)
	}

	return &ChainOracle{
		caller:     caller,
		contract:   contract,
		standard:   standard,
		parsed:     parsed,
		minBalance: minBalance,
		decimals:   decimals,
	}, nil
}

var _ ports.OwnershipOracle = (*ChainOracle)(nil)

// HoldsGatingAsset queries balanceOf for the address and applies the
// standard's holding rule.
func (o *ChainOracle) HoldsGatingAsset(ctx context.Context, address string) (bool, error) {
	if !common.IsHexAddress(address) {
		return false, core.ErrInvalidAddress
	}

	input, err := o.parsed.Pack("balanceOf", common.HexToAddress(address))
	if err != nil {
		return false, fmt.Errorf("failed to pack balanceOf call: %w", err)
	}

	out, err := o.caller.CallContract(ctx, ethereum.CallMsg{To: &o.contract, Data: input}, nil)
	if err != nil {
		return false, fmt.Errorf("balanceOf call failed: %w", err)
	}

	results, err := o.parsed.Unpack("balanceOf", out)
	if err != nil {
		return false, fmt.Errorf("failed to unpack balanceOf result: %w", err)
	}
	balance, ok := results[0].(*big.Int)
	if !ok {
		return false, fmt.Errorf("unexpected balanceOf result type %T", results[0])
	}

	switch o.standard {
	case StandardERC20:
		held := decimal.NewFromBigInt(balance, -o.decimals)
		return held.GreaterThanOrEqual(o.minBalance), nil
	default:
		return balance.Sign() > 0, nil
	}
}
