package oracle

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/healingbudsglobal/walletgate/core"
)

const holderAddress = "0x8ba1f109551bD432803012645Ac136ddd64DBA72"

// fakeCaller returns a fixed balance for every balanceOf call.
type fakeCaller struct {
	balance *big.Int
	lastTo  *common.Address
}

func (f *fakeCaller) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	f.lastTo = call.To
	return common.LeftPadBytes(f.balance.Bytes(), 32), nil
}

func TestChainOracleERC721(t *testing.T) {
	contract := common.HexToAddress("0x000000000000000000000000000000000000dEaD")

	caller := &fakeCaller{balance: big.NewInt(1)}
	oracle, err := NewChainOracle(caller, contract, StandardERC721, decimal.Zero, 0)
	require.NoError(t, err)

	holds, err := oracle.HoldsGatingAsset(context.Background(), holderAddress)
	require.NoError(t, err)
	require.True(t, holds)
	require.Equal(t, contract, *caller.lastTo)

	caller.balance = big.NewInt(0)
	holds, err = oracle.HoldsGatingAsset(context.Background(), holderAddress)
	require.NoError(t, err)
	require.False(t, holds)
}

func TestChainOracleERC20Threshold(t *testing.T) {
	contract := common.HexToAddress("0x000000000000000000000000000000000000dEaD")

	// Threshold of 10 tokens at 18 decimals.
	min := decimal.NewFromInt(10)

	tenTokens, _ := new(big.Int).SetString("10000000000000000000", 10)
	justUnder := new(big.Int).Sub(tenTokens, big.NewInt(1))

	caller := &fakeCaller{balance: tenTokens}
	oracle, err := NewChainOracle(caller, contract, StandardERC20, min, 18)
	require.NoError(t, err)

	holds, err := oracle.HoldsGatingAsset(context.Background(), holderAddress)
	require.NoError(t, err)
	require.True(t, holds, "exactly at threshold counts as holding")

	caller.balance = justUnder
	holds, err = oracle.HoldsGatingAsset(context.Background(), holderAddress)
	require.NoError(t, err)
	require.False(t, holds)
}

func TestChainOracleRejectsBadInput(t *testing.T) {
	_, err := NewChainOracle(&fakeCaller{balance: big.NewInt(0)}, common.Address{}, "erc1155", decimal.Zero, 0)
	require.Error(t, err)

	oracle, err := NewChainOracle(&fakeCaller{balance: big.NewInt(0)}, common.Address{}, StandardERC721, decimal.Zero, 0)
	require.NoError(t, err)

	_, err = oracle.HoldsGatingAsset(context.Background(), "not-an-address")
	require.ErrorIs(t, err, core.ErrInvalidAddress)
}

func TestStaticOracle(t *testing.T) {
	oracle := NewStaticOracle(holderAddress)

	holds, err := oracle.HoldsGatingAsset(context.Background(), core.NormalizeAddress(holderAddress))
	require.NoError(t, err)
	require.True(t, holds)

	holds, err = oracle.HoldsGatingAsset(context.Background(), "0x0000000000000000000000000000000000000001")
	require.NoError(t, err)
	require.False(t, holds)

	oracle.SetHolder(holderAddress, false)
	holds, err = oracle.HoldsGatingAsset(context.Background(), holderAddress)
	require.NoError(t, err)
	require.False(t, holds)
}
