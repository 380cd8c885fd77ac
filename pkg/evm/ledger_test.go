package evm

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/lightchain-engine/pte/pkg/execution"
	"github.com/lightchain-engine/pte/pkg/snapshot"
)

func addr(i int64) common.Address { return common.BigToAddress(big.NewInt(i)) }

func TestLedgerExecutorTransferSucceeds(t *testing.T) {
	base := snapshot.NewManager()
	from, to := addr(1), addr(2)
	SeedAccount(base, from, uint256.NewInt(100), 0)
	SeedAccount(base, to, uint256.NewInt(0), 0)

	overlay := base.Child(nil)
	var exec LedgerExecutor
	ok, gas, _, err := exec.Run(context.Background(), Transfer{From: from, To: to, Value: uint256.NewInt(40), Nonce: 0, GasLimit: 21000}, overlay)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(21000), gas)

	require.NoError(t, base.Commit(overlay))
	require.Equal(t, uint256.NewInt(60), BalanceOf(base, from))
	require.Equal(t, uint256.NewInt(40), BalanceOf(base, to))
}

func TestLedgerExecutorRejectsInsufficientBalance(t *testing.T) {
	base := snapshot.NewManager()
	from, to := addr(1), addr(2)
	SeedAccount(base, from, uint256.NewInt(10), 0)
	SeedAccount(base, to, uint256.NewInt(0), 0)

	overlay := base.Child(nil)
	var exec LedgerExecutor
	ok, _, _, err := exec.Run(context.Background(), Transfer{From: from, To: to, Value: uint256.NewInt(40), Nonce: 0, GasLimit: 21000}, overlay)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLedgerExecutorRejectsStaleNonce(t *testing.T) {
	base := snapshot.NewManager()
	from, to := addr(1), addr(2)
	SeedAccount(base, from, uint256.NewInt(100), 5)
	SeedAccount(base, to, uint256.NewInt(0), 0)

	overlay := base.Child(nil)
	var exec LedgerExecutor
	ok, _, _, err := exec.Run(context.Background(), Transfer{From: from, To: to, Value: uint256.NewInt(1), Nonce: 0, GasLimit: 21000}, overlay)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLedgerExecutorRejectsUnsupportedTransaction(t *testing.T) {
	base := snapshot.NewManager()
	overlay := base.Child(nil)
	var exec LedgerExecutor
	_, _, _, err := exec.Run(context.Background(), "not a transfer", overlay)
	require.Error(t, err)
}

func TestLedgerExecutorThroughExecuteBatch(t *testing.T) {
	base := snapshot.NewManager()
	a, b, c := addr(1), addr(2), addr(3)
	SeedAccount(base, a, uint256.NewInt(100), 0)
	SeedAccount(base, b, uint256.NewInt(0), 0)
	SeedAccount(base, c, uint256.NewInt(0), 0)

	var exec LedgerExecutor
	batch := []execution.Transaction{
		Transfer{From: a, To: b, Value: uint256.NewInt(10), Nonce: 0, GasLimit: 21000},
		Transfer{From: a, To: c, Value: uint256.NewInt(5), Nonce: 1, GasLimit: 21000},
	}

	e := execution.New(execution.DefaultConfig())
	out, err := e.ExecuteBatch(context.Background(), batch, base, exec.Run)
	require.NoError(t, err)
	require.Equal(t, 2, out.Stats.WaveCount, "both transfers debit the same account and must serialize")

	require.Equal(t, uint256.NewInt(85), BalanceOf(base, a))
	require.Equal(t, uint256.NewInt(10), BalanceOf(base, b))
	require.Equal(t, uint256.NewInt(5), BalanceOf(base, c))
}
