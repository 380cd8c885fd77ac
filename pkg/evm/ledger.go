// Package evm provides the lightweight ledger executor used by cmd/ptebench
// and the engine's own tests as a stand-in for a full go-ethereum VM: an
// injected ExecutorFunc that understands plain value transfers and nonce
// bumps against a snapshot.View, using go-ethereum's own address/balance
// types so a caller holding real accounts needs no conversion layer.
package evm

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/lightchain-engine/pte/pkg/access"
	"github.com/lightchain-engine/pte/pkg/execution"
	"github.com/lightchain-engine/pte/pkg/snapshot"
)

// ErrInsufficientBalance names the case where the sender's balance cannot
// cover the transfer. That is an ordinary business rejection, not an
// executor fault: Run reports it as success=false with a nil error and
// never returns this value.
var ErrInsufficientBalance = fmt.Errorf("evm: insufficient balance")

// Transfer is the Transaction shape the LedgerExecutor understands: a
// plain value transfer with a nonce check, standing in for a signed
// go-ethereum *types.Transaction without needing a live chain to validate
// one.
type Transfer struct {
	From, To common.Address
	Value    *uint256.Int
	Nonce    uint64
	GasLimit uint64
}

// LedgerExecutor is an execution.ExecutorFunc-compatible in-memory account
// ledger: balances and nonces live in snapshot state under access.Balance
// and access.Nonce locations, exactly as the real Access-Set Tracker
// expects a transaction to touch them.
type LedgerExecutor struct{}

// Run executes one Transfer against view. It satisfies execution.ExecutorFunc.
func (LedgerExecutor) Run(_ context.Context, tx execution.Transaction, view snapshot.View) (bool, uint64, []byte, error) {
	t, ok := tx.(Transfer)
	if !ok {
		return false, 0, nil, fmt.Errorf("evm: unsupported transaction type %T", tx)
	}

	nonceLoc := access.Nonce(t.From)
	nonceVal, _ := view.Read(nonceLoc)
	nonce, _ := nonceVal.(uint64)
	if nonce != t.Nonce {
		return false, t.GasLimit, nil, nil
	}

	fromLoc := access.Balance(t.From)
	fromVal, _ := view.Read(fromLoc)
	fromBal, _ := fromVal.(*uint256.Int)
	if fromBal == nil {
		fromBal = uint256.NewInt(0)
	}
	if fromBal.Lt(t.Value) {
		return false, t.GasLimit, nil, nil
	}

	toLoc := access.Balance(t.To)
	toVal, _ := view.Read(toLoc)
	toBal, _ := toVal.(*uint256.Int)
	if toBal == nil {
		toBal = uint256.NewInt(0)
	}

	newFrom := new(uint256.Int).Sub(fromBal, t.Value)
	newTo := new(uint256.Int).Add(toBal, t.Value)

	view.Write(fromLoc, newFrom, false)
	view.Write(toLoc, newTo, false)
	view.Write(nonceLoc, nonce+1, false)

	return true, 21000, nil, nil
}

// SeedAccount installs an account's starting balance and nonce directly
// into canonical state, bypassing the overlay/commit path. Test and demo
// setup only, mirroring snapshot.Manager.Seed's own contract.
func SeedAccount(m *snapshot.Manager, addr common.Address, balance *uint256.Int, nonce uint64) {
	m.Seed(access.Balance(addr), balance)
	m.Seed(access.Nonce(addr), nonce)
}

// BalanceOf reads an account's current canonical balance, or zero if the
// account has never been seeded or credited.
func BalanceOf(m *snapshot.Manager, addr common.Address) *uint256.Int {
	v, ok := m.Get(access.Balance(addr))
	if !ok {
		return uint256.NewInt(0)
	}
	b, _ := v.(*uint256.Int)
	if b == nil {
		return uint256.NewInt(0)
	}
	return b
}
