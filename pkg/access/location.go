// Package access tracks the state locations a transaction attempt reads and
// writes, and exposes the resulting access set to the dependency graph
// builder.
package access

import "github.com/ethereum/go-ethereum/common"

// Kind distinguishes the flavor of a Location so that two locations only
// ever compare equal when they denote the same kind of thing at the same
// address. Without the tag, e.g. an account location and a balance location
// for the same address would collide.
type Kind uint8

const (
	KindAccount Kind = iota
	KindStorage
	KindCode
	KindBalance
	KindNonce
)

func (k Kind) String() string {
	switch k {
	case KindAccount:
		return "account"
	case KindStorage:
		return "storage"
	case KindCode:
		return "code"
	case KindBalance:
		return "balance"
	case KindNonce:
		return "nonce"
	default:
		return "unknown"
	}
}

// Location is a single state cell a transaction may read or write. It is a
// plain comparable value so it can be used directly as a map key and inside
// a mapset.Set without boxing.
type Location struct {
	Kind Kind
	Addr common.Address
	Slot common.Hash // only meaningful when Kind == KindStorage
}

// Account builds a Location denoting the existence/metadata of an account.
func Account(addr common.Address) Location { return Location{Kind: KindAccount, Addr: addr} }

// Storage builds a Location denoting a single contract-storage cell.
func Storage(addr common.Address, slot common.Hash) Location {
	return Location{Kind: KindStorage, Addr: addr, Slot: slot}
}

// Code builds a Location denoting an account's code.
func Code(addr common.Address) Location { return Location{Kind: KindCode, Addr: addr} }

// Balance builds a Location denoting an account's balance.
func Balance(addr common.Address) Location { return Location{Kind: KindBalance, Addr: addr} }

// Nonce builds a Location denoting an account's nonce.
func Nonce(addr common.Address) Location { return Location{Kind: KindNonce, Addr: addr} }
