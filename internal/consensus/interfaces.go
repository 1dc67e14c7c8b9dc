// Package consensus implements proof-of-stake kernel validation.
//
// Everything here is a synchronous function of its explicit inputs: the
// consensus parameters, the prospective parent block, and a read-only view
// of the coin set. Chain storage, the coin set and the script engine are
// reached only through the interfaces below.
package consensus

import (
	"github.com/Klingon-tech/klingnet-stake/internal/utxo"
	"github.com/Klingon-tech/klingnet-stake/pkg/tx"
	"github.com/Klingon-tech/klingnet-stake/pkg/types"
)

// CoinView provides read access to the coin set.
//
// GetCoin returns (nil, false, nil) when the outpoint was never created or
// has been pruned. A spent coin that is still retained is returned with
// Spent set.
type CoinView interface {
	GetCoin(op types.Outpoint) (*utxo.Coin, bool, error)
}

// BlockRef is a handle on a block in the block index.
type BlockRef interface {
	Height() uint64
	Time() uint32
	StakeModifier() types.StakeModifier
	// DataPos is where the block's data lives in the block store.
	DataPos() types.DiskPos
	// Ancestor returns the ancestor at the given height, or false when the
	// height is above this block or the index does not hold it.
	Ancestor(height uint64) (BlockRef, bool)
}

// ScriptVerifier checks an input's unlocking data against the locking
// script of the coin it spends.
type ScriptVerifier interface {
	VerifyInput(t *tx.Transaction, index int, lock types.Script) error
}
