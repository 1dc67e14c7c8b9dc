// Package utxo manages the coin set.
package utxo

import "github.com/Klingon-tech/klingnet-stake/pkg/types"

// Coin is a transaction output together with where and when it was created.
//
// Time is the timestamp of the block that created the coin; the stake
// kernel hashes it as the coin's origin time. Spent coins stay readable
// until pruned so lookups can report them as spent rather than missing.
type Coin struct {
	Outpoint    types.Outpoint `json:"outpoint"`
	Value       uint64         `json:"value"`
	Script      types.Script   `json:"script"`
	Height      uint64         `json:"height"`
	Time        uint32         `json:"time"`
	Coinbase    bool           `json:"coinbase,omitempty"`
	CoinStake   bool           `json:"coinstake,omitempty"`
	Spent       bool           `json:"spent,omitempty"`
	SpentHeight uint64         `json:"spent_height,omitempty"`
}

// IsSpendable reports whether the coin can still be spent.
func (c *Coin) IsSpendable() bool {
	return !c.Spent && c.Script.Type != types.ScriptTypeBurn
}

// Set is the interface for coin storage.
type Set interface {
	Get(outpoint types.Outpoint) (*Coin, error)
	Put(coin *Coin) error
	Delete(outpoint types.Outpoint) error
	Has(outpoint types.Outpoint) (bool, error)
}
