package chain

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-stake/pkg/block"
	"github.com/Klingon-tech/klingnet-stake/pkg/tx"
	"github.com/Klingon-tech/klingnet-stake/pkg/types"
)

// CreateGenesisBlock builds the genesis block: height 0, a zero PrevHash,
// and a single coinbase transaction paying out the initial allocations.
func CreateGenesisBlock(timestamp uint32, alloc []tx.Output) (*block.Block, error) {
	if timestamp == 0 {
		return nil, fmt.Errorf("genesis timestamp is zero")
	}

	// If no allocations, create a single burn output so the block has a valid tx.
	outputs := alloc
	if len(outputs) == 0 {
		outputs = []tx.Output{{
			Value:  1,
			Script: types.Script{Type: types.ScriptTypeBurn},
		}}
	}

	coinbase := &tx.Transaction{
		Version: 1,
		Time:    timestamp,
		Inputs:  []tx.Input{{PrevOut: types.Outpoint{}}},
		Outputs: outputs,
	}

	header := &block.Header{
		Version:    block.CurrentVersion,
		PrevHash:   types.Hash{}, // Zero for genesis.
		MerkleRoot: block.ComputeMerkleRoot([]types.Hash{coinbase.Hash()}),
		Timestamp:  timestamp,
		Height:     0,
	}
	return block.NewBlock(header, []*tx.Transaction{coinbase}), nil
}
