// Package chain implements the proof-of-stake block chain state machine.
package chain

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Klingon-tech/klingnet-stake/config"
	"github.com/Klingon-tech/klingnet-stake/internal/consensus"
	"github.com/Klingon-tech/klingnet-stake/internal/log"
	"github.com/Klingon-tech/klingnet-stake/internal/storage"
	"github.com/Klingon-tech/klingnet-stake/internal/utxo"
	"github.com/Klingon-tech/klingnet-stake/pkg/block"
	"github.com/Klingon-tech/klingnet-stake/pkg/tx"
	"github.com/Klingon-tech/klingnet-stake/pkg/types"
)

var prefixIndex = []byte("n/")

// Chain represents a blockchain instance with state, storage, and consensus.
type Chain struct {
	mu        sync.Mutex // Protects all state mutations.
	db        storage.DB
	indexDB   *storage.PrefixDB
	params    *config.ConsensusParams
	state     *State
	blocks    *BlockStore
	index     *Index
	coins     *utxo.Store
	scripts   *tx.ScriptEngine
	validator *consensus.Validator
}

// New opens a chain over db, recovering the tip and block index from a
// previous run. cacheSize bounds the hot block cache; zero selects the
// default.
func New(db storage.DB, params *config.ConsensusParams, cacheSize int) (*Chain, error) {
	if db == nil {
		return nil, fmt.Errorf("storage db is nil")
	}
	if params == nil {
		return nil, fmt.Errorf("consensus params are nil")
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("consensus params: %w", err)
	}
	if cacheSize <= 0 {
		cacheSize = config.DefaultBlockCacheSize
	}

	blocks, err := NewBlockStore(db, cacheSize)
	if err != nil {
		return nil, err
	}
	indexDB := storage.NewPrefixDB(db, prefixIndex)
	index := NewIndex(indexDB)
	if err := index.Load(); err != nil {
		return nil, err
	}

	tipHash, height, err := blocks.GetTip()
	if err != nil {
		return nil, fmt.Errorf("recover tip: %w", err)
	}
	state := &State{TipHash: tipHash, Height: height}
	if !state.IsGenesis() {
		tip, ok := index.Lookup(tipHash)
		if !ok {
			return nil, fmt.Errorf("recover tip: %s not in block index", tipHash)
		}
		state.TipTimestamp = tip.Timestamp
	}

	scripts := tx.NewScriptEngine()
	return &Chain{
		db:        db,
		indexDB:   indexDB,
		params:    params,
		state:     state,
		blocks:    blocks,
		index:     index,
		coins:     utxo.NewStore(db),
		scripts:   scripts,
		validator: consensus.NewValidator(params, scripts),
	}, nil
}

// InitGenesis initializes a fresh chain with the given genesis block.
// Returns an error if the chain already has blocks.
func (c *Chain) InitGenesis(blk *block.Block) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.IsGenesis() {
		return fmt.Errorf("chain already initialized at height %d", c.state.Height)
	}
	if blk == nil || blk.Header == nil {
		return fmt.Errorf("nil genesis block")
	}
	if blk.Header.Height != 0 || !blk.Header.PrevHash.IsZero() {
		return fmt.Errorf("%w: genesis must be height 0 with zero prev_hash", ErrBadHeight)
	}
	if err := blk.Validate(); err != nil {
		return fmt.Errorf("genesis structure: %w", err)
	}

	// Genesis carries no proof of stake; apply directly.
	if err := c.connect(blk, nil, types.Hash{}); err != nil {
		return fmt.Errorf("apply genesis: %w", err)
	}
	log.Chain.Info().Str("hash", blk.Hash().String()).Msg("Chain initialized from genesis")
	return nil
}

// Params returns the consensus parameters of the chain.
func (c *Chain) Params() *config.ConsensusParams {
	return c.params
}

// State returns a copy of the current chain state.
func (c *Chain) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.state
}

// Height returns the current chain height.
func (c *Chain) Height() uint64 {
	return c.State().Height
}

// TipHash returns the hash of the current chain tip.
func (c *Chain) TipHash() types.Hash {
	return c.State().TipHash
}

// Tip returns the index node of the current tip. It reports false before
// genesis.
func (c *Chain) Tip() (*Node, bool) {
	return c.index.Lookup(c.TipHash())
}

// NodeByHash returns the index node for a block.
func (c *Chain) NodeByHash(hash types.Hash) (*Node, bool) {
	return c.index.Lookup(hash)
}

// GetBlock retrieves a block by its hash.
func (c *Chain) GetBlock(hash types.Hash) (*block.Block, error) {
	return c.blocks.GetBlock(hash)
}

// GetBlockByHeight retrieves a block by its height.
func (c *Chain) GetBlockByHeight(height uint64) (*block.Block, error) {
	return c.blocks.GetBlockByHeight(height)
}

// Coins returns the chain's coin set.
func (c *Chain) Coins() *utxo.Store {
	return c.coins
}

// KernelChecker returns a kernel checker reading the chain's coin set.
func (c *Chain) KernelChecker() *consensus.KernelChecker {
	return consensus.NewKernelChecker(c.params, c.coins)
}

// TxPosition returns the position of the block holding a confirmed
// transaction, and that block's hash.
func (c *Chain) TxPosition(txHash types.Hash) (types.DiskPos, types.Hash, error) {
	return c.blocks.GetTxLocation(txHash)
}

// IsTxConfirmedWithin reports whether the block holding txHash is one of
// the maxDepth most recent blocks of the active chain, and at what depth
// below the tip.
func (c *Chain) IsTxConfirmedWithin(txHash types.Hash, maxDepth uint64) (uint64, bool, error) {
	pos, _, err := c.blocks.GetTxLocation(txHash)
	if errors.Is(err, ErrTxNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	tip, ok := c.Tip()
	if !ok {
		return 0, false, nil
	}
	depth, ok := consensus.IsConfirmedInNPrevBlocks(pos, tip, maxDepth)
	return depth, ok, nil
}

// GetTransaction looks up a confirmed transaction by hash via the tx index.
func (c *Chain) GetTransaction(hash types.Hash) (*tx.Transaction, error) {
	_, blockHash, err := c.blocks.GetTxLocation(hash)
	if err != nil {
		return nil, err
	}
	blk, err := c.blocks.GetBlock(blockHash)
	if err != nil {
		return nil, fmt.Errorf("load block for tx: %w", err)
	}
	for _, t := range blk.Transactions {
		if t.Hash() == hash {
			return t, nil
		}
	}
	return nil, fmt.Errorf("tx %s not found in block %s (index corrupt)", hash, blockHash)
}
