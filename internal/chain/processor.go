package chain

import (
	"errors"
	"fmt"
	"time"

	"github.com/Klingon-tech/klingnet-stake/internal/consensus"
	"github.com/Klingon-tech/klingnet-stake/internal/log"
	"github.com/Klingon-tech/klingnet-stake/internal/metrics"
	"github.com/Klingon-tech/klingnet-stake/internal/storage"
	"github.com/Klingon-tech/klingnet-stake/pkg/block"
	"github.com/Klingon-tech/klingnet-stake/pkg/types"
)

// Block processing errors.
var (
	ErrBlockKnown            = errors.New("block already known")
	ErrPrevNotFound          = errors.New("previous block not found")
	ErrBadHeight             = errors.New("block height does not follow parent")
	ErrNotTip                = errors.New("block does not extend the current tip")
	ErrNotInitialized        = errors.New("chain has no genesis block")
	ErrApplyUTXO             = errors.New("failed to apply UTXO changes")
	ErrTimestampTooFuture    = errors.New("block timestamp too far in the future")
	ErrTimestampBeforeParent = errors.New("block timestamp before parent")
)

// MaxFutureBlockTime is how far ahead of the local clock a block may be.
const MaxFutureBlockTime = 2 * time.Minute

// now is replaced in tests.
var now = time.Now

// ProcessBlock validates a block and applies it to the chain. The block
// must extend the current tip.
//
// Stake failures are returned as *consensus.ValidationError values; use
// consensus.PenaltyOf to decide how to treat the peer that sent the block.
func (c *Chain) ProcessBlock(blk *block.Block) (err error) {
	started := time.Now()
	defer func() { metrics.ObserveBlockConnect(err, started) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	if blk == nil || blk.Header == nil {
		return fmt.Errorf("nil block or header")
	}
	if c.state.IsGenesis() {
		return ErrNotInitialized
	}

	hash := blk.Hash()
	known, err := c.blocks.HasBlock(hash)
	if err != nil {
		return fmt.Errorf("check block: %w", err)
	}
	if known {
		return ErrBlockKnown
	}

	parent, err := c.checkParentLink(blk)
	if err != nil {
		return err
	}

	maxTime := now().Add(MaxFutureBlockTime).Unix()
	if int64(blk.Header.Timestamp) > maxTime {
		return fmt.Errorf("%w: block timestamp %d exceeds max %d", ErrTimestampTooFuture, blk.Header.Timestamp, maxTime)
	}
	if blk.Header.Timestamp < parent.Timestamp {
		return fmt.Errorf("%w: block timestamp %d < parent timestamp %d",
			ErrTimestampBeforeParent, blk.Header.Timestamp, parent.Timestamp)
	}

	proof, err := c.validator.ValidateBlock(parent, blk, c.coins)
	if err != nil {
		logRejection(hash, blk.Header.Height, err)
		return fmt.Errorf("validate: %w", err)
	}

	// Remaining transactions spend ordinary coins.
	for i, t := range blk.Transactions[2:] {
		if _, err := t.ValidateWithUTXOs(c.coins, c.scripts); err != nil {
			return fmt.Errorf("tx %d validation: %w", i+2, err)
		}
	}

	if err := c.connect(blk, parent, proof); err != nil {
		return err
	}
	log.Chain.Debug().
		Uint64("height", blk.Header.Height).
		Str("hash", hash.String()).
		Str("proof", proof.String()).
		Int("txs", len(blk.Transactions)).
		Msg("Block connected")
	return nil
}

// connect applies blk on top of parent: coins, block data, index node and
// tip. All writes commit in one batch, so a failure leaves the stored chain
// unchanged. Callers hold c.mu.
func (c *Chain) connect(blk *block.Block, parent *Node, proof types.Hash) error {
	batch := storage.NewBatch(c.db)
	if err := c.coins.StageTransactions(batch, blk.Transactions, blk.Header.Height, blk.Header.Timestamp); err != nil {
		return fmt.Errorf("%w: %v", ErrApplyUTXO, err)
	}
	pos, next, err := c.blocks.stageBlock(batch, blk)
	if err != nil {
		return fmt.Errorf("store block: %w", err)
	}
	node := newNode(blk, parent, proof, pos)
	if err := c.index.stage(c.indexDB.WrapBatch(batch), node); err != nil {
		return fmt.Errorf("index block: %w", err)
	}
	if err := stageTip(batch, node.Hash, node.BlockHeight); err != nil {
		return err
	}
	if err := batch.Commit(); err != nil {
		return fmt.Errorf("connect block: %w", err)
	}

	c.blocks.advance(blk, next)
	c.index.insert(node)
	c.state.TipHash = node.Hash
	c.state.Height = node.BlockHeight
	c.state.TipTimestamp = node.Timestamp
	metrics.SetChainHeight(node.BlockHeight)
	return nil
}

// checkParentLink returns the index node of the block's parent, which must
// be the current tip.
func (c *Chain) checkParentLink(blk *block.Block) (*Node, error) {
	parent, ok := c.index.Lookup(blk.Header.PrevHash)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPrevNotFound, blk.Header.PrevHash)
	}
	if expected := parent.BlockHeight + 1; blk.Header.Height != expected {
		return nil, fmt.Errorf("%w: want %d, got %d", ErrBadHeight, expected, blk.Header.Height)
	}
	if parent.Hash != c.state.TipHash {
		return nil, fmt.Errorf("%w: parent %s at height %d, tip %s",
			ErrNotTip, parent.Hash, parent.BlockHeight, c.state.TipHash)
	}
	return parent, nil
}

// logRejection logs hostile stake failures at warn and benign ones at debug.
func logRejection(hash types.Hash, height uint64, err error) {
	ev := log.Consensus.Debug()
	if consensus.PenaltyOf(err) >= consensus.PenaltyHostile {
		ev = log.Consensus.Warn()
	}
	ev.Err(err).
		Str("hash", hash.String()).
		Uint64("height", height).
		Str("kind", string(consensus.KindOf(err))).
		Int("penalty", consensus.PenaltyOf(err)).
		Msg("Block rejected")
}
