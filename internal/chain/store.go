package chain

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/Klingon-tech/klingnet-stake/internal/metrics"
	"github.com/Klingon-tech/klingnet-stake/internal/storage"
	"github.com/Klingon-tech/klingnet-stake/pkg/block"
	"github.com/Klingon-tech/klingnet-stake/pkg/types"
)

// MaxBlockFileSize is the size at which the store moves on to a new block
// file.
const MaxBlockFileSize = 128 << 20

// Key prefixes and state keys for the block store.
var (
	prefixBlock  = []byte("b/") // b/<hash(32)> -> block JSON
	prefixHeight = []byte("h/") // h/<height(8)> -> hash(32)
	prefixTx     = []byte("x/") // x/<txhash(32)> -> file(4) + offset(4) + blockHash(32)
	prefixPos    = []byte("p/") // p/<hash(32)> -> file(4) + offset(4)
	keyTipHash   = []byte("s/tip")
	keyHeight    = []byte("s/height")
	keyCursor    = []byte("s/cursor")
)

// ErrTxNotFound is returned for transactions missing from the tx index.
var ErrTxNotFound = errors.New("transaction not indexed")

// BlockStore persists blocks and chain metadata to a storage.DB.
//
// Every stored block is assigned a DiskPos from a running cursor, as if the
// blocks were appended to numbered data files.
type BlockStore struct {
	db storage.DB

	mu     sync.Mutex
	cursor types.DiskPos
	cache  *simplelru.LRU[types.Hash, *block.Block]
}

// NewBlockStore creates a block store backed by db with an LRU of
// cacheSize recently used blocks.
func NewBlockStore(db storage.DB, cacheSize int) (*BlockStore, error) {
	cache, err := simplelru.NewLRU[types.Hash, *block.Block](cacheSize, nil)
	if err != nil {
		return nil, fmt.Errorf("block cache: %w", err)
	}
	bs := &BlockStore{db: db, cache: cache}

	data, err := db.Get(keyCursor)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("load cursor: %w", err)
	default:
		if bs.cursor, err = decodePos(data); err != nil {
			return nil, fmt.Errorf("load cursor: %w", err)
		}
	}
	return bs, nil
}

// PutBlock stores a block, indexes it by hash, height and tx hashes, and
// returns the position assigned to it. Writers must be serialized; the
// chain does so under its own lock.
func (bs *BlockStore) PutBlock(blk *block.Block) (types.DiskPos, error) {
	batch := storage.NewBatch(bs.db)
	pos, next, err := bs.stageBlock(batch, blk)
	if err != nil {
		return types.DiskPos{}, err
	}
	if err := batch.Commit(); err != nil {
		return types.DiskPos{}, fmt.Errorf("block put: %w", err)
	}
	bs.advance(blk, next)
	return pos, nil
}

// stageBlock writes blk and its indexes into batch and returns the
// position assigned to it and the cursor that follows it. The cursor is
// only moved by advance, once the batch has committed.
func (bs *BlockStore) stageBlock(batch storage.Batch, blk *block.Block) (pos, next types.DiskPos, err error) {
	data, err := json.Marshal(blk)
	if err != nil {
		return pos, next, fmt.Errorf("block marshal: %w", err)
	}
	hash := blk.Hash()

	bs.mu.Lock()
	pos = bs.cursor
	bs.mu.Unlock()
	if pos.Offset > 0 && uint64(pos.Offset)+uint64(len(data)) > MaxBlockFileSize {
		pos = types.DiskPos{File: pos.File + 1}
	}
	next = types.DiskPos{File: pos.File, Offset: pos.Offset + uint32(len(data))}

	puts := []struct{ key, value []byte }{
		{blockKey(hash), data},
		{heightKey(blk.Header.Height), hash[:]},
		{posKey(hash), encodePos(pos)},
		{keyCursor, encodePos(next)},
	}
	for _, t := range blk.Transactions {
		txHash := t.Hash()
		puts = append(puts, struct{ key, value []byte }{txKey(txHash), append(encodePos(pos), hash[:]...)})
	}
	for _, p := range puts {
		if err := batch.Put(p.key, p.value); err != nil {
			return pos, next, fmt.Errorf("block batch put: %w", err)
		}
	}
	return pos, next, nil
}

// advance moves the cursor past a committed block and caches it.
func (bs *BlockStore) advance(blk *block.Block, next types.DiskPos) {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	bs.cursor = next
	bs.cache.Add(blk.Hash(), blk)
}

// GetBlock retrieves a block by its hash.
func (bs *BlockStore) GetBlock(hash types.Hash) (*block.Block, error) {
	bs.mu.Lock()
	blk, ok := bs.cache.Get(hash)
	bs.mu.Unlock()
	metrics.ObserveBlockCache(ok)
	if ok {
		return blk, nil
	}

	data, err := bs.db.Get(blockKey(hash))
	if err != nil {
		return nil, fmt.Errorf("block get: %w", err)
	}
	blk = new(block.Block)
	if err := json.Unmarshal(data, blk); err != nil {
		return nil, fmt.Errorf("block unmarshal: %w", err)
	}

	bs.mu.Lock()
	bs.cache.Add(hash, blk)
	bs.mu.Unlock()
	return blk, nil
}

// GetBlockByHeight retrieves a block by its height.
func (bs *BlockStore) GetBlockByHeight(height uint64) (*block.Block, error) {
	hashBytes, err := bs.db.Get(heightKey(height))
	if err != nil {
		return nil, fmt.Errorf("height index get: %w", err)
	}
	if len(hashBytes) != types.HashSize {
		return nil, fmt.Errorf("corrupt height index: got %d bytes, want %d", len(hashBytes), types.HashSize)
	}
	var hash types.Hash
	copy(hash[:], hashBytes)
	return bs.GetBlock(hash)
}

// HasBlock checks if a block exists by hash.
func (bs *BlockStore) HasBlock(hash types.Hash) (bool, error) {
	return bs.db.Has(blockKey(hash))
}

// BlockPos returns the position assigned to a stored block.
func (bs *BlockStore) BlockPos(hash types.Hash) (types.DiskPos, error) {
	data, err := bs.db.Get(posKey(hash))
	if err != nil {
		return types.DiskPos{}, fmt.Errorf("block pos get: %w", err)
	}
	return decodePos(data)
}

// SetTip stores the current chain tip hash and height.
func (bs *BlockStore) SetTip(hash types.Hash, height uint64) error {
	batch := storage.NewBatch(bs.db)
	if err := stageTip(batch, hash, height); err != nil {
		return err
	}
	if err := batch.Commit(); err != nil {
		return fmt.Errorf("set tip: %w", err)
	}
	return nil
}

func stageTip(batch storage.Batch, hash types.Hash, height uint64) error {
	var heightBuf [8]byte
	binary.BigEndian.PutUint64(heightBuf[:], height)
	if err := batch.Put(keyTipHash, hash[:]); err != nil {
		return fmt.Errorf("set tip hash: %w", err)
	}
	if err := batch.Put(keyHeight, heightBuf[:]); err != nil {
		return fmt.Errorf("set tip height: %w", err)
	}
	return nil
}

// GetTip returns the current chain tip hash and height.
// Returns zero values if no tip is set (fresh chain).
func (bs *BlockStore) GetTip() (types.Hash, uint64, error) {
	hashBytes, err := bs.db.Get(keyTipHash)
	if errors.Is(err, storage.ErrNotFound) {
		return types.Hash{}, 0, nil // No tip yet.
	}
	if err != nil {
		return types.Hash{}, 0, fmt.Errorf("tip hash: %w", err)
	}
	if len(hashBytes) != types.HashSize {
		return types.Hash{}, 0, fmt.Errorf("corrupt tip hash: got %d bytes", len(hashBytes))
	}

	heightBytes, err := bs.db.Get(keyHeight)
	if err != nil {
		return types.Hash{}, 0, fmt.Errorf("tip height missing: %w", err)
	}
	if len(heightBytes) != 8 {
		return types.Hash{}, 0, fmt.Errorf("corrupt tip height: got %d bytes", len(heightBytes))
	}

	var hash types.Hash
	copy(hash[:], hashBytes)
	return hash, binary.BigEndian.Uint64(heightBytes), nil
}

// GetTxLocation returns the position and hash of the block holding the
// given transaction.
func (bs *BlockStore) GetTxLocation(txHash types.Hash) (types.DiskPos, types.Hash, error) {
	data, err := bs.db.Get(txKey(txHash))
	if errors.Is(err, storage.ErrNotFound) {
		return types.DiskPos{}, types.Hash{}, fmt.Errorf("%w: %s", ErrTxNotFound, txHash)
	}
	if err != nil {
		return types.DiskPos{}, types.Hash{}, fmt.Errorf("tx index get: %w", err)
	}
	if len(data) != posSize+types.HashSize {
		return types.DiskPos{}, types.Hash{}, fmt.Errorf("corrupt tx index: got %d bytes, want %d", len(data), posSize+types.HashSize)
	}
	pos, err := decodePos(data[:posSize])
	if err != nil {
		return types.DiskPos{}, types.Hash{}, err
	}
	var blockHash types.Hash
	copy(blockHash[:], data[posSize:])
	return pos, blockHash, nil
}

const posSize = 8

func encodePos(p types.DiskPos) []byte {
	buf := make([]byte, posSize)
	binary.BigEndian.PutUint32(buf[:4], p.File)
	binary.BigEndian.PutUint32(buf[4:], p.Offset)
	return buf
}

func decodePos(data []byte) (types.DiskPos, error) {
	if len(data) != posSize {
		return types.DiskPos{}, fmt.Errorf("corrupt disk position: got %d bytes, want %d", len(data), posSize)
	}
	return types.DiskPos{
		File:   binary.BigEndian.Uint32(data[:4]),
		Offset: binary.BigEndian.Uint32(data[4:]),
	}, nil
}

func blockKey(hash types.Hash) []byte {
	key := make([]byte, len(prefixBlock)+types.HashSize)
	copy(key, prefixBlock)
	copy(key[len(prefixBlock):], hash[:])
	return key
}

func heightKey(height uint64) []byte {
	key := make([]byte, len(prefixHeight)+8)
	copy(key, prefixHeight)
	binary.BigEndian.PutUint64(key[len(prefixHeight):], height)
	return key
}

func txKey(hash types.Hash) []byte {
	key := make([]byte, len(prefixTx)+types.HashSize)
	copy(key, prefixTx)
	copy(key[len(prefixTx):], hash[:])
	return key
}

func posKey(hash types.Hash) []byte {
	key := make([]byte, len(prefixPos)+types.HashSize)
	copy(key, prefixPos)
	copy(key[len(prefixPos):], hash[:])
	return key
}
