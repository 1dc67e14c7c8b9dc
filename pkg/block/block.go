// Package block defines block types and validation.
package block

import (
	"encoding/binary"

	"github.com/Klingon-tech/klingnet-stake/pkg/crypto"
	"github.com/Klingon-tech/klingnet-stake/pkg/tx"
	"github.com/Klingon-tech/klingnet-stake/pkg/types"
)

// Header contains block metadata.
//
// Bits is the compact-encoded base stake target the block was produced
// against. Timestamp is seconds since epoch and, for proof-of-stake
// blocks, equals the coinstake timestamp.
type Header struct {
	Version    uint32     `json:"version"`
	PrevHash   types.Hash `json:"prev_hash"`
	MerkleRoot types.Hash `json:"merkle_root"`
	Timestamp  uint32     `json:"timestamp"`
	Height     uint64     `json:"height"`
	Bits       uint32     `json:"bits"`
}

// Hash computes the block header hash.
func (h *Header) Hash() types.Hash {
	return crypto.Hash(h.SigningBytes())
}

// SigningBytes returns the canonical header bytes.
// Format: version(4) | prev_hash(32) | merkle_root(32) | timestamp(4) | height(8) | bits(4)
func (h *Header) SigningBytes() []byte {
	buf := make([]byte, 0, 84)
	buf = binary.LittleEndian.AppendUint32(buf, h.Version)
	buf = append(buf, h.PrevHash[:]...)
	buf = append(buf, h.MerkleRoot[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, h.Timestamp)
	buf = binary.LittleEndian.AppendUint64(buf, h.Height)
	buf = binary.LittleEndian.AppendUint32(buf, h.Bits)
	return buf
}

// Block represents a block in the chain.
type Block struct {
	Header       *Header           `json:"header"`
	Transactions []*tx.Transaction `json:"transactions"`
}

// NewBlock creates a new block with the given header and transactions.
func NewBlock(header *Header, txs []*tx.Transaction) *Block {
	return &Block{
		Header:       header,
		Transactions: txs,
	}
}

// Hash returns the block header hash.
func (b *Block) Hash() types.Hash {
	if b.Header == nil {
		return types.Hash{}
	}
	return b.Header.Hash()
}

// IsProofOfStake reports whether the block carries a coinstake in the
// second transaction slot.
func (b *Block) IsProofOfStake() bool {
	return len(b.Transactions) > 1 && b.Transactions[1].IsCoinStake()
}

// CoinStake returns the block's coinstake, or nil for a block without one.
func (b *Block) CoinStake() *tx.Transaction {
	if !b.IsProofOfStake() {
		return nil
	}
	return b.Transactions[1]
}

// TxHashes returns the hashes of the block's transactions in order.
func (b *Block) TxHashes() []types.Hash {
	hashes := make([]types.Hash, len(b.Transactions))
	for i, t := range b.Transactions {
		hashes[i] = t.Hash()
	}
	return hashes
}

// ComputeMerkleRoot calculates the merkle root of transaction hashes.
// Layers are hashed pairwise, duplicating the last element of an odd
// layer. No hashes yield the zero hash; one hash is its own root.
func ComputeMerkleRoot(txHashes []types.Hash) types.Hash {
	switch len(txHashes) {
	case 0:
		return types.Hash{}
	case 1:
		return txHashes[0]
	}

	level := make([]types.Hash, len(txHashes))
	copy(level, txHashes)

	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}
		next := make([]types.Hash, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next[i/2] = crypto.HashConcat(level[i], level[i+1])
		}
		level = next
	}

	return level[0]
}
