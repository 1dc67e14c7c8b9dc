package chain

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/Klingon-tech/klingnet-stake/internal/consensus"
	"github.com/Klingon-tech/klingnet-stake/internal/storage"
	"github.com/Klingon-tech/klingnet-stake/pkg/block"
	"github.com/Klingon-tech/klingnet-stake/pkg/types"
)

// Node is a block index entry. Nodes are immutable once added to the index.
type Node struct {
	Hash        types.Hash          `json:"hash"`
	PrevHash    types.Hash          `json:"prev_hash"`
	BlockHeight uint64              `json:"height"`
	Timestamp   uint32              `json:"timestamp"`
	Bits        uint32              `json:"bits"`
	Modifier    types.StakeModifier `json:"stake_modifier"`
	ProofHash   types.Hash          `json:"proof_hash"`
	Pos         types.DiskPos       `json:"pos"`

	parent *Node
}

func newNode(blk *block.Block, parent *Node, proof types.Hash, pos types.DiskPos) *Node {
	n := &Node{
		Hash:        blk.Hash(),
		PrevHash:    blk.Header.PrevHash,
		BlockHeight: blk.Header.Height,
		Timestamp:   blk.Header.Timestamp,
		Bits:        blk.Header.Bits,
		ProofHash:   proof,
		Pos:         pos,
		parent:      parent,
	}
	if parent != nil {
		n.Modifier = consensus.ComputeStakeModifier(parent, proof)
	}
	return n
}

// The BlockRef accessors are safe on a nil *Node, which has no ancestors.

func (n *Node) Height() uint64 {
	if n == nil {
		return 0
	}
	return n.BlockHeight
}

func (n *Node) Time() uint32 {
	if n == nil {
		return 0
	}
	return n.Timestamp
}

func (n *Node) StakeModifier() types.StakeModifier {
	if n == nil {
		return types.StakeModifier{}
	}
	return n.Modifier
}

func (n *Node) DataPos() types.DiskPos {
	if n == nil {
		return types.DiskPos{}
	}
	return n.Pos
}

// Parent returns the node's parent, or nil for genesis.
func (n *Node) Parent() *Node {
	if n == nil {
		return nil
	}
	return n.parent
}

// Ancestor returns the ancestor of n at height.
func (n *Node) Ancestor(height uint64) (consensus.BlockRef, bool) {
	a := n.ancestor(height)
	if a == nil {
		return nil, false
	}
	return a, true
}

func (n *Node) ancestor(height uint64) *Node {
	if n == nil || height > n.BlockHeight {
		return nil
	}
	p := n
	for p != nil && p.BlockHeight > height {
		p = p.parent
	}
	return p
}

// Index is the in-memory block index, persisted node by node.
type Index struct {
	mu    sync.RWMutex
	nodes map[types.Hash]*Node
	db    storage.DB
}

// NewIndex creates an index persisting nodes in db.
func NewIndex(db storage.DB) *Index {
	return &Index{
		nodes: make(map[types.Hash]*Node),
		db:    db,
	}
}

// Load reads every persisted node and links parents.
func (ix *Index) Load() error {
	var loaded []*Node
	err := ix.db.ForEach(nil, func(_, value []byte) error {
		var n Node
		if err := json.Unmarshal(value, &n); err != nil {
			return fmt.Errorf("node unmarshal: %w", err)
		}
		loaded = append(loaded, &n)
		return nil
	})
	if err != nil {
		return fmt.Errorf("load index: %w", err)
	}
	sort.Slice(loaded, func(i, j int) bool { return loaded[i].BlockHeight < loaded[j].BlockHeight })

	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, n := range loaded {
		if n.BlockHeight > 0 {
			parent, ok := ix.nodes[n.PrevHash]
			if !ok {
				return fmt.Errorf("load index: node %s at height %d has no parent", n.Hash, n.BlockHeight)
			}
			n.parent = parent
		}
		ix.nodes[n.Hash] = n
	}
	return nil
}

// Add persists n and makes it visible.
func (ix *Index) Add(n *Node) error {
	batch := storage.NewBatch(ix.db)
	if err := ix.stage(batch, n); err != nil {
		return err
	}
	if err := batch.Commit(); err != nil {
		return fmt.Errorf("node put: %w", err)
	}
	ix.insert(n)
	return nil
}

// stage writes n's record into batch, which must write to the index's
// database.
func (ix *Index) stage(batch storage.Batch, n *Node) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("node marshal: %w", err)
	}
	if err := batch.Put(n.Hash[:], data); err != nil {
		return fmt.Errorf("node put: %w", err)
	}
	return nil
}

// insert makes a committed node visible.
func (ix *Index) insert(n *Node) {
	ix.mu.Lock()
	ix.nodes[n.Hash] = n
	ix.mu.Unlock()
}

// Lookup returns the node for hash.
func (ix *Index) Lookup(hash types.Hash) (*Node, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	n, ok := ix.nodes[hash]
	return n, ok
}

// Len returns the number of indexed blocks.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.nodes)
}
