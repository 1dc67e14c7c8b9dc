package chain

import (
	"testing"

	"github.com/Klingon-tech/klingnet-stake/internal/consensus"
	"github.com/Klingon-tech/klingnet-stake/internal/storage"
	"github.com/Klingon-tech/klingnet-stake/pkg/types"
)

var _ consensus.BlockRef = (*Node)(nil)

// linkedNodes returns n nodes linked parent to child.
func linkedNodes(n int) []*Node {
	nodes := make([]*Node, n)
	for i := range nodes {
		node := &Node{
			Hash:        types.Hash{byte(i + 1)},
			BlockHeight: uint64(i),
			Timestamp:   testGenesisTime + uint32(i)*16,
			Pos:         types.DiskPos{Offset: uint32(i) * 100},
		}
		if i > 0 {
			node.PrevHash = nodes[i-1].Hash
			node.parent = nodes[i-1]
			node.Modifier = consensus.ComputeStakeModifier(nodes[i-1], types.Hash{byte(i)})
		}
		nodes[i] = node
	}
	return nodes
}

func TestNode_Ancestor(t *testing.T) {
	nodes := linkedNodes(6)
	tip := nodes[5]

	for h := uint64(0); h <= 5; h++ {
		a, ok := tip.Ancestor(h)
		if !ok || a.Height() != h {
			t.Fatalf("Ancestor(%d) = %v, %v", h, a, ok)
		}
	}
	if a, ok := tip.Ancestor(6); ok || a != nil {
		t.Fatal("ancestor above the node should be absent")
	}
}

func TestIndex_LoadRelinks(t *testing.T) {
	db := storage.NewPrefixDB(storage.NewMemory(), prefixIndex)
	ix := NewIndex(db)
	for _, n := range linkedNodes(4) {
		if err := ix.Add(n); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	loaded := NewIndex(db)
	if err := loaded.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Len() != 4 {
		t.Fatalf("Len = %d, want 4", loaded.Len())
	}
	tip, ok := loaded.Lookup(types.Hash{4})
	if !ok {
		t.Fatal("tip missing after load")
	}
	genesis, ok := tip.Ancestor(0)
	if !ok || genesis.(*Node).Hash != (types.Hash{1}) {
		t.Fatal("parent links not restored")
	}
}

func TestIndex_LoadMissingParent(t *testing.T) {
	db := storage.NewPrefixDB(storage.NewMemory(), prefixIndex)
	ix := NewIndex(db)
	nodes := linkedNodes(3)
	if err := ix.Add(nodes[0]); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := ix.Add(nodes[2]); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := NewIndex(db).Load(); err == nil {
		t.Fatal("expected error for a node without a parent")
	}
}

func TestNode_NilIsSafe(t *testing.T) {
	var n *Node
	if n.Height() != 0 || n.Time() != 0 || !n.StakeModifier().IsZero() || n.DataPos() != (types.DiskPos{}) {
		t.Fatal("nil node accessors should return zero values")
	}
	if n.Parent() != nil {
		t.Fatal("nil node has no parent")
	}
	if a, ok := n.Ancestor(0); ok || a != nil {
		t.Fatal("nil node has no ancestors")
	}
}
