package consensus

import "github.com/Klingon-tech/klingnet-stake/pkg/types"

// IsConfirmedInNPrevBlocks walks back from from over at most maxDepth
// blocks looking for the block stored at pos. It returns how many blocks
// below from that block is, with from itself at depth 0.
func IsConfirmedInNPrevBlocks(pos types.DiskPos, from BlockRef, maxDepth uint64) (uint64, bool) {
	if from == nil {
		return 0, false
	}
	top := from.Height()
	for p := from; p != nil && top-p.Height() < maxDepth; {
		if p.DataPos() == pos {
			return top - p.Height(), true
		}
		if p.Height() == 0 {
			break
		}
		next, ok := p.Ancestor(p.Height() - 1)
		if !ok {
			break
		}
		p = next
	}
	return 0, false
}
