package consensus

import (
	"github.com/Klingon-tech/klingnet-stake/pkg/crypto"
	"github.com/Klingon-tech/klingnet-stake/pkg/types"
)

// ComputeStakeModifier derives the stake modifier of a new block from its
// parent and its proof-of-stake kernel hash. A block without a parent gets
// the zero modifier.
func ComputeStakeModifier(prev BlockRef, kernel types.Hash) types.StakeModifier {
	if prev == nil {
		return types.StakeModifier{}
	}
	return crypto.NewWriter(2 * types.HashSize).
		WriteHash(kernel).
		WriteHash(prev.StakeModifier()).
		Sum()
}
