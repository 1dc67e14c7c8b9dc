package chain

import "github.com/Klingon-tech/klingnet-stake/pkg/types"

// State holds the current chain tip state.
type State struct {
	Height       uint64
	TipHash      types.Hash
	TipTimestamp uint32
}

// IsGenesis returns true if no blocks have been processed yet.
func (s *State) IsGenesis() bool {
	return s.Height == 0 && s.TipHash.IsZero()
}
