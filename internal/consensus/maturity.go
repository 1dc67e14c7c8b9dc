package consensus

// CheckMaturity requires a coin created at coinHeight to have at least
// minConf confirmations in a block built on tipHeight.
func CheckMaturity(tipHeight, coinHeight, minConf uint64) error {
	if coinHeight > tipHeight+1 || tipHeight+1-coinHeight < minConf {
		return newError(KindPolicyViolation, PenaltyHostile, ErrStakeImmature,
			"coin at height %d, next block %d, need %d confirmations", coinHeight, tipHeight+1, minConf)
	}
	return nil
}

// ResolveOriginBlock returns the ancestor of prev at the coin's creation
// height.
func ResolveOriginBlock(prev BlockRef, coinHeight uint64) (BlockRef, error) {
	if prev == nil {
		return nil, newError(KindMissingData, PenaltyHostile, ErrOriginNotFound, "no parent block")
	}
	origin, ok := prev.Ancestor(coinHeight)
	if !ok || origin == nil {
		return nil, newError(KindMissingData, PenaltyHostile, ErrOriginNotFound,
			"no ancestor at height %d from %d", coinHeight, prev.Height())
	}
	return origin, nil
}
