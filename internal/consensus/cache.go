package consensus

import (
	"github.com/Klingon-tech/klingnet-stake/config"
	"github.com/Klingon-tech/klingnet-stake/pkg/types"
)

// StakeCacheEntry is what the kernel needs from a resolved coin.
type StakeCacheEntry struct {
	BlockFromTime uint32
	Amount        uint64
}

// StakeCache memoizes resolved stake coins for one staking scan.
//
// Entries are written once and never evicted. A StakeCache belongs to a
// single scan and is not safe for concurrent use.
type StakeCache struct {
	entries map[types.Outpoint]StakeCacheEntry
}

// NewStakeCache returns an empty cache.
func NewStakeCache() *StakeCache {
	return &StakeCache{entries: make(map[types.Outpoint]StakeCacheEntry)}
}

// Get returns the entry for prevout.
func (c *StakeCache) Get(prevout types.Outpoint) (StakeCacheEntry, bool) {
	if c == nil {
		return StakeCacheEntry{}, false
	}
	e, ok := c.entries[prevout]
	return e, ok
}

// Len returns the number of cached coins.
func (c *StakeCache) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// CacheKernel resolves prevout against the chain on top of prev and caches
// it. It does nothing when prevout is already cached, and caches nothing
// when the coin is missing, spent, immature or has no origin block; a
// later cached check then falls back to the uncached path.
func CacheKernel(cache *StakeCache, prevout types.Outpoint, prev BlockRef, coins CoinView, params *config.ConsensusParams) error {
	if cache == nil {
		return nil
	}
	if _, ok := cache.entries[prevout]; ok {
		return nil
	}
	entry, err := resolveStake(params, prev, prevout, coins)
	if err != nil {
		return err
	}
	cache.entries[prevout] = entry
	return nil
}

// resolveStake looks up prevout and checks it can stake on top of prev.
func resolveStake(params *config.ConsensusParams, prev BlockRef, prevout types.Outpoint, coins CoinView) (StakeCacheEntry, error) {
	if prev == nil {
		return StakeCacheEntry{}, newError(KindMissingData, PenaltyHostile, ErrOriginNotFound, "no parent block")
	}
	coin, ok, err := coins.GetCoin(prevout)
	if err != nil {
		return StakeCacheEntry{}, newError(KindMissingData, PenaltyNone, err, "lookup %s", prevout)
	}
	if !ok {
		return StakeCacheEntry{}, newError(KindMissingData, PenaltyHostile, ErrStakePrevoutMissing, "%s", prevout)
	}
	if err := CheckMaturity(prev.Height(), coin.Height, params.StakeMinConfirmations); err != nil {
		return StakeCacheEntry{}, err
	}
	origin, err := ResolveOriginBlock(prev, coin.Height)
	if err != nil {
		return StakeCacheEntry{}, err
	}
	if coin.Spent {
		return StakeCacheEntry{}, newError(KindPolicyViolation, PenaltyHostile, ErrStakeSpent,
			"%s spent at height %d", prevout, coin.SpentHeight)
	}
	return StakeCacheEntry{BlockFromTime: origin.Time(), Amount: coin.Value}, nil
}
