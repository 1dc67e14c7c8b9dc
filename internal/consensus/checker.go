package consensus

import (
	"time"

	"github.com/Klingon-tech/klingnet-stake/config"
	"github.com/Klingon-tech/klingnet-stake/internal/metrics"
	"github.com/Klingon-tech/klingnet-stake/pkg/types"
)

// KernelChecker answers whether a coin may stake at a given time.
type KernelChecker struct {
	params *config.ConsensusParams
	coins  CoinView
}

// NewKernelChecker creates a checker reading coins from view.
func NewKernelChecker(params *config.ConsensusParams, view CoinView) *KernelChecker {
	return &KernelChecker{params: params, coins: view}
}

// CheckKernel resolves prevout fresh from the coin view and checks its
// kernel for a block at time t on top of prev. It returns the coin's origin
// block time once that is known.
func (k *KernelChecker) CheckKernel(prev BlockRef, bits, t uint32, prevout types.Outpoint) (uint32, error) {
	started := time.Now()
	entry, err := resolveStake(k.params, prev, prevout, k.coins)
	if err == nil {
		_, err = CheckStakeKernelHash(prev, bits, entry.BlockFromTime, entry.Amount, prevout, t)
	}
	metrics.ObserveKernelCheck(metrics.PathUncached, err, started)
	return entry.BlockFromTime, err
}

// CheckKernelCached is CheckKernel backed by a scan's stake cache. A cache
// hit skips the coin view and ancestor lookups; a miss falls back to
// CheckKernel. Both give the same verdict.
func (k *KernelChecker) CheckKernelCached(prev BlockRef, bits, t uint32, prevout types.Outpoint, cache *StakeCache) (uint32, error) {
	entry, ok := cache.Get(prevout)
	metrics.ObserveStakeCache(ok)
	if !ok {
		return k.CheckKernel(prev, bits, t, prevout)
	}

	started := time.Now()
	_, err := CheckStakeKernelHash(prev, bits, entry.BlockFromTime, entry.Amount, prevout, t)
	metrics.ObserveKernelCheck(metrics.PathCached, err, started)
	return entry.BlockFromTime, err
}
