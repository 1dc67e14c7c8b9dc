package consensus

import (
	"math/big"

	"github.com/Klingon-tech/klingnet-stake/internal/log"
	"github.com/Klingon-tech/klingnet-stake/pkg/crypto"
	"github.com/Klingon-tech/klingnet-stake/pkg/types"
)

// kernelSize is modifier(32) + blockFromTime(4) + txid(32) + index(4) + time(4).
const kernelSize = types.HashSize + 4 + types.HashSize + 4 + 4

// KernelHash computes the stake kernel hash of prevout at candidate time t.
func KernelHash(modifier types.StakeModifier, blockFromTime uint32, prevout types.Outpoint, t uint32) types.Hash {
	return crypto.NewWriter(kernelSize).
		WriteHash(modifier).
		WriteUint32(blockFromTime).
		WriteHash(prevout.TxID).
		WriteUint32(prevout.Index).
		WriteUint32(t).
		Sum()
}

// CheckKernelHash reports whether hash, read as a big-endian 256-bit
// integer, is at or below target.
func CheckKernelHash(hash types.Hash, target *big.Int) bool {
	return new(big.Int).SetBytes(hash[:]).Cmp(target) <= 0
}

// CheckStakeKernelHash runs the stake puzzle for a coin created at
// blockFromTime holding amount, spent at time t in a block on top of prev.
// It returns the kernel hash, which is also the block's proof hash. A nil
// prev is rejected as a missing origin.
func CheckStakeKernelHash(prev BlockRef, bits, blockFromTime uint32, amount uint64, prevout types.Outpoint, t uint32) (types.Hash, error) {
	if prev == nil {
		return types.Hash{}, newError(KindMissingData, PenaltyHostile, ErrOriginNotFound, "no parent block")
	}
	if t < blockFromTime {
		return types.Hash{}, newError(KindPolicyViolation, PenaltyHostile, ErrTimeViolation,
			"time %d before coin time %d", t, blockFromTime)
	}
	target, err := DecodeTarget(bits)
	if err != nil {
		return types.Hash{}, err
	}
	weighted, err := WeightTarget(target, amount)
	if err != nil {
		return types.Hash{}, err
	}

	modifier := prev.StakeModifier()
	hash := KernelHash(modifier, blockFromTime, prevout, t)
	if !CheckKernelHash(hash, weighted) {
		return hash, newError(KindKernelMiss, PenaltyBenign, ErrKernelMiss, "prevout %s at time %d", prevout, t)
	}

	log.Stake.Debug().
		Str("modifier", modifier.String()).
		Uint32("block_from_time", blockFromTime).
		Uint32("prevout_index", prevout.Index).
		Uint32("time", t).
		Str("proof", hash.String()).
		Msg("Stake kernel passed")
	return hash, nil
}
