package consensus

import (
	"github.com/Klingon-tech/klingnet-stake/config"
	"github.com/Klingon-tech/klingnet-stake/pkg/block"
	"github.com/Klingon-tech/klingnet-stake/pkg/types"
)

// Validator validates proof-of-stake blocks against consensus rules.
type Validator struct {
	params  *config.ConsensusParams
	scripts ScriptVerifier
}

// NewValidator creates a block validator.
func NewValidator(params *config.ConsensusParams, scripts ScriptVerifier) *Validator {
	return &Validator{params: params, scripts: scripts}
}

// Params returns the consensus parameters the validator enforces.
func (v *Validator) Params() *config.ConsensusParams {
	return v.params
}

// ValidateBlock checks blk as the child of prev and returns its proof
// hash.
func (v *Validator) ValidateBlock(prev BlockRef, blk *block.Block, coins CoinView) (types.Hash, error) {
	// Structural validation.
	if err := blk.Validate(); err != nil {
		return types.Hash{}, newError(KindMalformedInput, PenaltyHostile, err, "block structure")
	}

	hdr := blk.Header
	if !CheckStakeBlockTimestamp(v.params, hdr.Timestamp) {
		return types.Hash{}, newError(KindPolicyViolation, PenaltyHostile, ErrBadBlockTime,
			"time %d, mask %#x", hdr.Timestamp, v.params.StakeTimestampMask)
	}

	target, err := DecodeTarget(hdr.Bits)
	if err != nil {
		return types.Hash{}, err
	}
	limit, err := DecodeTarget(v.params.StakeLimitBits)
	if err != nil {
		return types.Hash{}, err
	}
	if target.Cmp(limit) > 0 {
		return types.Hash{}, newError(KindPolicyViolation, PenaltyHostile, ErrBitsAboveLimit,
			"bits %08x, limit %08x", hdr.Bits, v.params.StakeLimitBits)
	}

	coinstake := blk.CoinStake()
	if coinstake == nil {
		return types.Hash{}, newError(KindMalformedInput, PenaltyHostile, ErrNoCoinStake, "")
	}
	if !CheckCoinStakeTimestamp(v.params, hdr.Timestamp, coinstake.Time) {
		return types.Hash{}, newError(KindPolicyViolation, PenaltyHostile, ErrBadCoinStakeTime,
			"block time %d, coinstake time %d", hdr.Timestamp, coinstake.Time)
	}

	return CheckProofOfStake(v.params, prev, coinstake, hdr.Bits, hdr.Timestamp, coins, v.scripts)
}
