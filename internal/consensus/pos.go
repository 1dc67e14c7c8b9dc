package consensus

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-stake/config"
	"github.com/Klingon-tech/klingnet-stake/internal/metrics"
	"github.com/Klingon-tech/klingnet-stake/pkg/tx"
	"github.com/Klingon-tech/klingnet-stake/pkg/types"
)

// CheckProofOfStake validates the coinstake of a block with the given bits
// and time built on prev, and returns its proof hash.
//
// Failures are tagged with PenaltyHostile, except kernel failures which
// carry PenaltyBenign: a node catching up can see honest kernels fail
// against a stale view.
func CheckProofOfStake(params *config.ConsensusParams, prev BlockRef, coinstake *tx.Transaction, bits, blockTime uint32, coins CoinView, scripts ScriptVerifier) (types.Hash, error) {
	hash, err := checkProofOfStake(params, prev, coinstake, bits, blockTime, coins, scripts)
	metrics.ObserveProofOfStake(string(KindOf(err)))
	return hash, err
}

func checkProofOfStake(params *config.ConsensusParams, prev BlockRef, coinstake *tx.Transaction, bits, blockTime uint32, coins CoinView, scripts ScriptVerifier) (types.Hash, error) {
	if coinstake == nil || !coinstake.IsCoinStake() {
		return types.Hash{}, newError(KindMalformedInput, PenaltyHostile, ErrNotCoinStake, "")
	}
	if prev == nil {
		return types.Hash{}, newError(KindMissingData, PenaltyHostile, ErrOriginNotFound, "no parent block")
	}

	prevout := coinstake.Inputs[0].PrevOut
	coin, ok, err := coins.GetCoin(prevout)
	if err != nil {
		return types.Hash{}, newError(KindMissingData, PenaltyNone, err, "lookup %s", prevout)
	}
	if !ok {
		return types.Hash{}, newError(KindMissingData, PenaltyHostile, ErrStakePrevoutMissing, "%s", prevout)
	}
	if coin.Spent {
		return types.Hash{}, newError(KindPolicyViolation, PenaltyHostile, ErrStakeSpent,
			"%s spent at height %d", prevout, coin.SpentHeight)
	}

	if err := CheckMaturity(prev.Height(), coin.Height, params.StakeMinConfirmations); err != nil {
		return types.Hash{}, err
	}

	if err := scripts.VerifyInput(coinstake, 0, coin.Script); err != nil {
		return types.Hash{}, newError(KindPolicyViolation, PenaltyHostile,
			fmt.Errorf("%w: %w", ErrStakeScript, err), "input 0 of %s", coinstake.Hash())
	}

	hash, err := CheckStakeKernelHash(prev, bits, coin.Time, coin.Value, prevout, blockTime)
	if err != nil {
		return hash, withPenalty(err, PenaltyBenign)
	}
	return hash, nil
}
