package consensus

import "github.com/Klingon-tech/klingnet-stake/config"

// CheckCoinStakeTimestamp reports whether a coinstake's time is acceptable
// for a block with the given time. After the protocol upgrade the time must
// also be aligned to the stake timestamp mask.
func CheckCoinStakeTimestamp(params *config.ConsensusParams, blockTime, txTime uint32) bool {
	if params.IsProtocolV2(blockTime) {
		return blockTime == txTime && txTime&params.StakeTimestampMask == 0
	}
	return blockTime == txTime
}

// CheckStakeBlockTimestamp checks a header time on its own.
func CheckStakeBlockTimestamp(params *config.ConsensusParams, blockTime uint32) bool {
	return CheckCoinStakeTimestamp(params, blockTime, blockTime)
}
