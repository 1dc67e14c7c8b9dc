package consensus

import (
	"math/big"

	"github.com/btcsuite/btcd/blockchain"
)

const (
	compactSignBit  = 0x00800000
	compactMantissa = 0x007fffff
)

// DecodeCompact expands a compact target encoding.
//
// negative is set when the sign bit is set on a non-zero mantissa. overflow
// is set when the value does not fit in 256 bits. Callers must reject both,
// and a zero target.
func DecodeCompact(bits uint32) (target *big.Int, negative, overflow bool) {
	size := bits >> 24
	word := bits & compactMantissa
	negative = word != 0 && bits&compactSignBit != 0
	overflow = word != 0 && (size > 34 ||
		(word > 0xff && size > 33) ||
		(word > 0xffff && size > 32))
	return blockchain.CompactToBig(bits), negative, overflow
}

// DecodeTarget decodes bits and rejects negative, overflowing and zero
// targets.
func DecodeTarget(bits uint32) (*big.Int, error) {
	target, negative, overflow := DecodeCompact(bits)
	switch {
	case negative:
		return nil, newError(KindMalformedInput, PenaltyHostile, ErrBadCompact, "bits %08x is negative", bits)
	case overflow:
		return nil, newError(KindMalformedInput, PenaltyHostile, ErrBadCompact, "bits %08x overflows", bits)
	case target.Sign() == 0:
		return nil, newError(KindMalformedInput, PenaltyHostile, ErrBadCompact, "bits %08x is zero", bits)
	}
	return target, nil
}

// WeightTarget scales target by the stake amount. The result is not
// truncated to 256 bits.
func WeightTarget(target *big.Int, amount uint64) (*big.Int, error) {
	if amount == 0 {
		return nil, newError(KindMalformedInput, PenaltyHostile, ErrZeroAmount, "weight of zero")
	}
	return new(big.Int).Mul(target, new(big.Int).SetUint64(amount)), nil
}

// CompactFromTarget encodes target in compact form.
func CompactFromTarget(target *big.Int) uint32 {
	return blockchain.BigToCompact(target)
}
