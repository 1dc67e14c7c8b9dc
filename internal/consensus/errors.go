package consensus

import (
	"errors"
	"fmt"
)

// Kind classifies a validation failure.
type Kind string

const (
	// KindMalformedInput covers bad difficulty encodings, zero amounts and
	// transactions that are not shaped like a coinstake.
	KindMalformedInput Kind = "malformed_input"
	// KindMissingData covers coins absent from the coin set and ancestors
	// missing from the block index.
	KindMissingData Kind = "missing_data"
	// KindPolicyViolation covers timestamp, maturity and script failures.
	KindPolicyViolation Kind = "policy_violation"
	// KindKernelMiss means the kernel hash exceeded the weighted target.
	KindKernelMiss Kind = "kernel_miss"
)

// Peer penalties attached to block-level rejections.
const (
	PenaltyNone    = 0
	PenaltyBenign  = 1
	PenaltyHostile = 100
)

// Kernel and coinstake errors.
var (
	ErrNotCoinStake        = errors.New("transaction is not a coinstake")
	ErrStakePrevoutMissing = errors.New("stake prevout does not exist")
	ErrStakeSpent          = errors.New("stake prevout is spent")
	ErrStakeImmature       = errors.New("stake prevout is not mature")
	ErrStakeScript         = errors.New("stake input script verification failed")
	ErrOriginNotFound      = errors.New("stake origin block not found")
	ErrTimeViolation       = errors.New("stake used before it existed")
	ErrBadCompact          = errors.New("invalid compact target")
	ErrZeroAmount          = errors.New("stake amount is zero")
	ErrKernelMiss          = errors.New("kernel hash above weighted target")
)

// Block-level stake errors.
var (
	ErrNoCoinStake      = errors.New("block has no coinstake")
	ErrBadCoinStakeTime = errors.New("coinstake timestamp violation")
	ErrBadBlockTime     = errors.New("block timestamp violation")
	ErrBitsAboveLimit   = errors.New("block bits above stake limit")
)

// ValidationError is a classified validation failure. It wraps one of the
// package sentinels so callers can match with errors.Is.
type ValidationError struct {
	Kind    Kind
	Penalty int
	Reason  string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Kind, e.Err, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func newError(kind Kind, penalty int, err error, format string, args ...any) *ValidationError {
	return &ValidationError{
		Kind:    kind,
		Penalty: penalty,
		Reason:  fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// withPenalty returns a copy of err's ValidationError carrying penalty.
// Unclassified errors are reported as missing data.
func withPenalty(err error, penalty int) *ValidationError {
	var ve *ValidationError
	if errors.As(err, &ve) {
		c := *ve
		c.Penalty = penalty
		return &c
	}
	return &ValidationError{Kind: KindMissingData, Penalty: penalty, Err: err}
}

// KindOf returns the outermost Kind carried by err, or "" when err is nil
// or not a ValidationError.
func KindOf(err error) Kind {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Kind
	}
	return ""
}

// PenaltyOf returns the peer penalty carried by err.
func PenaltyOf(err error) int {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Penalty
	}
	return PenaltyNone
}

// IsKernelMiss reports whether err is a benign kernel miss.
func IsKernelMiss(err error) bool {
	return KindOf(err) == KindKernelMiss
}
