package consensus

import (
	"errors"
	"testing"

	"github.com/Klingon-tech/klingnet-stake/internal/storage"
	"github.com/Klingon-tech/klingnet-stake/internal/utxo"
	"github.com/Klingon-tech/klingnet-stake/pkg/crypto"
	"github.com/Klingon-tech/klingnet-stake/pkg/tx"
	"github.com/Klingon-tech/klingnet-stake/pkg/types"
)

const stakeReward = 1000

// stakeEnv is a synthetic 10-block chain with a stake coin created at
// height 2, held in a real coin store.
type stakeEnv struct {
	chain   []*testBlock
	store   *utxo.Store
	key     *crypto.PrivateKey
	prevout types.Outpoint
	engine  *tx.ScriptEngine
}

func setupStakeEnv(t *testing.T) *stakeEnv {
	t.Helper()
	key := testKey(t)
	chain := buildTestChain(t, 10)

	store := utxo.NewStore(storage.NewMemory())
	op := types.Outpoint{TxID: types.Hash{0x5e, 0x7a}, Index: 1}
	if err := store.Put(testCoin(op, chain[2], testStake, stakeScript(key))); err != nil {
		t.Fatalf("Put coin: %v", err)
	}

	return &stakeEnv{
		chain:   chain,
		store:   store,
		key:     key,
		prevout: op,
		engine:  tx.NewScriptEngine(),
	}
}

// coinstake builds the env's signed coinstake for a block at time at.
func (e *stakeEnv) coinstake(t *testing.T, at uint32) *tx.Transaction {
	t.Helper()
	return signedCoinStake(t, e.key, at, e.prevout, testStake+stakeReward)
}

func TestCheckProofOfStake_EndToEnd(t *testing.T) {
	env := setupStakeEnv(t)
	prev := env.chain[5] // the candidate block is height 6
	at := prev.time + testSpacing

	hash, err := CheckProofOfStake(testParams(3), prev, env.coinstake(t, at), easyBits, at, env.store, env.engine)
	if err != nil {
		t.Fatalf("CheckProofOfStake: %v", err)
	}
	if want := KernelHash(prev.modifier, env.chain[2].time, env.prevout, at); hash != want {
		t.Fatalf("proof hash = %s, want %s", hash, want)
	}
}

func TestCheckProofOfStake_MaturityBeforeHash(t *testing.T) {
	env := setupStakeEnv(t)
	prev := env.chain[5]
	at := prev.time + testSpacing
	scripts := &stubScripts{}

	hash, err := CheckProofOfStake(testParams(10), prev, env.coinstake(t, at), easyBits, at, env.store, scripts)
	if !errors.Is(err, ErrStakeImmature) {
		t.Fatalf("err = %v, want ErrStakeImmature", err)
	}
	if PenaltyOf(err) != PenaltyHostile {
		t.Fatalf("penalty = %d, want %d", PenaltyOf(err), PenaltyHostile)
	}
	if !hash.IsZero() {
		t.Fatal("a kernel hash was computed for an immature coin")
	}
	if scripts.calls != 0 {
		t.Fatalf("script engine called %d times for an immature coin", scripts.calls)
	}
}

func TestCheckProofOfStake_MaturityBoundary(t *testing.T) {
	env := setupStakeEnv(t)
	params := testParams(4)

	// Height 5 on top of 4: 5 - 2 = 3 confirmations.
	prev := env.chain[4]
	at := prev.time + testSpacing
	if _, err := CheckProofOfStake(params, prev, env.coinstake(t, at), easyBits, at, env.store, env.engine); !errors.Is(err, ErrStakeImmature) {
		t.Fatalf("3 confirmations: err = %v, want ErrStakeImmature", err)
	}

	// Height 6 on top of 5: exactly 4.
	prev = env.chain[5]
	at = prev.time + testSpacing
	if _, err := CheckProofOfStake(params, prev, env.coinstake(t, at), easyBits, at, env.store, env.engine); err != nil {
		t.Fatalf("4 confirmations: %v", err)
	}
}

func TestCheckProofOfStake_NotCoinStake(t *testing.T) {
	env := setupStakeEnv(t)
	prev := env.chain[5]
	at := prev.time + testSpacing

	plain := tx.NewBuilder().SetTime(at).AddInput(env.prevout).
		AddOutput(testStake, stakeScript(env.key)).Build()
	for name, candidate := range map[string]*tx.Transaction{
		"nil":      nil,
		"coinbase": testCoinbase(6),
		"plain":    plain,
	} {
		_, err := CheckProofOfStake(testParams(3), prev, candidate, easyBits, at, env.store, env.engine)
		if !errors.Is(err, ErrNotCoinStake) {
			t.Errorf("%s: err = %v, want ErrNotCoinStake", name, err)
		}
		if KindOf(err) != KindMalformedInput || PenaltyOf(err) != PenaltyHostile {
			t.Errorf("%s: kind %q penalty %d", name, KindOf(err), PenaltyOf(err))
		}
	}
}

func TestCheckProofOfStake_MissingCoin(t *testing.T) {
	env := setupStakeEnv(t)
	prev := env.chain[5]
	at := prev.time + testSpacing
	cs := signedCoinStake(t, env.key, at, testOutpoint(9), testStake)

	_, err := CheckProofOfStake(testParams(3), prev, cs, easyBits, at, env.store, env.engine)
	if !errors.Is(err, ErrStakePrevoutMissing) {
		t.Fatalf("err = %v, want ErrStakePrevoutMissing", err)
	}
	if KindOf(err) != KindMissingData || PenaltyOf(err) != PenaltyHostile {
		t.Fatalf("kind %q penalty %d, want missing data and hostile", KindOf(err), PenaltyOf(err))
	}
}

func TestCheckProofOfStake_SpentCoin(t *testing.T) {
	env := setupStakeEnv(t)
	if err := env.store.MarkSpent(env.prevout, 4); err != nil {
		t.Fatalf("MarkSpent: %v", err)
	}
	prev := env.chain[5]
	at := prev.time + testSpacing

	_, err := CheckProofOfStake(testParams(3), prev, env.coinstake(t, at), easyBits, at, env.store, env.engine)
	if !errors.Is(err, ErrStakeSpent) {
		t.Fatalf("err = %v, want ErrStakeSpent", err)
	}
}

func TestCheckProofOfStake_ScriptFailure(t *testing.T) {
	env := setupStakeEnv(t)
	prev := env.chain[5]
	at := prev.time + testSpacing

	// Signed by a key that does not own the coin.
	thief := testKey(t)
	cs := signedCoinStake(t, thief, at, env.prevout, testStake)

	_, err := CheckProofOfStake(testParams(3), prev, cs, easyBits, at, env.store, env.engine)
	if !errors.Is(err, ErrStakeScript) || !errors.Is(err, tx.ErrScriptMismatch) {
		t.Fatalf("err = %v, want ErrStakeScript wrapping ErrScriptMismatch", err)
	}
	if KindOf(err) != KindPolicyViolation || PenaltyOf(err) != PenaltyHostile {
		t.Fatalf("kind %q penalty %d, want policy violation and hostile", KindOf(err), PenaltyOf(err))
	}

	// Tampering after signing breaks the signature.
	cs = env.coinstake(t, at)
	cs.Outputs[1].Value++
	_, err = CheckProofOfStake(testParams(3), prev, cs, easyBits, at, env.store, env.engine)
	if !errors.Is(err, ErrStakeScript) || !errors.Is(err, tx.ErrInvalidSig) {
		t.Fatalf("tampered: err = %v, want ErrStakeScript wrapping ErrInvalidSig", err)
	}
}

func TestCheckProofOfStake_KernelFailuresAreBenign(t *testing.T) {
	env := setupStakeEnv(t)
	prev := env.chain[5]
	at := prev.time + testSpacing
	cs := env.coinstake(t, at)

	_, err := CheckProofOfStake(testParams(3), prev, cs, hardBits, at, env.store, env.engine)
	if !IsKernelMiss(err) || !errors.Is(err, ErrKernelMiss) {
		t.Fatalf("err = %v, want kernel miss", err)
	}
	if PenaltyOf(err) != PenaltyBenign {
		t.Fatalf("kernel miss penalty = %d, want %d", PenaltyOf(err), PenaltyBenign)
	}

	// Any failure inside the kernel check is low severity at this level,
	// but keeps its kind.
	_, err = CheckProofOfStake(testParams(3), prev, cs, 0x04923456, at, env.store, env.engine)
	if !errors.Is(err, ErrBadCompact) {
		t.Fatalf("err = %v, want ErrBadCompact", err)
	}
	if KindOf(err) != KindMalformedInput || PenaltyOf(err) != PenaltyBenign {
		t.Fatalf("kind %q penalty %d, want malformed input and benign", KindOf(err), PenaltyOf(err))
	}

	// Block time before the coin existed.
	early := env.chain[1].time
	_, err = CheckProofOfStake(testParams(3), prev, env.coinstake(t, early), easyBits, early, env.store, env.engine)
	if !errors.Is(err, ErrTimeViolation) || PenaltyOf(err) != PenaltyBenign {
		t.Fatalf("err = %v penalty %d, want benign ErrTimeViolation", err, PenaltyOf(err))
	}
}

func TestCheckProofOfStake_ViewError(t *testing.T) {
	env := setupStakeEnv(t)
	prev := env.chain[5]
	at := prev.time + testSpacing

	_, err := CheckProofOfStake(testParams(3), prev, env.coinstake(t, at), easyBits, at, errView{}, env.engine)
	if !errors.Is(err, errDisk) {
		t.Fatalf("err = %v, want errDisk", err)
	}
	if PenaltyOf(err) != PenaltyNone {
		t.Fatalf("penalty = %d, want none", PenaltyOf(err))
	}
}

func TestCheckProofOfStake_NoParent(t *testing.T) {
	env := setupStakeEnv(t)
	at := env.chain[5].time
	_, err := CheckProofOfStake(testParams(3), nil, env.coinstake(t, at), easyBits, at, env.store, env.engine)
	if !errors.Is(err, ErrOriginNotFound) {
		t.Fatalf("err = %v, want ErrOriginNotFound", err)
	}
}
