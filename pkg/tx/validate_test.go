package tx

import (
	"errors"
	"math"
	"testing"

	"github.com/Klingon-tech/klingnet-stake/config"
	"github.com/Klingon-tech/klingnet-stake/pkg/crypto"
	"github.com/Klingon-tech/klingnet-stake/pkg/types"
)

// validTx creates a minimal valid signed transaction for testing.
func validTx(t *testing.T) *Transaction {
	t.Helper()
	key, _ := crypto.GenerateKey()
	b := NewBuilder().
		AddInput(types.Outpoint{TxID: types.Hash{0x01}, Index: 0}).
		AddOutput(1000, types.Script{Type: types.ScriptTypeP2PKH, Data: make([]byte, 20)})
	if err := b.Sign(key); err != nil {
		t.Fatalf("sign: %v", err)
	}
	return b.Build()
}

func TestValidate_Valid(t *testing.T) {
	if err := validTx(t).Validate(); err != nil {
		t.Errorf("valid tx should pass: %v", err)
	}
}

func TestValidate_NoInputs(t *testing.T) {
	tx := &Transaction{Outputs: []Output{{Value: 1}}}
	if err := tx.Validate(); !errors.Is(err, ErrNoInputs) {
		t.Errorf("expected ErrNoInputs, got %v", err)
	}
}

func TestValidate_NoOutputs(t *testing.T) {
	tx := validTx(t)
	tx.Outputs = nil
	if err := tx.Validate(); !errors.Is(err, ErrNoOutputs) {
		t.Errorf("expected ErrNoOutputs, got %v", err)
	}
}

func TestValidate_DuplicateInput(t *testing.T) {
	tx := validTx(t)
	tx.Inputs = append(tx.Inputs, tx.Inputs[0])
	if err := tx.Validate(); !errors.Is(err, ErrDuplicateInput) {
		t.Errorf("expected ErrDuplicateInput, got %v", err)
	}
}

func TestValidate_MissingPubKey(t *testing.T) {
	tx := validTx(t)
	tx.Inputs[0].PubKey = nil
	if err := tx.Validate(); !errors.Is(err, ErrMissingPubKey) {
		t.Errorf("expected ErrMissingPubKey, got %v", err)
	}
}

func TestValidate_MissingSig(t *testing.T) {
	tx := validTx(t)
	tx.Inputs[0].Signature = nil
	if err := tx.Validate(); !errors.Is(err, ErrMissingSig) {
		t.Errorf("expected ErrMissingSig, got %v", err)
	}
}

func TestValidate_ZeroValueOutput(t *testing.T) {
	tx := validTx(t)
	tx.Outputs[0].Value = 0
	if err := tx.Validate(); !errors.Is(err, ErrZeroOutput) {
		t.Errorf("expected ErrZeroOutput, got %v", err)
	}
}

func TestValidate_CoinStakeMarkerAllowed(t *testing.T) {
	key, _ := crypto.GenerateKey()
	b := NewCoinStakeBuilder(16, types.Outpoint{TxID: types.Hash{0x02}}).
		AddOutput(10, types.Script{Type: types.ScriptTypeStake, Data: key.PublicKey()})
	b.Sign(key)
	cs := b.Build()
	if err := cs.Validate(); err != nil {
		t.Fatalf("coinstake marker should be allowed: %v", err)
	}

	// A zero-value output after the marker is still rejected.
	cs.Outputs = append(cs.Outputs, Output{Script: types.Script{Type: types.ScriptTypeP2PKH}})
	if err := cs.Validate(); !errors.Is(err, ErrZeroOutput) {
		t.Errorf("expected ErrZeroOutput, got %v", err)
	}
}

func TestValidate_OutputOverflow(t *testing.T) {
	tx := validTx(t)
	tx.Outputs = []Output{
		{Value: math.MaxUint64, Script: types.Script{Type: types.ScriptTypeP2PKH}},
		{Value: 1, Script: types.Script{Type: types.ScriptTypeP2PKH}},
	}
	if err := tx.Validate(); !errors.Is(err, ErrOutputOverflow) {
		t.Errorf("expected ErrOutputOverflow, got %v", err)
	}
}

func TestValidate_Coinbase(t *testing.T) {
	tx := &Transaction{
		Version: 1,
		Inputs:  []Input{{Signature: []byte{0x05}}},
		Outputs: []Output{{Value: 5000, Script: types.Script{Type: types.ScriptTypeP2PKH, Data: make([]byte, 20)}}},
	}
	if err := tx.Validate(); err != nil {
		t.Errorf("coinbase should pass: %v", err)
	}
}

func TestValidate_TooManyInputs(t *testing.T) {
	tx := validTx(t)
	in := tx.Inputs[0]
	tx.Inputs = make([]Input, config.MaxTxInputs+1)
	for i := range tx.Inputs {
		tx.Inputs[i] = in
		tx.Inputs[i].PrevOut = types.Outpoint{TxID: types.Hash{0x01}, Index: uint32(i)}
	}
	if err := tx.Validate(); !errors.Is(err, ErrTooManyInputs) {
		t.Errorf("expected ErrTooManyInputs, got %v", err)
	}
}

func TestValidate_TooManyOutputs(t *testing.T) {
	tx := validTx(t)
	out := tx.Outputs[0]
	tx.Outputs = make([]Output, config.MaxTxOutputs+1)
	for i := range tx.Outputs {
		tx.Outputs[i] = out
	}
	if err := tx.Validate(); !errors.Is(err, ErrTooManyOutputs) {
		t.Errorf("expected ErrTooManyOutputs, got %v", err)
	}
}

func TestValidate_ScriptDataTooLarge(t *testing.T) {
	tx := validTx(t)
	tx.Outputs[0].Script.Data = make([]byte, config.MaxScriptData+1)
	if err := tx.Validate(); !errors.Is(err, ErrScriptDataTooLarge) {
		t.Errorf("expected ErrScriptDataTooLarge, got %v", err)
	}

	tx.Outputs[0].Script.Data = make([]byte, config.MaxScriptData)
	if err := tx.Validate(); err != nil {
		t.Errorf("script data at limit should pass: %v", err)
	}
}
