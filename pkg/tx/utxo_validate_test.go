package tx

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Klingon-tech/klingnet-stake/pkg/crypto"
	"github.com/Klingon-tech/klingnet-stake/pkg/types"
)

// mockUTXOProvider is a simple in-memory UTXO provider for testing.
type mockUTXOProvider struct {
	utxos map[types.Outpoint]mockUTXO
}

type mockUTXO struct {
	value  uint64
	script types.Script
}

func newMockProvider() *mockUTXOProvider {
	return &mockUTXOProvider{utxos: make(map[types.Outpoint]mockUTXO)}
}

func (m *mockUTXOProvider) add(op types.Outpoint, value uint64, script types.Script) {
	m.utxos[op] = mockUTXO{value: value, script: script}
}

func (m *mockUTXOProvider) GetUTXO(op types.Outpoint) (uint64, types.Script, error) {
	u, ok := m.utxos[op]
	if !ok {
		return 0, types.Script{}, fmt.Errorf("not found")
	}
	return u.value, u.script, nil
}

func (m *mockUTXOProvider) HasUTXO(op types.Outpoint) bool {
	_, ok := m.utxos[op]
	return ok
}

func spendTx(t *testing.T, key *crypto.PrivateKey, prevOut types.Outpoint, value uint64) *Transaction {
	t.Helper()
	b := NewBuilder().
		AddInput(prevOut).
		AddOutput(value, types.Script{Type: types.ScriptTypeP2PKH, Data: make([]byte, 20)})
	if err := b.Sign(key); err != nil {
		t.Fatalf("sign: %v", err)
	}
	return b.Build()
}

func TestValidateWithUTXOs_Valid(t *testing.T) {
	key, _ := crypto.GenerateKey()
	addr := crypto.AddressFromPubKey(key.PublicKey())

	prevOut := types.Outpoint{TxID: types.Hash{0x01}, Index: 0}
	provider := newMockProvider()
	provider.add(prevOut, 5000, testP2PKHScript(addr))

	fee, err := spendTx(t, key, prevOut, 4000).ValidateWithUTXOs(provider, NewScriptEngine())
	if err != nil {
		t.Fatalf("ValidateWithUTXOs: %v", err)
	}
	if fee != 1000 {
		t.Errorf("fee = %d, want 1000", fee)
	}
}

func TestValidateWithUTXOs_InputNotFound(t *testing.T) {
	key, _ := crypto.GenerateKey()
	tx := spendTx(t, key, types.Outpoint{TxID: types.Hash{0x09}}, 10)
	_, err := tx.ValidateWithUTXOs(newMockProvider(), NewScriptEngine())
	if !errors.Is(err, ErrInputNotFound) {
		t.Errorf("expected ErrInputNotFound, got %v", err)
	}
}

func TestValidateWithUTXOs_InsufficientFunds(t *testing.T) {
	key, _ := crypto.GenerateKey()
	addr := crypto.AddressFromPubKey(key.PublicKey())
	prevOut := types.Outpoint{TxID: types.Hash{0x01}}
	provider := newMockProvider()
	provider.add(prevOut, 100, testP2PKHScript(addr))

	_, err := spendTx(t, key, prevOut, 200).ValidateWithUTXOs(provider, NewScriptEngine())
	if !errors.Is(err, ErrInsufficientFee) {
		t.Errorf("expected ErrInsufficientFee, got %v", err)
	}
}

func TestValidateWithUTXOs_ScriptMismatch(t *testing.T) {
	key, _ := crypto.GenerateKey()
	other, _ := crypto.GenerateKey()
	prevOut := types.Outpoint{TxID: types.Hash{0x01}}
	provider := newMockProvider()
	provider.add(prevOut, 5000, testP2PKHScript(crypto.AddressFromPubKey(other.PublicKey())))

	_, err := spendTx(t, key, prevOut, 10).ValidateWithUTXOs(provider, NewScriptEngine())
	if !errors.Is(err, ErrScriptMismatch) {
		t.Errorf("expected ErrScriptMismatch, got %v", err)
	}
}

func TestValidateWithUTXOs_StakeSpend(t *testing.T) {
	key, _ := crypto.GenerateKey()
	prevOut := types.Outpoint{TxID: types.Hash{0x03}}
	provider := newMockProvider()
	provider.add(prevOut, 5000, types.Script{Type: types.ScriptTypeStake, Data: key.PublicKey()})

	if _, err := spendTx(t, key, prevOut, 5000).ValidateWithUTXOs(provider, NewScriptEngine()); err != nil {
		t.Errorf("stake spend with matching key should pass: %v", err)
	}
}

func TestValidateWithUTXOs_StructuralFailure(t *testing.T) {
	tx := &Transaction{Outputs: []Output{{Value: 1}}}
	if _, err := tx.ValidateWithUTXOs(newMockProvider(), NewScriptEngine()); !errors.Is(err, ErrNoInputs) {
		t.Errorf("expected ErrNoInputs, got %v", err)
	}
}
