package tx

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingnet-stake/pkg/crypto"
	"github.com/Klingon-tech/klingnet-stake/pkg/types"
)

// Script errors.
var (
	ErrInputIndex        = errors.New("input index out of range")
	ErrScriptMismatch    = errors.New("pubkey does not match UTXO script")
	ErrUnspendableOutput = errors.New("output is unspendable")
	ErrUnknownScript     = errors.New("unknown script type")
	ErrInvalidSig        = errors.New("invalid signature")
)

// ScriptEngine authorizes spends of locked outputs. A spend is authorized
// when the input's public key satisfies the locking script and the input
// signature is a valid Schnorr signature over the transaction hash.
type ScriptEngine struct{}

// NewScriptEngine returns a script engine.
func NewScriptEngine() *ScriptEngine {
	return &ScriptEngine{}
}

// VerifyInput checks that input index of t may spend an output locked by lock.
func (e *ScriptEngine) VerifyInput(t *Transaction, index int, lock types.Script) error {
	if index < 0 || index >= len(t.Inputs) {
		return fmt.Errorf("%w: %d of %d", ErrInputIndex, index, len(t.Inputs))
	}
	in := t.Inputs[index]

	switch lock.Type {
	case types.ScriptTypeP2PKH:
		if err := verifyP2PKH(in.PubKey, lock.Data); err != nil {
			return fmt.Errorf("input %d: %w", index, err)
		}
	case types.ScriptTypeStake:
		if len(lock.Data) != crypto.CompressedPubKeySize {
			return fmt.Errorf("input %d: %w: stake script data length %d, want %d",
				index, ErrScriptMismatch, len(lock.Data), crypto.CompressedPubKeySize)
		}
		if !bytes.Equal(in.PubKey, lock.Data) {
			return fmt.Errorf("input %d: %w: pubkey does not match stake", index, ErrScriptMismatch)
		}
	case types.ScriptTypeBurn:
		return fmt.Errorf("input %d: %w: %s output cannot be spent", index, ErrUnspendableOutput, lock.Type)
	default:
		return fmt.Errorf("input %d: %w: %s", index, ErrUnknownScript, lock.Type)
	}

	if len(in.Signature) == 0 {
		return fmt.Errorf("input %d: %w", index, ErrMissingSig)
	}
	hash := t.Hash()
	if !crypto.VerifySignature(hash[:], in.Signature, in.PubKey) {
		return fmt.Errorf("input %d: %w", index, ErrInvalidSig)
	}
	return nil
}

// verifyP2PKH checks that a public key hashes to the expected address in the script.
func verifyP2PKH(pubKey []byte, scriptData []byte) error {
	if len(scriptData) != types.AddressSize {
		return fmt.Errorf("%w: script data length %d", ErrScriptMismatch, len(scriptData))
	}
	if len(pubKey) == 0 {
		return ErrMissingPubKey
	}

	var expected types.Address
	copy(expected[:], scriptData)
	derived := crypto.AddressFromPubKey(pubKey)

	if expected != derived {
		return fmt.Errorf("%w: expected %s, got %s", ErrScriptMismatch, expected, derived)
	}
	return nil
}
