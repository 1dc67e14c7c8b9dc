package types

import (
	"encoding/hex"
	"encoding/json"
)

// ScriptType identifies the type of locking script.
type ScriptType uint8

const (
	ScriptTypeNone  ScriptType = 0x00 // Empty script (coinstake marker output)
	ScriptTypeP2PKH ScriptType = 0x01 // Pay to public key hash (data = 20-byte address)
	ScriptTypeBurn  ScriptType = 0x11 // Unspendable
	ScriptTypeStake ScriptType = 0x40 // Pay to public key (data = 33-byte compressed pubkey)
)

// String returns a human-readable name for the script type.
func (st ScriptType) String() string {
	switch st {
	case ScriptTypeNone:
		return "None"
	case ScriptTypeP2PKH:
		return "P2PKH"
	case ScriptTypeBurn:
		return "Burn"
	case ScriptTypeStake:
		return "Stake"
	default:
		return "Unknown"
	}
}

// Script defines the locking condition for an output.
type Script struct {
	Type ScriptType `json:"type"`
	Data []byte     `json:"data"`
}

// IsEmpty reports whether the script carries neither a type nor data.
func (s Script) IsEmpty() bool {
	return s.Type == ScriptTypeNone && len(s.Data) == 0
}

// scriptJSON is the JSON representation of a Script with hex-encoded data.
type scriptJSON struct {
	Type ScriptType `json:"type"`
	Data string     `json:"data"`
}

// MarshalJSON encodes the script with hex-encoded data.
func (s Script) MarshalJSON() ([]byte, error) {
	return json.Marshal(scriptJSON{
		Type: s.Type,
		Data: hex.EncodeToString(s.Data),
	})
}

// UnmarshalJSON decodes a script with hex-encoded data.
func (s *Script) UnmarshalJSON(data []byte) error {
	var j scriptJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	s.Type = j.Type
	s.Data = nil
	if j.Data != "" {
		b, err := hex.DecodeString(j.Data)
		if err != nil {
			return err
		}
		s.Data = b
	}
	return nil
}
