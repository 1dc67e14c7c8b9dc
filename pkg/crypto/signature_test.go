package crypto

import (
	"bytes"
	"testing"
)

func TestGenerateKey(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	if pub := key.PublicKey(); len(pub) != CompressedPubKeySize {
		t.Errorf("public key length = %d, want %d", len(pub), CompressedPubKeySize)
	}
}

func TestPrivateKeyFromBytes(t *testing.T) {
	secret := bytes.Repeat([]byte{0x11}, 32)
	a, err := PrivateKeyFromBytes(secret)
	if err != nil {
		t.Fatalf("PrivateKeyFromBytes: %v", err)
	}
	b, _ := PrivateKeyFromBytes(secret)
	if !bytes.Equal(a.PublicKey(), b.PublicKey()) {
		t.Error("same secret must yield the same public key")
	}

	if _, err := PrivateKeyFromBytes([]byte{0x01}); err == nil {
		t.Error("short secret should fail")
	}
}

func TestSign_Verify(t *testing.T) {
	key, _ := GenerateKey()
	hash := Hash([]byte("coinstake"))

	sig, err := key.Sign(hash[:])
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !VerifySignature(hash[:], sig, key.PublicKey()) {
		t.Fatal("valid signature rejected")
	}

	other := Hash([]byte("other"))
	if VerifySignature(other[:], sig, key.PublicKey()) {
		t.Error("signature accepted for the wrong hash")
	}

	otherKey, _ := GenerateKey()
	if VerifySignature(hash[:], sig, otherKey.PublicKey()) {
		t.Error("signature accepted for the wrong key")
	}

	sig[0] ^= 0xFF
	if VerifySignature(hash[:], sig, key.PublicKey()) {
		t.Error("corrupted signature accepted")
	}
}

func TestSign_InvalidHashLength(t *testing.T) {
	key, _ := GenerateKey()
	if _, err := key.Sign([]byte("short")); err == nil {
		t.Error("expected error for short hash")
	}
}

func TestVerify_InvalidInputs(t *testing.T) {
	hash := Hash([]byte("x"))
	if VerifySignature(hash[:], []byte{0x01}, []byte{0x02}) {
		t.Error("garbage inputs must not verify")
	}
	if VerifySignature(hash[:], nil, nil) {
		t.Error("nil inputs must not verify")
	}
}
