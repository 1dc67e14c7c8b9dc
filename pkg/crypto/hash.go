// Package crypto provides the hash primitive and signature scheme used by
// consensus code.
package crypto

import (
	"encoding/binary"

	"github.com/Klingon-tech/klingnet-stake/pkg/types"
	"github.com/zeebo/blake3"
)

// Hash computes a BLAKE3-256 hash of the input data.
func Hash(data []byte) types.Hash {
	return blake3.Sum256(data)
}

// AddressFromPubKey derives an address from a compressed public key.
// Address = BLAKE3(compressed_pubkey)[:20].
func AddressFromPubKey(pubKey []byte) types.Address {
	h := Hash(pubKey)
	var addr types.Address
	copy(addr[:], h[:types.AddressSize])
	return addr
}

// HashConcat hashes the concatenation of two hashes.
// Used for building merkle trees.
func HashConcat(a, b types.Hash) types.Hash {
	var buf [64]byte
	copy(buf[:32], a[:])
	copy(buf[32:], b[:])
	return Hash(buf[:])
}

// Writer accumulates the canonical serialization of consensus values:
// fixed-width little-endian integers and raw 32-byte hashes, in write order.
// Sum hashes the accumulated bytes.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer with room for sizeHint bytes.
func NewWriter(sizeHint int) *Writer {
	return &Writer{buf: make([]byte, 0, sizeHint)}
}

// WriteHash appends a 32-byte hash.
func (w *Writer) WriteHash(h types.Hash) *Writer {
	w.buf = append(w.buf, h[:]...)
	return w
}

// WriteUint32 appends v as 4 little-endian bytes.
func (w *Writer) WriteUint32(v uint32) *Writer {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
	return w
}

// WriteUint64 appends v as 8 little-endian bytes.
func (w *Writer) WriteUint64(v uint64) *Writer {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
	return w
}

// Bytes returns the serialized bytes written so far.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Sum returns the BLAKE3-256 hash of the serialized bytes.
func (w *Writer) Sum() types.Hash {
	return Hash(w.buf)
}
