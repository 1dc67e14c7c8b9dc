package types

import "fmt"

// Outpoint references a specific output in a transaction.
type Outpoint struct {
	TxID  Hash   `json:"txid"`
	Index uint32 `json:"index"`
}

// IsZero returns true if the outpoint has a zero TxID and zero index.
// Coinbase inputs spend the zero outpoint.
func (o Outpoint) IsZero() bool {
	return o.TxID.IsZero() && o.Index == 0
}

// String returns "txid:index" in hex.
func (o Outpoint) String() string {
	return fmt.Sprintf("%s:%d", o.TxID.String(), o.Index)
}

// DiskPos locates a block's data in the block store: the file number and
// the byte offset of the block inside that file.
type DiskPos struct {
	File   uint32 `json:"file"`
	Offset uint32 `json:"offset"`
}

// String returns "file:offset".
func (p DiskPos) String() string {
	return fmt.Sprintf("%d:%d", p.File, p.Offset)
}
