package consensus

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/Klingon-tech/klingnet-stake/config"
	"github.com/Klingon-tech/klingnet-stake/internal/utxo"
	"github.com/Klingon-tech/klingnet-stake/pkg/block"
	"github.com/Klingon-tech/klingnet-stake/pkg/crypto"
	"github.com/Klingon-tech/klingnet-stake/pkg/tx"
	"github.com/Klingon-tech/klingnet-stake/pkg/types"
)

const (
	testGenesisTime = 1_700_000_000 // multiple of 16
	testSpacing     = 16
	easyBits        = 0x207fffff
	hardBits        = 0x03000001 // target 1
	testStake       = 10 * config.Coin
)

var (
	_ CoinView       = (*utxo.Store)(nil)
	_ ScriptVerifier = (*tx.ScriptEngine)(nil)
)

// testBlock is an in-memory block index entry.
type testBlock struct {
	height   uint64
	time     uint32
	modifier types.StakeModifier
	pos      types.DiskPos
	parent   *testBlock
}

func (b *testBlock) Height() uint64                     { return b.height }
func (b *testBlock) Time() uint32                       { return b.time }
func (b *testBlock) StakeModifier() types.StakeModifier { return b.modifier }
func (b *testBlock) DataPos() types.DiskPos             { return b.pos }

func (b *testBlock) Ancestor(height uint64) (BlockRef, bool) {
	if height > b.height {
		return nil, false
	}
	p := b
	for p != nil && p.height > height {
		p = p.parent
	}
	if p == nil {
		return nil, false
	}
	return p, true
}

// buildTestChain returns n linked blocks starting at height 0, each with a
// chained stake modifier and a distinct disk position.
func buildTestChain(t *testing.T, n int) []*testBlock {
	t.Helper()
	chain := make([]*testBlock, n)
	for i := range chain {
		b := &testBlock{
			height: uint64(i),
			time:   testGenesisTime + uint32(i)*testSpacing,
			pos:    types.DiskPos{File: 0, Offset: uint32(i) * 1000},
		}
		if i > 0 {
			b.parent = chain[i-1]
			kernel := crypto.Hash([]byte{byte(i)})
			b.modifier = ComputeStakeModifier(chain[i-1], kernel)
		}
		chain[i] = b
	}
	return chain
}

// mapView is a CoinView over a map.
type mapView map[types.Outpoint]*utxo.Coin

func (m mapView) GetCoin(op types.Outpoint) (*utxo.Coin, bool, error) {
	c, ok := m[op]
	return c, ok, nil
}

// countingView counts lookups on an inner view.
type countingView struct {
	inner CoinView
	calls int
}

func (v *countingView) GetCoin(op types.Outpoint) (*utxo.Coin, bool, error) {
	v.calls++
	return v.inner.GetCoin(op)
}

var errDisk = errors.New("disk failure")

type errView struct{}

func (errView) GetCoin(types.Outpoint) (*utxo.Coin, bool, error) {
	return nil, false, errDisk
}

// stubScripts records calls and returns err.
type stubScripts struct {
	err   error
	calls int
}

func (s *stubScripts) VerifyInput(*tx.Transaction, int, types.Script) error {
	s.calls++
	return s.err
}

func testParams(minConf uint64) *config.ConsensusParams {
	p := config.RegtestParams()
	p.StakeMinConfirmations = minConf
	return p
}

func testOutpoint(b byte) types.Outpoint {
	return types.Outpoint{TxID: types.Hash{b, 0xaa}, Index: uint32(b)}
}

// testCoin returns an unspent coin created in blk.
func testCoin(op types.Outpoint, blk *testBlock, value uint64, script types.Script) *utxo.Coin {
	return &utxo.Coin{
		Outpoint: op,
		Value:    value,
		Script:   script,
		Height:   blk.height,
		Time:     blk.time,
	}
}

func testKey(t *testing.T) *crypto.PrivateKey {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	return key
}

func stakeScript(key *crypto.PrivateKey) types.Script {
	return types.Script{Type: types.ScriptTypeStake, Data: key.PublicKey()}
}

// signedCoinStake builds a coinstake at time t spending kernel back to the
// owner's stake script.
func signedCoinStake(t *testing.T, key *crypto.PrivateKey, at uint32, kernel types.Outpoint, value uint64) *tx.Transaction {
	t.Helper()
	b := tx.NewCoinStakeBuilder(at, kernel).AddOutput(value, stakeScript(key))
	if err := b.Sign(key); err != nil {
		t.Fatalf("sign coinstake: %v", err)
	}
	return b.Build()
}

// testCoinbase returns a coinbase unique to height.
func testCoinbase(height uint64) *tx.Transaction {
	data := binary.LittleEndian.AppendUint64(nil, height)
	return &tx.Transaction{
		Version: 1,
		Inputs:  []tx.Input{{PrevOut: types.Outpoint{}, Signature: data}},
		Outputs: []tx.Output{{
			Value:  config.Coin,
			Script: types.Script{Type: types.ScriptTypeP2PKH, Data: make([]byte, types.AddressSize)},
		}},
	}
}

// stakeBlock assembles a proof-of-stake block on top of prev.
func stakeBlock(prev *testBlock, bits, at uint32, coinstake *tx.Transaction) *block.Block {
	txs := []*tx.Transaction{testCoinbase(prev.height + 1), coinstake}
	blk := block.NewBlock(&block.Header{
		Version:   1,
		Timestamp: at,
		Height:    prev.height + 1,
		Bits:      bits,
	}, txs)
	blk.Header.MerkleRoot = block.ComputeMerkleRoot(blk.TxHashes())
	return blk
}
