package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/btcsuite/btcd/blockchain"
)

// =============================================================================
// Protocol Rules (immutable per network)
// These MUST match across all nodes or consensus breaks.
// =============================================================================

// Denomination constants.
// 1 coin = 10^8 base units. All on-chain values are in base units.
const (
	Decimals  = 8
	Coin      = 100_000_000
	MilliCoin = 100_000
)

// Block and transaction size limits (consensus-critical).
const (
	MaxBlockSize  = 2_000_000 // header + all tx signing bytes
	MaxBlockTxs   = 500       // including coinbase and coinstake
	MaxTxInputs   = 2500
	MaxTxOutputs  = 2500
	MaxScriptData = 65_536
)

// ConsensusParams holds the proof-of-stake rules of a network.
type ConsensusParams struct {
	Name string `json:"name"`

	// ProtocolV2Time is the activation time of the v2 timestamp rules.
	// V2 applies to blocks with a timestamp strictly after it.
	ProtocolV2Time uint32 `json:"protocol_v2_time"`

	// StakeTimestampMask must be zero in the low bits of a v2 coinstake
	// timestamp. Always of the form 2^k - 1.
	StakeTimestampMask uint32 `json:"stake_timestamp_mask"`

	// StakeMinConfirmations is the minimum depth of a staked coin, counting
	// the block being validated.
	StakeMinConfirmations uint64 `json:"stake_min_confirmations"`

	// StakeLimitBits is the easiest base target a block may claim.
	StakeLimitBits uint32 `json:"stake_limit_bits"`

	// TargetSpacing is the intended number of seconds between blocks.
	TargetSpacing uint32 `json:"target_spacing"`
}

// IsProtocolV2 reports whether v2 rules apply to a block with this timestamp.
func (p *ConsensusParams) IsProtocolV2(blockTime uint32) bool {
	return blockTime > p.ProtocolV2Time
}

// MainnetParams returns the mainnet consensus rules.
func MainnetParams() *ConsensusParams {
	return &ConsensusParams{
		Name:                  string(Mainnet),
		ProtocolV2Time:        1770734103, // 2026-02-10
		StakeTimestampMask:    0x0f,
		StakeMinConfirmations: 500,
		StakeLimitBits:        0x1e0fffff,
		TargetSpacing:         64,
	}
}

// TestnetParams returns the testnet consensus rules.
func TestnetParams() *ConsensusParams {
	p := MainnetParams()
	p.Name = string(Testnet)
	p.ProtocolV2Time = 1767225600 // 2026-01-01
	p.StakeMinConfirmations = 10
	return p
}

// RegtestParams returns rules for local testing: v2 from the start, the
// easiest target, and a shallow maturity depth.
func RegtestParams() *ConsensusParams {
	return &ConsensusParams{
		Name:                  string(Regtest),
		ProtocolV2Time:        0,
		StakeTimestampMask:    0x0f,
		StakeMinConfirmations: 1,
		StakeLimitBits:        0x207fffff,
		TargetSpacing:         16,
	}
}

// ParamsFor returns the consensus rules for the given network.
func ParamsFor(network NetworkType) *ConsensusParams {
	switch network {
	case Testnet:
		return TestnetParams()
	case Regtest:
		return RegtestParams()
	default:
		return MainnetParams()
	}
}

// LoadParamsFile loads consensus rules from a JSON file.
func LoadParamsFile(path string) (*ConsensusParams, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading params file: %w", err)
	}

	var p ConsensusParams
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing params file: %w", err)
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	return &p, nil
}

// Save writes the consensus rules to a JSON file.
func (p *ConsensusParams) Save(path string) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding params: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing params file: %w", err)
	}
	return nil
}

// Validate checks that the consensus rules are usable.
func (p *ConsensusParams) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if p.StakeTimestampMask&(p.StakeTimestampMask+1) != 0 {
		return fmt.Errorf("stake_timestamp_mask %#x is not of the form 2^k-1", p.StakeTimestampMask)
	}
	if p.StakeMinConfirmations == 0 {
		return fmt.Errorf("stake_min_confirmations must be at least 1")
	}
	if p.StakeLimitBits&0x00800000 != 0 {
		return fmt.Errorf("stake_limit_bits %#08x is negative", p.StakeLimitBits)
	}
	if blockchain.CompactToBig(p.StakeLimitBits).Sign() <= 0 {
		return fmt.Errorf("stake_limit_bits %#08x decodes to zero", p.StakeLimitBits)
	}
	if p.TargetSpacing == 0 {
		return fmt.Errorf("target_spacing must be positive")
	}
	return nil
}
