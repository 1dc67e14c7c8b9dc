// Package config handles application configuration.
//
// Configuration is split into two categories:
//   - Protocol rules: ConsensusParams, must match across all nodes
//   - Node settings: Runtime configuration, can vary per node
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// NetworkType identifies the network a node runs on.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
	Regtest NetworkType = "regtest"
)

// =============================================================================
// Node Configuration (runtime, per-node settings)
// =============================================================================

// Config holds node-specific runtime configuration.
// These settings can vary between nodes without breaking consensus.
type Config struct {
	Network NetworkType `conf:"network"`
	DataDir string      `conf:"datadir"`

	// ParamsFile overrides the built-in consensus rules of Network.
	ParamsFile string `conf:"params.file"`

	Storage StorageConfig
	Cache   CacheConfig
	Log     LogConfig
}

// StorageConfig holds database settings.
type StorageConfig struct {
	InMemory bool `conf:"storage.inmemory"`
}

// CacheConfig holds in-memory cache sizes.
type CacheConfig struct {
	BlockCacheSize int `conf:"cache.blocks"` // Recently used blocks kept decoded
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// Params returns the consensus rules the node runs with.
func (c *Config) Params() (*ConsensusParams, error) {
	if c.ParamsFile != "" {
		return LoadParamsFile(c.ParamsFile)
	}
	return ParamsFor(c.Network), nil
}

// =============================================================================
// Directory helpers
// =============================================================================

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.klingnet-stake
//	macOS:   ~/Library/Application Support/KlingnetStake
//	Windows: %APPDATA%\KlingnetStake
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".klingnet-stake"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "KlingnetStake")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "KlingnetStake")
		}
		return filepath.Join(home, "AppData", "Roaming", "KlingnetStake")
	default:
		return filepath.Join(home, ".klingnet-stake")
	}
}

// ChainDataDir returns the network-specific data directory.
func (c *Config) ChainDataDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// DBDir returns the chain database directory.
func (c *Config) DBDir() string {
	return filepath.Join(c.ChainDataDir(), "chaindata")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "klingnet-stake.conf")
}
