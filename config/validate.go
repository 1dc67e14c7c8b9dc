package config

import "fmt"

// Validate checks runtime node config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	switch cfg.Network {
	case Mainnet, Testnet, Regtest:
	default:
		return fmt.Errorf("network must be %q, %q or %q", Mainnet, Testnet, Regtest)
	}
	if cfg.DataDir == "" && !cfg.Storage.InMemory {
		return fmt.Errorf("datadir is required unless storage.inmemory is set")
	}
	if cfg.Cache.BlockCacheSize < 0 {
		return fmt.Errorf("cache.blocks must not be negative")
	}
	if cfg.Cache.BlockCacheSize == 0 {
		cfg.Cache.BlockCacheSize = DefaultBlockCacheSize
	}
	switch cfg.Log.Level {
	case "", "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not one of trace, debug, info, warn, error", cfg.Log.Level)
	}
	return nil
}
