package chain

import (
	"fmt"
	"os"

	"github.com/Klingon-tech/klingnet-stake/config"
	"github.com/Klingon-tech/klingnet-stake/internal/log"
	"github.com/Klingon-tech/klingnet-stake/internal/storage"
)

// Open opens the database described by cfg and the chain stored in it.
// The caller closes the returned database after use.
func Open(cfg *config.Config) (*Chain, storage.DB, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, nil, err
	}
	params, err := cfg.Params()
	if err != nil {
		return nil, nil, err
	}

	var db storage.DB
	if cfg.Storage.InMemory {
		db, err = storage.NewBadgerInMemory()
	} else {
		if err = os.MkdirAll(cfg.DBDir(), 0o700); err != nil {
			return nil, nil, fmt.Errorf("create db dir: %w", err)
		}
		db, err = storage.NewBadger(cfg.DBDir())
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	ch, err := New(db, params, cfg.Cache.BlockCacheSize)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	log.Storage.Info().
		Str("network", string(cfg.Network)).
		Bool("in_memory", cfg.Storage.InMemory).
		Uint64("height", ch.Height()).
		Msg("Chain opened")
	return ch, db, nil
}
