package badger

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/hydrun/internal/common"
)

// BadgerDB owns the badgerhold store that backs the run archive
type BadgerDB struct {
	store  *badgerhold.Store
	logger arbor.ILogger
	config *common.BadgerConfig
}

// NewBadgerDB opens (and optionally resets) the embedded database. The
// run archive survives restarts unless reset_on_startup is set, which is
// only useful for development.
func NewBadgerDB(logger arbor.ILogger, config *common.BadgerConfig) (*BadgerDB, error) {
	if config.ResetOnStartup {
		logger.Warn().Str("path", config.Path).Msg("Resetting run archive on startup")
		if err := os.RemoveAll(config.Path); err != nil {
			logger.Warn().Err(err).Str("path", config.Path).Msg("Archive reset failed, opening existing data")
		}
	}

	if err := os.MkdirAll(filepath.Dir(config.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}

	opts := badgerhold.DefaultOptions
	opts.Dir = config.Path
	opts.ValueDir = config.Path
	// Badger's own logger is noisy at startup; arbor covers what we need
	opts.Logger = nil

	store, err := badgerhold.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open run archive at %s: %w", config.Path, err)
	}

	logger.Debug().Str("path", config.Path).Msg("Run archive opened")

	return &BadgerDB{store: store, logger: logger, config: config}, nil
}

// Store exposes the badgerhold store to the typed storage layers
func (b *BadgerDB) Store() *badgerhold.Store {
	return b.store
}

func (b *BadgerDB) Close() error {
	if b.store == nil {
		return nil
	}
	return b.store.Close()
}
