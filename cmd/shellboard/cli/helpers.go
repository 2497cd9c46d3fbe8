package cli

import (
	"context"
	"fmt"

	"github.com/shellboard/shellboard/internal/config"
	"github.com/shellboard/shellboard/internal/store"
)

// cliContext returns a background context for CLI initialization.
func cliContext() context.Context {
	return context.Background()
}

// openStore resolves the data directory from flags and config, then opens
// the SQLite store. Callers own the Close.
func openStore() (*store.Store, error) {
	dir := dataDir
	if dir == "" {
		cfg, err := loadConfig()
		if err != nil {
			return nil, err
		}
		dir = cfg.Paths.DataDir
	}
	if dir == "" {
		dir = config.Default().Paths.DataDir
	}
	st, err := store.NewStore(dir)
	if err != nil {
		return nil, fmt.Errorf("open store at %s: %w", dir, err)
	}
	return st, nil
}
