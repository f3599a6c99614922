package store

import (
	"context"
	"fmt"

	"github.com/maintdesk/backend/internal/config"
)

// Open constructs the backend named by cfg.Backend.
func Open(ctx context.Context, cfg config.StoreConfig, embedDim int) (Store, error) {
	switch cfg.Backend {
	case "sqlite":
		return NewSQLiteStore(cfg.SQLitePath)
	case "postgres":
		return NewPostgresStore(ctx, cfg, embedDim)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
