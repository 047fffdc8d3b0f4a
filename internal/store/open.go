package store

import (
	"context"
	"fmt"

	"nse-oi-tracker/internal/config"
)

// Open builds the KV backend selected by cfg.
func Open(ctx context.Context, cfg config.StoreConfig) (KV, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		return NewSQLiteKV(cfg.Path)
	case config.BackendRedis:
		return NewRedisKV(ctx, cfg.RedisURL)
	case config.BackendMemory:
		return NewMemoryKV(), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}
