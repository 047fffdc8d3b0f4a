package cli

import (
	"context"

	"github.com/rs/zerolog"

	"nse-oi-tracker/internal/backfill"
	"nse-oi-tracker/internal/config"
	"nse-oi-tracker/internal/dashboard"
	"nse-oi-tracker/internal/provider"
	"nse-oi-tracker/internal/store"
)

// App holds the application dependencies.
type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Service *dashboard.Service
	kv      store.KV
}

// NewApp wires the tracker against the configured relay and history store.
// An unreachable store degrades to in-memory history with a warning.
func NewApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *App {
	kv, err := store.Open(ctx, cfg.Store)
	if err != nil {
		logger.Warn().Err(err).Str("backend", cfg.Store.Backend).Msg("History store unavailable, keeping history in memory")
		kv = store.NewMemoryKV()
	} else {
		logger.Debug().Str("backend", cfg.Store.Backend).Msg("History store opened")
	}
	return NewAppWith(cfg, logger, provider.NewHTTPProvider(cfg.Provider, logger), kv)
}

// NewAppWith wires the tracker over an explicit provider and key-value store.
func NewAppWith(cfg *config.Config, logger zerolog.Logger, p provider.Provider, kv store.KV) *App {
	history := store.NewSnapshotStore(store.NewKVPersistence(kv, cfg.Store.Key), logger)
	orchestrator := backfill.New(p, history, cfg.Backfill, cfg.Provider.LookupTimeout, logger)
	return &App{
		Config:  cfg,
		Logger:  logger,
		Service: dashboard.NewService(p, provider.NewSynthetic(), history, orchestrator, cfg.Provider.LookupTimeout, logger),
		kv:      kv,
	}
}

// Close releases the history store.
func (a *App) Close() error {
	if a.kv == nil {
		return nil
	}
	return a.kv.Close()
}
