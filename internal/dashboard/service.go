// Package dashboard is the application facade read and driven by the CLI and
// the HTTP API. It owns the current live view.
package dashboard

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"nse-oi-tracker/internal/analysis"
	"nse-oi-tracker/internal/backfill"
	"nse-oi-tracker/internal/errors"
	"nse-oi-tracker/internal/logging"
	"nse-oi-tracker/internal/metrics"
	"nse-oi-tracker/internal/models"
	"nse-oi-tracker/internal/parser"
	"nse-oi-tracker/internal/provider"
	"nse-oi-tracker/internal/store"
)

// Service coordinates live refreshes, backfills and history.
type Service struct {
	provider      provider.Provider
	demo          *provider.Synthetic
	store         *store.SnapshotStore
	backfill      *backfill.Orchestrator
	lookupTimeout time.Duration
	logger        zerolog.Logger
	now           func() time.Time

	mu      sync.RWMutex
	latest  *models.LiveView
	running atomic.Bool
}

// NewService creates the facade.
func NewService(p provider.Provider, demo *provider.Synthetic, s *store.SnapshotStore, o *backfill.Orchestrator, lookupTimeout time.Duration, logger zerolog.Logger) *Service {
	if demo == nil {
		demo = provider.NewSynthetic()
	}
	if lookupTimeout <= 0 {
		lookupTimeout = backfill.DefaultLookupTimeout
	}
	return &Service{
		provider:      p,
		demo:          demo,
		store:         s,
		backfill:      o,
		lookupTimeout: lookupTimeout,
		logger:        logger.With().Str("component", "dashboard").Logger(),
		now:           time.Now,
	}
}

// WithClock replaces the clock used for parse fallbacks, demo views and
// export timestamps, and returns s.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Refresh fetches the latest chain for symbol's nearest expiry, analyzes it
// and records it into history. Provider and payload failures are returned
// as is; a failed history save is logged and ignored.
func (s *Service) Refresh(ctx context.Context, symbol models.Index) (*models.LiveView, error) {
	logger := logging.WithOperation(logging.WithSymbol(s.logger, symbol.String()), "refresh")

	lookupCtx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
	id, err := s.provider.LookupSymbol(lookupCtx, symbol)
	cancel()
	if err != nil {
		return nil, err
	}

	expiries, err := s.provider.Expiries(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(expiries) == 0 {
		return nil, errors.NewProviderError("expiries", symbol.String(), 0, errors.ErrLookupFailure)
	}

	data, err := s.provider.FetchSnapshot(ctx, id, expiries[0], "")
	if err != nil {
		return nil, err
	}
	chain, err := parser.Parse(data, symbol, s.now())
	if err != nil {
		return nil, err
	}

	view := &models.LiveView{Chain: chain, Analysis: analysis.Analyze(chain), Source: models.SourceLive}
	if _, err := s.store.Record(ctx, chain, view.Analysis); err != nil {
		logger.Warn().Err(err).Msg("Live snapshot not saved to history")
	}

	s.setLatest(view)
	logging.LogAnalysis(logger, symbol.String(), chain.Timestamp, view.Analysis.PCR, view.Analysis.MaxPain, string(view.Analysis.Trend))
	return view, nil
}

// Live refreshes symbol and falls back to a demonstration view when the
// provider cannot be reached or returns unusable data. The returned error is
// the fallback cause; the view is nil only for errors that do not fall back.
func (s *Service) Live(ctx context.Context, symbol models.Index) (*models.LiveView, error) {
	view, err := s.Refresh(ctx, symbol)
	if err == nil {
		return view, nil
	}
	if !errors.IsFallbackTrigger(err) {
		return nil, err
	}
	s.logger.Warn().Err(err).Str("symbol", symbol.String()).Msg("Falling back to demo data")
	return s.Demo(symbol), err
}

// Demo builds a demonstration view for symbol. It becomes the latest view
// but is never recorded into history.
func (s *Service) Demo(symbol models.Index) *models.LiveView {
	chain := s.demo.Chain(symbol, s.now())
	view := &models.LiveView{Chain: chain, Analysis: analysis.Analyze(chain), Source: models.SourceDemo}
	s.setLatest(view)
	return view
}

// Latest returns the current live view.
func (s *Service) Latest() (*models.LiveView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return nil, errors.ErrNoSnapshot
	}
	return s.latest, nil
}

func (s *Service) setLatest(view *models.LiveView) {
	s.mu.Lock()
	s.latest = view
	s.mu.Unlock()
	if view.Chain != nil {
		metrics.LastPCR.WithLabelValues(view.Chain.Symbol.String()).Set(view.Analysis.PCR)
	}
}

// History returns the stored summaries, most recent first. An unavailable
// store reads as an empty history.
func (s *Service) History(ctx context.Context) []models.SnapshotSummary {
	list, err := s.store.List(ctx)
	if err != nil {
		s.logger.Debug().Err(err).Msg("History unavailable")
	}
	return list
}

// ClearHistory empties the stored history.
func (s *Service) ClearHistory(ctx context.Context) error {
	return s.store.Clear(ctx)
}

// BackfillRunning reports whether a backfill is in progress.
func (s *Service) BackfillRunning() bool {
	return s.running.Load()
}

// StartBackfill runs a backfill for symbol. Only one backfill runs at a
// time; a concurrent call fails with ErrBackfillRunning. The last backfilled
// interval becomes the latest view.
func (s *Service) StartBackfill(ctx context.Context, symbol models.Index, progress backfill.ProgressFunc) (*backfill.Result, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, errors.ErrBackfillRunning
	}
	defer s.running.Store(false)

	res, err := s.backfill.Run(ctx, symbol, progress)
	if err != nil {
		return res, err
	}
	if res.Live != nil {
		s.setLatest(res.Live)
	}
	return res, nil
}
