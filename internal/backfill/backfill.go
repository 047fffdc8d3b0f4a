// Package backfill rebuilds the intraday history of an index from the
// upstream provider's time-of-day snapshots.
package backfill

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"nse-oi-tracker/internal/analysis"
	"nse-oi-tracker/internal/config"
	"nse-oi-tracker/internal/errors"
	"nse-oi-tracker/internal/logging"
	"nse-oi-tracker/internal/metrics"
	"nse-oi-tracker/internal/models"
	"nse-oi-tracker/internal/parser"
	"nse-oi-tracker/internal/provider"
	"nse-oi-tracker/internal/store"
	"nse-oi-tracker/pkg/utils"
)

// State is a stage of one backfill run.
type State string

const (
	StateIdle            State = "idle"
	StateResolving       State = "resolving"
	StateResolvingExpiry State = "resolving_expiry"
	StateIterating       State = "iterating"
	StateSaving          State = "saving"
	StateAborted         State = "aborted"
)

// DefaultLookupTimeout bounds the identifier lookup.
const DefaultLookupTimeout = 5 * time.Second

// saveTimeout bounds persisting the collected batch, which outlives the
// caller's context.
const saveTimeout = 10 * time.Second

// Progress is an advisory status update emitted during a run.
type Progress struct {
	State    State  `json:"state"`
	Interval string `json:"interval,omitempty"`
	Done     int    `json:"done"`
	Total    int    `json:"total"`
	Message  string `json:"message"`
}

// ProgressFunc receives progress updates. It must not block for long.
type ProgressFunc func(Progress)

// Result describes a finished or aborted run.
type Result struct {
	Symbol     models.Index             `json:"symbol"`
	State      State                    `json:"state"`
	Expiry     string                   `json:"expiry,omitempty"`
	Intervals  []string                 `json:"intervals"`
	Skipped    []string                 `json:"skipped"`
	Summaries  []models.SnapshotSummary `json:"summaries"`
	Live       *models.LiveView         `json:"-"`
	Persisted  bool                     `json:"persisted"`
	StartedAt  time.Time                `json:"startedAt"`
	FinishedAt time.Time                `json:"finishedAt"`
}

// Orchestrator runs backfills sequentially against one provider.
type Orchestrator struct {
	provider      provider.Provider
	store         *store.SnapshotStore
	cfg           config.BackfillConfig
	lookupTimeout time.Duration
	logger        zerolog.Logger

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// New creates an orchestrator. A zero lookupTimeout uses DefaultLookupTimeout.
func New(p provider.Provider, s *store.SnapshotStore, cfg config.BackfillConfig, lookupTimeout time.Duration, logger zerolog.Logger) *Orchestrator {
	if lookupTimeout <= 0 {
		lookupTimeout = DefaultLookupTimeout
	}
	if cfg.Start == "" {
		cfg.Start = "09:15"
	}
	if cfg.StepMinutes <= 0 {
		cfg.StepMinutes = 15
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	return &Orchestrator{
		provider:      p,
		store:         s,
		cfg:           cfg,
		lookupTimeout: lookupTimeout,
		logger:        logger.With().Str("component", "backfill").Logger(),
		now:           time.Now,
		sleep:         utils.Sleep,
	}
}

// Run backfills symbol for the current trading session. Interval failures
// are skipped; only a failed identifier or expiry lookup aborts the run, in
// which case the error wraps ErrLookupFailure and the result is Aborted.
func (o *Orchestrator) Run(ctx context.Context, symbol models.Index, progress ProgressFunc) (*Result, error) {
	if progress == nil {
		progress = func(Progress) {}
	}
	logger := logging.WithSymbol(o.logger, symbol.String())
	now := o.now()
	res := &Result{
		Symbol:    symbol,
		State:     StateResolving,
		Intervals: []string{},
		Skipped:   []string{},
		Summaries: []models.SnapshotSummary{},
		StartedAt: now,
	}

	progress(Progress{State: StateResolving, Message: "Resolving " + symbol.String()})
	id, err := o.lookup(ctx, symbol)
	if err != nil {
		return o.abort(logger, res, progress, "identifier", err)
	}

	res.State = StateResolvingExpiry
	progress(Progress{State: StateResolvingExpiry, Message: "Fetching expiry dates"})
	expiries, err := o.provider.Expiries(ctx, id)
	if err != nil {
		return o.abort(logger, res, progress, "expiry dates", err)
	}
	if len(expiries) == 0 {
		return o.abort(logger, res, progress, "expiry dates", errors.ErrLookupFailure)
	}
	res.Expiry = expiries[0]

	intervals, err := GenerateIntervals(o.cfg.Start, SessionEnd(now), o.cfg.StepMinutes)
	if err != nil {
		return o.abort(logger, res, progress, "interval sequence", err)
	}
	res.Intervals = intervals

	res.State = StateIterating
	var last *models.LiveView
	for i, label := range intervals {
		if i > 0 {
			if err := o.sleep(ctx, o.cfg.RequestDelay); err != nil {
				// Remaining intervals are skipped; what was collected is still saved.
				res.Skipped = append(res.Skipped, intervals[i:]...)
				break
			}
		}

		view, summary, err := o.interval(ctx, symbol, id, res.Expiry, label, now)
		if err != nil {
			res.Skipped = append(res.Skipped, label)
			metrics.BackfillIntervals.WithLabelValues(symbol.String(), "skipped").Inc()
			ilog := logging.WithInterval(logger, label)
			ilog.Warn().Err(err).Msg("Skipping backfill interval")
			progress(Progress{State: StateIterating, Interval: label, Done: i + 1, Total: len(intervals),
				Message: fmt.Sprintf("%s skipped: %v", label, err)})
			continue
		}

		res.Summaries = append(res.Summaries, summary)
		last = view
		metrics.BackfillIntervals.WithLabelValues(symbol.String(), "saved").Inc()
		progress(Progress{State: StateIterating, Interval: label, Done: i + 1, Total: len(intervals),
			Message: fmt.Sprintf("%s PCR %.2f", label, summary.PCR)})
	}
	res.Live = last

	res.State = StateSaving
	progress(Progress{State: StateSaving, Done: len(intervals), Total: len(intervals),
		Message: fmt.Sprintf("Saving %d snapshots", len(res.Summaries))})
	if err := o.save(ctx, res.Summaries); err != nil {
		logger.Warn().Err(err).Msg("Backfill results not persisted")
	} else {
		res.Persisted = true
	}

	res.State = StateIdle
	res.FinishedAt = o.now()
	metrics.BackfillRuns.WithLabelValues(symbol.String(), "completed").Inc()
	logging.LogBackfill(logger, symbol.String(), res.Expiry, len(res.Summaries), len(res.Skipped), res.FinishedAt.Sub(res.StartedAt))
	progress(Progress{State: StateIdle, Done: len(intervals), Total: len(intervals),
		Message: fmt.Sprintf("Backfill complete: %d saved, %d skipped", len(res.Summaries), len(res.Skipped))})
	return res, nil
}

// WithClock replaces the wall clock used to bound the session and returns o.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// save persists summaries even when ctx is already cancelled, so a run
// stopped midway keeps what it collected.
func (o *Orchestrator) save(ctx context.Context, summaries []models.SnapshotSummary) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()
	return o.store.RecordBatch(ctx, summaries)
}

func (o *Orchestrator) lookup(ctx context.Context, symbol models.Index) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.lookupTimeout)
	defer cancel()
	return o.provider.LookupSymbol(ctx, symbol)
}

// interval fetches, parses and analyzes one time label.
func (o *Orchestrator) interval(ctx context.Context, symbol models.Index, id, expiry, label string, now time.Time) (*models.LiveView, models.SnapshotSummary, error) {
	retry := utils.RetryConfig{
		MaxAttempts:   o.cfg.MaxAttempts,
		InitialDelay:  o.cfg.RequestDelay,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2,
		ShouldRetry: func(err error) bool {
			return errors.Is(err, errors.ErrTransportFailure) && ctx.Err() == nil
		},
	}
	data, err := utils.RetryWithResult(ctx, retry, func() ([]byte, error) {
		return o.provider.FetchSnapshot(ctx, id, expiry, label)
	})
	if err != nil {
		return nil, models.SnapshotSummary{}, err
	}

	fallback, err := utils.AtClock(now, label)
	if err != nil {
		return nil, models.SnapshotSummary{}, err
	}
	chain, err := parser.Parse(data, symbol, fallback)
	if err != nil {
		return nil, models.SnapshotSummary{}, err
	}

	result := analysis.Analyze(chain)
	summary := o.store.Summary(chain, result, true)
	return &models.LiveView{Chain: chain, Analysis: result, Source: models.SourceBackfill}, summary, nil
}

func (o *Orchestrator) abort(logger zerolog.Logger, res *Result, progress ProgressFunc, what string, cause error) (*Result, error) {
	stage := res.State
	res.State = StateAborted
	res.FinishedAt = o.now()
	metrics.BackfillRuns.WithLabelValues(res.Symbol.String(), string(StateAborted)).Inc()

	err := fmt.Errorf("backfill %s: could not resolve %s (is the provider lookup reachable?): %w", res.Symbol, what, cause)
	if !errors.Is(err, errors.ErrLookupFailure) {
		err = fmt.Errorf("%w: %w", errors.ErrLookupFailure, err)
	}
	logger.Error().Err(cause).Str("stage", string(stage)).Msg("Backfill aborted")
	progress(Progress{State: StateAborted, Message: err.Error()})
	return res, err
}
