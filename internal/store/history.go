package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"nse-oi-tracker/internal/analysis"
	"nse-oi-tracker/internal/errors"
	"nse-oi-tracker/internal/metrics"
	"nse-oi-tracker/internal/models"
)

// Retention caps. Batches come from backfill runs and keep a deeper window.
const (
	RecordLimit = 100
	BatchLimit  = 200
)

// SnapshotStore owns the ordered, deduplicated, bounded summary history.
// Each mutation is a whole-collection read-modify-write applied atomically
// by the persistence backend; the local lock only orders callers in this
// process.
type SnapshotStore struct {
	mu     sync.Mutex
	p      Persistence
	logger zerolog.Logger
	newID  func() string
}

// NewSnapshotStore creates a store over p.
func NewSnapshotStore(p Persistence, logger zerolog.Logger) *SnapshotStore {
	return &SnapshotStore{
		p:      p,
		logger: logger.With().Str("component", "snapshot_store").Logger(),
		newID:  NewID,
	}
}

// NewID returns a time-ordered unique summary ID.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Summarize compresses a chain and its analysis into a SnapshotSummary.
// withChangePCR adds the ΔPutOI/ΔCallOI ratio.
func Summarize(id string, chain *models.OptionChain, res models.AnalysisResult, withChangePCR bool) models.SnapshotSummary {
	s := models.SnapshotSummary{
		ID:              id,
		Timestamp:       chain.Timestamp,
		UnderlyingValue: chain.UnderlyingValue,
		PCR:             res.PCR,
		MaxPain:         res.MaxPain,
		CETotalOI:       res.TotalCallOI,
		PETotalOI:       res.TotalPutOI,
	}
	if withChangePCR {
		v := analysis.ChangeOIPCR(res.TotalPutChOI, res.TotalCallChOI)
		s.PCRChangeOI = &v
	}
	return s
}

// Summary builds a summary for chain with a fresh ID.
func (s *SnapshotStore) Summary(chain *models.OptionChain, res models.AnalysisResult, withChangePCR bool) models.SnapshotSummary {
	return Summarize(s.newID(), chain, res, withChangePCR)
}

// Record summarizes one analyzed snapshot and merges it into the history.
// The summary is returned even when persistence fails; the failure is logged
// and returned wrapped in ErrPersistenceUnavailable.
func (s *SnapshotStore) Record(ctx context.Context, chain *models.OptionChain, res models.AnalysisResult) (models.SnapshotSummary, error) {
	summary := s.Summary(chain, res, false)
	return summary, s.merge(ctx, []models.SnapshotSummary{summary}, RecordLimit)
}

// RecordBatch merges precomputed summaries into the history.
func (s *SnapshotStore) RecordBatch(ctx context.Context, summaries []models.SnapshotSummary) error {
	if len(summaries) == 0 {
		return nil
	}
	return s.merge(ctx, summaries, BatchLimit)
}

// List returns a copy of the history, most recent first. On a load failure
// it returns an empty slice along with the error.
func (s *SnapshotStore) List(ctx context.Context) ([]models.SnapshotSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.p.Load(ctx)
	if err != nil {
		return []models.SnapshotSummary{}, s.unavailable("load", err)
	}
	out := make([]models.SnapshotSummary, len(existing))
	copy(out, existing)
	return out, nil
}

// Clear empties the history.
func (s *SnapshotStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.p.Save(ctx, []models.SnapshotSummary{}); err != nil {
		return s.unavailable("clear", err)
	}
	metrics.HistorySize.Set(0)
	s.logger.Info().Msg("Snapshot history cleared")
	return nil
}

func (s *SnapshotStore) merge(ctx context.Context, incoming []models.SnapshotSummary, limit int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := 0
	err := s.p.Update(ctx, func(existing []models.SnapshotSummary) []models.SnapshotSummary {
		merged := Merge(incoming, existing, limit)
		stored = len(merged)
		return merged
	})
	if err != nil {
		return s.unavailable("update", err)
	}

	metrics.HistorySize.Set(float64(stored))
	s.logger.Debug().
		Int("incoming", len(incoming)).
		Int("stored", stored).
		Msg("Snapshot history updated")
	return nil
}

func (s *SnapshotStore) unavailable(op string, err error) error {
	metrics.PersistenceFailures.WithLabelValues(op).Inc()
	s.logger.Warn().Err(err).Str("op", op).Msg("Snapshot history unavailable")
	return errors.Wrapf(errors.ErrPersistenceUnavailable, "%s history: %v", op, err)
}

// Merge concatenates incoming ahead of existing, stable-sorts most recent
// first, keeps the first entry per exact timestamp and truncates to limit.
func Merge(incoming, existing []models.SnapshotSummary, limit int) []models.SnapshotSummary {
	all := make([]models.SnapshotSummary, 0, len(incoming)+len(existing))
	all = append(all, incoming...)
	all = append(all, existing...)

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Timestamp.After(all[j].Timestamp)
	})

	out := make([]models.SnapshotSummary, 0, len(all))
	seen := make(map[int64]bool, len(all))
	for _, s := range all {
		key := s.Timestamp.UnixNano()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
