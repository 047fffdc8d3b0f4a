// Package store provides snapshot history persistence.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"nse-oi-tracker/internal/models"
)

// KV is a byte-level key-value backend. Load reports found=false for a
// missing key.
//
// Update replaces the value of key with fn's result as one atomic
// read-modify-write against the backend, so writers sharing the backend
// never lose each other's changes. fn may run more than once and must not
// have side effects.
type KV interface {
	Load(ctx context.Context, key string) (value []byte, found bool, err error)
	Save(ctx context.Context, key string, value []byte) error
	Update(ctx context.Context, key string, fn UpdateFunc) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// UpdateFunc maps the current value of a key to its replacement.
type UpdateFunc func(current []byte, found bool) ([]byte, error)

// Persistence loads and saves the whole summary collection at once.
// Update applies fn to the stored collection atomically.
type Persistence interface {
	Load(ctx context.Context) ([]models.SnapshotSummary, error)
	Save(ctx context.Context, summaries []models.SnapshotSummary) error
	Update(ctx context.Context, fn func([]models.SnapshotSummary) []models.SnapshotSummary) error
}

// KVPersistence stores the collection as one JSON array under a single key.
type KVPersistence struct {
	kv  KV
	key string
}

// NewKVPersistence creates a Persistence over kv using key.
func NewKVPersistence(kv KV, key string) *KVPersistence {
	return &KVPersistence{kv: kv, key: key}
}

// Load implements Persistence. A missing key is an empty collection.
func (p *KVPersistence) Load(ctx context.Context) ([]models.SnapshotSummary, error) {
	data, found, err := p.kv.Load(ctx, p.key)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", p.key, err)
	}
	if !found || len(data) == 0 {
		return []models.SnapshotSummary{}, nil
	}

	return p.decode(data)
}

func (p *KVPersistence) decode(data []byte) ([]models.SnapshotSummary, error) {
	var out []models.SnapshotSummary
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", p.key, err)
	}
	if out == nil {
		out = []models.SnapshotSummary{}
	}
	return out, nil
}

func (p *KVPersistence) encode(summaries []models.SnapshotSummary) ([]byte, error) {
	if summaries == nil {
		summaries = []models.SnapshotSummary{}
	}
	data, err := json.Marshal(summaries)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", p.key, err)
	}
	return data, nil
}

// Save implements Persistence, overwriting the stored array.
func (p *KVPersistence) Save(ctx context.Context, summaries []models.SnapshotSummary) error {
	data, err := p.encode(summaries)
	if err != nil {
		return err
	}
	if err := p.kv.Save(ctx, p.key, data); err != nil {
		return fmt.Errorf("saving %s: %w", p.key, err)
	}
	return nil
}

// Update implements Persistence through the backend's atomic KV.Update.
func (p *KVPersistence) Update(ctx context.Context, fn func([]models.SnapshotSummary) []models.SnapshotSummary) error {
	err := p.kv.Update(ctx, p.key, func(current []byte, found bool) ([]byte, error) {
		existing := []models.SnapshotSummary{}
		if found && len(current) > 0 {
			decoded, err := p.decode(current)
			if err != nil {
				return nil, err
			}
			existing = decoded
		}
		return p.encode(fn(existing))
	})
	if err != nil {
		return fmt.Errorf("updating %s: %w", p.key, err)
	}
	return nil
}
