// Package provider talks to the upstream option-chain data source.
package provider

import (
	"context"

	"nse-oi-tracker/internal/models"
)

// Provider is the upstream data contract the tracker consumes.
//
// LookupSymbol resolves an index to the provider's internal identifier and
// fails with ErrLookupFailure when the index is unknown. Expiries lists
// expiry dates nearest first and may be empty. FetchSnapshot returns the raw
// payload for an expiry as of a "HH:MM" cutoff; an empty cutoff asks for the
// latest data.
type Provider interface {
	LookupSymbol(ctx context.Context, symbol models.Index) (string, error)
	Expiries(ctx context.Context, id string) ([]string, error)
	FetchSnapshot(ctx context.Context, id, expiry, cutoff string) ([]byte, error)
}
