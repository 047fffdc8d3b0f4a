// Package models provides domain models for the option-chain tracker.
package models

import (
	"fmt"
	"strings"

	"nse-oi-tracker/internal/errors"
)

// Index represents an NSE index with a listed option chain.
type Index string

const (
	IndexNifty     Index = "NIFTY"
	IndexBankNifty Index = "BANKNIFTY"
	IndexFinNifty  Index = "FINNIFTY"
)

// Indices lists the supported indices in display order.
var Indices = []Index{IndexNifty, IndexBankNifty, IndexFinNifty}

// ParseIndex normalizes a symbol and checks that it is a supported index.
func ParseIndex(symbol string) (Index, error) {
	idx := Index(strings.ToUpper(strings.TrimSpace(symbol)))
	for _, known := range Indices {
		if idx == known {
			return idx, nil
		}
	}
	return "", fmt.Errorf("%w %q (want NIFTY, BANKNIFTY or FINNIFTY)", errors.ErrInvalidIndex, symbol)
}

// StrikeStep returns the usual strike spacing for the index.
func (i Index) StrikeStep() float64 {
	switch i {
	case IndexBankNifty:
		return 100
	default:
		return 50
	}
}

// String implements fmt.Stringer.
func (i Index) String() string {
	return string(i)
}

// MarketStatus represents the current market status.
type MarketStatus string

const (
	MarketOpen    MarketStatus = "OPEN"
	MarketPreOpen MarketStatus = "PRE_OPEN"
	MarketClosed  MarketStatus = "CLOSED"
)
