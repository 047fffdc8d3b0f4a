package models

import "time"

// SnapshotSummary is the persisted time-series unit of the history store.
// JSON field names form the stored layout and must not change.
type SnapshotSummary struct {
	ID              string    `json:"id"`
	Timestamp       time.Time `json:"timestamp"`
	UnderlyingValue float64   `json:"underlyingValue"`
	PCR             float64   `json:"pcr"`
	PCRChangeOI     *float64  `json:"pcrChangeOI,omitempty"`
	MaxPain         float64   `json:"maxPain"`
	CETotalOI       int64     `json:"ceTotalOI"`
	PETotalOI       int64     `json:"peTotalOI"`
}

// LiveView pairs a chain with its analysis for display.
type LiveView struct {
	Chain    *OptionChain   `json:"chain"`
	Analysis AnalysisResult `json:"analysis"`
	Source   string         `json:"source"`
}

// View sources.
const (
	SourceLive     = "live"
	SourceBackfill = "backfill"
	SourceDemo     = "demo"
)
