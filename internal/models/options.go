package models

import (
	"sort"
	"time"
)

// OptionType distinguishes the two sides of a strike.
type OptionType string

const (
	OptionCall OptionType = "CE"
	OptionPut  OptionType = "PE"
)

// OptionLeg represents one call or put contract at a strike for one expiry.
// Values are copied around, never mutated after construction.
type OptionLeg struct {
	Type            OptionType `json:"type"`
	Strike          float64    `json:"strike"`
	Expiry          string     `json:"expiry"`
	OI              int64      `json:"oi"`
	ChangeOI        int64      `json:"changeOI"`
	Volume          int64      `json:"volume"`
	LTP             float64    `json:"ltp"`
	UnderlyingValue float64    `json:"underlyingValue"`

	// Not carried by the upstream feed; always zero.
	BidQty    int64   `json:"bidQty"`
	AskQty    int64   `json:"askQty"`
	IV        float64 `json:"iv"`
	PctChange float64 `json:"pctChange"`
}

// StrikeRecord holds the call and put legs at one strike. Either leg may be nil.
type StrikeRecord struct {
	Strike float64    `json:"strike"`
	Expiry string     `json:"expiry"`
	Call   *OptionLeg `json:"call,omitempty"`
	Put    *OptionLeg `json:"put,omitempty"`
}

// CallOI returns the call open interest, zero when the leg is absent.
func (r StrikeRecord) CallOI() int64 {
	if r.Call == nil {
		return 0
	}
	return r.Call.OI
}

// PutOI returns the put open interest, zero when the leg is absent.
func (r StrikeRecord) PutOI() int64 {
	if r.Put == nil {
		return 0
	}
	return r.Put.OI
}

// HasBoth reports whether both legs are present.
func (r StrikeRecord) HasBoth() bool {
	return r.Call != nil && r.Put != nil
}

// OptionChain is one observation of an index option chain.
// Strikes are ascending and unique.
type OptionChain struct {
	Symbol          Index          `json:"symbol"`
	UnderlyingValue float64        `json:"underlyingValue"`
	Timestamp       time.Time      `json:"timestamp"`
	Expiries        []string       `json:"expiries"`
	Strikes         []StrikeRecord `json:"strikes"`
}

// NewOptionChain builds a chain, sorting strikes ascending and keeping the
// first record seen for a repeated strike price.
func NewOptionChain(symbol Index, underlying float64, ts time.Time, expiries []string, records []StrikeRecord) *OptionChain {
	sorted := make([]StrikeRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Strike < sorted[j].Strike })

	strikes := make([]StrikeRecord, 0, len(sorted))
	for i, rec := range sorted {
		if i > 0 && rec.Strike == strikes[len(strikes)-1].Strike {
			continue
		}
		strikes = append(strikes, rec)
	}

	exp := make([]string, len(expiries))
	copy(exp, expiries)

	return &OptionChain{
		Symbol:          symbol,
		UnderlyingValue: underlying,
		Timestamp:       ts,
		Expiries:        exp,
		Strikes:         strikes,
	}
}

// StrikePrices returns the strike prices in ascending order.
func (c *OptionChain) StrikePrices() []float64 {
	out := make([]float64, len(c.Strikes))
	for i, s := range c.Strikes {
		out[i] = s.Strike
	}
	return out
}

// Trend is the directional bias inferred from open interest.
type Trend string

const (
	TrendBullish Trend = "Bullish"
	TrendBearish Trend = "Bearish"
	TrendNeutral Trend = "Neutral"
)

// AnalysisResult holds the metrics derived from one OptionChain.
type AnalysisResult struct {
	PCR           float64 `json:"pcr"`
	VolumePCR     float64 `json:"volumePcr"`
	MaxPain       float64 `json:"maxPain"`
	TotalCallOI   int64   `json:"totalCallOI"`
	TotalPutOI    int64   `json:"totalPutOI"`
	TotalCallChOI int64   `json:"totalCallChangeOI"`
	TotalPutChOI  int64   `json:"totalPutChangeOI"`
	ATMStrike     float64 `json:"atmStrike"`
	Trend         Trend   `json:"trend"`
	Support       float64 `json:"support"`
	Resistance    float64 `json:"resistance"`
}
