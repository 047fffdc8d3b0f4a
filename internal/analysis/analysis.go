// Package analysis derives option-chain metrics: put-call ratios, max pain,
// ATM strike, support/resistance and trend bias.
//
// Every function here is pure. Inputs are never modified and an empty chain
// yields zero values rather than an error.
package analysis

import (
	"github.com/shopspring/decimal"

	"nse-oi-tracker/internal/models"
)

// Trend thresholds on PCR(OI).
const (
	BullishPCR = 1.2
	BearishPCR = 0.6
)

// Analyze computes the full AnalysisResult for a chain.
func Analyze(chain *models.OptionChain) models.AnalysisResult {
	if chain == nil || len(chain.Strikes) == 0 {
		return models.AnalysisResult{Trend: models.TrendNeutral}
	}

	totals := Totals(chain.Strikes)
	pcr := PCR(chain.Strikes)
	support, resistance := SupportResistance(chain.Strikes)

	return models.AnalysisResult{
		PCR:           pcr,
		VolumePCR:     VolumePCR(chain.Strikes),
		MaxPain:       MaxPain(chain.Strikes),
		TotalCallOI:   totals.CallOI,
		TotalPutOI:    totals.PutOI,
		TotalCallChOI: totals.CallChangeOI,
		TotalPutChOI:  totals.PutChangeOI,
		ATMStrike:     ATMStrike(chain.Strikes, chain.UnderlyingValue),
		Trend:         ClassifyTrend(pcr, totals.PutChangeOI, totals.CallChangeOI),
		Support:       support,
		Resistance:    resistance,
	}
}

// OITotals aggregates open interest over every present leg.
type OITotals struct {
	CallOI       int64
	PutOI        int64
	CallChangeOI int64
	PutChangeOI  int64
	CallVolume   int64
	PutVolume    int64
}

// Totals sums OI, change in OI and volume per side.
func Totals(strikes []models.StrikeRecord) OITotals {
	var t OITotals
	for _, s := range strikes {
		if s.Call != nil {
			t.CallOI += s.Call.OI
			t.CallChangeOI += s.Call.ChangeOI
			t.CallVolume += s.Call.Volume
		}
		if s.Put != nil {
			t.PutOI += s.Put.OI
			t.PutChangeOI += s.Put.ChangeOI
			t.PutVolume += s.Put.Volume
		}
	}
	return t
}

// Ratio divides num by den rounded to 2 decimals, 0 when den is 0.
func Ratio(num, den int64) float64 {
	if den == 0 {
		return 0
	}
	return Round2(float64(num) / float64(den))
}

// Round2 rounds half away from zero to 2 decimal places.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
