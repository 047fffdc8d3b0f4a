package analysis

import "nse-oi-tracker/internal/models"

// ClassifyTrend applies the rule cascade in order; the first match wins.
//
//	PCR > 1.2            Bullish
//	PCR < 0.6            Bearish
//	ΔPutOI > ΔCallOI     Bullish
//	ΔCallOI > ΔPutOI     Bearish
//	otherwise            Neutral
func ClassifyTrend(pcr float64, putChangeOI, callChangeOI int64) models.Trend {
	switch {
	case pcr > BullishPCR:
		return models.TrendBullish
	case pcr < BearishPCR:
		return models.TrendBearish
	case putChangeOI > callChangeOI:
		return models.TrendBullish
	case callChangeOI > putChangeOI:
		return models.TrendBearish
	}
	return models.TrendNeutral
}
