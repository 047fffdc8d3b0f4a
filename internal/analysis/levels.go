package analysis

import (
	"math"

	"nse-oi-tracker/internal/models"
)

// ATMStrike returns the strike nearest the underlying price. The lower strike
// wins an exact tie.
func ATMStrike(strikes []models.StrikeRecord, underlying float64) float64 {
	if len(strikes) == 0 {
		return 0
	}

	atm := strikes[0].Strike
	bestDist := math.Abs(atm - underlying)
	for _, s := range strikes[1:] {
		if d := math.Abs(s.Strike - underlying); d < bestDist {
			atm, bestDist = s.Strike, d
		}
	}
	return atm
}

// SupportResistance returns the strike with the highest put OI (support) and
// the strike with the highest call OI (resistance). Ties go to the lower strike.
func SupportResistance(strikes []models.StrikeRecord) (support, resistance float64) {
	if len(strikes) == 0 {
		return 0, 0
	}

	support, resistance = strikes[0].Strike, strikes[0].Strike
	maxPut, maxCall := strikes[0].PutOI(), strikes[0].CallOI()
	for _, s := range strikes[1:] {
		if oi := s.PutOI(); oi > maxPut {
			support, maxPut = s.Strike, oi
		}
		if oi := s.CallOI(); oi > maxCall {
			resistance, maxCall = s.Strike, oi
		}
	}
	return support, resistance
}
