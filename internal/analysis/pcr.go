package analysis

import "nse-oi-tracker/internal/models"

// PCR returns the open-interest put-call ratio over strikes where both legs
// are present.
func PCR(strikes []models.StrikeRecord) float64 {
	var puts, calls int64
	for _, s := range strikes {
		if !s.HasBoth() {
			continue
		}
		puts += s.Put.OI
		calls += s.Call.OI
	}
	return Ratio(puts, calls)
}

// VolumePCR returns the traded-volume put-call ratio over strikes where both
// legs are present.
func VolumePCR(strikes []models.StrikeRecord) float64 {
	var puts, calls int64
	for _, s := range strikes {
		if !s.HasBoth() {
			continue
		}
		puts += s.Put.Volume
		calls += s.Call.Volume
	}
	return Ratio(puts, calls)
}

// ChangeOIPCR returns ΔPutOI / ΔCallOI rounded to 2 decimals.
func ChangeOIPCR(putChange, callChange int64) float64 {
	return Ratio(putChange, callChange)
}
