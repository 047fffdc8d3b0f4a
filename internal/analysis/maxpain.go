package analysis

import "nse-oi-tracker/internal/models"

// MaxPain returns the strike at which option writers' aggregate payout at
// expiry is smallest. Candidates are the chain's own strikes, scanned in
// ascending order; the first minimum wins.
//
// For candidate E: loss(E) = Σ_{S<E} (E−S)·CallOI(S) + Σ_{S>E} (S−E)·PutOI(S).
func MaxPain(strikes []models.StrikeRecord) float64 {
	if len(strikes) == 0 {
		return 0
	}

	best := strikes[0].Strike
	bestLoss := WriterLoss(strikes, best)
	for _, cand := range strikes[1:] {
		loss := WriterLoss(strikes, cand.Strike)
		if loss < bestLoss {
			best, bestLoss = cand.Strike, loss
		}
	}
	return best
}

// WriterLoss returns the total intrinsic value paid out if the underlying
// settles at expiry.
func WriterLoss(strikes []models.StrikeRecord, expiry float64) float64 {
	var loss float64
	for _, s := range strikes {
		switch {
		case s.Strike < expiry:
			loss += (expiry - s.Strike) * float64(s.CallOI())
		case s.Strike > expiry:
			loss += (s.Strike - expiry) * float64(s.PutOI())
		}
	}
	return loss
}
