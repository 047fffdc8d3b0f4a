package backfill

import (
	"fmt"
	"time"

	"nse-oi-tracker/pkg/utils"
)

// SessionEndLabel is the last interval of a full trading session.
const SessionEndLabel = "15:30"

func parseClock(label string) (int, error) {
	t, err := time.Parse("15:04", label)
	if err != nil {
		return 0, fmt.Errorf("invalid time label %q: %w", label, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// GenerateIntervals returns the HH:MM labels from start to end inclusive,
// stepMinutes apart. An end before start gives an empty sequence.
func GenerateIntervals(start, end string, stepMinutes int) ([]string, error) {
	if stepMinutes <= 0 {
		return nil, fmt.Errorf("step must be positive, got %d", stepMinutes)
	}
	from, err := parseClock(start)
	if err != nil {
		return nil, err
	}
	to, err := parseClock(end)
	if err != nil {
		return nil, err
	}

	labels := []string{}
	for m := from; m <= to; m += stepMinutes {
		labels = append(labels, formatClock(m))
	}
	return labels, nil
}

// SessionEnd returns the last label a backfill at now may request: the
// session close once the market has closed, otherwise the current IST minute.
func SessionEnd(now time.Time) string {
	ist := now.In(utils.IndiaLocation)
	if utils.MinutesOfDay(ist) >= utils.SessionCloseMinutes {
		return SessionEndLabel
	}
	return ist.Format("15:04")
}
