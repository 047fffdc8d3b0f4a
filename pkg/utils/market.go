package utils

import (
	"time"

	"nse-oi-tracker/internal/models"
)

// IndiaLocation is the timezone for Indian markets.
var IndiaLocation *time.Location

func init() {
	var err error
	IndiaLocation, err = time.LoadLocation("Asia/Kolkata")
	if err != nil {
		// Fallback to UTC+5:30
		IndiaLocation = time.FixedZone("IST", 5*60*60+30*60)
	}
}

// Session boundaries in minutes since midnight IST.
const (
	PreOpenMinutes      = 9 * 60
	SessionOpenMinutes  = 9*60 + 15
	SessionCloseMinutes = 15*60 + 30
)

// MarketStatusAt returns the market status at t.
func MarketStatusAt(t time.Time) models.MarketStatus {
	now := t.In(IndiaLocation)

	if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
		return models.MarketClosed
	}

	m := MinutesOfDay(now)
	switch {
	case m >= PreOpenMinutes && m < SessionOpenMinutes:
		return models.MarketPreOpen
	case m >= SessionOpenMinutes && m < SessionCloseMinutes:
		return models.MarketOpen
	}
	return models.MarketClosed
}

// MinutesOfDay returns the minutes elapsed since midnight in t's location.
func MinutesOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// SessionDate returns midnight IST of the trading day containing t.
func SessionDate(t time.Time) time.Time {
	ist := t.In(IndiaLocation)
	return time.Date(ist.Year(), ist.Month(), ist.Day(), 0, 0, 0, 0, IndiaLocation)
}

// AtClock returns the instant on day's IST date at the given HH:MM label.
func AtClock(day time.Time, label string) (time.Time, error) {
	hm, err := time.Parse("15:04", label)
	if err != nil {
		return time.Time{}, err
	}
	d := SessionDate(day)
	return time.Date(d.Year(), d.Month(), d.Day(), hm.Hour(), hm.Minute(), 0, 0, IndiaLocation), nil
}
