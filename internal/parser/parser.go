// Package parser normalizes raw provider payloads into option chains.
package parser

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"nse-oi-tracker/internal/errors"
	"nse-oi-tracker/internal/models"
	"nse-oi-tracker/pkg/utils"
)

// Payload is the raw shape served by the upstream relay. Every numeric field
// is optional and defaults to zero.
type Payload struct {
	Symbol          string                `json:"symbol"`
	UnderlyingValue float64               `json:"underlyingValue"`
	TradingDate     string                `json:"tradingDate"`
	Time            string                `json:"time"`
	ExpiryDates     []string              `json:"expiryDates"`
	Strikes         map[string]*RawStrike `json:"strikes"`
}

// RawStrike holds the per-strike call and put fields.
type RawStrike struct {
	CE *RawLeg `json:"CE"`
	PE *RawLeg `json:"PE"`
}

// RawLeg holds the fields of one contract as sent upstream.
type RawLeg struct {
	OpenInterest         float64 `json:"openInterest"`
	ChangeInOpenInterest float64 `json:"changeinOpenInterest"`
	TotalTradedVolume    float64 `json:"totalTradedVolume"`
	LastPrice            float64 `json:"lastPrice"`
	UnderlyingValue      float64 `json:"underlyingValue"`
	ExpiryDate           string  `json:"expiryDate"`
}

var dateLayouts = []string{
	"02-Jan-2006 15:04:05",
	"02-Jan-2006 15:04",
	"02-Jan-2006",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Parse decodes data into an OptionChain. fallback is used as the snapshot
// time when the payload carries no trading date.
func Parse(data []byte, symbol models.Index, fallback time.Time) (*models.OptionChain, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, errors.NewDataError("option_chain", symbol.String(), "decoding payload", errors.Wrap(errors.ErrMalformedPayload, err.Error()))
	}
	return FromPayload(&p, symbol, fallback)
}

// FromPayload converts an already decoded payload.
func FromPayload(p *Payload, symbol models.Index, fallback time.Time) (*models.OptionChain, error) {
	if p == nil || p.Strikes == nil {
		return nil, errors.NewDataError("option_chain", symbol.String(), "strike mapping missing", errors.ErrMalformedPayload)
	}

	expiries := p.ExpiryDates
	records := make([]models.StrikeRecord, 0, len(p.Strikes))
	underlying := p.UnderlyingValue

	keys, err := strikeKeys(p.Strikes)
	if err != nil {
		return nil, errors.NewDataError("option_chain", symbol.String(), err.Error(), errors.ErrMalformedPayload)
	}

	for _, k := range keys {
		raw := p.Strikes[k.key]
		rec := models.StrikeRecord{Strike: k.strike}
		if raw != nil {
			rec.Call = toLeg(models.OptionCall, k.strike, raw.CE)
			rec.Put = toLeg(models.OptionPut, k.strike, raw.PE)
		}
		rec.Expiry = recordExpiry(rec, expiries)

		if underlying == 0 {
			underlying = legUnderlying(rec)
		}
		records = append(records, rec)
	}

	if underlying == 0 && len(records) == 0 {
		return nil, errors.NewDataError("option_chain", symbol.String(), "empty strike mapping and no underlying price", errors.ErrMalformedPayload)
	}

	if len(expiries) == 0 {
		expiries = collectExpiries(records)
	}

	ts := timestamp(p.TradingDate, p.Time, fallback)

	sym := symbol
	if sym == "" && p.Symbol != "" {
		if idx, err := models.ParseIndex(p.Symbol); err == nil {
			sym = idx
		}
	}

	return models.NewOptionChain(sym, underlying, ts, expiries, records), nil
}

type strikeKey struct {
	key    string
	strike float64
}

// strikeKeys returns the mapping's keys ordered by strike, then by key text,
// so keys naming the same strike always resolve the same way.
func strikeKeys(strikes map[string]*RawStrike) ([]strikeKey, error) {
	out := make([]strikeKey, 0, len(strikes))
	for key := range strikes {
		strike, err := strconv.ParseFloat(strings.TrimSpace(key), 64)
		if err != nil {
			return nil, fmt.Errorf("strike %s is not a number", strconv.Quote(key))
		}
		out = append(out, strikeKey{key: key, strike: strike})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].strike != out[j].strike {
			return out[i].strike < out[j].strike
		}
		return out[i].key < out[j].key
	})
	return out, nil
}

func toLeg(kind models.OptionType, strike float64, raw *RawLeg) *models.OptionLeg {
	if raw == nil {
		return nil
	}
	return &models.OptionLeg{
		Type:            kind,
		Strike:          strike,
		Expiry:          raw.ExpiryDate,
		OI:              nonNegative(raw.OpenInterest),
		ChangeOI:        int64(raw.ChangeInOpenInterest),
		Volume:          nonNegative(raw.TotalTradedVolume),
		LTP:             maxFloat(raw.LastPrice, 0),
		UnderlyingValue: raw.UnderlyingValue,
	}
}

func recordExpiry(rec models.StrikeRecord, expiries []string) string {
	if rec.Call != nil && rec.Call.Expiry != "" {
		return rec.Call.Expiry
	}
	if rec.Put != nil && rec.Put.Expiry != "" {
		return rec.Put.Expiry
	}
	if len(expiries) > 0 {
		return expiries[0]
	}
	return ""
}

func legUnderlying(rec models.StrikeRecord) float64 {
	if rec.Call != nil && rec.Call.UnderlyingValue != 0 {
		return rec.Call.UnderlyingValue
	}
	if rec.Put != nil && rec.Put.UnderlyingValue != 0 {
		return rec.Put.UnderlyingValue
	}
	return 0
}

func collectExpiries(records []models.StrikeRecord) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range records {
		if r.Expiry != "" && !seen[r.Expiry] {
			seen[r.Expiry] = true
			out = append(out, r.Expiry)
		}
	}
	return out
}

// timestamp combines the trading date with an optional HH:MM label in IST.
// A date without any clock takes its hour and minute from fallback.
func timestamp(date, clock string, fallback time.Time) time.Time {
	date = strings.TrimSpace(date)
	if date == "" {
		if clock != "" {
			if t, err := utils.AtClock(fallback, clock); err == nil {
				return t
			}
		}
		return fallback
	}

	for _, layout := range dateLayouts {
		t, err := time.ParseInLocation(layout, date, utils.IndiaLocation)
		if err != nil {
			continue
		}
		if clock != "" {
			if at, err := utils.AtClock(t, clock); err == nil {
				return at
			}
		}
		if !strings.Contains(layout, "15:04") {
			f := fallback.In(utils.IndiaLocation)
			return time.Date(t.Year(), t.Month(), t.Day(), f.Hour(), f.Minute(), 0, 0, utils.IndiaLocation)
		}
		return t
	}
	return fallback
}

func nonNegative(v float64) int64 {
	if v < 0 {
		return 0
	}
	return int64(v)
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
