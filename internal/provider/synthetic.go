package provider

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"nse-oi-tracker/internal/errors"
	"nse-oi-tracker/internal/models"
	"nse-oi-tracker/internal/parser"
	"nse-oi-tracker/pkg/utils"
)

// SyntheticConfig holds configuration for the demonstration data generator.
type SyntheticConfig struct {
	BasePrices map[models.Index]float64
	// StrikesEachSide is the number of strikes generated above and below ATM.
	StrikesEachSide int
	// Volatility is the relative spread of the underlying around its base.
	Volatility float64
	// Expiries is the number of weekly expiries listed.
	Expiries int
}

// DefaultSyntheticConfig returns a realistic default configuration.
func DefaultSyntheticConfig() SyntheticConfig {
	return SyntheticConfig{
		BasePrices: map[models.Index]float64{
			models.IndexNifty:     22000,
			models.IndexBankNifty: 47000,
			models.IndexFinNifty:  21000,
		},
		StrikesEachSide: 15,
		Volatility:      0.005,
		Expiries:        3,
	}
}

// Synthetic generates deterministic demonstration option chains. The same
// symbol, day and time label always produce the same payload.
type Synthetic struct {
	config SyntheticConfig
	now    func() time.Time
}

// NewSynthetic creates a generator with the default configuration.
func NewSynthetic() *Synthetic {
	return NewSyntheticWithConfig(DefaultSyntheticConfig())
}

// NewSyntheticWithConfig creates a generator with a custom configuration.
func NewSyntheticWithConfig(config SyntheticConfig) *Synthetic {
	return &Synthetic{config: config, now: time.Now}
}

// WithClock replaces the generator's clock and returns s.
func (s *Synthetic) WithClock(now func() time.Time) *Synthetic {
	s.now = now
	return s
}

const syntheticPrefix = "demo-"

// LookupSymbol implements Provider.
func (s *Synthetic) LookupSymbol(_ context.Context, symbol models.Index) (string, error) {
	if _, ok := s.config.BasePrices[symbol]; !ok {
		return "", errors.NewProviderError("lookup", symbol.String(), 0, errors.ErrLookupFailure)
	}
	return syntheticPrefix + symbol.String(), nil
}

// Expiries implements Provider. Expiries fall on Thursdays, nearest first.
func (s *Synthetic) Expiries(_ context.Context, id string) ([]string, error) {
	if _, err := s.indexFor(id); err != nil {
		return nil, err
	}
	return weeklyExpiries(utils.SessionDate(s.now()), s.config.Expiries), nil
}

// FetchSnapshot implements Provider.
func (s *Synthetic) FetchSnapshot(_ context.Context, id, expiry, cutoff string) ([]byte, error) {
	symbol, err := s.indexFor(id)
	if err != nil {
		return nil, err
	}
	if cutoff == "" {
		cutoff = s.now().In(utils.IndiaLocation).Format("15:04")
	}
	return json.Marshal(s.Payload(symbol, s.now(), expiry, cutoff))
}

// Chain returns a parsed demonstration chain for symbol as of at.
func (s *Synthetic) Chain(symbol models.Index, at time.Time) *models.OptionChain {
	day := utils.SessionDate(at)
	expiry := weeklyExpiries(day, 1)[0]
	label := at.In(utils.IndiaLocation).Format("15:04")

	chain, err := parser.FromPayload(s.Payload(symbol, at, expiry, label), symbol, at)
	if err != nil {
		// Generated payloads always carry a strike mapping and a price.
		return models.NewOptionChain(symbol, 0, at, nil, nil)
	}
	return chain
}

// Payload builds the raw payload for symbol on at's trading day at label.
func (s *Synthetic) Payload(symbol models.Index, at time.Time, expiry, label string) *parser.Payload {
	rng := rand.New(rand.NewSource(seed(symbol, utils.SessionDate(at), label)))

	base, ok := s.config.BasePrices[symbol]
	if !ok {
		base = 20000
	}
	underlying := math.Round(base*(1+s.config.Volatility*(rng.Float64()*2-1))*100) / 100

	step := symbol.StrikeStep()
	atm := math.Round(underlying/step) * step
	strikes := make(map[string]*parser.RawStrike, 2*s.config.StrikesEachSide+1)

	for i := -s.config.StrikesEachSide; i <= s.config.StrikesEachSide; i++ {
		strike := atm + float64(i)*step
		distance := math.Abs(float64(i))
		// OI peaks a few strikes out of the money on each side.
		callWeight := bell(float64(i) - 3)
		putWeight := bell(float64(i) + 3)

		call := syntheticLeg(rng, callWeight, math.Max(underlying-strike, 0)+premium(distance, step), underlying, expiry)
		put := syntheticLeg(rng, putWeight, math.Max(strike-underlying, 0)+premium(distance, step), underlying, expiry)

		strikes[strconv.FormatFloat(strike, 'f', -1, 64)] = &parser.RawStrike{CE: call, PE: put}
	}

	return &parser.Payload{
		Symbol:          symbol.String(),
		UnderlyingValue: underlying,
		TradingDate:     utils.SessionDate(at).Format("02-Jan-2006"),
		Time:            label,
		ExpiryDates:     []string{expiry},
		Strikes:         strikes,
	}
}

func (s *Synthetic) indexFor(id string) (models.Index, error) {
	if !strings.HasPrefix(id, syntheticPrefix) {
		return "", errors.NewProviderError("resolve", id, 0, errors.ErrLookupFailure)
	}
	symbol, err := models.ParseIndex(strings.TrimPrefix(id, syntheticPrefix))
	if err != nil {
		return "", errors.NewProviderError("resolve", id, 0, errors.ErrLookupFailure)
	}
	return symbol, nil
}

func syntheticLeg(rng *rand.Rand, weight, ltp, underlying float64, expiry string) *parser.RawLeg {
	oi := math.Round((20000 + 480000*weight) * (0.8 + 0.4*rng.Float64()))
	change := math.Round(oi * (rng.Float64()*0.3 - 0.1))
	volume := math.Round(oi * (0.5 + rng.Float64()*2))
	return &parser.RawLeg{
		OpenInterest:         oi,
		ChangeInOpenInterest: change,
		TotalTradedVolume:    volume,
		LastPrice:            math.Round(ltp*100) / 100,
		UnderlyingValue:      underlying,
		ExpiryDate:           expiry,
	}
}

func bell(x float64) float64 {
	return math.Exp(-x * x / 18)
}

func premium(distance, step float64) float64 {
	return step * 2.5 * math.Exp(-distance/4)
}

func seed(symbol models.Index, day time.Time, label string) int64 {
	h := fnv.New64a()
	h.Write([]byte(symbol.String()))
	h.Write([]byte(day.Format("2006-01-02")))
	h.Write([]byte(label))
	return int64(h.Sum64() >> 1)
}

// weeklyExpiries returns n Thursdays starting with the first on or after day.
func weeklyExpiries(day time.Time, n int) []string {
	if n < 1 {
		n = 1
	}
	offset := (int(time.Thursday) - int(day.Weekday()) + 7) % 7
	first := day.AddDate(0, 0, offset)

	out := make([]string, n)
	for i := range out {
		out[i] = first.AddDate(0, 0, 7*i).Format("02-Jan-2006")
	}
	return out
}
