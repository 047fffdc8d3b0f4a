package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"nse-oi-tracker/internal/models"
)

func leg(kind models.OptionType, strike float64, oi, chOI, vol int64) *models.OptionLeg {
	return &models.OptionLeg{Type: kind, Strike: strike, OI: oi, ChangeOI: chOI, Volume: vol}
}

func strike(k float64, callOI, putOI int64) models.StrikeRecord {
	return models.StrikeRecord{
		Strike: k,
		Call:   leg(models.OptionCall, k, callOI, 0, 0),
		Put:    leg(models.OptionPut, k, putOI, 0, 0),
	}
}

func chainOf(underlying float64, strikes ...models.StrikeRecord) *models.OptionChain {
	return models.NewOptionChain(models.IndexNifty, underlying, time.Unix(0, 0), nil, strikes)
}

func TestAnalyzeScenario(t *testing.T) {
	chain := chainOf(17980,
		strike(17900, 1000, 500),
		strike(18000, 500, 1500),
	)

	res := Analyze(chain)
	assert.Equal(t, 18000.0, res.ATMStrike)
	assert.Equal(t, 18000.0, res.Support)
	assert.Equal(t, 17900.0, res.Resistance)
	assert.Equal(t, int64(1500), res.TotalCallOI)
	assert.Equal(t, int64(2000), res.TotalPutOI)
	assert.Equal(t, 1.33, res.PCR)
	assert.Equal(t, models.TrendBullish, res.Trend)
}

func TestPCRRounding(t *testing.T) {
	chain := chainOf(22000, strike(22000, 1500000, 1200000))
	assert.Equal(t, 0.80, PCR(chain.Strikes))

	assert.Equal(t, 0.67, Ratio(2, 3))
	assert.Equal(t, 1.67, Ratio(5, 3))
	assert.Equal(t, 0.0, Ratio(10, 0))
}

func TestPCRIgnoresOneSidedStrikes(t *testing.T) {
	strikes := []models.StrikeRecord{
		strike(100, 10, 20),
		{Strike: 200, Put: leg(models.OptionPut, 200, 1000, 0, 0)},
		{Strike: 300, Call: leg(models.OptionCall, 300, 1000, 0, 0)},
	}
	assert.Equal(t, 2.0, PCR(strikes))

	totals := Totals(strikes)
	assert.Equal(t, int64(1010), totals.CallOI)
	assert.Equal(t, int64(1020), totals.PutOI)
}

func TestVolumePCR(t *testing.T) {
	strikes := []models.StrikeRecord{
		{Strike: 100, Call: leg(models.OptionCall, 100, 0, 0, 400), Put: leg(models.OptionPut, 100, 0, 0, 300)},
		{Strike: 200, Call: leg(models.OptionCall, 200, 0, 0, 0), Put: leg(models.OptionPut, 200, 0, 0, 0)},
	}
	assert.Equal(t, 0.75, VolumePCR(strikes))
	assert.Equal(t, 0.0, VolumePCR(strikes[1:]))
}

func TestMaxPain(t *testing.T) {
	// loss(100) = 0 + (200-100)*50 + (300-100)*10 = 7000
	// loss(200) = (200-100)*30 + (300-200)*10 = 4000
	// loss(300) = (300-100)*30 + (300-200)*20 = 8000
	strikes := []models.StrikeRecord{
		strike(100, 30, 0),
		strike(200, 20, 50),
		strike(300, 0, 10),
	}
	assert.Equal(t, 7000.0, WriterLoss(strikes, 100))
	assert.Equal(t, 4000.0, WriterLoss(strikes, 200))
	assert.Equal(t, 8000.0, WriterLoss(strikes, 300))
	assert.Equal(t, 200.0, MaxPain(strikes))
}

func TestMaxPainTieGoesToLowerStrike(t *testing.T) {
	strikes := []models.StrikeRecord{strike(100, 0, 0), strike(200, 0, 0)}
	assert.Equal(t, 100.0, MaxPain(strikes))
}

func TestATMStrike(t *testing.T) {
	strikes := []models.StrikeRecord{strike(100, 0, 0), strike(200, 0, 0), strike(300, 0, 0)}
	assert.Equal(t, 200.0, ATMStrike(strikes, 200))
	assert.Equal(t, 200.0, ATMStrike(strikes, 240))
	assert.Equal(t, 100.0, ATMStrike(strikes, 150), "exact tie keeps the lower strike")
	assert.Equal(t, 300.0, ATMStrike(strikes, 10000))
	assert.Equal(t, 0.0, ATMStrike(nil, 150))
}

func TestSupportResistanceTies(t *testing.T) {
	strikes := []models.StrikeRecord{strike(100, 500, 700), strike(200, 500, 700)}
	support, resistance := SupportResistance(strikes)
	assert.Equal(t, 100.0, support)
	assert.Equal(t, 100.0, resistance)
}

func TestClassifyTrend(t *testing.T) {
	tests := []struct {
		name      string
		pcr       float64
		put, call int64
		want      models.Trend
	}{
		{"high pcr", 1.21, 0, 100, models.TrendBullish},
		{"low pcr", 0.59, 100, 0, models.TrendBearish},
		{"pcr at upper bound", 1.2, 0, 0, models.TrendNeutral},
		{"pcr at lower bound", 0.6, 0, 0, models.TrendNeutral},
		{"put build-up", 1.0, 200, 100, models.TrendBullish},
		{"call build-up", 1.0, 100, 200, models.TrendBearish},
		{"balanced", 1.0, 100, 100, models.TrendNeutral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyTrend(tt.pcr, tt.put, tt.call))
		})
	}
}

func TestAnalyzeEmptyChain(t *testing.T) {
	res := Analyze(chainOf(22000))
	assert.Equal(t, models.AnalysisResult{Trend: models.TrendNeutral}, res)

	assert.Equal(t, models.AnalysisResult{Trend: models.TrendNeutral}, Analyze(nil))
}

func TestAnalyzeDoesNotMutateInput(t *testing.T) {
	chain := chainOf(17980, strike(18000, 500, 1500), strike(17900, 1000, 500))
	before := chain.StrikePrices()
	callOI := chain.Strikes[0].Call.OI

	_ = Analyze(chain)
	_ = Analyze(chain)

	assert.Equal(t, before, chain.StrikePrices())
	assert.Equal(t, callOI, chain.Strikes[0].Call.OI)
}

func TestChangeOIPCR(t *testing.T) {
	assert.Equal(t, 1.5, ChangeOIPCR(300, 200))
	assert.Equal(t, 0.0, ChangeOIPCR(300, 0))
	assert.Equal(t, -0.5, ChangeOIPCR(-100, 200))
}
