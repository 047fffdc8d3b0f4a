package analysis

import (
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"nse-oi-tracker/internal/models"
)

// strikesGen builds a chain of n distinct strikes 50 apart starting at 20000
// with call and put OI drawn from [lo, hi].
func strikesGen(lo, hi int64) gopter.Gen {
	return gen.SliceOfN(40, gen.Int64Range(lo, hi)).FlatMap(func(v interface{}) gopter.Gen {
		calls := v.([]int64)
		return gen.SliceOfN(len(calls), gen.Int64Range(lo, hi)).Map(func(puts []int64) []models.StrikeRecord {
			n := len(calls)
			if len(puts) < n {
				n = len(puts)
			}
			out := make([]models.StrikeRecord, n)
			for i := 0; i < n; i++ {
				out[i] = strike(20000+float64(i)*50, calls[i], puts[i])
			}
			return out
		})
	}, reflect.TypeOf([]models.StrikeRecord{}))
}

func TestProperty_PCRZeroWithoutPutOI(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("call-only OI gives PCR 0", prop.ForAll(
		func(calls []int64) bool {
			strikes := make([]models.StrikeRecord, len(calls))
			for i, oi := range calls {
				strikes[i] = strike(20000+float64(i)*50, oi, 0)
			}
			return PCR(strikes) == 0
		},
		gen.SliceOf(gen.Int64Range(1, 5000000)),
	))

	properties.Property("zero call OI gives PCR 0 whatever the put OI", prop.ForAll(
		func(puts []int64) bool {
			strikes := make([]models.StrikeRecord, len(puts))
			for i, oi := range puts {
				strikes[i] = strike(20000+float64(i)*50, 0, oi)
			}
			return PCR(strikes) == 0 && VolumePCR(strikes) == 0
		},
		gen.SliceOf(gen.Int64Range(0, 5000000)),
	))

	properties.TestingRun(t)
}

func TestProperty_MaxPainStableUnderOutOfRangeZeroStrike(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("zero-OI strike outside the range leaves max pain unchanged", prop.ForAll(
		func(strikes []models.StrikeRecord, offset int, below bool) bool {
			if len(strikes) == 0 {
				return true
			}
			want := MaxPain(strikes)

			edge := strikes[len(strikes)-1].Strike + float64(offset)*50
			if below {
				edge = strikes[0].Strike - float64(offset)*50
			}
			extended := chainOf(0, append(append([]models.StrikeRecord{}, strikes...), strike(edge, 0, 0))...)

			got := MaxPain(extended.Strikes)
			if got != want {
				t.Logf("max pain moved from %.0f to %.0f after adding %.0f", want, got, edge)
			}
			return got == want
		},
		strikesGen(1, 1000000),
		gen.IntRange(1, 20),
		gen.Bool(),
	))

	properties.Property("max pain is one of the chain's strikes", prop.ForAll(
		func(strikes []models.StrikeRecord) bool {
			if len(strikes) == 0 {
				return MaxPain(strikes) == 0
			}
			mp := MaxPain(strikes)
			for _, s := range strikes {
				if s.Strike == mp {
					return true
				}
			}
			return false
		},
		strikesGen(0, 1000000),
	))

	properties.TestingRun(t)
}

func TestProperty_ATMExactMatch(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("underlying on a strike selects that strike", prop.ForAll(
		func(strikes []models.StrikeRecord, pick int) bool {
			if len(strikes) == 0 {
				return true
			}
			target := strikes[pick%len(strikes)].Strike
			return ATMStrike(strikes, target) == target
		},
		strikesGen(0, 1000),
		gen.IntRange(0, 1000),
	))

	properties.TestingRun(t)
}

func TestProperty_AnalyzeDeterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("same chain yields same result", prop.ForAll(
		func(strikes []models.StrikeRecord, spot float64) bool {
			chain := chainOf(spot, strikes...)
			return Analyze(chain) == Analyze(chain)
		},
		strikesGen(0, 1000000),
		gen.Float64Range(19000, 23000),
	))

	properties.TestingRun(t)
}
