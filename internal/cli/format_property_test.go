package cli

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"nse-oi-tracker/pkg/utils"
)

var indianGrouping = regexp.MustCompile(`^(\d{1,2},)*\d{1,3}$`)

// Property: Indian digit grouping keeps the value and the 3-then-2 pattern.
func TestProperty_IndianGrouping(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("FormatQuantity groups digits the Indian way", prop.ForAll(
		func(qty int64) bool {
			formatted := FormatQuantity(qty)
			digits := strings.TrimPrefix(formatted, "-")
			if !indianGrouping.MatchString(digits) {
				t.Logf("Invalid Indian format for %d: %s", qty, formatted)
				return false
			}
			back, err := strconv.ParseInt(strings.ReplaceAll(formatted, ",", ""), 10, 64)
			return err == nil && back == qty
		},
		gen.Int64Range(-1e12, 1e12),
	))

	properties.Property("FormatIndianDecimal keeps two decimals and the value", prop.ForAll(
		func(amount float64) bool {
			formatted := FormatIndianDecimal(amount)
			parts := strings.Split(strings.TrimPrefix(formatted, "-"), ".")
			if len(parts) != 2 || len(parts[1]) != 2 || !indianGrouping.MatchString(parts[0]) {
				t.Logf("Invalid decimal format for %f: %s", amount, formatted)
				return false
			}
			back, err := strconv.ParseFloat(strings.ReplaceAll(formatted, ",", ""), 64)
			return err == nil && math.Abs(back-amount) <= 0.005+1e-9
		},
		gen.Float64Range(-1e9, 1e9),
	))

	properties.Property("FormatSigned marks increases with +", prop.ForAll(
		func(change int64) bool {
			formatted := FormatSigned(change)
			switch {
			case change > 0:
				return strings.HasPrefix(formatted, "+")
			case change < 0:
				return strings.HasPrefix(formatted, "-")
			}
			return formatted == "0"
		},
		gen.Int64Range(-5e7, 5e7),
	))

	properties.Property("FormatCompact uses correct units", prop.ForAll(
		func(amount float64) bool {
			formatted := FormatCompact(amount)
			abs := math.Abs(amount)

			switch {
			case abs >= 10000000:
				return strings.HasSuffix(formatted, " Cr")
			case abs >= 100000:
				return strings.HasSuffix(formatted, " L")
			case abs >= 1000:
				return strings.HasSuffix(formatted, " K")
			}
			return !strings.ContainsAny(formatted, "KLC")
		},
		gen.Float64Range(-1e10, 1e10),
	))

	properties.TestingRun(t)
}

func TestIndianNumberFormatExamples(t *testing.T) {
	testCases := []struct {
		amount   float64
		expected string
	}{
		{0, "0.00"},
		{1000, "1,000.00"},
		{100000, "1,00,000.00"},      // 1 lakh
		{10000000, "1,00,00,000.00"}, // 1 crore
		{-1234.56, "-1,234.56"},
		{12345678.90, "1,23,45,678.90"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			if got := FormatIndianDecimal(tc.amount); got != tc.expected {
				t.Errorf("FormatIndianDecimal(%f) = %s, want %s", tc.amount, got, tc.expected)
			}
		})
	}
}

func TestFormatExamples(t *testing.T) {
	testCases := []struct {
		name     string
		got      string
		expected string
	}{
		{"strike", FormatStrike(22000), "22,000"},
		{"half strike", FormatStrike(22012.5), "22,012.50"},
		{"price", FormatPrice(47123.456), "47,123.46"},
		{"oi lakhs", FormatOI(1234567), "12.35 L"},
		{"oi small", FormatOI(950), "950"},
		{"signed", FormatSigned(-150000), "-1,50,000"},
		{"pcr", FormatPCR(0.8), "0.80"},
		{"time", FormatTime(time.Date(2024, 1, 25, 4, 0, 0, 0, time.UTC)), "09:30"},
		{"datetime", FormatDateTime(time.Date(2024, 1, 25, 15, 30, 0, 0, utils.IndiaLocation)), "25-Jan-2024 15:30"},
		{"duration", FormatDuration(1500 * time.Millisecond), "1.5s"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.expected {
				t.Errorf("got %s, want %s", tc.got, tc.expected)
			}
		})
	}
}
