package cli

import (
	"fmt"
	"math"
	"strings"
	"time"

	"nse-oi-tracker/pkg/utils"
)

// FormatIndianDecimal formats a number with 2 decimals and Indian digit grouping.
func FormatIndianDecimal(amount float64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	str := fmt.Sprintf("%.2f", amount)
	parts := strings.Split(str, ".")
	result := formatIndianNumber(parts[0]) + "." + parts[1]
	if negative {
		result = "-" + result
	}
	return result
}

// formatIndianNumber formats an integer string in Indian numbering system.
// Indian system: 1,00,00,000 (1 crore) vs Western: 10,000,000
func formatIndianNumber(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	// First group of 3 from right (hundreds)
	result := s[n-3:]
	s = s[:n-3]

	// Then groups of 2 (thousands, lakhs, crores)
	for len(s) > 0 {
		if len(s) >= 2 {
			result = s[len(s)-2:] + "," + result
			s = s[:len(s)-2]
		} else {
			result = s + "," + result
			s = ""
		}
	}

	return result
}

// FormatQuantity formats a contract count with Indian grouping.
func FormatQuantity(qty int64) string {
	if qty < 0 {
		return "-" + formatIndianNumber(fmt.Sprintf("%d", -qty))
	}
	return formatIndianNumber(fmt.Sprintf("%d", qty))
}

// FormatSigned formats an open-interest change with an explicit sign.
func FormatSigned(qty int64) string {
	if qty > 0 {
		return "+" + FormatQuantity(qty)
	}
	return FormatQuantity(qty)
}

// FormatLakhs formats a number in lakhs.
func FormatLakhs(amount float64) string {
	lakhs := amount / 100000
	if lakhs < 0 {
		return fmt.Sprintf("-%.2f L", -lakhs)
	}
	return fmt.Sprintf("%.2f L", lakhs)
}

// FormatCrores formats a number in crores.
func FormatCrores(amount float64) string {
	crores := amount / 10000000
	if crores < 0 {
		return fmt.Sprintf("-%.2f Cr", -crores)
	}
	return fmt.Sprintf("%.2f Cr", crores)
}

// FormatCompact formats open interest in compact form (K/L/Cr).
func FormatCompact(amount float64) string {
	abs := math.Abs(amount)

	switch {
	case abs >= 10000000: // 1 crore
		return FormatCrores(amount)
	case abs >= 100000: // 1 lakh
		return FormatLakhs(amount)
	case abs >= 1000:
		return fmt.Sprintf("%.2f K", amount/1000)
	}
	return fmt.Sprintf("%.0f", amount)
}

// FormatOI formats open interest compactly.
func FormatOI(oi int64) string {
	return FormatCompact(float64(oi))
}

// FormatPrice formats an index level or premium.
func FormatPrice(price float64) string {
	return FormatIndianDecimal(price)
}

// FormatStrike formats a strike price without decimals when whole.
func FormatStrike(strike float64) string {
	if strike == math.Trunc(strike) {
		return formatIndianNumber(fmt.Sprintf("%.0f", strike))
	}
	return FormatIndianDecimal(strike)
}

// FormatPCR formats put-call ratio.
func FormatPCR(pcr float64) string {
	return fmt.Sprintf("%.2f", pcr)
}

// FormatTime formats a time in IST.
func FormatTime(t time.Time) string {
	return t.In(utils.IndiaLocation).Format("15:04")
}

// FormatDateTime formats a datetime in IST.
func FormatDateTime(t time.Time) string {
	return t.In(utils.IndiaLocation).Format("02-Jan-2006 15:04")
}

// FormatDuration formats a duration in human-readable form.
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}
