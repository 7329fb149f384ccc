package cli

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// FormatMetric formats a strategy metric with two decimals. Infinities print
// as +inf and -inf.
func FormatMetric(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "+inf"
	case math.IsInf(v, -1):
		return "-inf"
	case math.IsNaN(v):
		return "nan"
	}
	return fmt.Sprintf("%.2f", v)
}

// FormatIV formats an average implied volatility; nil prints as "-".
func FormatIV(iv *float64) string {
	if iv == nil {
		return "-"
	}
	return fmt.Sprintf("%.4f", *iv)
}

// FormatCurrency formats a dollar amount with thousands separators.
func FormatCurrency(amount float64) string {
	if math.IsInf(amount, 0) || math.IsNaN(amount) {
		return FormatMetric(amount)
	}
	negative := amount < 0
	if negative {
		amount = -amount
	}

	str := fmt.Sprintf("%.2f", amount)
	parts := strings.Split(str, ".")

	result := "$" + groupThousands(parts[0]) + "." + parts[1]
	if negative {
		result = "-" + result
	}
	return result
}

// groupThousands inserts a comma every three digits from the right.
func groupThousands(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	var b strings.Builder
	lead := n % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatStrike formats a strike without trailing zeros.
func FormatStrike(strike float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", strike), "0"), ".")
}

// FormatDateTime formats a timestamp in local time.
func FormatDateTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05")
}

// FormatDuration formats a duration in human-readable form.
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return d.Round(time.Second).String()
}

// ShortID truncates a run ID for table display.
func ShortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

// TruncateString truncates a string to max length with ellipsis.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
