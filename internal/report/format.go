// Package report renders analyzer outputs as plain-text display strings.
// Formatters never mutate their inputs and degrade to "N/A" / "No data
// available" on empty input instead of failing.
package report

import (
	"fmt"
	"strings"
)

const notAvailable = "N/A"

// formatMbps renders a throughput value with two decimals.
func formatMbps(v float64) string {
	return fmt.Sprintf("%.2f Mbps", v)
}

// formatPercent renders a percentage with one decimal.
func formatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

// formatCount renders an integer with thousands grouping.
func formatCount(n int) string {
	return groupThousands(fmt.Sprintf("%d", n))
}

// formatMB renders a megabyte total with thousands grouping, switching to
// gigabytes above 1024 MB.
func formatMB(mb float64) string {
	if mb >= 1024 {
		return fmt.Sprintf("%.2f GB", mb/1024)
	}
	return groupThousands(fmt.Sprintf("%.0f", mb)) + " MB"
}

func groupThousands(digits string) string {
	neg := strings.HasPrefix(digits, "-")
	if neg {
		digits = digits[1:]
	}

	var b strings.Builder
	pre := len(digits) % 3
	if pre > 0 {
		b.WriteString(digits[:pre])
	}
	for i := pre; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}

	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// progressBar draws a fixed-width bar for a 0..100 percentage.
func progressBar(percent float64, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := int(percent / 100 * float64(width))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// truncate shortens text to max runes, appending an ellipsis when trimmed.
func truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-1]) + "…"
}
