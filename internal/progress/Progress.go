package progress

import (
	"fmt"
	"strings"
)

// BarSegments is the width of the progress bar in glyphs
const BarSegments = 10

const (
	glyphFilled = "█"
	glyphEmpty  = "░"
)

// Percentage returns current/total in percent, or 0 if the total is unknown
func Percentage(current, total int64) float64 {
	if total <= 0 || current <= 0 {
		return 0
	}
	if current >= total {
		return 100
	}
	return float64(current) * 100 / float64(total)
}

// ProgressBar returns a bar of BarSegments glyphs. Partially filled segments are rounded down
func ProgressBar(percentage float64) string {
	filled := int(percentage / (100 / BarSegments))
	if filled < 0 {
		filled = 0
	}
	if filled > BarSegments {
		filled = BarSegments
	}
	return strings.Repeat(glyphFilled, filled) + strings.Repeat(glyphEmpty, BarSegments-filled)
}

// FormatPercentage returns the percentage with at most one decimal, e.g. 0%, 33.3% or 100%
func FormatPercentage(percentage float64) string {
	if percentage < 0 {
		percentage = 0
	}
	result := fmt.Sprintf("%.1f", percentage)
	return strings.TrimSuffix(result, ".0") + "%"
}

// BarWithPercentage returns the bar followed by the formatted percentage
func BarWithPercentage(percentage float64) string {
	return "[" + ProgressBar(percentage) + "] " + FormatPercentage(percentage)
}
