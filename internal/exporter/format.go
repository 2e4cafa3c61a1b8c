package exporter

import (
	"math"
	"strconv"

	"ptbxl/internal/literal"
)

// formatFloat writes f in shortest form with at least one decimal place;
// NaN becomes an empty cell.
func formatFloat(f float64) string {
	if math.IsNaN(f) {
		return ""
	}
	return literal.FormatNumber(f)
}

// formatOptional formats a nullable measurement
func formatOptional(f *float64) string {
	if f == nil {
		return ""
	}
	return formatFloat(*f)
}

// formatInt formats an int value for CSV output
func formatInt(i int) string {
	return strconv.Itoa(i)
}

// formatStat formats a describe statistic with six decimals
func formatStat(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	return strconv.FormatFloat(f, 'f', 6, 64)
}
