package dynasty

import "fmt"

// FormatValue renders a dynasty value for display.
func FormatValue(value *float64) string {
	if value == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.1f", *value)
}

// TrendDirection classifies a trend delta as "up", "down" or "flat". A nil
// trend has no direction.
func TrendDirection(trend *float64) string {
	switch {
	case trend == nil:
		return ""
	case *trend > 0:
		return "up"
	case *trend < 0:
		return "down"
	default:
		return "flat"
	}
}
