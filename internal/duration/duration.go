// Package duration provides parsing for human-readable lookback windows.
package duration

import (
	"fmt"
	"strconv"
)

// Lookback bounds, in hours. 720 hours is 30 days, the largest window
// the digest supports.
const (
	MinHours = 1
	MaxHours = 720
)

// ParseHours parses lookback strings like "36h", "3d", "2w" or a bare
// hour count like "24" into a number of hours, clamped to
// [MinHours, MaxHours].
func ParseHours(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("empty lookback window")
	}

	// Bare integer means hours.
	if n, err := strconv.Atoi(s); err == nil {
		return clamp(n), nil
	}

	var n int
	var unit string
	if _, err := fmt.Sscanf(s, "%d%s", &n, &unit); err != nil {
		return 0, fmt.Errorf("invalid lookback format: %s (use e.g., 24h, 3d, 1w)", s)
	}

	switch unit {
	case "h", "hr", "hrs", "hour", "hours":
		// n already in hours
	case "d", "day", "days":
		n *= 24
	case "w", "wk", "wks", "week", "weeks":
		n *= 7 * 24
	default:
		return 0, fmt.Errorf("unknown lookback unit: %s", unit)
	}

	return clamp(n), nil
}

func clamp(n int) int {
	if n < MinHours {
		return MinHours
	}
	if n > MaxHours {
		return MaxHours
	}
	return n
}
