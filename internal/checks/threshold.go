package checks

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Threshold strings in contracts are human-readable ("15 minutes",
// "99.5%"), written by publishers. They are parsed per evaluation; a
// malformed threshold is the rule author's bug and surfaces as a rule-level
// error, never as a crashed run.

var durationUnits = map[string]time.Duration{
	"second": time.Second,
	"minute": time.Minute,
	"hour":   time.Hour,
	"day":    24 * time.Hour,
}

// ParseDuration converts a duration threshold such as "15 minutes" or
// "1 hour" into a time.Duration.
func ParseDuration(threshold string) (time.Duration, error) {
	parts := strings.Fields(strings.ToLower(strings.TrimSpace(threshold)))
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid duration format: %q", threshold)
	}

	value, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid duration value: %q", threshold)
	}

	unit := strings.TrimSuffix(parts[1], "s")
	multiplier, ok := durationUnits[unit]
	if !ok {
		return 0, fmt.Errorf("unknown time unit: %q", unit)
	}

	return time.Duration(value) * multiplier, nil
}

// ParsePercent converts a percentage threshold such as "99.5%" into a
// decimal value on the 0-100 scale.
func ParsePercent(threshold string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(strings.ReplaceAll(threshold, "%", ""))
	if trimmed == "" {
		return decimal.Decimal{}, fmt.Errorf("invalid percentage: %q", threshold)
	}

	value, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid percentage: %q", threshold)
	}
	return value, nil
}
