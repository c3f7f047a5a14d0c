package tools

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// lengthToMeters and massToKilograms normalize units onto a base unit so any
// pair within a family converts through it.
var lengthToMeters = map[string]float64{
	"mm": 0.001,
	"cm": 0.01,
	"m":  1,
	"km": 1000,
	"in": 0.0254,
	"ft": 0.3048,
	"yd": 0.9144,
	"mi": 1609.344,
}

var massToKilograms = map[string]float64{
	"mg": 0.000001,
	"g":  0.001,
	"kg": 1,
	"t":  1000,
	"oz": 0.0283495,
	"lb": 0.453592,
}

func convertUnit(value float64, from, to string) (float64, error) {
	from = strings.ToLower(strings.TrimSpace(from))
	to = strings.ToLower(strings.TrimSpace(to))
	if from == "" || to == "" {
		return 0, fmt.Errorf("both from and to units are required")
	}
	if from == to {
		return value, nil
	}

	if f, ok := lengthToMeters[from]; ok {
		t, ok := lengthToMeters[to]
		if !ok {
			return 0, fmt.Errorf("cannot convert %s to %s", from, to)
		}
		return value * f / t, nil
	}

	if f, ok := massToKilograms[from]; ok {
		t, ok := massToKilograms[to]
		if !ok {
			return 0, fmt.Errorf("cannot convert %s to %s", from, to)
		}
		return value * f / t, nil
	}

	if isTemperature(from) && isTemperature(to) {
		return convertTemperature(value, from, to), nil
	}

	return 0, fmt.Errorf("unsupported unit %q", from)
}

func isTemperature(unit string) bool {
	return unit == "c" || unit == "f" || unit == "k"
}

func convertTemperature(value float64, from, to string) float64 {
	// Normalize to celsius first.
	var celsius float64
	switch from {
	case "c":
		celsius = value
	case "f":
		celsius = (value - 32) * 5 / 9
	case "k":
		celsius = value - 273.15
	}
	switch to {
	case "f":
		return celsius*9/5 + 32
	case "k":
		return celsius + 273.15
	default:
		return celsius
	}
}

// formatWithSeparators renders a number with comma thousands separators.
// decimals < 0 keeps 2 places for fractional values, none for integers.
func formatWithSeparators(value float64, decimals int) string {
	if decimals < 0 {
		if value == math.Trunc(value) {
			decimals = 0
		} else {
			decimals = 2
		}
	}

	formatted := strconv.FormatFloat(value, 'f', decimals, 64)
	negative := strings.HasPrefix(formatted, "-")
	formatted = strings.TrimPrefix(formatted, "-")

	intPart := formatted
	fracPart := ""
	if idx := strings.Index(formatted, "."); idx >= 0 {
		intPart = formatted[:idx]
		fracPart = formatted[idx:]
	}

	var b strings.Builder
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(digit)
	}

	out := b.String() + fracPart
	if negative {
		out = "-" + out
	}
	return out
}
