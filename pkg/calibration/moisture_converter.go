// Package calibration maps raw capacitive soil sensor codes to percentages.
package calibration

import (
	"errors"
	"fmt"
	"math"
)

const (
	// Raw code of a fully watered sensor (100%).
	WetRaw = 1700
	// Raw code of a completely dry sensor (0%).
	DryRaw = 3000

	// Band in which an incoming moisture figure is taken to be a raw ADC code.
	rawBandMin = 500
	rawBandMax = 4000
)

var ErrMoistureOutOfRange = errors.New("moisture value is neither a percentage nor a raw sensor code")

// ConvertMoisture converts a raw sensor code to a percentage.
// Lower raw values are wetter. Out of range input is clamped, never rejected.
func ConvertMoisture(raw int) int {
	clamped := max(WetRaw, min(DryRaw, raw))
	percentage := float64(DryRaw-clamped) / float64(DryRaw-WetRaw) * 100
	return max(0, min(100, int(math.Round(percentage))))
}

// IsRawReading reports whether value looks like a raw sensor code rather than
// an already normalized percentage.
//
// This is a heuristic. Sensors that drift outside 500-4000, or firmware that
// reports values near the band edges, can be misclassified.
func IsRawReading(value float64) bool {
	return value >= rawBandMin && value <= rawBandMax
}

// NormalizeMoisture returns value as a 0-100 percentage, converting raw codes.
//
// Values that are neither raw codes nor percentages (negative, 101-499, above
// 4000) are rejected with ErrMoistureOutOfRange instead of being passed through
// as-is, so a stored reading never carries moisture outside 0-100.
func NormalizeMoisture(value int) (int, error) {
	if IsRawReading(float64(value)) {
		return ConvertMoisture(value), nil
	}
	if value < 0 || value > 100 {
		return 0, fmt.Errorf("%w: %d", ErrMoistureOutOfRange, value)
	}
	return value, nil
}
