// Package units converts between the SI values used internally and the
// units riders type in: km/h, km, percent grade and clock times.
package units

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidDuration is returned when a clock time cannot be parsed.
var ErrInvalidDuration = errors.New("invalid duration")

const kmhPerMs = 3.6

// KmhToMs converts km/h to m/s.
func KmhToMs(kmh float64) float64 { return kmh / kmhPerMs }

// MsToKmh converts m/s to km/h.
func MsToKmh(ms float64) float64 { return ms * kmhPerMs }

// KmToM converts kilometers to meters.
func KmToM(km float64) float64 { return km * 1000 }

// MToKm converts meters to kilometers.
func MToKm(m float64) float64 { return m / 1000 }

// PercentToGrade converts a percent grade to a decimal.
func PercentToGrade(pct float64) float64 { return pct / 100 }

// GradeToPercent converts a decimal grade to percent.
func GradeToPercent(g float64) float64 { return g * 100 }

// FormatDuration renders seconds as M:SS, or H:MM:SS from one hour up.
// Non-positive and non-finite inputs render as "Invalid".
func FormatDuration(seconds float64) string {
	if !(seconds > 0) || math.IsInf(seconds, 0) {
		return "Invalid"
	}
	total := int64(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// FormatDelta renders a signed time difference as +M:SS or -M:SS. Deltas
// of a second or less render empty.
func FormatDelta(seconds float64) string {
	if math.Abs(seconds) <= 1 || math.IsNaN(seconds) {
		return ""
	}
	sign := "+"
	if seconds < 0 {
		sign = "-"
	}
	return sign + FormatDuration(math.Abs(seconds))
}

// ParseDuration reads MM:SS or H:MM:SS into seconds.
func ParseDuration(text string) (float64, error) {
	parts := strings.Split(strings.TrimSpace(text), ":")
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, text)
		}
		nums[i] = n
	}
	switch len(nums) {
	case 2:
		if nums[1] < 60 {
			return float64(nums[0]*60 + nums[1]), nil
		}
	case 3:
		if nums[1] < 60 && nums[2] < 60 {
			return float64(nums[0]*3600 + nums[1]*60 + nums[2]), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, text)
}
