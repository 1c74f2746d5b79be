// Package drafting estimates how much drag area a rider keeps when sitting
// in a paceline. A Model returns a multiplier in (0, 1] applied to CdA; the
// front rider always gets exactly 1.
package drafting

import (
	"fmt"
	"math"
	"strings"
)

// Model names accepted by ByName.
const (
	NameDynamic = "dynamic"
	NameLegacy  = "legacy"
)

// Config places one rider in a line.
type Config struct {
	Riders   int `json:"riders"`
	Position int `json:"position"`
	// Speed is the group speed in m/s.
	Speed float64 `json:"speed_ms"`
	// Gap is the wheel gap to the rider ahead in meters.
	Gap float64 `json:"gap_m"`
}

// Validate checks the position fits the group.
func (c Config) Validate() error {
	switch {
	case c.Riders < 1:
		return fmt.Errorf("%w: riders must be at least 1, got %d", ErrInvalidConfig, c.Riders)
	case c.Position < 1 || c.Position > c.Riders:
		return fmt.Errorf("%w: position %d outside 1..%d", ErrInvalidConfig, c.Position, c.Riders)
	case c.Gap < 0 || math.IsNaN(c.Gap):
		return fmt.Errorf("%w: gap must be non-negative, got %v", ErrInvalidConfig, c.Gap)
	case c.Speed < 0 || math.IsNaN(c.Speed):
		return fmt.Errorf("%w: speed must be non-negative, got %v", ErrInvalidConfig, c.Speed)
	}
	return nil
}

// sheltered reports whether the rider can gain anything from the draft.
func (c Config) sheltered() bool {
	return c.Riders >= 2 && c.Position >= 2 && c.Position <= c.Riders
}

// Model turns a line position into a drag-area multiplier.
type Model interface {
	Name() string
	Multiplier(c Config) float64
}

// ByName resolves a model by its configured name.
func ByName(name string) (Model, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", NameDynamic:
		return Dynamic{}, nil
	case NameLegacy:
		return Legacy{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, name)
	}
}

// ValidateDutyCycle rejects front-time fractions outside [0, 1].
func ValidateDutyCycle(f float64) error {
	if !(f >= 0 && f <= 1) {
		return fmt.Errorf("%w: duty cycle must be in [0, 1], got %v", ErrInvalidConfig, f)
	}
	return nil
}

// Effective blends the sheltered multiplier with time spent on the front.
// dutyCycle is the fraction of time at the front. Callers validate it with
// ValidateDutyCycle; the clamp only keeps the result inside (0, 1].
func Effective(multiplier, dutyCycle float64) float64 {
	f := clamp(dutyCycle, 0, 1)
	return f + (1-f)*multiplier
}

// EffectiveCdA applies a multiplier to a drag area.
func EffectiveCdA(cda, multiplier float64) float64 {
	return cda * multiplier
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
