// Package group estimates the power each rider in a paceline needs when the
// whole group rides at one speed.
package group

import (
	"fmt"
	"math"
	"slices"

	"github.com/okian/veloperf/internal/domain/drafting"
)

// Rider is one member of a roster. Zero Mass or CdA fall back to the base
// parameters of the estimate.
type Rider struct {
	Position int     `json:"position" yaml:"position"`
	Mass     float64 `json:"mass_kg,omitempty" yaml:"mass_kg,omitempty"`
	CdA      float64 `json:"cda_m2,omitempty" yaml:"cda_m2,omitempty"`
	// DutyCycle is the fraction of time spent on the front.
	DutyCycle *float64 `json:"duty_cycle,omitempty" yaml:"duty_cycle,omitempty"`
}

// Roster is a line of riders sharing one gap.
type Roster struct {
	Riders []Rider `json:"riders"`
	Gap    float64 `json:"gap_m"`
	// Rotating gives riders without an explicit duty cycle an equal share
	// of front time.
	Rotating bool `json:"rotating"`
}

// NewRoster builds a roster of n identical riders in positions 1..n.
func NewRoster(n int, gap float64) Roster {
	riders := make([]Rider, n)
	for i := range riders {
		riders[i] = Rider{Position: i + 1}
	}
	return Roster{Riders: riders, Gap: gap}
}

// Size is the number of riders.
func (r Roster) Size() int { return len(r.Riders) }

// Validate checks positions are exactly 1..N and per-rider overrides make
// sense.
func (r Roster) Validate() error {
	n := len(r.Riders)
	if n == 0 {
		return fmt.Errorf("%w: roster is empty", ErrInvalidRoster)
	}
	if r.Gap < 0 || math.IsNaN(r.Gap) {
		return fmt.Errorf("%w: gap must be non-negative", ErrInvalidRoster)
	}
	positions := make([]int, 0, n)
	for _, rd := range r.Riders {
		if rd.Mass < 0 || rd.CdA < 0 {
			return fmt.Errorf("%w: rider %d has negative mass or cda", ErrInvalidRoster, rd.Position)
		}
		if rd.DutyCycle != nil {
			if err := drafting.ValidateDutyCycle(*rd.DutyCycle); err != nil {
				return fmt.Errorf("%w: rider %d: %w", ErrInvalidRoster, rd.Position, err)
			}
		}
		positions = append(positions, rd.Position)
	}
	slices.Sort(positions)
	for i, p := range positions {
		if p != i+1 {
			return fmt.Errorf("%w: positions must cover 1..%d exactly", ErrInvalidRoster, n)
		}
	}
	return nil
}

// dutyCycle resolves the front-time fraction of rd.
func (r Roster) dutyCycle(rd Rider) float64 {
	switch {
	case rd.DutyCycle != nil:
		return *rd.DutyCycle
	case r.Rotating && len(r.Riders) > 0:
		return 1 / float64(len(r.Riders))
	default:
		return 0
	}
}
