// Package scenario evaluates a full prediction request: one rider on one
// segment, either solving speed from power or power from time, with an
// optional draft.
package scenario

import (
	"fmt"
	"math"

	"github.com/okian/veloperf/internal/domain/drafting"
	"github.com/okian/veloperf/internal/domain/physics"
)

// Mode selects which quantity is given.
type Mode string

// Evaluation modes.
const (
	ModePowerToTime Mode = "power_to_time"
	ModeTimeToPower Mode = "time_to_power"
)

// Rider masses in kilograms.
type Rider struct {
	BodyMass float64 `json:"body_mass_kg" yaml:"body_mass_kg"`
	GearMass float64 `json:"gear_mass_kg" yaml:"gear_mass_kg"`
}

// Total is the combined system mass.
func (r Rider) Total() float64 { return r.BodyMass + r.GearMass }

// Resistance holds the rolling and aerodynamic coefficients.
type Resistance struct {
	Crr float64 `json:"crr" yaml:"crr"`
	CdA float64 `json:"cda_m2" yaml:"cda_m2"`
}

// Draft places the rider in a group.
type Draft struct {
	Riders   int     `json:"riders" yaml:"riders"`
	Position int     `json:"position" yaml:"position"`
	Gap      float64 `json:"gap_m" yaml:"gap_m"`
	// DutyCycle is the fraction of time this rider spends on the front.
	DutyCycle *float64 `json:"duty_cycle,omitempty" yaml:"duty_cycle,omitempty"`
}

func (d Draft) config(speed float64) drafting.Config {
	return drafting.Config{Riders: d.Riders, Position: d.Position, Speed: speed, Gap: d.Gap}
}

func (d Draft) duty() float64 {
	if d.DutyCycle == nil {
		return 0
	}
	return *d.DutyCycle
}

// Scenario is one prediction request in SI units.
type Scenario struct {
	ID         string          `json:"id,omitempty" yaml:"id,omitempty"`
	Mode       Mode            `json:"mode" yaml:"mode"`
	Rider      Rider           `json:"rider" yaml:"rider"`
	Segment    physics.Segment `json:"segment" yaml:"segment"`
	Wind       float64         `json:"wind_ms" yaml:"wind_ms"`
	Resistance Resistance      `json:"resistance" yaml:"resistance"`
	Loss       float64         `json:"loss" yaml:"loss"`
	Draft      *Draft          `json:"draft,omitempty" yaml:"draft,omitempty"`
	// Target is watts in power mode and seconds in time mode.
	Target float64 `json:"target" yaml:"target"`
	// ReferenceTime is an optional earlier time in seconds to compare
	// against.
	ReferenceTime float64 `json:"reference_time_s,omitempty" yaml:"reference_time_s,omitempty"`
}

// Validate rejects scenarios the model cannot evaluate.
func (s Scenario) Validate() error {
	switch s.Mode {
	case ModePowerToTime, ModeTimeToPower:
	default:
		return fmt.Errorf("%w: unknown mode %q", physics.ErrInvalidInput, s.Mode)
	}
	if !(s.Rider.BodyMass > 0) || !(s.Rider.GearMass > 0) {
		return fmt.Errorf("%w: body and gear mass must be positive", physics.ErrInvalidInput)
	}
	if math.IsNaN(s.Target) || math.IsInf(s.Target, 0) {
		return fmt.Errorf("%w: target must be finite", physics.ErrInvalidInput)
	}
	if err := s.Segment.Validate(); err != nil {
		return err
	}
	if s.Draft != nil {
		if err := s.Draft.config(0).Validate(); err != nil {
			return fmt.Errorf("%w: %w", physics.ErrInvalidInput, err)
		}
		if d := s.Draft.DutyCycle; d != nil {
			if err := drafting.ValidateDutyCycle(*d); err != nil {
				return fmt.Errorf("%w: %w", physics.ErrInvalidInput, err)
			}
		}
	}
	return s.Params().Validate()
}

// Params returns the undrafted physics parameters of the scenario.
func (s Scenario) Params() physics.Params {
	return physics.Params{
		Mass:    s.Rider.Total(),
		Grade:   s.Segment.Grade,
		Crr:     s.Resistance.Crr,
		CdA:     s.Resistance.CdA,
		Density: s.Segment.Density(),
		Wind:    s.Wind,
		Loss:    s.Loss,
	}
}
