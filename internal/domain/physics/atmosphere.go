// Package physics holds the steady-state cycling model: air density, the
// resisting forces, the power they cost and the solver that inverts power
// back into velocity. Everything here is pure and works in SI units.
package physics

import "math"

// Atmosphere and gravity constants.
const (
	SeaLevelDensity = 1.225  // kg/m³
	ScaleHeight     = 8400.0 // m
	Gravity         = 9.8066 // m/s²
)

// AirDensity returns the air density at elevation (m) using an exponential
// atmosphere. The result is always positive for finite input.
func AirDensity(elevation float64) float64 {
	return SeaLevelDensity * math.Exp(-elevation/ScaleHeight)
}

// AverageElevation is the mean of the start and end elevation of a
// constant-grade segment.
func AverageElevation(start, distance, grade float64) float64 {
	return start + distance*grade/2
}

// Segment is a constant-grade stretch of road.
type Segment struct {
	// Grade is rise over run as a decimal (0.06 is 6 %).
	Grade float64 `json:"grade" yaml:"grade"`
	// Distance is the horizontal length in meters.
	Distance float64 `json:"distance_m" yaml:"distance_m"`
	// StartElevation is in meters above sea level.
	StartElevation float64 `json:"start_elevation_m" yaml:"start_elevation_m"`
}

// AverageElevation returns the representative elevation of the segment.
func (s Segment) AverageElevation() float64 {
	return AverageElevation(s.StartElevation, s.Distance, s.Grade)
}

// Density returns the air density used for the whole segment.
func (s Segment) Density() float64 {
	return AirDensity(s.AverageElevation())
}

// Validate checks the segment can carry a timed effort.
func (s Segment) Validate() error {
	if !finite(s.Grade) || !finite(s.StartElevation) {
		return invalidf("segment grade and elevation must be finite")
	}
	if !(s.Distance > 0) || math.IsInf(s.Distance, 0) {
		return invalidf("distance must be positive, got %v", s.Distance)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
