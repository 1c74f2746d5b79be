package physics

import "math"

// Forces are the three resisting forces in newtons. Gravity and Aero may be
// negative (descent, tailwind).
type Forces struct {
	Gravity float64 `json:"gravity_n"`
	Rolling float64 `json:"rolling_n"`
	Aero    float64 `json:"aero_n"`
}

// Total is the net resisting force.
func (f Forces) Total() float64 { return f.Gravity + f.Rolling + f.Aero }

// Params carries everything needed to turn a velocity into forces and power.
type Params struct {
	Mass    float64 `json:"mass_kg"`
	Grade   float64 `json:"grade"`
	Crr     float64 `json:"crr"`
	CdA     float64 `json:"cda_m2"`
	Density float64 `json:"density"`
	// Wind is the head wind in m/s; negative values are tailwind.
	Wind float64 `json:"wind_ms"`
	// Loss is the drivetrain loss fraction in [0, 1).
	Loss float64 `json:"loss"`
}

// Validate rejects parameters the model cannot evaluate.
func (p Params) Validate() error {
	switch {
	case !(p.Mass > 0) || math.IsInf(p.Mass, 0):
		return invalidf("mass must be positive, got %v", p.Mass)
	case !(p.Density > 0) || math.IsInf(p.Density, 0):
		return invalidf("air density must be positive, got %v", p.Density)
	case !(p.Crr > 0) || math.IsInf(p.Crr, 0):
		return invalidf("crr must be positive, got %v", p.Crr)
	case !(p.CdA > 0) || math.IsInf(p.CdA, 0):
		return invalidf("cda must be positive, got %v", p.CdA)
	case !(p.Loss >= 0 && p.Loss < 1):
		return invalidf("drivetrain loss must be in [0, 1), got %v", p.Loss)
	case !finite(p.Grade) || !finite(p.Wind):
		return invalidf("grade and wind must be finite")
	}
	return nil
}

// WithCdA returns a copy of p using cda as drag area.
func (p Params) WithCdA(cda float64) Params {
	p.CdA = cda
	return p
}

// WithMass returns a copy of p using mass.
func (p Params) WithMass(mass float64) Params {
	p.Mass = mass
	return p
}

// ComputeForces decomposes the resistance at velocity (m/s). The aero term
// keeps the sign of the relative air speed.
func ComputeForces(mass, grade, crr, cda, density, velocity, wind float64) Forces {
	theta := math.Atan(grade)
	rel := velocity + wind
	return Forces{
		Gravity: mass * Gravity * math.Sin(theta),
		Rolling: mass * Gravity * math.Cos(theta) * crr,
		Aero:    0.5 * density * cda * rel * math.Abs(rel),
	}
}

// Forces evaluates ComputeForces for p at velocity.
func (p Params) Forces(velocity float64) Forces {
	return ComputeForces(p.Mass, p.Grade, p.Crr, p.CdA, p.Density, velocity, p.Wind)
}
