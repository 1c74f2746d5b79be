package physics

// TotalPower is the rider power (W) needed to hold velocity against forces
// with the given drivetrain loss.
func TotalPower(f Forces, velocity, loss float64) float64 {
	return f.Total() * velocity / (1 - loss)
}

// Breakdown is the full power picture at one velocity.
type Breakdown struct {
	Velocity     float64 `json:"velocity_ms"`
	Forces       Forces  `json:"forces"`
	GravityPower float64 `json:"gravity_w"`
	RollingPower float64 `json:"rolling_w"`
	AeroPower    float64 `json:"aero_w"`
	Power        float64 `json:"power_w"`
}

// Split is the share of each component in percent.
type Split struct {
	Gravity float64 `json:"gravity_pct"`
	Rolling float64 `json:"rolling_pct"`
	Aero    float64 `json:"aero_pct"`
}

// Evaluate computes forces and per-component power for p at velocity. The
// component powers sum to Power.
func Evaluate(p Params, velocity float64) Breakdown {
	f := p.Forces(velocity)
	scale := velocity / (1 - p.Loss)
	b := Breakdown{
		Velocity:     velocity,
		Forces:       f,
		GravityPower: f.Gravity * scale,
		RollingPower: f.Rolling * scale,
		AeroPower:    f.Aero * scale,
	}
	b.Power = b.GravityPower + b.RollingPower + b.AeroPower
	return b
}

// Power returns only the total power for p at velocity.
func Power(p Params, velocity float64) float64 {
	return TotalPower(p.Forces(velocity), velocity, p.Loss)
}

// Split divides the positive components into percentages. Components that
// cost no power (descent gravity, tailwind aero) report 0.
func (b Breakdown) Split() Split {
	var sum float64
	for _, w := range []float64{b.GravityPower, b.RollingPower, b.AeroPower} {
		if w > 0 {
			sum += w
		}
	}
	if sum <= 0 {
		return Split{}
	}
	pct := func(w float64) float64 {
		if w <= 0 {
			return 0
		}
		return w / sum * 100
	}
	return Split{
		Gravity: pct(b.GravityPower),
		Rolling: pct(b.RollingPower),
		Aero:    pct(b.AeroPower),
	}
}
