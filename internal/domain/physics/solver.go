package physics

import (
	"fmt"
	"math"
)

// Default solver configuration constants.
const (
	defaultAbsTolerance  = 0.1   // W
	defaultRelTolerance  = 0.001 // fraction of target
	defaultInitialUpper  = 20.0  // m/s
	defaultGrowth        = 2.0
	defaultCeiling       = 150.0 // m/s
	defaultMaxIterations = 200

	// DegenerateVelocity is the speed (m/s) below which a finite time
	// cannot be reported.
	DegenerateVelocity = 1e-3
)

// SolverConfig tunes the bracket expansion and bisection.
type SolverConfig struct {
	AbsTolerance  float64 `koanf:"abs_tolerance" json:"abs_tolerance"`
	RelTolerance  float64 `koanf:"rel_tolerance" json:"rel_tolerance"`
	InitialUpper  float64 `koanf:"initial_upper" json:"initial_upper"`
	Growth        float64 `koanf:"growth" json:"growth"`
	Ceiling       float64 `koanf:"ceiling" json:"ceiling"`
	MaxIterations int     `koanf:"max_iterations" json:"max_iterations"`
}

// DefaultSolverConfig returns the production tolerances.
func DefaultSolverConfig() SolverConfig {
	return SolverConfig{
		AbsTolerance:  defaultAbsTolerance,
		RelTolerance:  defaultRelTolerance,
		InitialUpper:  defaultInitialUpper,
		Growth:        defaultGrowth,
		Ceiling:       defaultCeiling,
		MaxIterations: defaultMaxIterations,
	}
}

// Objective maps a velocity (m/s) to the power (W) it costs.
type Objective func(velocity float64) float64

// Solution is a solved velocity together with the power it achieves.
type Solution struct {
	Velocity   float64 `json:"velocity_ms"`
	Power      float64 `json:"power_w"`
	Iterations int     `json:"iterations"`
}

// Solver inverts a power curve with bracketed bisection.
type Solver struct {
	cfg SolverConfig
}

// SolverOption applies a configuration option to the Solver.
type SolverOption func(*Solver)

// WithConfig replaces every non-zero field of the default configuration.
func WithConfig(cfg SolverConfig) SolverOption {
	return func(s *Solver) {
		if cfg.AbsTolerance > 0 {
			s.cfg.AbsTolerance = cfg.AbsTolerance
		}
		if cfg.RelTolerance > 0 {
			s.cfg.RelTolerance = cfg.RelTolerance
		}
		if cfg.InitialUpper > 0 {
			s.cfg.InitialUpper = cfg.InitialUpper
		}
		if cfg.Growth > 1 {
			s.cfg.Growth = cfg.Growth
		}
		if cfg.Ceiling > 0 {
			s.cfg.Ceiling = cfg.Ceiling
		}
		if cfg.MaxIterations > 0 {
			s.cfg.MaxIterations = cfg.MaxIterations
		}
	}
}

// WithMaxIterations caps the number of bisection steps.
func WithMaxIterations(n int) SolverOption {
	return func(s *Solver) {
		if n > 0 {
			s.cfg.MaxIterations = n
		}
	}
}

// WithCeiling bounds the bracket expansion (m/s).
func WithCeiling(v float64) SolverOption {
	return func(s *Solver) {
		if v > 0 {
			s.cfg.Ceiling = v
		}
	}
}

// NewSolver creates a solver with default tolerances.
func NewSolver(opts ...SolverOption) *Solver {
	s := &Solver{cfg: DefaultSolverConfig()}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg.InitialUpper > s.cfg.Ceiling {
		s.cfg.InitialUpper = s.cfg.Ceiling
	}
	return s
}

// Config returns the active configuration.
func (s *Solver) Config() SolverConfig { return s.cfg }

// Tolerance is the accepted power residual for target.
func (s *Solver) Tolerance(target float64) float64 {
	return math.Max(s.cfg.AbsTolerance, s.cfg.RelTolerance*math.Abs(target))
}

// Solve finds the smallest non-negative velocity whose objective power
// reaches target. When the curve already meets target at rest the answer is
// zero.
func (s *Solver) Solve(target float64, objective Objective) (Solution, error) {
	if math.IsNaN(target) || math.IsInf(target, 0) {
		return Solution{}, invalidf("target power must be finite, got %v", target)
	}
	if p0 := objective(0); p0 >= target {
		return Solution{Velocity: 0, Power: p0}, nil
	}
	tol := s.Tolerance(target)

	// Expand until the bracket holds the target. lo always stays below it.
	lo, hi := 0.0, s.cfg.InitialUpper
	pHi := objective(hi)
	for pHi < target {
		if hi >= s.cfg.Ceiling {
			return Solution{}, &SolverError{
				LastEstimate: hi,
				LastPower:    pHi,
				Reason:       ReasonCeilingExceeded,
			}
		}
		lo = hi
		hi = math.Min(hi*s.cfg.Growth, s.cfg.Ceiling)
		pHi = objective(hi)
	}
	if math.Abs(pHi-target) <= tol {
		return Solution{Velocity: hi, Power: pHi}, nil
	}

	best := Solution{Velocity: hi, Power: pHi}
	for i := 1; i <= s.cfg.MaxIterations; i++ {
		mid := lo + (hi-lo)/2
		p := objective(mid)
		best = Solution{Velocity: mid, Power: p, Iterations: i}
		if math.Abs(p-target) <= tol {
			return best, nil
		}
		if p < target {
			lo = mid
		} else {
			hi = mid
		}
		// A collapsed bracket that still misses the target means the curve
		// jumps across it.
		if hi-lo <= 1e-12*math.Max(1, hi) {
			return Solution{}, &SolverError{
				LastEstimate: best.Velocity,
				LastPower:    best.Power,
				Iterations:   i,
				Reason:       ReasonNonMonotonic,
			}
		}
	}
	return Solution{}, &SolverError{
		LastEstimate: best.Velocity,
		LastPower:    best.Power,
		Iterations:   best.Iterations,
		Reason:       ReasonIterationCap,
	}
}

// SolveVelocity inverts the single-rider power curve of p.
func (s *Solver) SolveVelocity(target float64, p Params) (Solution, error) {
	if err := p.Validate(); err != nil {
		return Solution{}, err
	}
	return s.Solve(target, func(v float64) float64 { return Power(p, v) })
}

// TravelTime converts a solved velocity into seconds over distance.
func TravelTime(distance, velocity float64) (float64, error) {
	if !(distance > 0) {
		return 0, invalidf("distance must be positive, got %v", distance)
	}
	if !(velocity > DegenerateVelocity) {
		return 0, fmt.Errorf("%w: velocity %.6f m/s", ErrDegenerateSolution, velocity)
	}
	return distance / velocity, nil
}

// VelocityForTime is the average speed needed to cover distance in seconds.
func VelocityForTime(distance, seconds float64) (float64, error) {
	if !(distance > 0) {
		return 0, invalidf("distance must be positive, got %v", distance)
	}
	if !(seconds > 0) || math.IsInf(seconds, 0) {
		return 0, invalidf("time must be positive, got %v", seconds)
	}
	return distance / seconds, nil
}
