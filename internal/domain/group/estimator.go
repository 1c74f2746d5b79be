package group

import (
	"fmt"
	"math"
	"slices"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"

	"github.com/okian/veloperf/internal/domain/drafting"
	"github.com/okian/veloperf/internal/domain/physics"
)

// frontPowerEpsilon guards the share ratio when the front rider coasts.
const frontPowerEpsilon = 1e-9

// RiderResult is one rider's cost at the group speed.
type RiderResult struct {
	Position     int     `json:"position"`
	DutyCycle    float64 `json:"duty_cycle"`
	Multiplier   float64 `json:"multiplier"`
	EffectiveCdA float64 `json:"effective_cda_m2"`
	Power        float64 `json:"power_w"`
	WattsPerKg   float64 `json:"w_per_kg"`
	// Share is Power relative to the front rider's power.
	Share float64 `json:"share"`
}

// Result summarizes a group at one velocity.
type Result struct {
	Model    string        `json:"model"`
	Velocity float64       `json:"velocity_ms"`
	Riders   []RiderResult `json:"riders"`
	Mean     float64       `json:"mean_w"`
	Variance float64       `json:"variance_w2"`
	StdDev   float64       `json:"stddev_w"`
}

// Estimator evaluates rosters with a drafting model and a solver.
type Estimator struct {
	model  drafting.Model
	solver *physics.Solver
}

// Option applies a configuration option to the Estimator.
type Option func(*Estimator)

// WithModel selects the drafting model.
func WithModel(m drafting.Model) Option {
	return func(e *Estimator) {
		if m != nil {
			e.model = m
		}
	}
}

// WithSolver sets the solver used for group speed searches.
func WithSolver(s *physics.Solver) Option {
	return func(e *Estimator) {
		if s != nil {
			e.solver = s
		}
	}
}

// New creates an Estimator using the dynamic model.
func New(opts ...Option) *Estimator {
	e := &Estimator{
		model:  drafting.Dynamic{},
		solver: physics.NewSolver(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Model returns the drafting model in use.
func (e *Estimator) Model() drafting.Model { return e.model }

// At evaluates every rider of roster at velocity (m/s).
func (e *Estimator) At(base physics.Params, roster Roster, velocity float64) (Result, error) {
	if err := e.check(base, roster); err != nil {
		return Result{}, err
	}
	if !(velocity >= 0) || math.IsInf(velocity, 0) {
		return Result{}, fmt.Errorf("%w: velocity must be non-negative, got %v", physics.ErrInvalidInput, velocity)
	}
	return e.evaluate(base, roster, velocity), nil
}

// SolveForPower finds the common velocity at which the group's mean power
// equals target. A target the group reaches at standstill has no finite
// time and fails with physics.ErrDegenerateSolution.
func (e *Estimator) SolveForPower(base physics.Params, roster Roster, target float64) (Result, physics.Solution, error) {
	if err := e.check(base, roster); err != nil {
		return Result{}, physics.Solution{}, err
	}
	sol, err := e.solver.Solve(target, func(v float64) float64 {
		return e.meanPower(base, roster, v)
	})
	if err != nil {
		return Result{}, physics.Solution{}, err
	}
	if !(sol.Velocity > physics.DegenerateVelocity) {
		return Result{}, sol, fmt.Errorf("%w: group velocity %.6f m/s for mean power %.1f W",
			physics.ErrDegenerateSolution, sol.Velocity, target)
	}
	return e.evaluate(base, roster, sol.Velocity), sol, nil
}

// SolveForTime evaluates the group at the speed that covers distance (m) in
// seconds.
func (e *Estimator) SolveForTime(base physics.Params, roster Roster, distance, seconds float64) (Result, error) {
	v, err := physics.VelocityForTime(distance, seconds)
	if err != nil {
		return Result{}, err
	}
	return e.At(base, roster, v)
}

func (e *Estimator) check(base physics.Params, roster Roster) error {
	if err := base.Validate(); err != nil {
		return err
	}
	return roster.Validate()
}

// riderParams applies the per-rider overrides and the draft to base.
func (e *Estimator) riderParams(base physics.Params, roster Roster, rd Rider, velocity float64) (physics.Params, float64, float64) {
	p := base
	if rd.Mass > 0 {
		p = p.WithMass(rd.Mass)
	}
	if rd.CdA > 0 {
		p = p.WithCdA(rd.CdA)
	}
	duty := roster.dutyCycle(rd)
	mult := e.model.Multiplier(drafting.Config{
		Riders:   roster.Size(),
		Position: rd.Position,
		Speed:    velocity,
		Gap:      roster.Gap,
	})
	mult = drafting.Effective(mult, duty)
	return p.WithCdA(drafting.EffectiveCdA(p.CdA, mult)), mult, duty
}

func (e *Estimator) meanPower(base physics.Params, roster Roster, velocity float64) float64 {
	var sum float64
	for _, rd := range roster.Riders {
		p, _, _ := e.riderParams(base, roster, rd, velocity)
		sum += physics.Power(p, velocity)
	}
	return sum / float64(roster.Size())
}

func (e *Estimator) evaluate(base physics.Params, roster Roster, velocity float64) Result {
	riders := make([]RiderResult, 0, roster.Size())
	for _, rd := range roster.Riders {
		p, mult, duty := e.riderParams(base, roster, rd, velocity)
		w := physics.Power(p, velocity)
		riders = append(riders, RiderResult{
			Position:     rd.Position,
			DutyCycle:    duty,
			Multiplier:   mult,
			EffectiveCdA: p.CdA,
			Power:        w,
			WattsPerKg:   w / p.Mass,
		})
	}
	slices.SortFunc(riders, func(a, b RiderResult) int { return a.Position - b.Position })

	front := riders[0].Power
	for i := range riders {
		if math.Abs(front) > frontPowerEpsilon {
			riders[i].Share = riders[i].Power / front
		}
	}

	powers := lo.Map(riders, func(r RiderResult, _ int) float64 { return r.Power })
	mean, variance := stat.PopMeanVariance(powers, nil)
	return Result{
		Model:    e.model.Name(),
		Velocity: velocity,
		Riders:   riders,
		Mean:     mean,
		Variance: variance,
		StdDev:   math.Sqrt(variance),
	}
}
