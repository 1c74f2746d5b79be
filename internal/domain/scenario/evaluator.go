package scenario

import (
	"github.com/okian/veloperf/internal/domain/drafting"
	"github.com/okian/veloperf/internal/domain/group"
	"github.com/okian/veloperf/internal/domain/physics"
)

// Result is the outcome of one scenario.
type Result struct {
	ID               string  `json:"id,omitempty"`
	Mode             Mode    `json:"mode"`
	Velocity         float64 `json:"velocity_ms"`
	Time             float64 `json:"time_s"`
	Power            float64 `json:"power_w"`
	WattsPerKg       float64 `json:"w_per_kg"`
	Density          float64 `json:"density"`
	AverageElevation float64 `json:"average_elevation_m"`
	Multiplier       float64 `json:"multiplier"`
	EffectiveCdA     float64 `json:"effective_cda_m2"`
	Iterations       int     `json:"iterations"`

	Breakdown physics.Breakdown `json:"breakdown"`
	Split     physics.Split     `json:"split"`

	// TimeDelta is Time minus the scenario's reference time, when given.
	TimeDelta *float64 `json:"time_delta_s,omitempty"`
	// Group is set when the scenario drafts.
	Group *group.Result `json:"group,omitempty"`
}

// Evaluator runs scenarios against one solver and drafting model.
type Evaluator struct {
	solver *physics.Solver
	model  drafting.Model
	groups *group.Estimator
}

// Option applies a configuration option to the Evaluator.
type Option func(*Evaluator)

// WithSolver sets the velocity solver.
func WithSolver(s *physics.Solver) Option {
	return func(e *Evaluator) {
		if s != nil {
			e.solver = s
		}
	}
}

// WithModel sets the drafting model.
func WithModel(m drafting.Model) Option {
	return func(e *Evaluator) {
		if m != nil {
			e.model = m
		}
	}
}

// NewEvaluator creates an Evaluator with the default solver and the dynamic
// drafting model.
func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{
		solver: physics.NewSolver(),
		model:  drafting.Dynamic{},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.groups = group.New(group.WithModel(e.model), group.WithSolver(e.solver))
	return e
}

// Model returns the drafting model in use.
func (e *Evaluator) Model() drafting.Model { return e.model }

// Groups returns the group estimator sharing this evaluator's model and
// solver.
func (e *Evaluator) Groups() *group.Estimator { return e.groups }

// Evaluate solves s.
func (e *Evaluator) Evaluate(s Scenario) (Result, error) {
	if err := s.Validate(); err != nil {
		return Result{}, err
	}
	base := s.Params()

	multAt := func(v float64) float64 {
		if s.Draft == nil {
			return 1
		}
		return drafting.Effective(e.model.Multiplier(s.Draft.config(v)), s.Draft.duty())
	}
	paramsAt := func(v float64) physics.Params {
		return base.WithCdA(drafting.EffectiveCdA(base.CdA, multAt(v)))
	}

	res := Result{
		ID:               s.ID,
		Mode:             s.Mode,
		Density:          base.Density,
		AverageElevation: s.Segment.AverageElevation(),
	}

	switch s.Mode {
	case ModePowerToTime:
		sol, err := e.solver.Solve(s.Target, func(v float64) float64 {
			return physics.Power(paramsAt(v), v)
		})
		if err != nil {
			return Result{}, err
		}
		t, err := physics.TravelTime(s.Segment.Distance, sol.Velocity)
		if err != nil {
			return Result{}, err
		}
		res.Velocity, res.Time, res.Iterations = sol.Velocity, t, sol.Iterations
	case ModeTimeToPower:
		v, err := physics.VelocityForTime(s.Segment.Distance, s.Target)
		if err != nil {
			return Result{}, err
		}
		res.Velocity, res.Time = v, s.Target
	}

	p := paramsAt(res.Velocity)
	res.Multiplier = multAt(res.Velocity)
	res.EffectiveCdA = p.CdA
	res.Breakdown = physics.Evaluate(p, res.Velocity)
	res.Split = res.Breakdown.Split()
	res.Power = res.Breakdown.Power
	res.WattsPerKg = res.Power / base.Mass

	if s.ReferenceTime > 0 {
		d := res.Time - s.ReferenceTime
		res.TimeDelta = &d
	}

	if s.Draft != nil && s.Draft.Riders > 1 {
		roster := group.NewRoster(s.Draft.Riders, s.Draft.Gap)
		roster.Riders[s.Draft.Position-1].DutyCycle = s.Draft.DutyCycle
		g, err := e.groups.At(base, roster, res.Velocity)
		if err != nil {
			return Result{}, err
		}
		res.Group = &g
	}
	return res, nil
}
