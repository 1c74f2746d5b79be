package benchmark

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/okian/veloperf/internal/domain/drafting"
	"github.com/okian/veloperf/internal/domain/physics"
	"github.com/okian/veloperf/pkg/logger"
	"github.com/okian/veloperf/pkg/units"
)

// MultiplierSource answers drafting multipliers by model name.
type MultiplierSource interface {
	Multiplier(ctx context.Context, model string, c drafting.Config) (float64, error)
}

// LocalSource evaluates the in-process drafting models.
type LocalSource struct{}

// Multiplier implements MultiplierSource.
func (LocalSource) Multiplier(_ context.Context, model string, c drafting.Config) (float64, error) {
	m, err := drafting.ByName(model)
	if err != nil {
		return 0, err
	}
	if err := c.Validate(); err != nil {
		return 0, err
	}
	return m.Multiplier(c), nil
}

// Row is one evaluated scenario.
type Row struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Sex          string  `json:"sex"`
	Riders       int     `json:"riders"`
	Position     int     `json:"position"`
	SpeedKmh     float64 `json:"speed_kmh"`
	GapM         float64 `json:"gap_m"`
	DistanceKm   float64 `json:"distance_km"`
	GradientPct  float64 `json:"gradient_pct"`
	DynDraftPct  float64 `json:"dyn_draft_pct"`
	LegDraftPct  float64 `json:"leg_draft_pct"`
	DynCdA       float64 `json:"dyn_cda"`
	LegCdA       float64 `json:"leg_cda"`
	DynPowerW    float64 `json:"dyn_power_w"`
	LegPowerW    float64 `json:"leg_power_w"`
	PowerDiffW   float64 `json:"power_diff_w"`
	PowerDiffPct float64 `json:"power_diff_pct"`
}

// Summary aggregates the rows.
type Summary struct {
	ScenarioCount int     `json:"scenario_count"`
	MeanDynPowerW float64 `json:"mean_dyn_power_w"`
	MeanLegPowerW float64 `json:"mean_leg_power_w"`
	MeanDiffW     float64 `json:"mean_diff_w"`
	StdDevDiffW   float64 `json:"stddev_diff_w"`
	MinDiffW      float64 `json:"min_diff_w"`
	MaxDiffW      float64 `json:"max_diff_w"`
	DynGtLegCount int     `json:"dyn_gt_leg_count"`
	DynLtLegCount int     `json:"dyn_lt_leg_count"`
}

// Report is the full benchmark outcome.
type Report struct {
	Source   string        `json:"source"`
	Defaults Scenario      `json:"defaults"`
	Rows     []Row         `json:"rows"`
	Summary  Summary       `json:"summary"`
	Elapsed  time.Duration `json:"elapsed_ns"`
}

// Runner evaluates scenario files.
type Runner struct {
	workers int
	source  MultiplierSource
	logger  logger.Logger
}

// Option applies a configuration option to the Runner.
type Option func(*Runner)

// WithWorkers bounds the number of scenarios evaluated at once.
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithSource sets where multipliers come from.
func WithSource(s MultiplierSource) Option {
	return func(r *Runner) {
		if s != nil {
			r.source = s
		}
	}
}

// WithLogger sets the runner's logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRunner creates a Runner using the local models on NumCPU workers.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{workers: runtime.NumCPU(), source: LocalSource{}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run evaluates every scenario of f. The first failing scenario cancels
// the rest and its error is returned.
func (r *Runner) Run(ctx context.Context, f *File) (*Report, error) {
	start := time.Now()
	rows := make([]Row, len(f.Scenarios))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, s := range f.Scenarios {
		g.Go(func() error {
			row, err := r.evaluate(gctx, s)
			if err != nil {
				return err
			}
			rows[i] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rep := &Report{
		Source:   f.Source,
		Defaults: f.Defaults,
		Rows:     rows,
		Summary:  Summarize(rows),
		Elapsed:  time.Since(start),
	}
	if r.logger != nil {
		r.logger.Info(ctx, "benchmark finished",
			logger.Int("scenarios", len(rows)),
			logger.Float64("mean_diff_w", rep.Summary.MeanDiffW),
			logger.Duration("elapsed", rep.Elapsed),
		)
	}
	return rep, nil
}

func (r *Runner) evaluate(ctx context.Context, s Scenario) (Row, error) {
	if err := s.Validate(); err != nil {
		return Row{}, err
	}
	speed, _ := s.Speed()
	cfg := drafting.Config{
		Riders:   s.Riders,
		Position: s.Position,
		Speed:    units.KmhToMs(speed),
		Gap:      s.GapM,
	}
	dyn, err := r.source.Multiplier(ctx, drafting.NameDynamic, cfg)
	if err != nil {
		return Row{}, fmt.Errorf("%s: %w", s.label(), err)
	}
	leg, err := r.source.Multiplier(ctx, drafting.NameLegacy, cfg)
	if err != nil {
		return Row{}, fmt.Errorf("%s: %w", s.label(), err)
	}

	dynDraft, legDraft := 1-dyn, 1-leg
	row := Row{
		ID:          s.ID,
		Name:        s.Name,
		Sex:         s.Sex,
		Riders:      s.Riders,
		Position:    s.Position,
		SpeedKmh:    speed,
		GapM:        s.GapM,
		DistanceKm:  s.DistanceKm,
		GradientPct: s.GradientPct,
		DynDraftPct: dynDraft * 100,
		LegDraftPct: legDraft * 100,
		DynCdA:      s.CdAFor(dynDraft),
		LegCdA:      s.CdAFor(legDraft),
	}
	row.DynPowerW = s.power(cfg.Speed, row.DynCdA)
	row.LegPowerW = s.power(cfg.Speed, row.LegCdA)
	row.PowerDiffW = row.DynPowerW - row.LegPowerW
	if row.LegPowerW != 0 {
		row.PowerDiffPct = row.PowerDiffW / row.LegPowerW * 100
	}
	return row, nil
}

// power is the rider power at velocity (m/s) with drag area cda.
func (s Scenario) power(velocity, cda float64) float64 {
	return physics.Power(physics.Params{
		Mass:    s.TotalMassKg,
		Grade:   s.grade(),
		Crr:     s.Crr,
		CdA:     cda,
		Density: s.AirDensity,
		Loss:    1 - s.DrivetrainEfficiency,
	}, velocity)
}

// Summarize aggregates power differences across rows.
func Summarize(rows []Row) Summary {
	sum := Summary{ScenarioCount: len(rows)}
	if len(rows) == 0 {
		return sum
	}
	diffs := lo.Map(rows, func(r Row, _ int) float64 { return r.PowerDiffW })
	dyn := lo.Map(rows, func(r Row, _ int) float64 { return r.DynPowerW })
	leg := lo.Map(rows, func(r Row, _ int) float64 { return r.LegPowerW })

	sum.MeanDynPowerW = stat.Mean(dyn, nil)
	sum.MeanLegPowerW = stat.Mean(leg, nil)
	sum.MeanDiffW = stat.Mean(diffs, nil)
	if len(diffs) > 1 {
		sum.StdDevDiffW = stat.StdDev(diffs, nil)
	}
	sum.MinDiffW = floats.Min(diffs)
	sum.MaxDiffW = floats.Max(diffs)
	sum.DynGtLegCount = lo.CountBy(diffs, func(d float64) bool { return d > 0 })
	sum.DynLtLegCount = lo.CountBy(diffs, func(d float64) bool { return d < 0 })
	return sum
}
