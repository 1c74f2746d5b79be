// Package service wires the prediction core, the batch job pipeline and the
// lookup tables into the dependency set served over HTTP.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	gpxroute "github.com/okian/veloperf/internal/adapters/gpx"
	jobqueue "github.com/okian/veloperf/internal/adapters/mq/queue"
	workerpool "github.com/okian/veloperf/internal/adapters/mq/worker"
	"github.com/okian/veloperf/internal/adapters/repository"
	"github.com/okian/veloperf/internal/domain/dedupe"
	"github.com/okian/veloperf/internal/domain/drafting"
	"github.com/okian/veloperf/internal/domain/group"
	"github.com/okian/veloperf/internal/domain/model"
	"github.com/okian/veloperf/internal/domain/physics"
	"github.com/okian/veloperf/internal/domain/presets"
	"github.com/okian/veloperf/internal/domain/scenario"
	"github.com/okian/veloperf/pkg/logger"
	"github.com/okian/veloperf/pkg/metrics"
)

const stopTimeout = 10 * time.Second

// Service evaluates scenarios synchronously and runs submitted batches on a
// worker pool.
type Service struct {
	mu sync.RWMutex

	// Core components
	solver    *physics.Solver
	model     drafting.Model
	evaluator *scenario.Evaluator
	presets   *presets.Table
	defaults  presets.Defaults

	// Batch pipeline, built on Start
	store      repository.Store
	deduper    dedupe.Deduper
	jobQueue   jobqueue.Queue
	workerPool *workerpool.Pool

	// Configuration
	workerCount  int
	queueSize    int
	dedupeSize   int
	shardCount   int
	maxBatchSize int
	solverCfg    physics.SolverConfig

	started bool
	cancel  context.CancelFunc

	logger logger.Logger
}

// New constructs a Service. Synchronous evaluation works right away; batch
// submission needs Start.
func New(opts ...Option) *Service {
	s := &Service{
		model:        drafting.Dynamic{},
		presets:      presets.Default(),
		defaults:     presets.StandardDefaults(),
		workerCount:  runtime.NumCPU(),
		queueSize:    10_000,
		dedupeSize:   100_000,
		shardCount:   8,
		maxBatchSize: 500,
		solverCfg:    physics.DefaultSolverConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.solver = physics.NewSolver(physics.WithConfig(s.solverCfg))
	s.evaluator = scenario.NewEvaluator(scenario.WithSolver(s.solver), scenario.WithModel(s.model))
	return s
}

// Start builds the batch pipeline and starts the workers. Workers stop
// when ctx is done or Stop is called.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting prediction service...")

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.store = repository.NewShardedStore(runCtx,
		repository.WithShardCount(s.shardCount),
		repository.WithMaxRecords(s.dedupeSize),
	)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.jobQueue = jobqueue.NewInMemoryQueue(jobqueue.WithCapacity(s.queueSize))
	s.workerPool = workerpool.NewPool(s.workerCount, s.jobQueue, s, s.store)
	s.workerPool.Start(runCtx)

	s.started = true
	s.logger.Info(ctx, "prediction service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.String("draftingModel", s.model.Name()),
	)
	return nil
}

// Stop drains queued jobs and shuts the workers down.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping prediction service...")
	if err := s.workerPool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown incomplete", logger.Error(err))
	}
	s.cancel()

	s.started = false
	s.logger.Info(ctx, "prediction service stopped")
}

// Evaluate solves one scenario.
func (s *Service) Evaluate(ctx context.Context, sc scenario.Scenario) (scenario.Result, error) {
	start := time.Now()
	res, err := s.evaluator.Evaluate(sc)
	metrics.RecordEvaluation(string(sc.Mode), outcome(err), msSince(start))
	if err != nil {
		metrics.RecordErrorByComponent("evaluator", outcome(err))
		s.logger.Debug(ctx, "evaluation failed", logger.String("id", sc.ID), logger.Error(err))
		return scenario.Result{}, err
	}
	if sc.Mode == scenario.ModePowerToTime {
		metrics.RecordSolverIterations(res.Iterations)
	}
	return res, nil
}

// EvaluateGroup computes every rider's power at a fixed group speed.
func (s *Service) EvaluateGroup(_ context.Context, base physics.Params, roster group.Roster, velocity float64) (group.Result, error) {
	metrics.RecordGroupEvaluation(s.model.Name())
	res, err := s.evaluator.Groups().At(base, roster, velocity)
	if err != nil {
		metrics.RecordErrorByComponent("group", outcome(err))
	}
	return res, err
}

// SolveGroup finds the group speed at which mean rider power hits target.
func (s *Service) SolveGroup(_ context.Context, base physics.Params, roster group.Roster, target float64) (group.Result, physics.Solution, error) {
	metrics.RecordGroupEvaluation(s.model.Name())
	res, sol, err := s.evaluator.Groups().SolveForPower(base, roster, target)
	if err != nil {
		metrics.RecordErrorByComponent("group", outcome(err))
		return res, sol, err
	}
	metrics.RecordSolverIterations(sol.Iterations)
	return res, sol, nil
}

// SolveGroupForTime evaluates the group at the speed that covers distance
// in seconds.
func (s *Service) SolveGroupForTime(_ context.Context, base physics.Params, roster group.Roster, distance, seconds float64) (group.Result, error) {
	metrics.RecordGroupEvaluation(s.model.Name())
	res, err := s.evaluator.Groups().SolveForTime(base, roster, distance, seconds)
	if err != nil {
		metrics.RecordErrorByComponent("group", outcome(err))
	}
	return res, err
}

// DraftMultiplier evaluates the named drafting model, or the configured one
// when name is empty.
func (s *Service) DraftMultiplier(_ context.Context, name string, c drafting.Config) (float64, string, error) {
	m := s.model
	if name != "" {
		var err error
		if m, err = drafting.ByName(name); err != nil {
			return 0, "", err
		}
	}
	if err := c.Validate(); err != nil {
		return 0, m.Name(), err
	}
	return m.Multiplier(c), m.Name(), nil
}

// Submit queues a batch of scenarios. Scenarios without an ID get one.
// Invalid and duplicate scenarios are reported per item and do not fail
// the batch.
func (s *Service) Submit(ctx context.Context, batch []scenario.Scenario) ([]model.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch {
	case !s.started:
		return nil, ErrNotStarted
	case len(batch) == 0:
		return nil, ErrEmptyBatch
	case len(batch) > s.maxBatchSize:
		return nil, fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, len(batch), s.maxBatchSize)
	}

	out := make([]model.Submission, 0, len(batch))
	for _, sc := range batch {
		if sc.ID == "" {
			sc.ID = uuid.NewString()
		}
		sub := model.Submission{ID: sc.ID, Status: model.SubmissionAccepted}

		if err := sc.Validate(); err != nil {
			sub.Status, sub.Error = model.SubmissionRejected, err.Error()
			out = append(out, sub)
			continue
		}
		if s.SeenAndRecord(ctx, sc.ID) {
			sub.Status = model.SubmissionDuplicate
			out = append(out, sub)
			continue
		}

		job := model.Job{ID: sc.ID, Scenario: sc, EnqueuedAt: time.Now()}
		if !s.jobQueue.Enqueue(ctx, job) {
			s.deduper.Unrecord(ctx, sc.ID)
			sub.Status, sub.Error = model.SubmissionRejected, ErrBackpressure.Error()
			out = append(out, sub)
			continue
		}
		// A worker may already have stored the finished record; the store
		// keeps it over this pending one.
		if err := s.store.Put(ctx, model.Pending(job)); err != nil {
			s.logger.Error(ctx, "store pending job", logger.String("job_id", sc.ID), logger.Error(err))
		}
		metrics.RecordJobSubmitted()
		out = append(out, sub)
	}
	return out, nil
}

// SeenAndRecord reports whether a job ID was submitted before and records
// it if not.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	seen := s.deduper.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordJobDuplicate()
	}
	return seen
}

// Job returns the stored record of a submitted job.
func (s *Service) Job(ctx context.Context, id string) (model.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return model.Record{}, ErrNotStarted
	}
	return s.store.Get(ctx, id)
}

// Jobs lists stored job records.
func (s *Service) Jobs(ctx context.Context, status model.Status, limit int) ([]model.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store.List(ctx, status, limit)
}

// Presets returns the lookup tables.
func (s *Service) Presets() *presets.Table { return s.presets }

// Defaults returns the coefficients used when a request omits them.
func (s *Service) Defaults() presets.Defaults { return s.defaults }

// RouteFromGPX derives a route segment from a GPX document.
func (s *Service) RouteFromGPX(ctx context.Context, data []byte) (gpxroute.Route, error) {
	r, err := gpxroute.Parse(data)
	if err != nil {
		metrics.RecordErrorByComponent("gpx", "parse")
		s.logger.Debug(ctx, "gpx rejected", logger.Error(err))
		return gpxroute.Route{}, err
	}
	s.logger.Debug(ctx, "gpx route parsed",
		logger.String("name", r.Name),
		logger.Int("points", r.Points),
		logger.Float64("distance_m", r.Distance),
	)
	return r, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":       s.started,
		"workerCount":   s.workerCount,
		"queueSize":     s.queueSize,
		"dedupeSize":    s.dedupeSize,
		"maxBatchSize":  s.maxBatchSize,
		"draftingModel": s.model.Name(),
	}
	if s.started {
		queueLen := s.jobQueue.Len(ctx)
		stats["queueLength"] = queueLen
		stats["busyWorkers"] = s.workerPool.Busy()
		stats["jobsStored"] = s.store.Count(ctx)
		stats["jobIDsTracked"] = s.deduper.Size()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateWorkerCount(s.workerCount)
	}
	return stats
}

// outcome labels an evaluation error for metrics.
func outcome(err error) string {
	var se *physics.SolverError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &se):
		return "divergence"
	case errors.Is(err, physics.ErrDegenerateSolution):
		return "degenerate"
	case errors.Is(err, physics.ErrInvalidInput), errors.Is(err, drafting.ErrInvalidConfig), errors.Is(err, group.ErrInvalidRoster):
		return "invalid_input"
	default:
		return "error"
	}
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
