// Package config defines service configuration structures and loading hooks.
package config

import (
	"fmt"
	"runtime"

	"github.com/okian/veloperf/internal/domain/drafting"
	"github.com/okian/veloperf/internal/domain/physics"
	"github.com/okian/veloperf/internal/domain/presets"
	"github.com/okian/veloperf/pkg/metrics"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// JobQueueSize bounds the in-memory batch job queue.
	JobQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of batch workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the job ID deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// ShardCount configures the number of shards in the result store.
	ShardCount int `koanf:"shard_count"`

	// MaxBatchSize caps the number of scenarios accepted by one POST /v1/jobs.
	MaxBatchSize int `koanf:"max_batch_size"`

	// Defaults applied when a request leaves a coefficient out.
	DefaultCdA  float64 `koanf:"default_cda"`
	DefaultCrr  float64 `koanf:"default_crr"`
	DefaultLoss float64 `koanf:"default_loss"`

	// DraftingModel is "dynamic" or "legacy".
	DraftingModel string `koanf:"drafting_model"`

	// Solver tunes bracket expansion and bisection.
	Solver physics.SolverConfig `koanf:"solver"`

	// CrrTable maps bike type to terrain to rolling resistance.
	CrrTable map[string]map[string]float64 `koanf:"crr_table"`

	// PositionBands describe riding positions by CdA.
	PositionBands []presets.Band `koanf:"position_bands"`

	// Metrics names the exported Prometheus series.
	Metrics MetricsConfig `koanf:"metrics"`
}

// MetricsConfig sets metric name prefixes and latency buckets (ms).
type MetricsConfig struct {
	Namespace string    `koanf:"namespace"`
	Subsystem string    `koanf:"subsystem"`
	Buckets   []float64 `koanf:"buckets"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:      "info",
		LogFormat:     "text",
		Addr:          ":9080",
		JobQueueSize:  10_000,
		WorkerCount:   runtime.NumCPU(),
		DedupeSize:    100_000,
		ShardCount:    8,
		MaxBatchSize:  500,
		DefaultCdA:    presets.DefaultCdA,
		DefaultCrr:    presets.DefaultCrr,
		DefaultLoss:   presets.DefaultLoss,
		DraftingModel: drafting.NameDynamic,
		Solver:        physics.DefaultSolverConfig(),
		CrrTable:      presets.DefaultCrrTable(),
		PositionBands: presets.DefaultBands(),
		Metrics: MetricsConfig{
			Namespace: "veloperf",
			Subsystem: "predictor",
		},
	}
}

// Validate reports the first setting that cannot run.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.JobQueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.DedupeSize < 0:
		return fmt.Errorf("%w: dedupe_size must not be negative", ErrInvalidConfig)
	case c.ShardCount <= 0:
		return fmt.Errorf("%w: shard_count must be positive", ErrInvalidConfig)
	case c.MaxBatchSize <= 0:
		return fmt.Errorf("%w: max_batch_size must be positive", ErrInvalidConfig)
	case !(c.DefaultCdA > 0):
		return fmt.Errorf("%w: default_cda must be positive", ErrInvalidConfig)
	case !(c.DefaultCrr >= 0):
		return fmt.Errorf("%w: default_crr must not be negative", ErrInvalidConfig)
	case !(c.DefaultLoss >= 0 && c.DefaultLoss < 1):
		return fmt.Errorf("%w: default_loss must be in [0, 1)", ErrInvalidConfig)
	case !(c.Solver.AbsTolerance > 0) || !(c.Solver.RelTolerance >= 0):
		return fmt.Errorf("%w: solver tolerances must be positive", ErrInvalidConfig)
	case !(c.Solver.Growth > 1):
		return fmt.Errorf("%w: solver growth must exceed 1", ErrInvalidConfig)
	case !(c.Solver.InitialUpper > 0) || !(c.Solver.Ceiling > 0):
		return fmt.Errorf("%w: solver bracket must be positive", ErrInvalidConfig)
	case c.Solver.MaxIterations <= 0:
		return fmt.Errorf("%w: solver max_iterations must be positive", ErrInvalidConfig)
	case c.Metrics.Namespace == "":
		return fmt.Errorf("%w: metrics namespace must not be empty", ErrInvalidConfig)
	case len(c.Metrics.Buckets) > 0 && !metrics.ValidBuckets(c.Metrics.Buckets):
		return fmt.Errorf("%w: metrics buckets must be strictly increasing", ErrInvalidConfig)
	}
	if _, err := drafting.ByName(c.DraftingModel); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := presets.New(c.CrrTable, c.PositionBands); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
