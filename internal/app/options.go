package service

import (
	"github.com/okian/veloperf/internal/domain/drafting"
	"github.com/okian/veloperf/internal/domain/physics"
	"github.com/okian/veloperf/internal/domain/presets"
	"github.com/okian/veloperf/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of batch workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the job queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many job IDs are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithShardCount sets the number of result store shards.
func WithShardCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.shardCount = count
		}
	}
}

// WithMaxBatchSize caps the number of scenarios per submission.
func WithMaxBatchSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.maxBatchSize = size
		}
	}
}

// WithSolverConfig sets the velocity solver tolerances and bracket.
func WithSolverConfig(cfg physics.SolverConfig) Option {
	return func(s *Service) {
		s.solverCfg = cfg
	}
}

// WithDraftingModel sets the default drafting model.
func WithDraftingModel(m drafting.Model) Option {
	return func(s *Service) {
		if m != nil {
			s.model = m
		}
	}
}

// WithPresets sets the rolling resistance and position tables.
func WithPresets(t *presets.Table) Option {
	return func(s *Service) {
		if t != nil {
			s.presets = t
		}
	}
}

// WithDefaults sets the coefficients used when a request omits them.
func WithDefaults(d presets.Defaults) Option {
	return func(s *Service) {
		s.defaults = d
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
