package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/okian/veloperf/internal/config"
	"github.com/okian/veloperf/internal/domain/presets"
	"github.com/smartystreets/goconvey/convey"
)

var configEnvVars = []string{
	"VELOPERF_CONFIG",
	"VELOPERF_ADDR",
	"VELOPERF_QUEUE_SIZE",
	"VELOPERF_WORKER_COUNT",
	"VELOPERF_DRAFTING_MODEL",
	"VELOPERF_DEFAULT_CDA",
	"VELOPERF_SOLVER__CEILING",
	"VELOPERF_SOLVER__MAX_ITERATIONS",
	"VELOPERF_METRICS__NAMESPACE",
}

func clearConfigEnvVars() {
	for _, k := range configEnvVars {
		_ = os.Unsetenv(k)
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "veloperf.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config", t, func() {
		cfg := config.New()

		convey.Convey("Then it has the documented defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			convey.So(cfg.JobQueueSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.DefaultCdA, convey.ShouldEqual, 0.40)
			convey.So(cfg.DefaultCrr, convey.ShouldEqual, 0.0050)
			convey.So(cfg.DefaultLoss, convey.ShouldEqual, 0.035)
			convey.So(cfg.DraftingModel, convey.ShouldEqual, "dynamic")
			convey.So(cfg.Solver.Ceiling, convey.ShouldEqual, 150.0)
			convey.So(cfg.Metrics.Namespace, convey.ShouldEqual, "veloperf")
			convey.So(cfg.Metrics.Subsystem, convey.ShouldEqual, "predictor")
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then invalid settings are rejected", func() {
			cases := []struct {
				name   string
				mutate func(*config.Config)
			}{
				{"empty addr", func(c *config.Config) { c.Addr = "" }},
				{"zero queue", func(c *config.Config) { c.JobQueueSize = 0 }},
				{"zero workers", func(c *config.Config) { c.WorkerCount = 0 }},
				{"zero batch", func(c *config.Config) { c.MaxBatchSize = 0 }},
				{"zero cda", func(c *config.Config) { c.DefaultCdA = 0 }},
				{"full loss", func(c *config.Config) { c.DefaultLoss = 1 }},
				{"flat growth", func(c *config.Config) { c.Solver.Growth = 1 }},
				{"no iterations", func(c *config.Config) { c.Solver.MaxIterations = 0 }},
				{"unknown model", func(c *config.Config) { c.DraftingModel = "wheelsucker" }},
				{"bad crr", func(c *config.Config) { c.CrrTable = map[string]map[string]float64{"road": {"ice": -1}} }},
				{"no metrics namespace", func(c *config.Config) { c.Metrics.Namespace = "" }},
				{"unsorted buckets", func(c *config.Config) { c.Metrics.Buckets = []float64{5, 1} }},
			}
			for _, tc := range cases {
				c := config.New()
				tc.mutate(c)
				err := c.Validate()
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			}
		})
	})
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then defaults are returned", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.CrrTable, convey.ShouldResemble, presets.DefaultCrrTable())
			})
		})

		convey.Convey("When loading with environment variables", func() {
			_ = os.Setenv("VELOPERF_ADDR", ":8080")
			_ = os.Setenv("VELOPERF_QUEUE_SIZE", "64")
			_ = os.Setenv("VELOPERF_DRAFTING_MODEL", "legacy")
			_ = os.Setenv("VELOPERF_SOLVER__CEILING", "60")
			_ = os.Setenv("VELOPERF_SOLVER__MAX_ITERATIONS", "80")
			_ = os.Setenv("VELOPERF_METRICS__NAMESPACE", "bikes")

			cfg, err := config.Load(ctx)

			convey.Convey("Then env overrides defaults, including nested keys", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.JobQueueSize, convey.ShouldEqual, 64)
				convey.So(cfg.DraftingModel, convey.ShouldEqual, "legacy")
				convey.So(cfg.Solver.Ceiling, convey.ShouldEqual, 60.0)
				convey.So(cfg.Solver.MaxIterations, convey.ShouldEqual, 80)
				convey.So(cfg.Solver.Growth, convey.ShouldEqual, 2.0)
				convey.So(cfg.Metrics.Namespace, convey.ShouldEqual, "bikes")
			})
		})

		convey.Convey("When loading a YAML file with env on top", func() {
			path := writeConfigFile(t, `
addr: ":9090"
worker_count: 3
default_cda: 0.32
solver:
  abs_tolerance: 0.05
crr_table:
  gravel_bike:
    gravel: 0.0055
metrics:
  buckets: [1, 5, 25]
`)
			_ = os.Setenv("VELOPERF_CONFIG", path)
			_ = os.Setenv("VELOPERF_WORKER_COUNT", "5")

			cfg, err := config.Load(ctx)

			convey.Convey("Then file values merge with defaults and env wins", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 5)
				convey.So(cfg.DefaultCdA, convey.ShouldEqual, 0.32)
				convey.So(cfg.Solver.AbsTolerance, convey.ShouldEqual, 0.05)
				convey.So(cfg.Solver.RelTolerance, convey.ShouldEqual, 0.001)
				convey.So(cfg.CrrTable["gravel_bike"]["gravel"], convey.ShouldEqual, 0.0055)
				convey.So(cfg.CrrTable["road"]["asphalt"], convey.ShouldEqual, 0.0050)
				convey.So(cfg.Metrics.Buckets, convey.ShouldResemble, []float64{1, 5, 25})
				convey.So(cfg.Metrics.Subsystem, convey.ShouldEqual, "predictor")
			})
		})

		convey.Convey("When the file is malformed", func() {
			_ = os.Setenv("VELOPERF_CONFIG", writeConfigFile(t, `invalid: yaml: content: [`))

			cfg, err := config.Load(ctx)

			convey.Convey("Then a load error is returned", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the file does not exist", func() {
			_ = os.Setenv("VELOPERF_CONFIG", "/non/existent/file.yaml")

			_, err := config.Load(ctx)

			convey.Convey("Then a load error is returned", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When env produces an invalid value", func() {
			_ = os.Setenv("VELOPERF_DEFAULT_CDA", "-1")

			_, err := config.Load(ctx)

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "default_cda")
			})
		})
	})
}
