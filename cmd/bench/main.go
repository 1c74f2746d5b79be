// Command bench compares the dynamic and legacy drafting models over a
// scenarios file, either in process or against a running server.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/okian/veloperf/internal/benchmark"
	"github.com/okian/veloperf/pkg/logger"
)

const (
	envPrefix      = "VELOPERF_BENCH"
	defaultFile    = "internal/benchmark/testdata/scenarios.yaml"
	defaultURL     = "http://localhost:9080"
	defaultTimeout = 10 * time.Second
)

type options struct {
	file     string
	format   string
	workers  int
	logLevel string
	url      string
	timeout  time.Duration
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:          "bench",
		Short:        "Drafting model benchmark",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := bindEnv(cmd); err != nil {
				return err
			}
			switch opts.format {
			case "table", "json":
			default:
				return fmt.Errorf("unknown format %q", opts.format)
			}
			if err := logger.Init(logger.WithWriter(os.Stderr)); err != nil {
				return err
			}
			return logger.SetLevelString(opts.logLevel)
		},
	}
	cmd.SetOut(out)

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.file, "file", "f", defaultFile, "scenarios file (YAML or JSON)")
	pf.StringVarP(&opts.format, "format", "o", "table", "output format: table or json")
	pf.IntVarP(&opts.workers, "workers", "w", runtime.NumCPU(), "scenarios evaluated at once")
	pf.StringVar(&opts.logLevel, "log-level", "warn", "log level")

	cmd.AddCommand(newRunCmd(opts), newRemoteCmd(opts))
	return cmd
}

func newRunCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the benchmark with the in-process models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := benchmark.NewRunner(
				benchmark.WithWorkers(opts.workers),
				benchmark.WithLogger(logger.Named("bench")),
			)
			return execute(cmd, opts, r)
		},
	}
}

func newRemoteCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Run the benchmark with multipliers from a running server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := benchmark.NewClient(opts.url, opts.timeout)
			if err := client.CheckHealth(cmd.Context()); err != nil {
				return err
			}
			r := benchmark.NewRunner(
				benchmark.WithWorkers(opts.workers),
				benchmark.WithSource(client),
				benchmark.WithLogger(logger.Named("bench")),
			)
			return execute(cmd, opts, r)
		},
	}
	cmd.Flags().StringVar(&opts.url, "url", defaultURL, "base URL of the veloperf server")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", defaultTimeout, "per-request timeout")
	return cmd
}

func execute(cmd *cobra.Command, opts *options, r *benchmark.Runner) error {
	f, err := benchmark.Load(opts.file)
	if err != nil {
		return err
	}
	rep, err := r.Run(cmd.Context(), f)
	if err != nil {
		return err
	}
	if opts.format == "json" {
		return benchmark.WriteJSON(cmd.OutOrStdout(), rep)
	}
	return benchmark.WriteTable(cmd.OutOrStdout(), rep)
}

// bindEnv fills flags the user did not set from VELOPERF_BENCH_<FLAG>, with
// dashes turned into underscores.
func bindEnv(cmd *cobra.Command) error {
	var firstErr error
	visit := func(f *pflag.Flag) {
		if f.Changed || firstErr != nil {
			return
		}
		key := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
		if v, ok := os.LookupEnv(key); ok {
			if err := f.Value.Set(v); err != nil {
				firstErr = fmt.Errorf("%s: %w", key, err)
			}
		}
	}
	cmd.Flags().VisitAll(visit)
	return firstErr
}
