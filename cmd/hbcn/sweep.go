package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/dd0wney/cluso-hbcn/pkg/config"
	"github.com/dd0wney/cluso-hbcn/pkg/constrain"
	"github.com/dd0wney/cluso-hbcn/pkg/logging"
	"github.com/dd0wney/cluso-hbcn/pkg/parallel"
	"github.com/dd0wney/cluso-hbcn/pkg/storage"
)

func runSweep(ctx context.Context, e *env, args []string) error {
	var logLevel string
	fs := newFlagSet(e, "sweep", &logLevel)
	configPath := fs.String("config", "", "Job file with a sweep section (required)")
	workers := fs.Int("workers", 0, "Worker count (0 for the job file or the CPU count)")
	out := fs.String("out", "", "Output directory (default: the job's sweep output)")
	metricsAddr := fs.String("metrics-addr", "", "Serve metrics on this address while sweeping")
	if err := parse(e, fs, &logLevel, args); err != nil {
		return err
	}
	if *configPath == "" {
		return fmt.Errorf("%w: -config is required", errUsage)
	}

	job, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	spec, err := job.SweepSpec()
	if err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	set := make(map[string]bool)
	fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })
	if set["workers"] {
		if *workers < 0 || *workers > parallel.MaxWorkers {
			return fmt.Errorf("%w: -workers must be in [0, %d]", errUsage, parallel.MaxWorkers)
		}
		job.Sweep.Workers = *workers
	}
	dir := *out
	if dir == "" {
		dir = job.Sweep.Output
	}
	if dir == "" {
		return fmt.Errorf("%w: no output directory; set -out or sweep.output", errUsage)
	}

	n, err := loadInput(e, job.Input, job.Structural, job.ForwardCompletion)
	if err != nil {
		return err
	}
	ec, err := job.EngineConfig(e.logger, e.metrics)
	if err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	ec.Analysis.Logger = e.logger
	ec.Analysis.Metrics = e.metrics
	engine := constrain.NewEngine(ec)

	if *metricsAddr != "" {
		hc, err := newHealthChecker(job.Backends, job.CBCPath)
		if err != nil {
			return fmt.Errorf("%w: %w", errUsage, err)
		}
		serveCtx, stop := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() {
			done <- serveHTTP(serveCtx, e.logger, *metricsAddr, newServeMux(e.metrics, hc), nil)
		}()
		defer func() {
			stop()
			if err := <-done; err != nil {
				e.logger.Warn("metrics server failed", logging.Error(err))
			}
		}()
	}

	outcomes, sweepErr := parallel.Sweep(ctx, engine, n, spec, &parallel.SweepConfig{
		Pool:    job.PoolConfig(e.logger),
		Logger:  e.logger,
		Metrics: e.metrics,
	})
	if outcomes == nil {
		return sweepErr
	}

	manifest, err := storage.SaveSweep(dir, job.Input, outcomes)
	if err != nil {
		return errors.Join(sweepErr, err)
	}
	printSummary(e, parallel.Summarize(outcomes), filepath.Join(dir, storage.ManifestName), manifest.ID.String())
	return sweepErr
}

func printSummary(e *env, s parallel.Summary, manifestPath, id string) {
	fmt.Fprintf(e.stdout, "Sweep %s: %d tasks, %d solved, %d infeasible, %d failed\n",
		id, s.Total, s.Solved, s.Infeasible, s.Failed)

	algorithms := make([]string, 0, len(s.MinCycleTime))
	for a := range s.MinCycleTime {
		algorithms = append(algorithms, string(a))
	}
	sort.Strings(algorithms)
	for _, a := range algorithms {
		fmt.Fprintf(e.stdout, "Minimum cycle time (%s): %g\n", a, s.MinCycleTime[constrain.Algorithm(a)])
	}
	fmt.Fprintf(e.stdout, "Manifest: %s\n", manifestPath)
}
