package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dd0wney/cluso-hbcn/pkg/analyse"
	"github.com/dd0wney/cluso-hbcn/pkg/config"
	"github.com/dd0wney/cluso-hbcn/pkg/constrain"
	"github.com/dd0wney/cluso-hbcn/pkg/hbcn"
	"github.com/dd0wney/cluso-hbcn/pkg/logging"
	"github.com/dd0wney/cluso-hbcn/pkg/lp"
	"github.com/dd0wney/cluso-hbcn/pkg/output"
)

func inputArg(fs *flag.FlagSet) (string, error) {
	if fs.NArg() != 1 {
		return "", fmt.Errorf("%w: expected one input file, got %d arguments", errUsage, fs.NArg())
	}
	return fs.Arg(0), nil
}

func runExpand(ctx context.Context, e *env, args []string) error {
	var logLevel string
	fs := newFlagSet(e, "expand", &logLevel)
	out := fs.String("o", "-", "Output network file (.sz to compress, - for stdout)")
	forwardCompletion := fs.Bool("forward-completion", false, "Widen forward places to the completion delay of their destination")
	if err := parse(e, fs, &logLevel, args); err != nil {
		return err
	}
	input, err := inputArg(fs)
	if err != nil {
		return err
	}

	n, err := loadInput(e, input, true, *forwardCompletion)
	if err != nil {
		return err
	}
	return writeTo(e, *out, func(w io.Writer) error {
		_, err := n.WriteTo(w)
		return err
	})
}

func runAnalyse(ctx context.Context, e *env, args []string) error {
	return analyseCommand(e, "analyse", false, args)
}

func runDepth(ctx context.Context, e *env, args []string) error {
	return analyseCommand(e, "depth", true, args)
}

func analyseCommand(e *env, name string, depth bool, args []string) error {
	var logLevel string
	fs := newFlagSet(e, name, &logLevel)
	structural := fs.Bool("structural", false, "Read the input as a structural graph")
	forwardCompletion := fs.Bool("forward-completion", false, "Expand with forward completion (with -structural)")
	report := fs.String("report", "-", "Report file (- for stdout)")
	vcd := fs.String("vcd", "", "VCD file with the arrival times at the critical cycle time")
	top := fs.Int("top", analyse.DefaultTopCycles, "Number of cycles to report (negative for all)")
	maxCycles := fs.Int("max-cycles", analyse.DefaultMaxCycles, "Enumeration limit (negative for none)")
	if !depth {
		fs.BoolVar(&depth, "depth", false, "Weigh every place as 1")
	}
	if err := parse(e, fs, &logLevel, args); err != nil {
		return err
	}
	input, err := inputArg(fs)
	if err != nil {
		return err
	}

	n, err := loadInput(e, input, *structural, *forwardCompletion)
	if err != nil {
		return err
	}
	rep, err := analyse.Analyse(n, analyse.Options{
		Depth:     depth,
		MaxCycles: *maxCycles,
		TopCycles: *top,
		Logger:    e.logger,
		Metrics:   e.metrics,
	})
	if err != nil {
		return err
	}

	if err := writeTo(e, *report, func(w io.Writer) error {
		return output.WriteAnalysisReport(w, n, rep)
	}); err != nil {
		return err
	}
	if *vcd != "" {
		return writeTo(e, *vcd, func(w io.Writer) error {
			return output.WriteVCD(w, n, rep.Schedule)
		})
	}
	return nil
}

// constrainFlags are the flags of constrain that override a job file.
type constrainFlags struct {
	config              string
	structural          bool
	noForwardCompletion bool
	pseudoclock         bool
	cycleTime           float64
	minDelay            float64
	forwardMargin       optionalFloat
	backwardMargin      optionalFloat
	backends            string
	backendTimeout      time.Duration
	cbcPath             string
	outputs             config.Outputs
}

func (f *constrainFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.config, "config", "", "Job file; flags given on the command line override it")
	fs.BoolVar(&f.structural, "structural", false, "Read the input as a structural graph")
	fs.BoolVar(&f.noForwardCompletion, "no-forward-completion", false, "Expand without forward completion (with -structural)")
	fs.BoolVar(&f.pseudoclock, "pseudoclock", false, "Use the pseudoclock algorithm")
	fs.Float64Var(&f.cycleTime, "t", 0, "Cycle-time constraint")
	fs.Float64Var(&f.minDelay, "m", 0, "Minimal propagation-path delay")
	fs.Var(&f.forwardMargin, "fm", "Forward margin between maximum and minimum delay, in percent")
	fs.Var(&f.backwardMargin, "bm", "Backward margin between maximum and minimum delay, in percent")
	fs.StringVar(&f.backends, "backends", strings.Join(lp.DefaultBackends, ","), "Comma-separated back-ends in priority order")
	fs.DurationVar(&f.backendTimeout, "backend-timeout", 0, "Time limit per back-end attempt (0 for none)")
	fs.StringVar(&f.cbcPath, "cbc", lp.DefaultCBCPath, "CBC executable")
	fs.StringVar(&f.outputs.CSV, "csv", "", "CSV output file")
	fs.StringVar(&f.outputs.SDC, "sdc", "", "SDC output file")
	fs.StringVar(&f.outputs.Report, "rpt", "", "Report output file")
	fs.StringVar(&f.outputs.VCD, "vcd", "", "VCD output file")
	fs.StringVar(&f.outputs.HBCN, "hbcn", "", "Solved network output file (.sz to compress)")
}

// job loads the job file, if any, and applies the flags that were set.
func (f *constrainFlags) job(set map[string]bool, input string) (*config.Job, error) {
	job := config.DefaultJob()
	if f.config != "" {
		loaded, err := config.Load(f.config)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errUsage, err)
		}
		job = loaded
	}

	if input != "" {
		job.Input = input
	}
	if set["structural"] {
		job.Structural = f.structural
	}
	if set["no-forward-completion"] {
		job.ForwardCompletion = !f.noForwardCompletion
	}
	if set["pseudoclock"] {
		job.Algorithm = string(constrain.Proportional)
		if f.pseudoclock {
			job.Algorithm = string(constrain.Pseudoclock)
		}
	}
	if set["t"] {
		job.CycleTime = f.cycleTime
	}
	if set["m"] {
		job.MinDelay = f.minDelay
	}
	if f.forwardMargin.value != nil {
		job.ForwardMargin = f.forwardMargin.value
	}
	if f.backwardMargin.value != nil {
		job.BackwardMargin = f.backwardMargin.value
	}
	if set["backends"] {
		job.Backends = strings.Split(f.backends, ",")
	}
	if set["backend-timeout"] {
		job.BackendTimeout = f.backendTimeout
	}
	if set["cbc"] {
		job.CBCPath = f.cbcPath
	}
	overrideOutput(set, "csv", &job.Outputs.CSV, f.outputs.CSV)
	overrideOutput(set, "sdc", &job.Outputs.SDC, f.outputs.SDC)
	overrideOutput(set, "rpt", &job.Outputs.Report, f.outputs.Report)
	overrideOutput(set, "vcd", &job.Outputs.VCD, f.outputs.VCD)
	overrideOutput(set, "hbcn", &job.Outputs.HBCN, f.outputs.HBCN)

	if err := job.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", errUsage, err)
	}
	return job, nil
}

func overrideOutput(set map[string]bool, name string, dst *string, value string) {
	if set[name] {
		*dst = value
	}
}

func runConstrain(ctx context.Context, e *env, args []string) error {
	var logLevel string
	fs := newFlagSet(e, "constrain", &logLevel)
	var f constrainFlags
	f.register(fs)
	if err := parse(e, fs, &logLevel, args); err != nil {
		return err
	}
	if fs.NArg() > 1 {
		return fmt.Errorf("%w: expected at most one input file, got %d arguments", errUsage, fs.NArg())
	}
	set := make(map[string]bool)
	fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })

	job, err := f.job(set, fs.Arg(0))
	if err != nil {
		return err
	}
	n, err := loadInput(e, job.Input, job.Structural, job.ForwardCompletion)
	if err != nil {
		return err
	}
	res, err := solve(ctx, e, job, n)
	if err != nil {
		return err
	}
	return writeOutputs(e, job, res)
}

// solve runs the engine configured by job on n.
func solve(ctx context.Context, e *env, job *config.Job, n *hbcn.Network) (*constrain.Result, error) {
	ec, err := job.EngineConfig(e.logger, e.metrics)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errUsage, err)
	}
	ec.Analysis.Logger = e.logger
	ec.Analysis.Metrics = e.metrics

	res, err := constrain.NewEngine(ec).Constrain(ctx, n, job.Params())
	if err != nil {
		var inf *constrain.InfeasibleError
		if errors.As(err, &inf) && inf.Critical != nil {
			e.logger.Warn("critical cycle", logging.String("cycle", inf.Critical.String()), logging.Ratio(inf.Ratio))
		}
		return nil, err
	}
	e.logger.Info("constraints generated",
		logging.Algorithm(string(res.Algorithm)),
		logging.Backend(res.Backend),
		logging.CycleTime(res.Params.CycleTime),
		logging.Float64("stretch", res.Stretch))
	return res, nil
}

// writeOutputs writes every requested output. Without any, the solved
// network goes to stdout.
func writeOutputs(e *env, job *config.Job, res *constrain.Result) error {
	o := job.Outputs
	if o == (config.Outputs{}) {
		o.HBCN = "-"
	}

	writers := []struct {
		path  string
		write func(io.Writer) error
	}{
		{o.HBCN, func(w io.Writer) error {
			if res.Network() == nil {
				return nil
			}
			_, err := res.Network().WriteTo(w)
			return err
		}},
		{o.CSV, func(w io.Writer) error { return output.WriteCSV(w, res) }},
		{o.SDC, func(w io.Writer) error { return output.WriteSDC(w, res) }},
		{o.Report, func(w io.Writer) error {
			return output.WriteConstraintReport(w, res, analyse.Options{MaxCycles: job.MaxCycles})
		}},
		{o.VCD, func(w io.Writer) error {
			return output.WriteVCD(w, res.Network(), res.Schedule)
		}},
	}
	for _, wr := range writers {
		if wr.path == "" {
			continue
		}
		if err := writeTo(e, wr.path, wr.write); err != nil {
			return err
		}
	}
	return nil
}
