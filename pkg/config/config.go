// Package config loads job files describing one constraint generation or
// a sweep of them.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-hbcn/pkg/analyse"
	"github.com/dd0wney/cluso-hbcn/pkg/capture"
	"github.com/dd0wney/cluso-hbcn/pkg/constrain"
	"github.com/dd0wney/cluso-hbcn/pkg/logging"
	"github.com/dd0wney/cluso-hbcn/pkg/lp"
	"github.com/dd0wney/cluso-hbcn/pkg/metrics"
	"github.com/dd0wney/cluso-hbcn/pkg/parallel"
	"github.com/dd0wney/cluso-hbcn/pkg/validation"
)

// Outputs names the files written after a successful solve. Empty entries
// are skipped.
type Outputs struct {
	CSV    string `yaml:"csv"`
	SDC    string `yaml:"sdc"`
	Report string `yaml:"report"`
	VCD    string `yaml:"vcd"`
	HBCN   string `yaml:"hbcn"`
}

// Sweep lists the values to try for each swept parameter.
type Sweep struct {
	CycleTimes      []float64 `yaml:"cycle_times" validate:"dive,finite,gt=0"`
	ForwardMargins  []float64 `yaml:"forward_margins" validate:"dive,finite"`
	BackwardMargins []float64 `yaml:"backward_margins" validate:"dive,finite"`
	Algorithms      []string  `yaml:"algorithms"`
	Workers         int       `yaml:"workers"`
	Output          string    `yaml:"output"`
}

// Job is a job file.
type Job struct {
	Input             string        `yaml:"input"`
	Structural        bool          `yaml:"structural"`
	ForwardCompletion bool          `yaml:"forward_completion"`
	CycleTime         float64       `yaml:"cycle_time" validate:"finite,gte=0"`
	MinDelay          float64       `yaml:"min_delay" validate:"finite"`
	ForwardMargin     *float64      `yaml:"forward_margin"`
	BackwardMargin    *float64      `yaml:"backward_margin"`
	Algorithm         string        `yaml:"algorithm"`
	Backends          []string      `yaml:"backends" validate:"min=1,dive,required"`
	BackendTimeout    time.Duration `yaml:"backend_timeout"`
	CBCPath           string        `yaml:"cbc_path"`
	MaxCycles         int           `yaml:"max_cycles"`
	Outputs           Outputs       `yaml:"outputs"`
	Sweep             *Sweep        `yaml:"sweep"`
}

// DefaultJob returns a job with every optional field at its default.
func DefaultJob() *Job {
	return &Job{
		ForwardCompletion: true,
		Algorithm:         string(constrain.Proportional),
		Backends:          slices.Clone(lp.DefaultBackends),
		CBCPath:           lp.DefaultCBCPath,
	}
}

// Load reads and validates a job file. Relative paths in the file are
// resolved against the file's directory.
func Load(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	job, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	job.resolve(filepath.Dir(path))
	return job, nil
}

// Parse decodes and validates a job. Unknown keys are rejected.
func Parse(data []byte) (*Job, error) {
	job := DefaultJob()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(job); err != nil {
		return nil, err
	}
	if err := validation.ValidateConfig(job); err != nil {
		return nil, err
	}
	return job, nil
}

func (j *Job) resolve(dir string) {
	for _, p := range []*string{&j.Input, &j.Outputs.CSV, &j.Outputs.SDC, &j.Outputs.Report, &j.Outputs.VCD, &j.Outputs.HBCN} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
	if j.Sweep != nil && j.Sweep.Output != "" && !filepath.IsAbs(j.Sweep.Output) {
		j.Sweep.Output = filepath.Join(dir, j.Sweep.Output)
	}
}

// Validate checks the struct tags and then the field rules, collecting every
// failure of the latter.
func (j *Job) Validate() error {
	if err := validation.Struct(j); err != nil {
		return err
	}
	algorithms := []string{string(constrain.Proportional), string(constrain.Pseudoclock)}
	swept := j.Sweep != nil && len(j.Sweep.CycleTimes) > 0

	return validation.NewConfigValidator("job").
		Required("input", j.Input).
		When(!swept, func(cv *validation.ConfigValidator) {
			cv.PositiveFloat("cycle_time", j.CycleTime)
		}).
		NonNegativeFloat("min_delay", j.MinDelay).
		When(j.ForwardMargin != nil, func(cv *validation.ConfigValidator) {
			cv.Percent("forward_margin", *j.ForwardMargin)
		}).
		When(j.BackwardMargin != nil, func(cv *validation.ConfigValidator) {
			cv.Percent("backward_margin", *j.BackwardMargin)
		}).
		When(j.Algorithm != "", func(cv *validation.ConfigValidator) {
			cv.OneOf("algorithm", j.Algorithm, algorithms)
		}).
		NonNegativeDuration("backend_timeout", j.BackendTimeout).
		Custom("backends", func() error {
			known := lp.BackendNames()
			for _, name := range j.Backends {
				if !slices.Contains(known, name) {
					return fmt.Errorf("%w: %q (known: %v)", lp.ErrUnknownBackend, name, known)
				}
			}
			return nil
		}).
		When(j.Sweep != nil, func(cv *validation.ConfigValidator) {
			j.Sweep.validate(cv, algorithms)
		}).
		Validate()
}

func (s *Sweep) validate(cv *validation.ConfigValidator, algorithms []string) {
	for i, m := range s.ForwardMargins {
		cv.Percent(fmt.Sprintf("sweep.forward_margins[%d]", i), m)
	}
	for i, m := range s.BackwardMargins {
		cv.Percent(fmt.Sprintf("sweep.backward_margins[%d]", i), m)
	}
	for i, a := range s.Algorithms {
		cv.OneOf(fmt.Sprintf("sweep.algorithms[%d]", i), a, algorithms)
	}
	cv.MinInt("sweep.workers", s.Workers, 0).
		Custom("sweep.workers", func() error {
			if s.Workers > parallel.MaxWorkers {
				return fmt.Errorf("must be at most %d, got %d", parallel.MaxWorkers, s.Workers)
			}
			return nil
		})
}

// Params returns the constraint parameters of the job.
func (j *Job) Params() constrain.Params {
	return constrain.Params{
		CycleTime:      j.CycleTime,
		MinDelay:       j.MinDelay,
		ForwardMargin:  j.ForwardMargin,
		BackwardMargin: j.BackwardMargin,
		Algorithm:      constrain.Algorithm(j.Algorithm),
	}
}

// SweepSpec returns the sweep of the job. It fails without a sweep section.
func (j *Job) SweepSpec() (parallel.SweepSpec, error) {
	if j.Sweep == nil {
		return parallel.SweepSpec{}, errors.New("config: job has no sweep section")
	}
	spec := parallel.SweepSpec{
		Base:            j.Params(),
		CycleTimes:      j.Sweep.CycleTimes,
		ForwardMargins:  j.Sweep.ForwardMargins,
		BackwardMargins: j.Sweep.BackwardMargins,
	}
	for _, a := range j.Sweep.Algorithms {
		spec.Algorithms = append(spec.Algorithms, constrain.Algorithm(a))
	}
	return spec, nil
}

// PoolConfig returns the worker pool configuration of the sweep. The worker
// count defaults to the pool's and is kept within [1, parallel.MaxWorkers].
func (j *Job) PoolConfig(logger logging.Logger) *parallel.PoolConfig {
	pc := parallel.DefaultPoolConfig()
	if j.Sweep != nil {
		pc.Workers = validation.DefaultOrInt(j.Sweep.Workers, pc.Workers)
	}
	pc.Workers = validation.ClampInt(pc.Workers, 1, parallel.MaxWorkers)
	pc.Logger = logger
	return pc
}

// EngineConfig builds the solver chain the job asks for.
func (j *Job) EngineConfig(logger logging.Logger, reg *metrics.Registry) (*constrain.EngineConfig, error) {
	entries, err := lp.Entries(j.Backends, lp.BackendConfig{CBCPath: validation.DefaultOr(j.CBCPath, lp.DefaultCBCPath)})
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	chain := lp.NewChain(entries, &lp.ChainConfig{
		Timeout: j.BackendTimeout,
		Guard:   capture.Process(),
		Logger:  logger,
		Metrics: reg,
	})
	return &constrain.EngineConfig{
		Chain:    chain,
		Analysis: analyse.Options{MaxCycles: j.MaxCycles},
		Logger:   logger,
		Metrics:  reg,
	}, nil
}
