// Package constrain derives the delay bounds every place of a network must
// meet for the circuit to reach a target cycle time.
package constrain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dd0wney/cluso-hbcn/pkg/analyse"
	"github.com/dd0wney/cluso-hbcn/pkg/capture"
	"github.com/dd0wney/cluso-hbcn/pkg/hbcn"
	"github.com/dd0wney/cluso-hbcn/pkg/logging"
	"github.com/dd0wney/cluso-hbcn/pkg/lp"
	"github.com/dd0wney/cluso-hbcn/pkg/metrics"
)

// ratioTolerance absorbs rounding when comparing the critical ratio with
// the cycle time.
const ratioTolerance = 1e-9

// EngineConfig configures an Engine.
type EngineConfig struct {
	// Chain solves the linear programs. Nil builds the default chain of
	// built-in back-ends.
	Chain *lp.Chain

	// Analysis configures the critical ratio search. Depth is always off
	// and its logger and metrics are replaced by the engine's.
	Analysis analyse.Options

	Logger  logging.Logger
	Metrics *metrics.Registry
}

// DefaultEngineConfig returns the default configuration.
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{}
}

// Engine generates constraints. It holds no per-call state and may be used
// concurrently.
type Engine struct {
	chain    *lp.Chain
	analysis analyse.Options
	logger   logging.Logger
	metrics  *metrics.Registry
}

// NewEngine creates an engine.
func NewEngine(config *EngineConfig) *Engine {
	if config == nil {
		config = DefaultEngineConfig()
	}
	logger := logging.OrNop(config.Logger).With(logging.Component("constrain"))

	chain := config.Chain
	if chain == nil {
		entries, err := lp.Entries(lp.DefaultBackends, lp.BackendConfig{})
		if err != nil {
			panic(err) // built-in names always resolve
		}
		chain = lp.NewChain(entries, &lp.ChainConfig{
			Guard:   capture.Process(),
			Logger:  config.Logger,
			Metrics: config.Metrics,
		})
	}

	analysis := config.Analysis
	analysis.Depth = false
	analysis.Logger = config.Logger
	analysis.Metrics = config.Metrics

	return &Engine{
		chain:    chain,
		analysis: analysis,
		logger:   logger,
		metrics:  config.Metrics,
	}
}

// Constrain computes a DelayPair for every place of n. It either returns a
// complete Result or an error; there are no partial results.
func (e *Engine) Constrain(ctx context.Context, n *hbcn.Network, params Params) (*Result, error) {
	start := time.Now()
	algorithm := params.algorithm()

	if err := params.Validate(); err != nil {
		e.record(algorithm, metrics.StatusInvalid, start)
		return nil, err
	}

	res, err := e.constrain(ctx, n, params, algorithm)
	switch {
	case err == nil:
		e.record(algorithm, metrics.StatusOK, start)
		e.logger.Info("constraints generated",
			logging.Algorithm(string(algorithm)),
			logging.CycleTime(params.CycleTime),
			logging.Backend(res.Backend),
			logging.Latency(time.Since(start)),
		)
	case errors.Is(err, analyse.ErrInfeasible):
		e.record(algorithm, metrics.StatusInfeasible, start)
		e.logger.Warn("cycle time not achievable", logging.Algorithm(string(algorithm)), logging.Error(err))
	default:
		e.record(algorithm, metrics.StatusFailed, start)
		e.logger.Error("constraint generation failed", logging.Algorithm(string(algorithm)), logging.Error(err))
	}
	return res, err
}

func (e *Engine) constrain(ctx context.Context, n *hbcn.Network, params Params, algorithm Algorithm) (*Result, error) {
	res := &Result{
		Algorithm: algorithm,
		Params:    params,
		Delays:    []hbcn.DelayPair{},
		network:   n,
	}
	if n.NumPlaces() == 0 {
		res.solved = n.WithDelays(res.Delays)
		return res, nil
	}

	critical, err := analyse.MaxRatioCycle(n, e.analysis)
	if err != nil {
		return nil, fmt.Errorf("constrain: %w", err)
	}
	res.Critical = critical
	ratio := 0.0
	if res.Critical != nil {
		ratio = res.Critical.Ratio()
	}
	if ratio > params.CycleTime*(1+ratioTolerance) {
		return nil, &InfeasibleError{Algorithm: algorithm, CycleTime: params.CycleTime, Ratio: ratio, Critical: res.Critical}
	}

	var f *formulation
	switch algorithm {
	case Proportional:
		f = buildProportional(n, params)
	case Pseudoclock:
		f = buildPseudoclock(n, params)
	default:
		panic(fmt.Sprintf("constrain: unknown algorithm %q", algorithm))
	}
	e.logger.Debug("model built",
		logging.Algorithm(string(algorithm)),
		logging.Int("variables", f.model.NumVariables()),
		logging.Int("constraints", f.model.NumConstraints()),
	)

	sol, err := e.chain.Solve(ctx, f.model)
	if err != nil {
		return nil, fmt.Errorf("constrain: %w", err)
	}
	switch sol.Status {
	case lp.Optimal:
	case lp.Infeasible:
		return nil, &InfeasibleError{Algorithm: algorithm, CycleTime: params.CycleTime, Ratio: ratio, Critical: res.Critical}
	default:
		return nil, fmt.Errorf("constrain: %s model is %s", algorithm, sol.Status)
	}

	res.Backend = sol.Backend
	res.Delays = f.delays(sol, params.MinDelay)
	res.Stretch = clean(sol.Value(f.stretch))
	res.solved = n.WithDelays(res.Delays)

	schedule, err := analyse.ArrivalTimes(res.solved, params.CycleTime, analyse.Options{})
	if err != nil {
		// only reachable through solver round-off
		e.logger.Warn("no arrival times for solved network", logging.Error(err))
	} else {
		res.Schedule = schedule
	}
	return res, nil
}

func (e *Engine) record(algorithm Algorithm, status string, start time.Time) {
	if e.metrics != nil {
		e.metrics.RecordSolve(string(algorithm), status, time.Since(start))
	}
}
