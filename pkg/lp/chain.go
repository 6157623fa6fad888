package lp

import (
	"context"
	"fmt"
	"time"

	"github.com/dd0wney/cluso-hbcn/pkg/capture"
	"github.com/dd0wney/cluso-hbcn/pkg/logging"
	"github.com/dd0wney/cluso-hbcn/pkg/metrics"
)

// Backend is anything that can solve a model. Returning an error means the
// back-end itself failed; an infeasible model is a Solution with status
// Infeasible.
type Backend interface {
	Solve(ctx context.Context, m *Model) (*Solution, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, m *Model) (*Solution, error)

// Solve implements Backend.
func (f BackendFunc) Solve(ctx context.Context, m *Model) (*Solution, error) {
	return f(ctx, m)
}

// Entry is a named back-end in a chain.
type Entry struct {
	Name    string
	Backend Backend
}

// ChainConfig configures a Chain.
type ChainConfig struct {
	// Timeout bounds each attempt; zero means no bound. A back-end that
	// does not honour its context keeps running in the background after
	// it is abandoned.
	Timeout time.Duration
	// Guard is held around every attempt; nil disables it.
	Guard   *capture.Guard
	Logger  logging.Logger
	Metrics *metrics.Registry
}

// DefaultChainConfig holds the process-wide capture guard and no timeout.
func DefaultChainConfig() *ChainConfig {
	return &ChainConfig{Guard: capture.Process()}
}

// Chain tries back-ends in priority order until one of them solves the
// model. Solutions are never combined: the first back-end to answer wins.
type Chain struct {
	entries []Entry
	config  *ChainConfig
	logger  logging.Logger
}

// NewChain creates a chain over entries, highest priority first.
func NewChain(entries []Entry, config *ChainConfig) *Chain {
	if config == nil {
		config = DefaultChainConfig()
	}
	return &Chain{
		entries: append([]Entry(nil), entries...),
		config:  config,
		logger:  logging.OrNop(config.Logger).With(logging.Component("lp")),
	}
}

// Names returns the back-end names in priority order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.entries))
	for i, e := range c.entries {
		names[i] = e.Name
	}
	return names
}

// Solve runs the model through the chain. It returns the first solution,
// or an AllBackendsFailedError holding every attempt's failure. A
// cancelled ctx stops the chain early.
func (c *Chain) Solve(ctx context.Context, m *Model) (*Solution, error) {
	if err := m.Check(); err != nil {
		return nil, err
	}

	var attempts []*BackendError
	for _, e := range c.entries {
		sol, err := c.attempt(ctx, e, m)
		if err == nil {
			return sol, nil
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("lp: solve cancelled: %w", ctx.Err())
		}
		attempts = append(attempts, &BackendError{Backend: e.Name, Err: err})
		c.logger.Warn("back-end failed", logging.Backend(e.Name), logging.Error(err))
	}
	return nil, &AllBackendsFailedError{Attempts: attempts}
}

type attemptResult struct {
	sol *Solution
	err error
}

func (c *Chain) attempt(ctx context.Context, e Entry, m *Model) (*Solution, error) {
	start := time.Now()
	actx, cancel := ctx, context.CancelFunc(func() {})
	if c.config.Timeout > 0 {
		actx, cancel = context.WithTimeout(ctx, c.config.Timeout)
	}
	defer cancel()

	if c.config.Guard != nil {
		session, err := c.config.Guard.Acquire()
		if err != nil {
			return nil, err
		}
		defer func() {
			out, err := session.Release()
			if err != nil {
				c.logger.Warn("restoring output failed", logging.Backend(e.Name), logging.Error(err))
			}
			if len(out) > 0 {
				c.logger.Debug("back-end output", logging.Backend(e.Name), logging.String("output", string(out)))
			}
		}()
	}

	done := make(chan attemptResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- attemptResult{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		sol, err := e.Backend.Solve(actx, m)
		done <- attemptResult{sol: sol, err: err}
	}()

	var res attemptResult
	outcome := metrics.OutcomeSolved
	select {
	case res = <-done:
	case <-actx.Done():
		res.err = fmt.Errorf("%w after %s", ErrTimeout, time.Since(start).Round(time.Millisecond))
		outcome = metrics.OutcomeTimeout
	}

	if res.err != nil && outcome == metrics.OutcomeSolved && actx.Err() != nil && ctx.Err() == nil {
		res.err = fmt.Errorf("%w: %v", ErrTimeout, res.err)
		outcome = metrics.OutcomeTimeout
	}
	if res.err == nil {
		switch {
		case res.sol == nil:
			res.err = fmt.Errorf("back-end returned no solution")
		case res.sol.Status == Optimal && len(res.sol.Values) != m.NumVariables():
			res.err = fmt.Errorf("back-end returned %d values for %d variables", len(res.sol.Values), m.NumVariables())
		}
	}
	if res.err != nil && outcome == metrics.OutcomeSolved {
		outcome = metrics.OutcomeFailed
	}

	elapsed := time.Since(start)
	if c.config.Metrics != nil {
		c.config.Metrics.RecordBackendAttempt(e.Name, outcome, elapsed)
	}
	if res.err != nil {
		return nil, res.err
	}

	res.sol.Backend = e.Name
	c.logger.Debug("back-end answered",
		logging.Backend(e.Name),
		logging.String("status", res.sol.Status.String()),
		logging.Latency(elapsed),
	)
	return res.sol, nil
}
