package parallel

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-hbcn/pkg/analyse"
	"github.com/dd0wney/cluso-hbcn/pkg/constrain"
	"github.com/dd0wney/cluso-hbcn/pkg/hbcn"
	"github.com/dd0wney/cluso-hbcn/pkg/logging"
	"github.com/dd0wney/cluso-hbcn/pkg/metrics"
)

// SweepSpec is the cartesian product of parameter values to run. Empty
// axes keep the value of Base.
type SweepSpec struct {
	Base            constrain.Params
	CycleTimes      []float64
	ForwardMargins  []float64
	BackwardMargins []float64
	Algorithms      []constrain.Algorithm
}

// Task is one point of a sweep.
type Task struct {
	ID     uuid.UUID
	Index  int
	Params constrain.Params
}

// Tasks expands the spec in row-major order: algorithm, cycle time,
// forward margin, backward margin.
func (s SweepSpec) Tasks() []Task {
	algorithms := s.Algorithms
	if len(algorithms) == 0 {
		algorithms = []constrain.Algorithm{s.Base.Algorithm}
	}
	cycleTimes := s.CycleTimes
	if len(cycleTimes) == 0 {
		cycleTimes = []float64{s.Base.CycleTime}
	}
	forward := margins(s.ForwardMargins, s.Base.ForwardMargin)
	backward := margins(s.BackwardMargins, s.Base.BackwardMargin)

	var tasks []Task
	for _, a := range algorithms {
		for _, t := range cycleTimes {
			for _, fm := range forward {
				for _, bm := range backward {
					p := s.Base
					p.Algorithm = a
					p.CycleTime = t
					p.ForwardMargin = fm
					p.BackwardMargin = bm
					tasks = append(tasks, Task{ID: uuid.New(), Index: len(tasks), Params: p})
				}
			}
		}
	}
	return tasks
}

func margins(values []float64, base *float64) []*float64 {
	if len(values) == 0 {
		return []*float64{base}
	}
	out := make([]*float64, len(values))
	for i, v := range values {
		out[i] = constrain.Margin(v)
	}
	return out
}

// Outcome is the result of one task. Exactly one of Result and Err is set.
type Outcome struct {
	Task
	Result   *constrain.Result
	Err      error
	Duration time.Duration
}

// Status classifies the outcome with the metric status labels.
func (o Outcome) Status() string {
	switch {
	case o.Err == nil:
		return metrics.StatusOK
	case errors.Is(o.Err, analyse.ErrInfeasible):
		return metrics.StatusInfeasible
	case errors.Is(o.Err, constrain.ErrInvalidParameter):
		return metrics.StatusInvalid
	default:
		return metrics.StatusFailed
	}
}

// SweepConfig configures Sweep.
type SweepConfig struct {
	Pool    *PoolConfig
	Logger  logging.Logger
	Metrics *metrics.Registry
}

// Sweep runs every task of spec against n on a worker pool. Tasks share
// nothing but the immutable network and the engine. Outcomes are returned
// in task order. When ctx is cancelled the tasks not yet started fail with
// the context error, and that error is also returned.
func Sweep(ctx context.Context, engine *constrain.Engine, n *hbcn.Network, spec SweepSpec, config *SweepConfig) ([]Outcome, error) {
	if config == nil {
		config = &SweepConfig{}
	}
	poolConfig := config.Pool
	if poolConfig == nil {
		poolConfig = DefaultPoolConfig()
	}
	if poolConfig.Logger == nil {
		poolConfig = &PoolConfig{Workers: poolConfig.Workers, Logger: config.Logger}
	}
	pool, err := NewWorkerPool(poolConfig)
	if err != nil {
		return nil, err
	}
	logger := logging.OrNop(config.Logger).With(logging.Component("sweep"))

	tasks := spec.Tasks()
	outcomes := make([]Outcome, len(tasks))
	var wg sync.WaitGroup
	timer := logging.StartTimer(logger, "sweep complete", logging.Count(len(tasks)), logging.Int("workers", pool.Workers()))

	for i := range tasks {
		task := tasks[i]
		wg.Add(1)
		submitted := pool.Submit(func() {
			defer wg.Done()
			outcomes[task.Index] = run(ctx, engine, n, task, config.Metrics)
		})
		if !submitted {
			wg.Done()
			outcomes[task.Index] = Outcome{Task: task, Err: errors.New("worker pool closed")}
		}
	}
	wg.Wait()
	pool.Close()

	summary := Summarize(outcomes)
	timer.EndInfo(
		logging.Int("solved", summary.Solved),
		logging.Int("infeasible", summary.Infeasible),
		logging.Int("failed", summary.Failed),
	)
	return outcomes, ctx.Err()
}

func run(ctx context.Context, engine *constrain.Engine, n *hbcn.Network, task Task, reg *metrics.Registry) (out Outcome) {
	out.Task = task
	start := time.Now()
	if reg != nil {
		reg.TaskStarted()
	}
	defer func() {
		if r := recover(); r != nil {
			out.Result, out.Err = nil, fmt.Errorf("task %d panicked: %v", task.Index, r)
		}
		out.Duration = time.Since(start)
		if reg != nil {
			reg.TaskDone()
			reg.RecordSweepTask(out.Status())
		}
	}()

	if err := ctx.Err(); err != nil {
		out.Err = err
		return out
	}
	out.Result, out.Err = engine.Constrain(ctx, n, task.Params)
	return out
}

// Summary counts outcomes by status.
type Summary struct {
	Total      int
	Solved     int
	Infeasible int
	Failed     int
	// MinCycleTime is the smallest cycle time solved by each algorithm.
	MinCycleTime map[constrain.Algorithm]float64
}

// Summarize aggregates outcomes.
func Summarize(outcomes []Outcome) Summary {
	s := Summary{Total: len(outcomes), MinCycleTime: make(map[constrain.Algorithm]float64)}
	for _, o := range outcomes {
		switch o.Status() {
		case metrics.StatusOK:
			s.Solved++
			a := o.Result.Algorithm
			best, ok := s.MinCycleTime[a]
			if !ok {
				best = math.Inf(1)
			}
			s.MinCycleTime[a] = math.Min(best, o.Params.CycleTime)
		case metrics.StatusInfeasible:
			s.Infeasible++
		default:
			s.Failed++
		}
	}
	return s
}
