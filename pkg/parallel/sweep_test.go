package parallel_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-hbcn/pkg/analyse"
	"github.com/dd0wney/cluso-hbcn/pkg/constrain"
	"github.com/dd0wney/cluso-hbcn/pkg/hbcn/hbcntest"
	"github.com/dd0wney/cluso-hbcn/pkg/lp"
	"github.com/dd0wney/cluso-hbcn/pkg/metrics"
	"github.com/dd0wney/cluso-hbcn/pkg/parallel"
)

func engine() *constrain.Engine {
	return constrain.NewEngine(&constrain.EngineConfig{
		Chain: lp.NewChain([]lp.Entry{{Name: lp.SimplexName, Backend: lp.NewSimplexBackend()}}, &lp.ChainConfig{}),
	})
}

func TestSweepSpecTasks(t *testing.T) {
	spec := parallel.SweepSpec{
		Base:           constrain.Params{CycleTime: 50, MinDelay: 1, BackwardMargin: constrain.Margin(10)},
		CycleTimes:     []float64{40, 50, 60},
		ForwardMargins: []float64{0, 20},
		Algorithms:     []constrain.Algorithm{constrain.Proportional, constrain.Pseudoclock},
	}

	tasks := spec.Tasks()
	require.Len(t, tasks, 12)

	seen := make(map[uuid.UUID]bool)
	for i, task := range tasks {
		assert.Equal(t, i, task.Index)
		assert.False(t, seen[task.ID], "task IDs are unique")
		seen[task.ID] = true
		assert.Equal(t, 1.0, task.Params.MinDelay)
		require.NotNil(t, task.Params.BackwardMargin)
		assert.Equal(t, 10.0, *task.Params.BackwardMargin)
	}

	assert.Equal(t, constrain.Proportional, tasks[0].Params.Algorithm)
	assert.Equal(t, 40.0, tasks[0].Params.CycleTime)
	assert.Equal(t, 0.0, *tasks[0].Params.ForwardMargin)
	assert.Equal(t, 20.0, *tasks[1].Params.ForwardMargin)
	assert.Equal(t, 50.0, tasks[2].Params.CycleTime)
	assert.Equal(t, constrain.Pseudoclock, tasks[6].Params.Algorithm)

	// margins must not alias between tasks
	*tasks[0].Params.ForwardMargin = 99
	assert.Equal(t, 0.0, *tasks[6].Params.ForwardMargin)
}

func TestSweepSpecWithoutAxes(t *testing.T) {
	tasks := parallel.SweepSpec{Base: constrain.Params{CycleTime: 30}}.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, 30.0, tasks[0].Params.CycleTime)
	assert.Nil(t, tasks[0].Params.ForwardMargin)
}

func TestSweep(t *testing.T) {
	n := hbcntest.MustExpand(t, hbcntest.PortPair, false)
	reg := metrics.NewRegistry()

	spec := parallel.SweepSpec{
		Base:       constrain.Params{MinDelay: 1},
		CycleTimes: []float64{10, 30, 50, 100, -1},
		Algorithms: []constrain.Algorithm{constrain.Proportional, constrain.Pseudoclock},
	}
	outcomes, err := parallel.Sweep(context.Background(), engine(), n, spec, &parallel.SweepConfig{
		Pool:    &parallel.PoolConfig{Workers: 3},
		Metrics: reg,
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 10)

	for i, o := range outcomes {
		assert.Equal(t, i, o.Index)
		switch o.Params.CycleTime {
		case 10, 30:
			assert.True(t, errors.Is(o.Err, analyse.ErrInfeasible), "T=%g: %v", o.Params.CycleTime, o.Err)
			assert.Equal(t, metrics.StatusInfeasible, o.Status())
		case -1:
			assert.True(t, errors.Is(o.Err, constrain.ErrInvalidParameter))
			assert.Equal(t, metrics.StatusInvalid, o.Status())
		default:
			require.NoError(t, o.Err)
			assert.Equal(t, o.Params.Algorithm, o.Result.Algorithm)
			assert.Len(t, o.Result.Delays, 4)
		}
	}

	summary := parallel.Summarize(outcomes)
	assert.Equal(t, 10, summary.Total)
	assert.Equal(t, 4, summary.Solved)
	assert.Equal(t, 4, summary.Infeasible)
	assert.Equal(t, 2, summary.Failed)
	assert.Equal(t, 50.0, summary.MinCycleTime[constrain.Proportional])
	assert.Equal(t, 50.0, summary.MinCycleTime[constrain.Pseudoclock])

	var metric dto.Metric
	require.NoError(t, reg.SweepTasksTotal.WithLabelValues(metrics.StatusOK).Write(&metric))
	assert.Equal(t, 4.0, metric.Counter.GetValue())
	require.NoError(t, reg.SweepTasksInFlight.Write(&metric))
	assert.Equal(t, 0.0, metric.Gauge.GetValue())
}

func TestSweepCancelled(t *testing.T) {
	n := hbcntest.MustExpand(t, hbcntest.PortPair, false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes, err := parallel.Sweep(ctx, engine(), n, parallel.SweepSpec{
		Base:       constrain.Params{CycleTime: 50},
		CycleTimes: []float64{50, 60, 70},
	}, nil)
	assert.True(t, errors.Is(err, context.Canceled))
	require.Len(t, outcomes, 3)
	for _, o := range outcomes {
		assert.True(t, errors.Is(o.Err, context.Canceled))
		assert.Equal(t, metrics.StatusFailed, o.Status())
	}
}
