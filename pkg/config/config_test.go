package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-hbcn/pkg/constrain"
	"github.com/dd0wney/cluso-hbcn/pkg/logging"
	"github.com/dd0wney/cluso-hbcn/pkg/lp"
	"github.com/dd0wney/cluso-hbcn/pkg/parallel"
	"github.com/dd0wney/cluso-hbcn/pkg/validation"
)

const fullJob = `
input: circuits/acc.graph
forward_completion: false
cycle_time: 50
min_delay: 1
forward_margin: 20
algorithm: pseudoclock
backends: [gonum, simplex]
backend_timeout: 30s
cbc_path: /opt/cbc/bin/cbc
max_cycles: 5000
outputs:
  csv: out/acc.csv
  sdc: /abs/acc.sdc
  hbcn: out/acc.hbcn
sweep:
  cycle_times: [40, 50, 60]
  forward_margins: [0, 10]
  algorithms: [proportional, pseudoclock]
  workers: 4
`

func TestParseFullJob(t *testing.T) {
	job, err := Parse([]byte(fullJob))
	require.NoError(t, err)

	assert.Equal(t, "circuits/acc.graph", job.Input)
	assert.False(t, job.ForwardCompletion)
	assert.Equal(t, 50.0, job.CycleTime)
	assert.Equal(t, 1.0, job.MinDelay)
	require.NotNil(t, job.ForwardMargin)
	assert.Equal(t, 20.0, *job.ForwardMargin)
	assert.Nil(t, job.BackwardMargin)
	assert.Equal(t, []string{"gonum", "simplex"}, job.Backends)
	assert.Equal(t, 30*time.Second, job.BackendTimeout)
	assert.Equal(t, 5000, job.MaxCycles)
	assert.Equal(t, "out/acc.csv", job.Outputs.CSV)
	require.NotNil(t, job.Sweep)
	assert.Equal(t, 4, job.Sweep.Workers)
}

func TestParseDefaults(t *testing.T) {
	job, err := Parse([]byte("input: a.graph\ncycle_time: 10\n"))
	require.NoError(t, err)

	assert.True(t, job.ForwardCompletion)
	assert.Equal(t, "proportional", job.Algorithm)
	assert.Equal(t, lp.DefaultBackends, job.Backends)
	assert.Equal(t, lp.DefaultCBCPath, job.CBCPath)
	assert.Nil(t, job.Sweep)

	_, err = job.SweepSpec()
	assert.Error(t, err)
}

func TestDefaultJobDoesNotShareBackends(t *testing.T) {
	job := DefaultJob()
	job.Backends[0] = "changed"
	assert.Equal(t, lp.SimplexName, lp.DefaultBackends[0])
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("input: a.graph\ncycle_time: 10\ncycletime: 5\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycletime")
}

func TestValidateFieldErrors(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		field string
	}{
		{"missing input", "cycle_time: 10", "input"},
		{"negative min delay", "input: a\ncycle_time: 10\nmin_delay: -1", "min_delay"},
		{"margin at 100", "input: a\ncycle_time: 10\nforward_margin: 100", "forward_margin"},
		{"negative margin", "input: a\ncycle_time: 10\nbackward_margin: -5", "backward_margin"},
		{"unknown algorithm", "input: a\ncycle_time: 10\nalgorithm: greedy", "algorithm"},
		{"no backends", "input: a\ncycle_time: 10\nbackends: []", "backends"},
		{"bad sweep cycle time", "input: a\nsweep:\n  cycle_times: [10, 0]", "cycle_times[1]"},
		{"negative workers", "input: a\ncycle_time: 10\nsweep:\n  workers: -1", "sweep.workers"},
		{"sweep margin at 100", "input: a\nsweep:\n  cycle_times: [10]\n  forward_margins: [5, 100]", "sweep.forward_margins[1]"},
		{"unknown sweep algorithm", "input: a\nsweep:\n  cycle_times: [10]\n  algorithms: [proportional, greedy]", "sweep.algorithms[1]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)

			var fe *validation.FieldError
			require.True(t, errors.As(err, &fe), "got %v", err)
			assert.Equal(t, tt.field, fe.Field)
		})
	}
}

func TestValidateCollectsFieldErrors(t *testing.T) {
	_, err := Parse([]byte("min_delay: -1\nforward_margin: 120\nalgorithm: greedy"))
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "5 errors")
	for _, field := range []string{"input", "cycle_time", "min_delay", "forward_margin", "algorithm"} {
		assert.Contains(t, msg, field)
	}
}

func TestPoolConfigClampsWorkers(t *testing.T) {
	job := DefaultJob()
	job.Sweep = &Sweep{Workers: parallel.MaxWorkers * 2}
	assert.Equal(t, parallel.MaxWorkers, job.PoolConfig(nil).Workers)

	job.Sweep.Workers = 0
	assert.GreaterOrEqual(t, job.PoolConfig(nil).Workers, 1)
}

func TestValidateCrossFieldRules(t *testing.T) {
	_, err := Parse([]byte("input: a"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle_time")

	_, err = Parse([]byte("input: a\nsweep:\n  cycle_times: [10, 20]"))
	assert.NoError(t, err, "a swept cycle time replaces the fixed one")

	_, err = Parse([]byte("input: a\ncycle_time: 10\nbackends: [simplex, glpk]"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, lp.ErrUnknownBackend))

	_, err = Parse([]byte("input: a\ncycle_time: 10\nbackend_timeout: -1s"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend_timeout")

	_, err = Parse([]byte("input: a\ncycle_time: 10\nsweep:\n  workers: 100000"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sweep.workers")
}

func TestLoadResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "job.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fullJob), 0o644))

	job, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "circuits/acc.graph"), job.Input)
	assert.Equal(t, filepath.Join(dir, "out/acc.csv"), job.Outputs.CSV)
	assert.Equal(t, "/abs/acc.sdc", job.Outputs.SDC)
	assert.Empty(t, job.Outputs.VCD)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("input: [unterminated"), 0o644))
	_, err = Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}

func TestParamsAndSweepSpec(t *testing.T) {
	job, err := Parse([]byte(fullJob))
	require.NoError(t, err)

	p := job.Params()
	assert.Equal(t, constrain.Pseudoclock, p.Algorithm)
	assert.Equal(t, 50.0, p.CycleTime)
	assert.NoError(t, p.Validate())

	spec, err := job.SweepSpec()
	require.NoError(t, err)
	assert.Equal(t, []constrain.Algorithm{constrain.Proportional, constrain.Pseudoclock}, spec.Algorithms)
	assert.Len(t, spec.Tasks(), 3*2*2)

	pc := job.PoolConfig(logging.NopLogger{})
	assert.Equal(t, 4, pc.Workers)
}

func TestEngineConfigBuildsChain(t *testing.T) {
	job, err := Parse([]byte(fullJob))
	require.NoError(t, err)

	ec, err := job.EngineConfig(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"gonum", "simplex"}, ec.Chain.Names())
	assert.Equal(t, 5000, ec.Analysis.MaxCycles)

	job.Backends = []string{"glpk"}
	_, err = job.EngineConfig(nil, nil)
	assert.True(t, errors.Is(err, lp.ErrUnknownBackend))
}
