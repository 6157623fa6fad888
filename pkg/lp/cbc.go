package lp

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultCBCPath is the executable looked up when CBCBackend.Path is empty.
const DefaultCBCPath = "cbc"

// CBCBackend solves models with the COIN-OR CBC command line solver. The
// model is written as an LP file into a scratch directory and the solution
// file CBC produces is read back.
type CBCBackend struct {
	Path string
	// Dir is where scratch directories are created; empty means the
	// system temporary directory.
	Dir string
}

// NewCBCBackend returns a CBC back-end running the given executable.
func NewCBCBackend(path string) *CBCBackend {
	return &CBCBackend{Path: path}
}

// Solve implements Backend.
func (b *CBCBackend) Solve(ctx context.Context, m *Model) (*Solution, error) {
	if err := m.Check(); err != nil {
		return nil, err
	}
	if m.NumVariables() == 0 {
		return decided(newStandardForm(m), m), nil
	}

	path := b.Path
	if path == "" {
		path = DefaultCBCPath
	}
	bin, err := exec.LookPath(path)
	if err != nil {
		return nil, fmt.Errorf("cbc: %w", err)
	}

	dir, err := os.MkdirTemp(b.Dir, "hbcn-cbc-*")
	if err != nil {
		return nil, fmt.Errorf("cbc: %w", err)
	}
	defer os.RemoveAll(dir)

	modelPath := filepath.Join(dir, "model.lp")
	solutionPath := filepath.Join(dir, "solution.txt")
	if err := writeModelFile(modelPath, m); err != nil {
		return nil, fmt.Errorf("cbc: %w", err)
	}

	cmd := exec.CommandContext(ctx, bin, modelPath, "solve", "solu", solutionPath)
	cmd.Stdout, cmd.Stderr = os.Stdout, os.Stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("cbc: %w", err)
	}

	f, err := os.Open(solutionPath)
	if err != nil {
		return nil, fmt.Errorf("cbc: no solution file: %w", err)
	}
	defer f.Close()
	return parseCBCSolution(f, m)
}

func writeModelFile(path string, m *Model) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteLP(f, m); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// parseCBCSolution reads a CBC solution file. The first line carries the
// status; every other line is "index name value reduced-cost", optionally
// prefixed by "**" for values outside their bounds. Variables not listed
// are zero.
func parseCBCSolution(r io.Reader, m *Model) (*Solution, error) {
	sc := bufio.NewScanner(r)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("cbc: %w", err)
		}
		return nil, fmt.Errorf("cbc: empty solution file")
	}

	header := strings.ToLower(strings.TrimSpace(sc.Text()))
	switch {
	case strings.HasPrefix(header, "optimal"):
	case strings.Contains(header, "unbounded"), strings.Contains(header, "dual infeasible"):
		return &Solution{Status: Unbounded}, nil
	case strings.Contains(header, "infeasible"):
		return &Solution{Status: Infeasible}, nil
	default:
		return nil, fmt.Errorf("cbc: unexpected status %q", header)
	}

	values := make([]float64, m.NumVariables())
	for line := 2; sc.Scan(); line++ {
		fields := strings.Fields(strings.TrimPrefix(strings.TrimSpace(sc.Text()), "**"))
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 3 {
			return nil, fmt.Errorf("cbc: solution line %d: %q", line, sc.Text())
		}
		v, ok := parseColumnName(fields[1])
		if !ok || int(v) >= len(values) {
			return nil, fmt.Errorf("cbc: solution line %d: unknown column %q", line, fields[1])
		}
		value, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("cbc: solution line %d: %w", line, err)
		}
		values[v] = value
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("cbc: %w", err)
	}
	return &Solution{Status: Optimal, Objective: m.Evaluate(values), Values: values}, nil
}
