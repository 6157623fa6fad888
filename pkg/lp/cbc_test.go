package lp

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestParseCBCSolution(t *testing.T) {
	m := lpCases()[0].build()

	tests := []struct {
		name    string
		input   string
		status  Status
		values  []float64
		wantErr bool
	}{
		{
			name: "optimal",
			input: "Optimal - objective value 11.00000000\n" +
				"      0 x0                     3                       0\n" +
				"      1 x1                     1                       0\n",
			status: Optimal,
			values: []float64{3, 1},
		},
		{
			name:   "zeros omitted",
			input:  "Optimal - objective value 6\n      1 x1 2 0\n",
			status: Optimal,
			values: []float64{0, 2},
		},
		{
			name:   "flagged value",
			input:  "Optimal - objective value 9\n**    0 x0 3 0\n",
			status: Optimal,
			values: []float64{3, 0},
		},
		{name: "infeasible", input: "Infeasible - objective value 0.00000000\n", status: Infeasible},
		{name: "unbounded", input: "Unbounded - objective value 0\n", status: Unbounded},
		{name: "dual infeasible", input: "Dual infeasible - objective value 0\n", status: Unbounded},
		{name: "stopped", input: "Stopped on time - objective value 1\n", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "unknown column", input: "Optimal - objective value 1\n 0 y7 1 0\n", wantErr: true},
		{name: "short line", input: "Optimal - objective value 1\n 0 x0\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sol, err := parseCBCSolution(strings.NewReader(tt.input), m)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseCBCSolution() error = %v", err)
			}
			if sol.Status != tt.status {
				t.Fatalf("Status = %v, want %v", sol.Status, tt.status)
			}
			for i, want := range tt.values {
				if sol.Values[i] != want {
					t.Errorf("Value[%d] = %v, want %v", i, sol.Values[i], want)
				}
			}
		})
	}
}

func TestCBCMissingBinary(t *testing.T) {
	b := NewCBCBackend(filepath.Join(t.TempDir(), "no-such-cbc"))
	if _, err := b.Solve(context.Background(), lpCases()[0].build()); err == nil {
		t.Error("Solve() should fail without a CBC executable")
	}
}

// fakeCBC writes a script that answers like CBC and records the model file.
func fakeCBC(t *testing.T, solution string) (path, modelCopy string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	dir := t.TempDir()
	modelCopy = filepath.Join(dir, "seen.lp")
	path = filepath.Join(dir, "cbc")
	script := "#!/bin/sh\n" +
		"cp \"$1\" " + modelCopy + "\n" +
		"echo 'Welcome to the CBC MILP Solver'\n" +
		"cat > \"$4\" <<'END'\n" + solution + "END\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("Failed to write fake cbc: %v", err)
	}
	return path, modelCopy
}

func TestCBCBackendRunsSolver(t *testing.T) {
	path, modelCopy := fakeCBC(t, "Optimal - objective value 11\n 0 x0 3 0\n 1 x1 1 0\n")

	b := &CBCBackend{Path: path, Dir: t.TempDir()}
	sol, err := b.Solve(context.Background(), lpCases()[0].build())
	if err != nil {
		t.Fatalf("Solve() error = %v", err)
	}
	checkSolution(t, lpCases()[0], sol)

	seen, err := os.ReadFile(modelCopy)
	if err != nil {
		t.Fatalf("Fake solver did not see the model: %v", err)
	}
	if !strings.HasPrefix(string(seen), `\ production`) {
		t.Errorf("Unexpected model file:\n%s", seen)
	}

	entries, err := os.ReadDir(b.Dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Scratch directory not removed: %v", entries)
	}
}

func TestCBCBackendFailingSolver(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	path := filepath.Join(t.TempDir(), "cbc")
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 3\n"), 0o755); err != nil {
		t.Fatalf("Failed to write fake cbc: %v", err)
	}

	if _, err := NewCBCBackend(path).Solve(context.Background(), lpCases()[0].build()); err == nil {
		t.Error("Solve() should fail when cbc exits non-zero")
	}
}
