// Command hbcn expands structural graphs into half-buffer channel networks,
// analyses their cycles and generates timing constraints for them.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/dd0wney/cluso-hbcn/pkg/analyse"
	"github.com/dd0wney/cluso-hbcn/pkg/capture"
	"github.com/dd0wney/cluso-hbcn/pkg/constrain"
	"github.com/dd0wney/cluso-hbcn/pkg/logging"
	"github.com/dd0wney/cluso-hbcn/pkg/metrics"
)

// Exit codes.
const (
	exitOK         = 0
	exitError      = 1
	exitUsage      = 2
	exitInfeasible = 3
)

var errUsage = errors.New("usage")

// env is what every command runs against.
type env struct {
	stdout  io.Writer
	stderr  io.Writer
	logger  logging.Logger
	metrics *metrics.Registry
}

type command struct {
	summary string
	run     func(ctx context.Context, e *env, args []string) error
}

var commands = map[string]command{
	"expand":        {"expand a structural graph into a network", runExpand},
	"analyse":       {"report the critical cycles of a network", runAnalyse},
	"depth":         {"analyse with every place weighing 1", runDepth},
	"constrain":     {"generate timing constraints", runConstrain},
	"sweep":         {"run a parameter sweep from a job file", runSweep},
	"serve-metrics": {"serve Prometheus metrics and health checks", runServeMetrics},
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: hbcn <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-14s %s\n", name, commands[name].summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'hbcn <command> -h' for the flags of a command.")
}

// newFlagSet creates the flag set of a command with the shared flags.
func newFlagSet(e *env, name string, logLevel *string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	defaultLevel := "warn"
	if level := os.Getenv(logging.EnvLevel); level != "" {
		defaultLevel = level
	}
	fs.StringVar(logLevel, "log-level", defaultLevel, "Log level (debug, info, warn, error); defaults to $"+logging.EnvLevel)
	return fs
}

// parse parses args and points the logger at the requested level.
func parse(e *env, fs *flag.FlagSet, logLevel *string, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	e.logger.SetLevel(logging.ParseLevel(*logLevel))
	return nil
}

func exitCode(err error) int {
	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
		return exitOK
	case errors.Is(err, errUsage), errors.Is(err, constrain.ErrInvalidParameter):
		return exitUsage
	case errors.Is(err, analyse.ErrInfeasible):
		return exitInfeasible
	default:
		return exitError
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		usage(stdout)
		if len(args) == 0 {
			return exitUsage
		}
		return exitOK
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "hbcn: unknown command %q\n\n", args[0])
		usage(stderr)
		return exitUsage
	}

	e := &env{
		stdout:  stdout,
		stderr:  stderr,
		logger:  logging.NewJSONLogger(stderr, logging.WarnLevel).With(logging.Component("hbcn"), logging.Operation(args[0])),
		metrics: metrics.DefaultRegistry(),
	}
	err := cmd.run(ctx, e, args[1:])
	if err != nil && !errors.Is(err, flag.ErrHelp) {
		fmt.Fprintf(stderr, "hbcn %s: %v\n", args[0], err)
	}
	return exitCode(err)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	// solver sessions redirect the standard descriptors; logs and results
	// go to the streams they cannot touch
	code := run(ctx, os.Args[1:], capture.Stdout(), capture.Stderr())
	stop()
	os.Exit(code)
}
