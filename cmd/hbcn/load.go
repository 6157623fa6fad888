package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dd0wney/cluso-hbcn/pkg/hbcn"
	"github.com/dd0wney/cluso-hbcn/pkg/logging"
	"github.com/dd0wney/cluso-hbcn/pkg/metrics"
	"github.com/dd0wney/cluso-hbcn/pkg/storage"
)

// loadInput reads a network, expanding it first when the input is a
// structural graph.
func loadInput(e *env, path string, structural, forwardCompletion bool) (*hbcn.Network, error) {
	if !structural {
		n, err := storage.LoadNetwork(path)
		if err != nil {
			return nil, err
		}
		e.logger.Debug("network loaded", logging.Path(path), logging.Network(n.NumTransitions(), n.NumPlaces()))
		return n, nil
	}

	g, err := storage.LoadGraph(path)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	n, err := hbcn.Expand(g, hbcn.ExpandOptions{ForwardCompletion: forwardCompletion})
	if err != nil {
		e.metrics.RecordExpansion(metrics.StatusFailed, 0, time.Since(start))
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	e.metrics.RecordExpansion(metrics.StatusOK, n.NumPlaces(), time.Since(start))
	e.logger.Info("graph expanded",
		logging.Path(path),
		logging.Network(n.NumTransitions(), n.NumPlaces()),
		logging.Bool("forward_completion", forwardCompletion),
		logging.Latency(time.Since(start)))
	return n, nil
}

// writeTo writes an artifact to path, or to stdout for "-".
func writeTo(e *env, path string, write func(io.Writer) error) error {
	if path == "-" {
		return write(e.stdout)
	}
	if err := storage.WriteFileAtomic(path, write); err != nil {
		return err
	}
	e.logger.Info("output written", logging.Path(path))
	return nil
}

// optionalFloat is a flag that records whether it was set.
type optionalFloat struct {
	value *float64
}

func (f *optionalFloat) String() string {
	if f.value == nil {
		return ""
	}
	return strconv.FormatFloat(*f.value, 'g', -1, 64)
}

func (f *optionalFloat) Set(s string) error {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	f.value = &v
	return nil
}
