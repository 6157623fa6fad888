package lp

import (
	"fmt"
	"sort"
)

// Built-in back-end names.
const (
	SimplexName = "simplex"
	GonumName   = "gonum"
	CBCName     = "cbc"
)

// BackendConfig carries the settings of the built-in back-ends.
type BackendConfig struct {
	CBCPath   string
	Tolerance float64
}

var constructors = map[string]func(BackendConfig) Backend{
	SimplexName: func(cfg BackendConfig) Backend {
		b := NewSimplexBackend()
		if cfg.Tolerance > 0 {
			b.Tolerance = cfg.Tolerance
		}
		return b
	},
	GonumName: func(cfg BackendConfig) Backend {
		b := NewGonumBackend()
		if cfg.Tolerance > 0 {
			b.Tolerance = cfg.Tolerance
		}
		return b
	},
	CBCName: func(cfg BackendConfig) Backend {
		return NewCBCBackend(cfg.CBCPath)
	},
}

// DefaultBackends is the priority order used when none is configured.
var DefaultBackends = []string{SimplexName, GonumName, CBCName}

// BackendNames lists the built-in back-ends.
func BackendNames() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewBackend constructs a built-in back-end by name.
func NewBackend(name string, cfg BackendConfig) (Backend, error) {
	ctor, ok := constructors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownBackend, name, BackendNames())
	}
	return ctor(cfg), nil
}

// Entries constructs chain entries for names, in order.
func Entries(names []string, cfg BackendConfig) ([]Entry, error) {
	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		b, err := NewBackend(name, cfg)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Name: name, Backend: b})
	}
	return entries, nil
}
