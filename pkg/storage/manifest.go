package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-hbcn/pkg/constrain"
	"github.com/dd0wney/cluso-hbcn/pkg/parallel"
)

// ManifestName is the file name of a sweep manifest inside its directory.
const ManifestName = "manifest.json"

// ManifestEntry records one sweep task.
type ManifestEntry struct {
	TaskID         uuid.UUID `json:"task_id"`
	Index          int       `json:"index"`
	Algorithm      string    `json:"algorithm"`
	CycleTime      float64   `json:"cycle_time"`
	MinDelay       float64   `json:"min_delay"`
	ForwardMargin  *float64  `json:"forward_margin,omitempty"`
	BackwardMargin *float64  `json:"backward_margin,omitempty"`
	Status         string    `json:"status"`
	Backend        string    `json:"backend,omitempty"`
	Stretch        float64   `json:"stretch,omitempty"`
	Error          string    `json:"error,omitempty"`
	DurationMS     float64   `json:"duration_ms"`
	// Network is the solved network, relative to the manifest.
	Network string `json:"network,omitempty"`
}

// Manifest indexes the outputs of a sweep.
type Manifest struct {
	ID      uuid.UUID       `json:"id"`
	Created time.Time       `json:"created"`
	Input   string          `json:"input"`
	Entries []ManifestEntry `json:"entries"`
}

// NewManifest starts an empty manifest for input.
func NewManifest(input string) *Manifest {
	return &Manifest{
		ID:      uuid.New(),
		Created: time.Now().UTC(),
		Input:   input,
		Entries: []ManifestEntry{},
	}
}

// Add records an outcome. network is empty for a task without a result.
func (m *Manifest) Add(o parallel.Outcome, network string) {
	algorithm := o.Params.Algorithm
	if algorithm == "" {
		algorithm = constrain.Proportional
	}
	e := ManifestEntry{
		TaskID:         o.ID,
		Index:          o.Index,
		Algorithm:      string(algorithm),
		CycleTime:      o.Params.CycleTime,
		MinDelay:       o.Params.MinDelay,
		ForwardMargin:  o.Params.ForwardMargin,
		BackwardMargin: o.Params.BackwardMargin,
		Status:         o.Status(),
		DurationMS:     float64(o.Duration) / float64(time.Millisecond),
		Network:        network,
	}
	if o.Result != nil {
		e.Backend = o.Result.Backend
		e.Stretch = o.Result.Stretch
	}
	if o.Err != nil {
		e.Error = o.Err.Error()
	}
	m.Entries = append(m.Entries, e)
}

// SaveManifest writes m as indented JSON.
func SaveManifest(path string, m *Manifest) error {
	err := WriteFileAtomic(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	})
	if err != nil {
		return NewError("save").Manifest(path).Cause(err).Err()
	}
	return nil
}

// LoadManifest reads a manifest written by SaveManifest.
func LoadManifest(path string) (*Manifest, error) {
	data, err := ReadFile(path)
	if err != nil {
		return nil, NewError("load").Manifest(path).Cause(err).Err()
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, NewError("load").Manifest(path).Cause(fmt.Errorf("%w: %w", ErrCorrupt, err)).Err()
	}
	return &m, nil
}

// SaveSweep writes the solved network of every successful outcome into dir
// as a compressed artifact and indexes all outcomes in dir/ManifestName.
func SaveSweep(dir, input string, outcomes []parallel.Outcome) (*Manifest, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, NewError("create").File(dir).Cause(err).Err()
	}
	m := NewManifest(input)
	for _, o := range outcomes {
		name := ""
		if o.Result != nil && o.Result.Network() != nil {
			name = fmt.Sprintf("%04d-%s.hbcn%s", o.Index, o.Params.Algorithm, CompressedExt)
			if o.Params.Algorithm == "" {
				name = fmt.Sprintf("%04d.hbcn%s", o.Index, CompressedExt)
			}
			if err := SaveNetwork(filepath.Join(dir, name), o.Result.Network()); err != nil {
				return nil, err
			}
		}
		m.Add(o, name)
	}
	if err := SaveManifest(filepath.Join(dir, ManifestName), m); err != nil {
		return nil, err
	}
	return m, nil
}
