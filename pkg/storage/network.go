package storage

import (
	"errors"
	"io"

	"github.com/golang/snappy"

	"github.com/dd0wney/cluso-hbcn/pkg/hbcn"
	"github.com/dd0wney/cluso-hbcn/pkg/structural"
)

// corrupt tags snappy framing failures so callers can tell them apart from
// syntax errors in the decompressed text.
func corrupt(err error) error {
	if errors.Is(err, snappy.ErrCorrupt) || errors.Is(err, snappy.ErrUnsupported) {
		return errors.Join(ErrCorrupt, err)
	}
	return err
}

// LoadNetwork reads a network in text form.
func LoadNetwork(path string) (*hbcn.Network, error) {
	f, err := Open(path)
	if err != nil {
		return nil, NewError("load").Network(path).Cause(errors.Unwrap(err)).Err()
	}
	defer f.Close()

	n, err := hbcn.Read(f)
	if err != nil {
		return nil, NewError("load").Network(path).Cause(corrupt(err)).Err()
	}
	return n, nil
}

// SaveNetwork writes n in text form.
func SaveNetwork(path string, n *hbcn.Network) error {
	return WriteFileAtomic(path, func(w io.Writer) error {
		_, err := n.WriteTo(w)
		return err
	})
}

// LoadGraph reads a structural graph.
func LoadGraph(path string) (*structural.Graph, error) {
	f, err := Open(path)
	if err != nil {
		return nil, NewError("load").Graph(path).Cause(errors.Unwrap(err)).Err()
	}
	defer f.Close()

	g, err := structural.Parse(f)
	if err != nil {
		return nil, NewError("load").Graph(path).Cause(corrupt(err)).Err()
	}
	return g, nil
}
