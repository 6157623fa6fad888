// Package storage reads and writes the artifacts of a run: networks,
// structural graphs, output files and sweep manifests. Files whose name ends
// in CompressedExt are snappy-framed.
package storage

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/snappy"
	"golang.org/x/exp/mmap"
)

// CompressedExt marks snappy-compressed artifacts.
const CompressedExt = ".sz"

const filePermissions = 0o644

// Compressed reports whether path names a compressed artifact.
func Compressed(path string) bool {
	return strings.HasSuffix(path, CompressedExt)
}

// WriteFileAtomic streams write into a temporary file next to path and
// renames it into place once write and the sync succeed. Readers never see
// a partial file.
func WriteFileAtomic(path string, write func(io.Writer) error) (retErr error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, base+".tmp*")
	if err != nil {
		return NewError("create").File(path).Cause(err).Err()
	}
	defer func() {
		if retErr != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	bw := bufio.NewWriter(tmp)
	var sink io.Writer = bw
	var sz *snappy.Writer
	if Compressed(path) {
		sz = snappy.NewBufferedWriter(bw)
		sink = sz
	}
	if err := write(sink); err != nil {
		return NewError("write").File(path).Cause(fmt.Errorf("%w: %w", ErrWriteFailed, err)).Err()
	}
	if sz != nil {
		if err := sz.Close(); err != nil {
			return NewError("compress").File(path).Cause(err).Err()
		}
	}
	if err := bw.Flush(); err != nil {
		return NewError("flush").File(path).Cause(err).Err()
	}
	if err := tmp.Sync(); err != nil {
		return NewError("sync").File(path).Cause(err).Err()
	}
	if err := tmp.Close(); err != nil {
		return NewError("close").File(path).Cause(err).Err()
	}
	if err := os.Chmod(tmp.Name(), filePermissions); err != nil {
		return NewError("chmod").File(path).Cause(err).Err()
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return NewError("rename").File(path).Cause(err).Err()
	}
	return nil
}

// mappedFile reads a memory-mapped file, through snappy when compressed.
type mappedFile struct {
	io.Reader
	m *mmap.ReaderAt
}

func (f *mappedFile) Close() error {
	return f.m.Close()
}

// Open maps path into memory and returns a reader over its decompressed
// contents.
func Open(path string) (io.ReadCloser, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, NewError("open").File(path).Cause(err).Err()
	}
	var r io.Reader = io.NewSectionReader(m, 0, int64(m.Len()))
	if Compressed(path) {
		r = snappy.NewReader(r)
	}
	return &mappedFile{Reader: r, m: m}, nil
}

// ReadFile returns the decompressed contents of path.
func ReadFile(path string) ([]byte, error) {
	f, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, NewError("read").File(path).Cause(fmt.Errorf("%w: %w", ErrCorrupt, err)).Err()
	}
	return data, nil
}
