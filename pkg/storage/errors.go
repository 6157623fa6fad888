package storage

import (
	"errors"
	"fmt"
	"io/fs"
)

// Common sentinel errors
var (
	ErrNotFound      = errors.New("artifact not found")
	ErrCorrupt       = errors.New("artifact is corrupt")
	ErrWriteFailed   = errors.New("write failed")
	ErrMarshalFailed = errors.New("marshal failed")
)

// StorageError provides structured error information for artifact operations.
type StorageError struct {
	Op      string // Operation that failed (e.g., "load", "save")
	Entity  string // Artifact kind (e.g., "network", "graph", "manifest")
	Path    string // File the operation touched
	Context string // Additional context
	Cause   error  // Underlying error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	if e.Path != "" {
		if e.Context != "" {
			return fmt.Sprintf("%s %s %s (%s): %v", e.Op, e.Entity, e.Path, e.Context, e.Cause)
		}
		return fmt.Sprintf("%s %s %s: %v", e.Op, e.Entity, e.Path, e.Cause)
	}
	if e.Context != "" {
		return fmt.Sprintf("%s %s (%s): %v", e.Op, e.Entity, e.Context, e.Cause)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target error matches this error or its cause.
func (e *StorageError) Is(target error) bool {
	if target == nil {
		return false
	}
	if target == ErrNotFound && errors.Is(e.Cause, fs.ErrNotExist) {
		return true
	}
	return errors.Is(e.Cause, target)
}

// ErrorBuilder provides a fluent interface for building StorageErrors.
type ErrorBuilder struct {
	err StorageError
}

// NewError creates a new error builder with the given operation.
func NewError(op string) *ErrorBuilder {
	return &ErrorBuilder{err: StorageError{Op: op}}
}

// Network sets the entity to "network" stored at path.
func (b *ErrorBuilder) Network(path string) *ErrorBuilder {
	b.err.Entity = "network"
	b.err.Path = path
	return b
}

// Graph sets the entity to "graph" stored at path.
func (b *ErrorBuilder) Graph(path string) *ErrorBuilder {
	b.err.Entity = "graph"
	b.err.Path = path
	return b
}

// Manifest sets the entity to "manifest" stored at path.
func (b *ErrorBuilder) Manifest(path string) *ErrorBuilder {
	b.err.Entity = "manifest"
	b.err.Path = path
	return b
}

// File sets the entity to "file" at path.
func (b *ErrorBuilder) File(path string) *ErrorBuilder {
	b.err.Entity = "file"
	b.err.Path = path
	return b
}

// Context sets additional context information.
func (b *ErrorBuilder) Context(ctx string) *ErrorBuilder {
	b.err.Context = ctx
	return b
}

// Cause sets the underlying error cause.
func (b *ErrorBuilder) Cause(err error) *ErrorBuilder {
	b.err.Cause = err
	return b
}

// Build returns the constructed StorageError.
func (b *ErrorBuilder) Build() *StorageError {
	return &b.err
}

// Err returns the error as an error interface.
func (b *ErrorBuilder) Err() error {
	return &b.err
}
