package repository

import (
	"context"
	"errors"
	"fmt"

	"regstore/internal/domain"
)

// Storage is the persistence contract behind a Repository. Implementations
// map register names to entries and know nothing about conversion rules.
type Storage interface {
	// Persistent reports whether data survives a process restart
	Persistent() bool

	Count(ctx context.Context) (int, error)

	// Names returns all register names sorted lexicographically. The list is
	// recomputed on every call.
	Names(ctx context.Context) ([]string, error)

	// NameAt returns the name at index in the sorted order. Indexes are a
	// snapshot and shift when registers are added or removed.
	NameAt(ctx context.Context, index int) (string, bool, error)

	// Get returns nil without error if the register does not exist
	Get(ctx context.Context, name string) (*domain.Entry, error)

	// Set creates or wholesale replaces a register
	Set(ctx context.Context, name string, e domain.Entry) error

	// Delete removes the given registers; unknown names are ignored
	Delete(ctx context.Context, names []string) error

	// Close releases backend resources. Call at most once.
	Close() error
}

// ErrStorage matches every StorageError via errors.Is
var ErrStorage = errors.New("storage failure")

// ErrClosed is wrapped by backends used after Close
var ErrClosed = errors.New("storage is closed")

// StorageError reports a backend failure for a single operation
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// NewStorageError wraps err for the given operation, returning nil for a nil err
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
