package repository

import (
	"errors"
	"fmt"

	"regstore/internal/domain"
)

var (
	// ErrMissingRegister matches MissingRegisterError via errors.Is
	ErrMissingRegister = errors.New("no such register")
	// ErrConflict matches ConflictError via errors.Is
	ErrConflict = errors.New("value conflicts with register type")
	// ErrInvalidName is returned when creating a register with an unusable name
	ErrInvalidName = errors.New("invalid register name")
	// ErrInvalidPattern is returned by Delete for a malformed wildcard
	ErrInvalidPattern = errors.New("invalid wildcard pattern")
)

// MaxNameLength is the longest register name the store accepts, in bytes
const MaxNameLength = 255

// MissingRegisterError is returned when a named register does not exist
type MissingRegisterError struct {
	Name string
}

func (e *MissingRegisterError) Error() string {
	return fmt.Sprintf("register %q: %v", e.Name, ErrMissingRegister)
}

func (e *MissingRegisterError) Is(target error) bool { return target == ErrMissingRegister }

// ConflictError is returned when a value cannot be converted to the type of
// an existing register
type ConflictError struct {
	Name      string
	Existing  domain.Value
	Candidate any
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("register %q: cannot assign %v from %v", e.Name, e.Existing, e.Candidate)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

func validateName(name string) error {
	if name == "" || len(name) > MaxNameLength {
		return fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	return nil
}
