// Package repository provides the register store API.
//
// This package defines the Storage contract that persistence backends
// implement and the Repository type that layers the register rules on top
// of it. Backends live in the memory and sqlite subpackages.
//
// # Repository
//
// Repository validates and converts values before they reach storage:
//
// - Set and Create keep a register's kind, shape and mutability
// - Access implements the read-or-conditional-write remote access verb
// - Delete removes every register matching a shell wildcard
//
// # Errors
//
// MissingRegisterError and ConflictError are recoverable and matched with
// ErrMissingRegister and ErrConflict. Access never returns either of them.
// Backend failures are StorageError values matched with ErrStorage and are
// never retried.
//
// # Concurrency
//
// Calls are synchronous and unlocked. Access reads and then writes in two
// backend calls, so concurrent writers to the same register can lose an
// update.
package repository
