// Package domain defines the core types of the register store.
//
// This package contains the typed value model and the conversion rules
// applied whenever an existing register is overwritten.
//
// # Core Types
//
// Value is a tagged union over a closed set of kinds: empty, string,
// unstructured bytes, bit arrays, and signed, unsigned and real arrays of
// fixed element widths. Exactly one variant is populated; the zero Value
// is empty and stands for "no register".
//
// Entry pairs a Value with its mutability flag and is the unit of storage.
// Register names an Entry in snapshots and documents.
//
// # Conversion
//
// Convert coerces a loosely typed candidate (Go scalars, slices, strings,
// byte slices or another Value) into the kind and shape of an existing
// value. Bit and numeric registers keep their array length for their whole
// lifetime; string and unstructured registers only keep their kind.
//
// How numbers are narrowed or widened is decided by a NumericPolicy.
// Reject (the default) requires exact representability, Saturate clamps and
// Wrap truncates to the target width.
//
// # Design Principles
//
// - Values are immutable
// - Conversion is pure and reports failure instead of panicking
// - No database or external dependencies
package domain
