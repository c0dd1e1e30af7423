package domain

import "fmt"

// Entry is the unit of storage: a value plus its mutability flag
type Entry struct {
	Value   Value
	Mutable bool
}

// Equal reports whether both entries hold equal values and flags
func (e Entry) Equal(o Entry) bool {
	return e.Mutable == o.Mutable && e.Value.Equal(o.Value)
}

func (e Entry) String() string {
	if e.Mutable {
		return fmt.Sprintf("%s (mutable)", e.Value)
	}
	return fmt.Sprintf("%s (immutable)", e.Value)
}

// Register is a named entry, as listed in snapshots and documents
type Register struct {
	Name  string
	Entry Entry
}
