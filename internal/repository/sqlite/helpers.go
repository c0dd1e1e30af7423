package sqlite

import (
	"fmt"

	"regstore/internal/codec"
	"regstore/internal/domain"
)

// ============================================================================
// Register Row Scanner
// ============================================================================
//
// CRITICAL: Column order must match between:
// - registerColumns constant
// - scanArgs() return slice
//
// The ts column is informational and never read.

// registerRow holds the columns read for a register
type registerRow struct {
	Mutable bool
	Blob    []byte
}

// scanArgs returns pointers to all fields for sql.Scan()
// MUST match registerColumns order exactly: mutable, value
func (r *registerRow) scanArgs() []interface{} {
	return []interface{}{
		&r.Mutable, // 1
		&r.Blob,    // 2
	}
}

// toDomain decodes the scanned row into an entry
func (r *registerRow) toDomain() (*domain.Entry, error) {
	v, err := codec.UnmarshalValue(r.Blob)
	if err != nil {
		return nil, err
	}
	return &domain.Entry{Value: v, Mutable: r.Mutable}, nil
}

// registerColumns returns the SELECT column list for register queries
const registerColumns = `mutable, value`

// ============================================================================
// Register Write Helpers
// ============================================================================

// registerInsertArgs prepares arguments for the register UPSERT
// Returns: name, mutable, value
func registerInsertArgs(name string, e domain.Entry) ([]interface{}, error) {
	blob, err := codec.MarshalValue(e.Value)
	if err != nil {
		return nil, fmt.Errorf("serialize %q: %w", name, err)
	}

	return []interface{}{
		name,
		e.Mutable,
		blob,
	}, nil
}
