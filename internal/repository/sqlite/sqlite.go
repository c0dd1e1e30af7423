package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"regstore/internal/domain"
	"regstore/internal/repository"

	_ "modernc.org/sqlite"
)

// LocationVolatile selects an in-memory database
const LocationVolatile = ":memory:"

// DefaultTimeout bounds how long an operation waits for a locked database
const DefaultTimeout = 500 * time.Millisecond

// maxBatch keeps DELETE statements under the SQLite bound-variable limit
const maxBatch = 999

var _ repository.Storage = (*Storage)(nil)

// Storage implements repository.Storage using SQLite. It stores either a
// single persistent file or a volatile in-memory database.
type Storage struct {
	db       *sql.DB
	location string
	log      *log.Logger
}

// Option configures a Storage
type Option func(*options)

type options struct {
	timeout time.Duration
	logger  *log.Logger
}

// WithTimeout sets the busy timeout for locked databases
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithLogger sets the logger used for debug and warning output
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// New opens the storage at location. An empty location or ":memory:"
// selects volatile mode; anything else is a database file path. The schema
// is created if absent; existing rows are read lazily.
func New(location string, opts ...Option) (*Storage, error) {
	o := options{timeout: DefaultTimeout, logger: log.New(io.Discard, "", 0)}
	for _, opt := range opts {
		opt(&o)
	}

	loc := strings.TrimSpace(location)
	if loc == "" {
		loc = LocationVolatile
	}

	db, err := sql.Open("sqlite", loc)
	if err != nil {
		return nil, repository.NewStorageError("open", fmt.Errorf("failed to open database: %w", err))
	}
	// One connection: an in-memory database exists per connection, and the
	// store is single-writer anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Storage{db: db, location: loc, log: o.logger}
	if err := s.migrate(o.timeout); err != nil {
		db.Close()
		return nil, repository.NewStorageError("open", fmt.Errorf("failed to migrate database: %w", err))
	}

	s.log.Printf("%v: opened", s)
	return s, nil
}

func (s *Storage) migrate(timeout time.Duration) error {
	if _, err := s.db.Exec(fmt.Sprintf(`PRAGMA busy_timeout = %d`, timeout.Milliseconds())); err != nil {
		return err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS register (
		name VARCHAR(255) NOT NULL UNIQUE PRIMARY KEY,
		mutable BOOLEAN NOT NULL,
		value BLOB NOT NULL,
		ts DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Location returns the database location as given to New
func (s *Storage) Location() string {
	return s.location
}

// Persistent reports whether the database lives in a file
func (s *Storage) Persistent() bool {
	return strings.ToLower(s.location) != LocationVolatile
}

// Count returns the number of registers
func (s *Storage) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM register`).Scan(&n); err != nil {
		return 0, repository.NewStorageError("count", fmt.Errorf("failed to count registers: %w", err))
	}
	return n, nil
}

// Names returns all register names in lexicographic order
func (s *Storage) Names(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM register ORDER BY name`)
	if err != nil {
		return nil, repository.NewStorageError("names", fmt.Errorf("failed to query names: %w", err))
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, repository.NewStorageError("names", fmt.Errorf("failed to scan name: %w", err))
		}
		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, repository.NewStorageError("names", fmt.Errorf("error iterating names: %w", err))
	}
	return names, nil
}

// NameAt returns the name at index in lexicographic order
func (s *Storage) NameAt(ctx context.Context, index int) (string, bool, error) {
	if index < 0 {
		return "", false, nil
	}

	var name string
	err := s.db.QueryRowContext(ctx, `
		SELECT name FROM register ORDER BY name LIMIT 1 OFFSET ?
	`, index).Scan(&name)

	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, repository.NewStorageError("name at index", fmt.Errorf("failed to query name %d: %w", index, err))
	}
	return name, true, nil
}

// Get retrieves a single register. A stored value that cannot be decoded
// is logged and reported as a StorageError wrapping codec.ErrMalformed.
func (s *Storage) Get(ctx context.Context, name string) (*domain.Entry, error) {
	var row registerRow
	err := s.db.QueryRowContext(ctx, `
		SELECT `+registerColumns+` FROM register WHERE name = ?
	`, name).Scan(row.scanArgs()...)

	if err == sql.ErrNoRows {
		s.log.Printf("%v: get %q -> (nothing)", s, name)
		return nil, nil
	}
	if err != nil {
		return nil, repository.NewStorageError("get", fmt.Errorf("failed to query register %q: %w", name, err))
	}

	e, err := row.toDomain()
	if err != nil {
		s.log.Printf("%v: WARNING value of %q is not a valid serialization: %x", s, name, row.Blob)
		return nil, repository.NewStorageError("get", fmt.Errorf("register %q: %w", name, err))
	}

	s.log.Printf("%v: get %q -> %v", s, name, e)
	return e, nil
}

// Set inserts or replaces a register in one statement
func (s *Storage) Set(ctx context.Context, name string, e domain.Entry) error {
	args, err := registerInsertArgs(name, e)
	if err != nil {
		return repository.NewStorageError("set", err)
	}

	s.log.Printf("%v: set %q <- %v", s, name, e)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO register (name, mutable, value)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			mutable = excluded.mutable,
			value = excluded.value,
			ts = CURRENT_TIMESTAMP
	`, args...)

	if err != nil {
		return repository.NewStorageError("set", fmt.Errorf("failed to upsert register %q: %w", name, err))
	}
	return nil
}

// Delete removes the named registers in a single transaction. Any failure
// rolls back the whole batch.
func (s *Storage) Delete(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}
	s.log.Printf("%v: delete %v", s, names)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return repository.NewStorageError("delete", fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback()

	for start := 0; start < len(names); start += maxBatch {
		batch := names[start:min(start+maxBatch, len(names))]
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(batch)), ", ")
		args := make([]any, len(batch))
		for i, n := range batch {
			args[i] = n
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM register WHERE name IN (`+placeholders+`)`, args...); err != nil {
			return repository.NewStorageError("delete", fmt.Errorf("could not delete %d registers: %w", len(names), err))
		}
	}

	if err := tx.Commit(); err != nil {
		return repository.NewStorageError("delete", fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	s.log.Printf("%v: closing", s)
	if err := s.db.Close(); err != nil {
		return repository.NewStorageError("close", err)
	}
	return nil
}

func (s *Storage) String() string {
	return fmt.Sprintf("sqlite(%s)", s.location)
}
