package repository

import (
	"context"
	"fmt"
	"io"
	"log"

	"regstore/internal/domain"
)

// Repository applies register business rules on top of a Storage.
// It holds no locks; concurrent use relies on the backend's own isolation.
type Repository struct {
	storage Storage
	policy  domain.NumericPolicy
	log     *log.Logger
}

// Option configures a Repository
type Option func(*Repository)

// WithLogger sets the logger used for debug output
func WithLogger(l *log.Logger) Option {
	return func(r *Repository) {
		if l != nil {
			r.log = l
		}
	}
}

// WithNumericPolicy sets how numbers are narrowed during conversion
func WithNumericPolicy(p domain.NumericPolicy) Option {
	return func(r *Repository) {
		if p != nil {
			r.policy = p
		}
	}
}

// New creates a repository over the given backend. The persistence flag is
// inherited from it.
func New(storage Storage, opts ...Option) *Repository {
	r := &Repository{
		storage: storage,
		policy:  domain.DefaultPolicy,
		log:     log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Persistent reports whether the backend survives restarts
func (r *Repository) Persistent() bool {
	return r.storage.Persistent()
}

// Close releases the backend
func (r *Repository) Close() error {
	return r.storage.Close()
}

// Keys returns all register names in lexicographic order
func (r *Repository) Keys(ctx context.Context) ([]string, error) {
	return r.storage.Names(ctx)
}

// Len returns the number of registers
func (r *Repository) Len(ctx context.Context) (int, error) {
	return r.storage.Count(ctx)
}

// NameAt returns the name at index in the sorted order, false if out of range
func (r *Repository) NameAt(ctx context.Context, index int) (string, bool, error) {
	return r.storage.NameAt(ctx, index)
}

// Get returns the register entry, or nil if it does not exist
func (r *Repository) Get(ctx context.Context, name string) (*domain.Entry, error) {
	return r.storage.Get(ctx, name)
}

// Lookup is like Get but fails with MissingRegisterError for absent registers
func (r *Repository) Lookup(ctx context.Context, name string) (domain.Entry, error) {
	e, err := r.storage.Get(ctx, name)
	if err != nil {
		return domain.Entry{}, err
	}
	if e == nil {
		return domain.Entry{}, &MissingRegisterError{Name: name}
	}
	return *e, nil
}

// Set overwrites an existing register if the candidate converts to its type.
// The mutability flag is ignored and preserved.
func (r *Repository) Set(ctx context.Context, name string, candidate any) error {
	e, err := r.storage.Get(ctx, name)
	if err != nil {
		return err
	}
	if e == nil {
		return &MissingRegisterError{Name: name}
	}
	return r.assign(ctx, name, *e, candidate)
}

func (r *Repository) assign(ctx context.Context, name string, e domain.Entry, candidate any) error {
	converted, ok := domain.ConvertWith(r.policy, e.Value, candidate)
	if !ok {
		return &ConflictError{Name: name, Existing: e.Value, Candidate: candidate}
	}
	return r.storage.Set(ctx, name, domain.Entry{Value: converted, Mutable: e.Mutable})
}

// Create binds a new register to the value's kind, shape and the given
// mutability. If the register already exists it behaves like Set and the
// mutability argument is ignored.
func (r *Repository) Create(ctx context.Context, name string, value domain.Value, mutable bool) error {
	e, err := r.storage.Get(ctx, name)
	if err != nil {
		return err
	}
	if e != nil {
		return r.assign(ctx, name, *e, value)
	}

	if err := validateName(name); err != nil {
		return err
	}
	if err := value.Validate(); err != nil {
		return fmt.Errorf("register %q: %w", name, err)
	}
	r.log.Printf("Creating register %q = %v (mutable=%t)", name, value, mutable)
	return r.storage.Set(ctx, name, domain.Entry{Value: value, Mutable: mutable})
}

// Access performs the read-or-conditional-write transaction of the remote
// register access service. Missing registers yield an empty immutable entry
// and nothing is stored. A mutable register is overwritten when the
// candidate converts to its type; otherwise the stored entry is returned
// unchanged. An empty candidate is therefore a pure read.
//
// The read and the write are separate backend calls. A concurrent writer
// can interleave between them and its update may be lost.
//
// Only storage failures are returned as errors.
func (r *Repository) Access(ctx context.Context, name string, candidate any) (domain.Entry, error) {
	e, err := r.storage.Get(ctx, name)
	if err != nil {
		return domain.Entry{}, err
	}
	if e == nil {
		return domain.Entry{Value: domain.Empty(), Mutable: false}, nil
	}
	if !e.Mutable {
		return *e, nil
	}

	converted, ok := domain.ConvertWith(r.policy, e.Value, candidate)
	if !ok {
		return *e, nil
	}
	updated := domain.Entry{Value: converted, Mutable: e.Mutable}
	if err := r.storage.Set(ctx, name, updated); err != nil {
		return domain.Entry{}, err
	}
	// No point querying the storage again
	return updated, nil
}

// Delete removes every register whose name matches the case-sensitive shell
// wildcard (*, ?, [...], [!...]). All other characters, including braces and
// backslashes, match themselves. Matching nothing is not an error.
func (r *Repository) Delete(ctx context.Context, wildcard string) error {
	g, err := compileWildcard(wildcard)
	if err != nil {
		return fmt.Errorf("%q: %w", wildcard, ErrInvalidPattern)
	}

	keys, err := r.storage.Names(ctx)
	if err != nil {
		return err
	}
	var names []string
	for _, k := range keys {
		if g.Match(k) {
			names = append(names, k)
		}
	}

	r.log.Printf("Deleting %d registers matching %q: %v", len(names), wildcard, names)
	if len(names) == 0 {
		return nil
	}
	return r.storage.Delete(ctx, names)
}

// Each calls fn for every register in name order. Registers removed between
// listing and reading are skipped.
func (r *Repository) Each(ctx context.Context, fn func(name string, e domain.Entry) error) error {
	keys, err := r.storage.Names(ctx)
	if err != nil {
		return err
	}
	for _, k := range keys {
		e, err := r.storage.Get(ctx, k)
		if err != nil {
			return err
		}
		if e == nil {
			continue
		}
		if err := fn(k, *e); err != nil {
			return err
		}
	}
	return nil
}

// Snapshot returns all registers in name order
func (r *Repository) Snapshot(ctx context.Context) ([]domain.Register, error) {
	var regs []domain.Register
	err := r.Each(ctx, func(name string, e domain.Entry) error {
		regs = append(regs, domain.Register{Name: name, Entry: e})
		return nil
	})
	return regs, err
}

// Import creates every register in order. Existing registers are assigned
// as by Create; the first failure stops the import.
func (r *Repository) Import(ctx context.Context, regs []domain.Register) error {
	for _, reg := range regs {
		if err := r.Create(ctx, reg.Name, reg.Entry.Value, reg.Entry.Mutable); err != nil {
			return fmt.Errorf("import %q: %w", reg.Name, err)
		}
	}
	return nil
}

func (r *Repository) String() string {
	return fmt.Sprintf("Repository(%v, persistent=%t, policy=%s)", r.storage, r.storage.Persistent(), r.policy.Name())
}
