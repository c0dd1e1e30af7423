// Package memory provides a volatile map-backed register storage.
package memory

import (
	"context"
	"sort"
	"sync"

	"regstore/internal/domain"
	"regstore/internal/repository"
)

var _ repository.Storage = (*Storage)(nil)

// Storage keeps registers in a map for the lifetime of the process
type Storage struct {
	mu      sync.RWMutex
	entries map[string]domain.Entry
	closed  bool
}

// New creates an empty volatile storage
func New() *Storage {
	return &Storage{entries: make(map[string]domain.Entry)}
}

// Persistent is always false
func (s *Storage) Persistent() bool { return false }

func (s *Storage) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.check("count"); err != nil {
		return 0, err
	}
	return len(s.entries), nil
}

func (s *Storage) Names(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.check("names"); err != nil {
		return nil, err
	}
	return s.sortedNames(), nil
}

func (s *Storage) NameAt(ctx context.Context, index int) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.check("name at index"); err != nil {
		return "", false, err
	}
	names := s.sortedNames()
	if index < 0 || index >= len(names) {
		return "", false, nil
	}
	return names[index], true, nil
}

func (s *Storage) Get(ctx context.Context, name string) (*domain.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.check("get"); err != nil {
		return nil, err
	}
	e, ok := s.entries[name]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (s *Storage) Set(ctx context.Context, name string, e domain.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check("set"); err != nil {
		return err
	}
	s.entries[name] = e
	return nil
}

func (s *Storage) Delete(ctx context.Context, names []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check("delete"); err != nil {
		return err
	}
	for _, n := range names {
		delete(s.entries, n)
	}
	return nil
}

func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check("close"); err != nil {
		return err
	}
	s.closed = true
	s.entries = nil
	return nil
}

func (s *Storage) String() string { return "memory" }

func (s *Storage) check(op string) error {
	if s.closed {
		return repository.NewStorageError(op, repository.ErrClosed)
	}
	return nil
}

func (s *Storage) sortedNames() []string {
	names := make([]string, 0, len(s.entries))
	for n := range s.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
