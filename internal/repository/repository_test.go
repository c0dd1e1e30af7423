package repository_test

import (
	"bytes"
	"context"
	"errors"
	"log"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regstore/internal/domain"
	"regstore/internal/repository"
	"regstore/internal/repository/memory"
	"regstore/internal/repository/sqlite"
)

// backends runs fn against every storage implementation
func backends(t *testing.T, fn func(t *testing.T, r *repository.Repository)) {
	t.Helper()

	t.Run("memory", func(t *testing.T) {
		r := repository.New(memory.New())
		t.Cleanup(func() { r.Close() })
		fn(t, r)
	})

	t.Run("sqlite", func(t *testing.T) {
		s, err := sqlite.New(sqlite.LocationVolatile)
		require.NoError(t, err)
		r := repository.New(s)
		t.Cleanup(func() { r.Close() })
		fn(t, r)
	})
}

func TestPersistentFlag(t *testing.T) {
	r := repository.New(memory.New())
	defer r.Close()
	assert.False(t, r.Persistent())

	s, err := sqlite.New(filepath.Join(t.TempDir(), "reg.db"))
	require.NoError(t, err)
	rs := repository.New(s)
	defer rs.Close()
	assert.True(t, rs.Persistent())
}

func TestCreateAndGet(t *testing.T) {
	backends(t, func(t *testing.T, r *repository.Repository) {
		ctx := context.Background()

		e, err := r.Get(ctx, "foo")
		require.NoError(t, err)
		assert.Nil(t, e)

		require.NoError(t, r.Create(ctx, "foo", domain.Bits(true, false), true))
		require.NoError(t, r.Create(ctx, "bar", domain.String("x"), false))

		e, err = r.Get(ctx, "foo")
		require.NoError(t, err)
		require.NotNil(t, e)
		assert.True(t, e.Equal(domain.Entry{Value: domain.Bits(true, false), Mutable: true}))

		e, err = r.Get(ctx, "bar")
		require.NoError(t, err)
		require.NotNil(t, e)
		assert.True(t, e.Equal(domain.Entry{Value: domain.String("x"), Mutable: false}))
	})
}

func TestCreateExistingBehavesLikeSet(t *testing.T) {
	backends(t, func(t *testing.T, r *repository.Repository) {
		ctx := context.Background()
		require.NoError(t, r.Create(ctx, "foo", domain.Natural16(1), false))

		// Mutability argument is ignored for existing registers
		require.NoError(t, r.Create(ctx, "foo", domain.Natural16(2), true))
		e, err := r.Lookup(ctx, "foo")
		require.NoError(t, err)
		assert.True(t, e.Equal(domain.Entry{Value: domain.Natural16(2), Mutable: false}))

		err = r.Create(ctx, "foo", domain.String("nope"), true)
		assert.ErrorIs(t, err, repository.ErrConflict)

		e, err = r.Lookup(ctx, "foo")
		require.NoError(t, err)
		assert.True(t, e.Value.Equal(domain.Natural16(2)))
	})
}

func TestCreateValidation(t *testing.T) {
	backends(t, func(t *testing.T, r *repository.Repository) {
		ctx := context.Background()

		assert.ErrorIs(t, r.Create(ctx, "", domain.Bits(true), true), repository.ErrInvalidName)
		assert.ErrorIs(t, r.Create(ctx, strings.Repeat("n", 256), domain.Bits(true), true), repository.ErrInvalidName)
		assert.ErrorIs(t, r.Create(ctx, "big", domain.Natural64(make([]uint64, 33)...), true), domain.ErrCapacity)

		n, err := r.Len(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})
}

func TestSet(t *testing.T) {
	backends(t, func(t *testing.T, r *repository.Repository) {
		ctx := context.Background()

		err := r.Set(ctx, "foo", true)
		var missing *repository.MissingRegisterError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, "foo", missing.Name)
		assert.ErrorIs(t, err, repository.ErrMissingRegister)

		n, err := r.Len(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		require.NoError(t, r.Create(ctx, "foo", domain.Bits(true), false))
		require.NoError(t, r.Set(ctx, "foo", false))

		e, err := r.Lookup(ctx, "foo")
		require.NoError(t, err)
		assert.True(t, e.Equal(domain.Entry{Value: domain.Bits(false), Mutable: false}))

		// Wrong dimensionality
		err = r.Set(ctx, "foo", []bool{true, false})
		var conflict *repository.ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.ErrorIs(t, err, repository.ErrConflict)

		e, err = r.Lookup(ctx, "foo")
		require.NoError(t, err)
		assert.True(t, e.Value.Equal(domain.Bits(false)))
	})
}

func TestLookupMissing(t *testing.T) {
	backends(t, func(t *testing.T, r *repository.Repository) {
		_, err := r.Lookup(context.Background(), "foo")
		assert.ErrorIs(t, err, repository.ErrMissingRegister)
	})
}

func TestAccess(t *testing.T) {
	backends(t, func(t *testing.T, r *repository.Repository) {
		ctx := context.Background()

		// No such register
		e, err := r.Access(ctx, "foo", domain.Empty())
		require.NoError(t, err)
		assert.True(t, e.Value.IsEmpty())
		assert.False(t, e.Mutable)

		n, err := r.Len(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		require.NoError(t, r.Create(ctx, "foo", domain.Bits(true), true))

		// Read access
		e, err = r.Access(ctx, "foo", domain.Empty())
		require.NoError(t, err)
		assert.True(t, e.Value.Equal(domain.Bits(true)))

		// Write access
		e, err = r.Access(ctx, "foo", domain.Bits(false))
		require.NoError(t, err)
		assert.True(t, e.Value.Equal(domain.Bits(false)))
		stored, err := r.Lookup(ctx, "foo")
		require.NoError(t, err)
		assert.True(t, stored.Value.Equal(domain.Bits(false)))

		// Wrong length returns the prior value
		e, err = r.Access(ctx, "foo", []bool{true, false})
		require.NoError(t, err)
		assert.True(t, e.Value.Equal(domain.Bits(false)))
		assert.True(t, e.Mutable)
	})
}

func TestAccessImmutable(t *testing.T) {
	backends(t, func(t *testing.T, r *repository.Repository) {
		ctx := context.Background()
		require.NoError(t, r.Create(ctx, "ro", domain.Integer32(7), false))

		for _, candidate := range []any{domain.Integer32(8), 9, "bad", nil} {
			e, err := r.Access(ctx, "ro", candidate)
			require.NoError(t, err)
			assert.True(t, e.Equal(domain.Entry{Value: domain.Integer32(7), Mutable: false}), "candidate %v", candidate)
		}

		stored, err := r.Lookup(ctx, "ro")
		require.NoError(t, err)
		assert.True(t, stored.Value.Equal(domain.Integer32(7)))
	})
}

func TestDelete(t *testing.T) {
	backends(t, func(t *testing.T, r *repository.Repository) {
		ctx := context.Background()
		for _, name := range []string{"foo.bar", "foo.baz", "zoo.bar", "Foo.qux", "foo"} {
			require.NoError(t, r.Create(ctx, name, domain.Empty(), true))
		}

		require.NoError(t, r.Delete(ctx, "foo.*"))
		keys, err := r.Keys(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"Foo.qux", "foo", "zoo.bar"}, keys)

		// Matching nothing is a no-op
		require.NoError(t, r.Delete(ctx, "nothing.*"))
		keys, err = r.Keys(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"Foo.qux", "foo", "zoo.bar"}, keys)

		require.NoError(t, r.Delete(ctx, "[!F]oo"))
		keys, err = r.Keys(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"Foo.qux", "zoo.bar"}, keys)

		require.NoError(t, r.Delete(ctx, "?oo.*"))
		keys, err = r.Keys(ctx)
		require.NoError(t, err)
		assert.Empty(t, keys)
	})
}

func TestDeleteLiteralCharacters(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		names   []string
		left    []string
	}{
		{
			name:    "braces are literal",
			pattern: "node.{id,name}",
			names:   []string{"node.id", "node.name", "node.{id,name}"},
			left:    []string{"node.id", "node.name"},
		},
		{
			name:    "backslash is literal",
			pattern: `a\b`,
			names:   []string{"ab", `a\b`},
			left:    []string{"ab"},
		},
		{
			name:    "unclosed bracket is literal",
			pattern: "x[",
			names:   []string{"x", "x["},
			left:    []string{"x"},
		},
		{
			name:    "leading close bracket in class",
			pattern: "[]]",
			names:   []string{"]", "a"},
			left:    []string{"a"},
		},
		{
			name:    "negated empty-looking class is literal",
			pattern: "[!]",
			names:   []string{"[!]", "a"},
			left:    []string{"a"},
		},
		{
			name:    "range and single in one class",
			pattern: "r[a-c_]",
			names:   []string{"ra", "rc", "r_", "rd"},
			left:    []string{"rd"},
		},
		{
			name:    "negated mixed class",
			pattern: "r[!a-c_]",
			names:   []string{"ra", "r_", "rd", "r-"},
			left:    []string{"r_", "ra"},
		},
		{
			name:    "hyphen at class end",
			pattern: "r[x-]",
			names:   []string{"rx", "r-", "ry"},
			left:    []string{"ry"},
		},
		{
			name:    "reversed range matches nothing",
			pattern: "r[z-a]",
			names:   []string{"ra", "rz"},
			left:    []string{"ra", "rz"},
		},
		{
			name:    "question mark and star",
			pattern: "a?*",
			names:   []string{"a", "ab", "abc"},
			left:    []string{"a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backends(t, func(t *testing.T, r *repository.Repository) {
				ctx := context.Background()
				for _, name := range tt.names {
					require.NoError(t, r.Create(ctx, name, domain.Bits(true), true))
				}

				require.NoError(t, r.Delete(ctx, tt.pattern))
				keys, err := r.Keys(ctx)
				require.NoError(t, err)
				assert.Equal(t, tt.left, keys)
			})
		})
	}
}

func TestKeysSorted(t *testing.T) {
	backends(t, func(t *testing.T, r *repository.Repository) {
		ctx := context.Background()
		require.NoError(t, r.Create(ctx, "b", domain.Empty(), true))
		require.NoError(t, r.Create(ctx, "a", domain.Empty(), true))
		require.NoError(t, r.Create(ctx, "c.a", domain.Empty(), true))

		keys, err := r.Keys(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c.a"}, keys)

		n, err := r.Len(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		name, ok, err := r.NameAt(ctx, 0)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "a", name)

		_, ok, err = r.NameAt(ctx, 3)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestSnapshotAndImport(t *testing.T) {
	backends(t, func(t *testing.T, r *repository.Repository) {
		ctx := context.Background()
		regs := []domain.Register{
			{Name: "uavcan.node.id", Entry: domain.Entry{Value: domain.Natural16(42), Mutable: true}},
			{Name: "uavcan.node.description", Entry: domain.Entry{Value: domain.String("demo"), Mutable: false}},
		}
		require.NoError(t, r.Import(ctx, regs))

		snap, err := r.Snapshot(ctx)
		require.NoError(t, err)
		require.Len(t, snap, 2)
		assert.Equal(t, "uavcan.node.description", snap[0].Name)
		assert.True(t, snap[0].Entry.Equal(regs[1].Entry))
		assert.Equal(t, "uavcan.node.id", snap[1].Name)
		assert.True(t, snap[1].Entry.Equal(regs[0].Entry))

		err = r.Import(ctx, []domain.Register{{Name: "uavcan.node.id", Entry: domain.Entry{Value: domain.String("x")}}})
		assert.ErrorIs(t, err, repository.ErrConflict)
	})
}

func TestImportTwice(t *testing.T) {
	backends(t, func(t *testing.T, r *repository.Repository) {
		ctx := context.Background()
		first := []domain.Register{
			{Name: "a.placeholder", Entry: domain.Entry{Value: domain.Empty(), Mutable: false}},
			{Name: "b.value", Entry: domain.Entry{Value: domain.Natural16(1), Mutable: true}},
		}
		require.NoError(t, r.Import(ctx, first))

		// Existing empty registers accept an empty value again
		second := []domain.Register{
			{Name: "a.placeholder", Entry: domain.Entry{Value: domain.Empty(), Mutable: false}},
			{Name: "b.value", Entry: domain.Entry{Value: domain.Natural16(2), Mutable: true}},
		}
		require.NoError(t, r.Import(ctx, second))

		e, err := r.Lookup(ctx, "a.placeholder")
		require.NoError(t, err)
		assert.True(t, e.Value.IsEmpty())

		e, err = r.Lookup(ctx, "b.value")
		require.NoError(t, err)
		assert.True(t, e.Value.Equal(domain.Natural16(2)), "got %s", e.Value)

		// An empty value still does not overwrite a typed register
		err = r.Create(ctx, "b.value", domain.Empty(), true)
		assert.ErrorIs(t, err, repository.ErrConflict)
	})
}

func TestEachStopsOnError(t *testing.T) {
	backends(t, func(t *testing.T, r *repository.Repository) {
		ctx := context.Background()
		require.NoError(t, r.Create(ctx, "a", domain.Empty(), true))
		require.NoError(t, r.Create(ctx, "b", domain.Empty(), true))

		stop := errors.New("stop")
		var seen []string
		err := r.Each(ctx, func(name string, e domain.Entry) error {
			seen = append(seen, name)
			return stop
		})
		assert.ErrorIs(t, err, stop)
		assert.Equal(t, []string{"a"}, seen)
	})
}

func TestNumericPolicyOption(t *testing.T) {
	ctx := context.Background()
	r := repository.New(memory.New(), repository.WithNumericPolicy(domain.Saturate))
	defer r.Close()

	require.NoError(t, r.Create(ctx, "level", domain.Natural8(0), true))
	require.NoError(t, r.Set(ctx, "level", 1000))

	e, err := r.Lookup(ctx, "level")
	require.NoError(t, err)
	assert.True(t, e.Value.Equal(domain.Natural8(255)))

	strict := repository.New(memory.New())
	defer strict.Close()
	require.NoError(t, strict.Create(ctx, "level", domain.Natural8(0), true))
	assert.ErrorIs(t, strict.Set(ctx, "level", 1000), repository.ErrConflict)
}

func TestPersistentRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "registers.db")

	regs := map[string]domain.Entry{
		"a.bits":  {Value: domain.Bits(true, false, true), Mutable: true},
		"a.int":   {Value: domain.Integer16(-300, 300), Mutable: false},
		"a.real":  {Value: domain.Real32(0.25), Mutable: true},
		"a.text":  {Value: domain.String("hello"), Mutable: false},
		"a.blob":  {Value: domain.Unstructured([]byte{9, 8, 7}), Mutable: true},
		"a.empty": {Value: domain.Empty(), Mutable: false},
	}

	s, err := sqlite.New(path)
	require.NoError(t, err)
	r := repository.New(s)
	for name, e := range regs {
		require.NoError(t, r.Create(ctx, name, e.Value, e.Mutable))
	}
	require.NoError(t, r.Close())

	s, err = sqlite.New(path)
	require.NoError(t, err)
	r = repository.New(s)
	defer r.Close()

	n, err := r.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(regs), n)
	for name, want := range regs {
		got, err := r.Lookup(ctx, name)
		require.NoError(t, err)
		assert.True(t, want.Equal(got), "%s: want %v, got %v", name, want, got)
	}
}

func TestStorageErrorsSurface(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	r := repository.New(st)
	require.NoError(t, r.Close())

	_, err := r.Access(ctx, "foo", domain.Empty())
	assert.ErrorIs(t, err, repository.ErrStorage)
	assert.ErrorIs(t, err, repository.ErrClosed)

	assert.ErrorIs(t, r.Set(ctx, "foo", 1), repository.ErrStorage)
	assert.ErrorIs(t, r.Delete(ctx, "*"), repository.ErrStorage)
}

func TestLoggerOption(t *testing.T) {
	var buf bytes.Buffer
	r := repository.New(memory.New(), repository.WithLogger(log.New(&buf, "", 0)))
	defer r.Close()

	require.NoError(t, r.Create(context.Background(), "foo", domain.Bits(true), true))
	require.NoError(t, r.Delete(context.Background(), "f*"))
	assert.Contains(t, buf.String(), `Deleting 1 registers matching "f*"`)
	assert.Contains(t, r.String(), "persistent=false")
}
