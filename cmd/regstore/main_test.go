package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regstore/internal/repository"
)

// regstore runs one command against db and returns its stdout
func regstore(t *testing.T, db string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("REGSTORE_CONFIG", filepath.Join(t.TempDir(), "none.yaml"))
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), append([]string{"-db", db}, args...), &stdout, &stderr)
	return stdout.String(), err
}

func TestCommands(t *testing.T) {
	db := filepath.Join(t.TempDir(), "registers.db")

	_, err := regstore(t, db, "create", "uavcan.node.id", "natural16", "42")
	require.NoError(t, err)
	_, err = regstore(t, db, "create", "-immutable", "uavcan.node.description", "string", "demo node")
	require.NoError(t, err)
	_, err = regstore(t, db, "create", "app.flags", "bit", "[true, false]")
	require.NoError(t, err)

	out, err := regstore(t, db, "get", "uavcan.node.id")
	require.NoError(t, err)
	assert.Equal(t, "natural16[42] (mutable)\n", out)

	_, err = regstore(t, db, "set", "uavcan.node.id", "[7]")
	require.NoError(t, err)
	out, err = regstore(t, db, "access", "uavcan.node.id")
	require.NoError(t, err)
	assert.Equal(t, "natural16[7] (mutable)\n", out)

	// Immutable registers are returned unchanged
	out, err = regstore(t, db, "access", "uavcan.node.description", "other")
	require.NoError(t, err)
	assert.Contains(t, out, "demo node")

	out, err = regstore(t, db, "list")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "app.flags\t"))

	_, err = regstore(t, db, "delete", "uavcan.*")
	require.NoError(t, err)
	out, err = regstore(t, db, "list")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "\n"))
}

func TestGetMissing(t *testing.T) {
	_, err := regstore(t, ":memory:", "get", "nope")
	assert.ErrorIs(t, err, repository.ErrMissingRegister)
}

func TestSetConflict(t *testing.T) {
	db := filepath.Join(t.TempDir(), "registers.db")
	_, err := regstore(t, db, "create", "a", "natural8", "[1, 2]")
	require.NoError(t, err)

	_, err = regstore(t, db, "set", "a", "[1]")
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestExportImport(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.db")
	_, err := regstore(t, src, "create", "motor.pid", "real64", "[0.5, 2]")
	require.NoError(t, err)
	_, err = regstore(t, src, "create", "motor.blob", "unstructured", "3q0=")
	require.NoError(t, err)

	for _, format := range []string{"yaml", "json"} {
		t.Run(format, func(t *testing.T) {
			doc, err := regstore(t, src, "export", "-format", format)
			require.NoError(t, err)

			path := filepath.Join(t.TempDir(), "registers."+format)
			require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

			dst := filepath.Join(t.TempDir(), "dst.db")
			out, err := regstore(t, dst, "import", path)
			require.NoError(t, err)
			assert.Equal(t, "imported 2 registers\n", out)

			out, err = regstore(t, dst, "get", "motor.blob")
			require.NoError(t, err)
			assert.Equal(t, "unstructured(dead) (mutable)\n", out)
		})
	}
}

func TestUsageErrors(t *testing.T) {
	_, err := regstore(t, ":memory:")
	assert.True(t, errors.Is(err, flag.ErrHelp))

	tests := [][]string{
		{"frobnicate"},
		{"get"},
		{"create", "a", "integer128", "1"},
		{"create", "a", "natural8", "[300]"},
		{"create", "a", "unstructured", "!!"},
		{"export", "-format", "xml"},
		{"set", "a", "[1"},
	}
	for _, args := range tests {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			_, err := regstore(t, ":memory:", args...)
			assert.Error(t, err)
		})
	}
}
