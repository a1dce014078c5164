package depdb

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInsertAndGet(t *testing.T) {
	db := New()
	db.Insert("main.o", "main.c")
	db.Insert("main.o", "util.h")
	require.Equal(t, []string{"main.c", "util.h"}, db.Get("main.o"))
}

func TestReset(t *testing.T) {
	db := New()
	db.Insert("main.o", "stale.h")
	db.Reset("main.o", []string{"main.c"})
	require.Equal(t, []string{"main.c"}, db.Get("main.o"))
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	db, err := Load(filepath.Join(t.TempDir(), "nope.remake"))
	require.NoError(t, err)
	require.Empty(t, db.Targets())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".remake")

	db := New()
	db.Insert("main.o", "main.c")
	db.Insert("main.o", "a header.h")
	db.Insert("has space target", "dep$with!special\\chars")
	require.NoError(t, db.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, db.Get("main.o"), loaded.Get("main.o"))
	require.Equal(t, db.Get("has space target"), loaded.Get("has space target"))
}

func TestSaveOmitsEmptyTargets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".remake")

	db := New()
	db.Reset("empty", nil)
	db.Insert("nonempty", "x")
	require.NoError(t, db.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Empty(t, loaded.Get("empty"))
	require.Equal(t, []string{"x"}, loaded.Get("nonempty"))
}

func TestLoadMalformedFileErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".remake")
	require.NoError(t, os.WriteFile(path, []byte("target without colon\n"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
}
