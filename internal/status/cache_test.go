package status

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mattjoyce/remake/internal/depdb"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string, at time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	require.NoError(t, os.Chtimes(path, at, at))
}

func TestEvaluateMissingFileIsTodo(t *testing.T) {
	dir := t.TempDir()
	c := New(depdb.New())
	require.Equal(t, Todo, c.Evaluate(filepath.Join(dir, "missing")))
}

func TestEvaluateNoDepsIsUptodate(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "f")
	touch(t, f, time.Now())
	c := New(depdb.New())
	require.Equal(t, Uptodate, c.Evaluate(f))
}

func TestEvaluateStaleDependencyPropagates(t *testing.T) {
	dir := t.TempDir()
	older := filepath.Join(dir, "target")
	newer := filepath.Join(dir, "dep")

	touch(t, older, time.Now().Add(-time.Hour))
	touch(t, newer, time.Now())

	db := depdb.New()
	db.Insert(older, newer)
	c := New(db)
	require.Equal(t, Todo, c.Evaluate(older))
}

func TestEvaluateFreshDependencyIsUptodate(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target")
	dep := filepath.Join(dir, "dep")

	touch(t, dep, time.Now().Add(-time.Hour))
	touch(t, target, time.Now())

	db := depdb.New()
	db.Insert(target, dep)
	c := New(db)
	require.Equal(t, Uptodate, c.Evaluate(target))
}

func TestEvaluateMissingDependencyMakesTargetTodo(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target")
	touch(t, target, time.Now())

	db := depdb.New()
	db.Insert(target, filepath.Join(dir, "missing-dep"))
	c := New(db)
	require.Equal(t, Todo, c.Evaluate(target))
}

func TestEvaluateIsMemoized(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "f")
	touch(t, f, time.Now())
	c := New(depdb.New())
	require.Equal(t, Uptodate, c.Evaluate(f))

	require.NoError(t, os.Remove(f))
	// Second call must return the memoized result, not re-stat.
	require.Equal(t, Uptodate, c.Evaluate(f))
}

func TestEvaluateCycleBreaksRatherThanLoops(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	touch(t, a, time.Now())
	touch(t, b, time.Now())

	db := depdb.New()
	db.Insert(a, b)
	db.Insert(b, a)
	c := New(db)

	done := make(chan State, 1)
	go func() { done <- c.Evaluate(a) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Evaluate did not terminate on a dependency cycle")
	}
}

func TestMarkRunningRemadeFailed(t *testing.T) {
	c := New(depdb.New())
	c.MarkRunning("t")
	s, ok := c.StateOf("t")
	require.True(t, ok)
	require.Equal(t, Running, s)

	c.MarkRemade("t")
	s, _ = c.StateOf("t")
	require.Equal(t, Remade, s)

	c.MarkFailed("t")
	s, _ = c.StateOf("t")
	require.Equal(t, Failed, s)
}

func TestStateOfUnknownTarget(t *testing.T) {
	c := New(depdb.New())
	_, ok := c.StateOf("nope")
	require.False(t, ok)
}
