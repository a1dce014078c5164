package procsup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSpawnSuccess(t *testing.T) {
	results := make(chan Exit, 1)
	sup := New(results)
	require.NoError(t, sup.Spawn(1, "exit 0", nil, ""))

	select {
	case e := <-results:
		require.Equal(t, 1, e.JobID)
		require.True(t, e.Success)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for job completion")
	}
}

func TestSpawnFailure(t *testing.T) {
	results := make(chan Exit, 1)
	sup := New(results)
	require.NoError(t, sup.Spawn(2, "exit 1", nil, ""))

	select {
	case e := <-results:
		require.Equal(t, 2, e.JobID)
		require.False(t, e.Success)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for job completion")
	}
}

func TestSpawnPositionalArgs(t *testing.T) {
	results := make(chan Exit, 1)
	sup := New(results)
	require.NoError(t, sup.Spawn(3, `test "$1" = "foo.o" && test "$2" = "bar.o"`, []string{"foo.o", "bar.o"}, ""))

	select {
	case e := <-results:
		require.True(t, e.Success)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for job completion")
	}
}

func TestSpawnEnvironment(t *testing.T) {
	results := make(chan Exit, 1)
	sup := New(results)
	require.NoError(t, sup.Spawn(7, `test "$REMAKE_JOB_ID" = "7" && test "$REMAKE_SOCKET" = "/tmp/sock"`, nil, "/tmp/sock"))

	select {
	case e := <-results:
		require.True(t, e.Success)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for job completion")
	}
}
