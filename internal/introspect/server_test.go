package introspect

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeStatus struct {
	running int
	failed  bool
	idle    bool
}

func (f fakeStatus) RunningJobs() int { return f.running }
func (f fakeStatus) BuildFailed() bool { return f.failed }
func (f fakeStatus) Idle() bool        { return f.idle }

func freePort(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestServerServesStatus(t *testing.T) {
	addr := freePort(t)
	srv := New(addr, fakeStatus{running: 2, failed: true, idle: false})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	var resp *http.Response
	var err error
	for i := 0; i < 50; i++ {
		resp, err = http.Get("http://" + addr + "/status")
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	require.NoError(t, err)
	defer resp.Body.Close()

	var status Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	require.Equal(t, 2, status.RunningJobs)
	require.True(t, status.BuildFailed)
	require.False(t, status.Idle)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down")
	}
}
