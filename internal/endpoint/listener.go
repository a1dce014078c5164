// Package endpoint accepts the AF_UNIX connections that nested remake
// invocations use to report their own targets back to the server.
package endpoint

import (
	"context"
	"log/slog"
	"net"

	"github.com/mattjoyce/remake/internal/log"
	"github.com/mattjoyce/remake/internal/wire"
)

// Request is one parsed incoming connection, ready for the scheduler to
// accept as a client. Reading the request off the wire happens on its
// own goroutine per connection; only this struct crosses onto the
// single goroutine that owns the scheduler, which is not safe for
// concurrent use.
type Request struct {
	Conn    net.Conn
	JobID   int
	Targets []string
}

// Listener accepts connections on a bound AF_UNIX socket and delivers a
// Request for each one on Requests, for a single consumer to apply to
// the scheduler.
type Listener struct {
	ln       net.Listener
	Requests chan Request
	logger   *slog.Logger
}

// Listen binds path as an AF_UNIX stream socket.
func Listen(path string) (*Listener, error) {
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	return &Listener{
		ln:       ln,
		Requests: make(chan Request),
		logger:   log.WithComponent("endpoint"),
	}, nil
}

// Addr returns the bound socket path.
func (l *Listener) Addr() string { return l.ln.Addr().String() }

// Serve accepts connections until ctx is cancelled, parsing each into a
// Request and sending it on Requests. It closes Requests before
// returning.
func (l *Listener) Serve(ctx context.Context) {
	defer close(l.Requests)
	go func() {
		<-ctx.Done()
		_ = l.ln.Close()
	}()
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			l.logger.Error("accept failed", "error", err)
			continue
		}
		go l.readRequest(ctx, conn)
	}
}

func (l *Listener) readRequest(ctx context.Context, conn net.Conn) {
	req, err := wire.ReadRequest(conn)
	if err != nil {
		l.logger.Error("malformed client request", "error", err)
		_ = conn.Close()
		return
	}
	select {
	case l.Requests <- Request{Conn: conn, JobID: int(req.JobID), Targets: req.Targets}:
	case <-ctx.Done():
		_ = conn.Close()
	}
}

// Close releases the listener.
func (l *Listener) Close() error {
	return l.ln.Close()
}
