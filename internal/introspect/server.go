// Package introspect exposes a loopback-only HTTP endpoint for
// inspecting a running build: the live running-job count, whether the
// scheduler is idle, and whether the run has seen a failure. It is
// read-only and has no effect on scheduling.
package introspect

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mattjoyce/remake/internal/log"
)

// StatusProvider reports the scheduler state to expose.
type StatusProvider interface {
	RunningJobs() int
	BuildFailed() bool
	Idle() bool
}

// Status is the JSON body served at /status.
type Status struct {
	RunningJobs int  `json:"running_jobs"`
	BuildFailed bool `json:"build_failed"`
	Idle        bool `json:"idle"`
}

// Server is the introspection HTTP server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// New builds a Server bound to addr (e.g. "127.0.0.1:9090"), reporting
// provider's state at GET /status and a trivial GET /healthz.
func New(addr string, provider StatusProvider) *Server {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Status{
			RunningJobs: provider.RunningJobs(),
			BuildFailed: provider.BuildFailed(),
			Idle:        provider.Idle(),
		})
	})

	return &Server{
		httpServer: &http.Server{Addr: addr, Handler: r},
		logger:     log.WithComponent("introspect"),
	}
}

// Serve runs the HTTP server until ctx is cancelled. It never returns an
// error for a clean shutdown.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(shutdownCtx)
	}()

	s.logger.Info("introspect server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
