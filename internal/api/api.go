// Package api provides the local HTTP control surface for valsync.
//
// The host application's UI process talks to the engine through these
// endpoints: enqueueing validation actions, inspecting the queue and
// history, forcing a sync, and performing explicit administrative resets.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/edustack/valsync/internal/connectivity"
	"github.com/edustack/valsync/internal/engine"
)

// Default server timeouts.
const (
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 10 * time.Second
	DefaultShutdownTimeout = 5 * time.Second
)

// Server exposes the engine over a local HTTP listener.
type Server struct {
	engine  *engine.Engine
	monitor connectivity.Monitor
	httpSrv *http.Server
}

// NewServer creates an API server bound to addr.
func NewServer(eng *engine.Engine, mon connectivity.Monitor, addr string) *Server {
	s := &Server{
		engine:  eng,
		monitor: mon,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/validations", s.enqueueHandler)
	mux.HandleFunc("/queue", s.queueHandler)
	mux.HandleFunc("/queue/retry", s.retryHandler)
	mux.HandleFunc("/history", s.historyHandler)
	mux.HandleFunc("/stats", s.statsHandler)
	mux.HandleFunc("/sync", s.syncHandler)

	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
	}
	return s
}

// Handler returns the server's HTTP handler (used by tests).
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// Run starts the listener and blocks until the context is cancelled, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Run: API listening", "addr", s.httpSrv.Addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("api server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	slog.Info("Server.Run: shutting down API server")
	return s.httpSrv.Shutdown(shutdownCtx)
}
