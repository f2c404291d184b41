// Package api exposes the validator's status over HTTP: liveness, the
// current region picture and recent events, and Prometheus metrics.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// StatusFunc produces the current status document.
type StatusFunc func() interface{}

// Server serves the status API.
type Server struct {
	logger     *zap.Logger
	router     chi.Router
	httpServer *http.Server
	status     StatusFunc
}

// NewServer creates a status server on the given port.
func NewServer(port int, logger *zap.Logger, status StatusFunc, metricsHandler http.Handler) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		logger: logger,
		status: status,
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Get("/healthz", s.handleHealthz)
	r.Get("/status", s.handleStatus)
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}
	s.router = r

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Router exposes the router for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start serves until the listener closes.
func (s *Server) Start() error {
	s.logger.Info("status server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api: serve: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var doc interface{}
	if s.status != nil {
		doc = s.status()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(doc); err != nil {
		s.logger.Error("failed to encode status", zap.Error(err))
	}
}
