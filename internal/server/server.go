// Package server is the thin HTTP adapter kept in scope for the
// job-execution core to be reachable: submit/inspect jobs, read queue stats,
// and stream job events. It never runs pipelines itself — that's
// internal/worker's job — this package only talks to the queues,
// coordinator, and credit ledger.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/chronocoders/indexnode/internal/common"
	"github.com/chronocoders/indexnode/internal/interfaces"
)

// Deps bundles the stores and clients the thin adapter reads from.
type Deps struct {
	Queue       interfaces.DurableQueue
	Coordinator interfaces.Coordinator
	Credit      interfaces.CreditLedger
	Index       interfaces.IndexStore
	Hub         *JobWSHub
}

// Server wraps the HTTP server for the thin job adapter.
type Server struct {
	deps   Deps
	server *http.Server
	logger *common.Logger
}

// NewServer builds a Server bound to deps, listening per config.Server.
func NewServer(deps Deps, config *common.Config, logger *common.Logger) *Server {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	s := &Server{deps: deps, logger: logger}

	mux := http.NewServeMux()
	s.registerRoutes(mux, []byte(config.Auth.JWTSecret))

	handler := applyMiddleware(mux, logger)

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the HTTP handler, for tests driving it with httptest.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start runs the HTTP server until it errors or is shut down.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("starting thin HTTP adapter")
	return s.server.ListenAndServe()
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
