// Package server exposes the portal's HTTP API: assistant listings, the
// orchestrator delegate list, question asking (retrieval pipeline or direct
// agent forwarding), administrative cache refresh and corpus browsing.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/uniportal/assistant/pkg/agents"
	"github.com/uniportal/assistant/pkg/assistants"
	"github.com/uniportal/assistant/pkg/config"
	"github.com/uniportal/assistant/pkg/databases"
	"github.com/uniportal/assistant/pkg/pipeline"
)

// Server is the portal HTTP server.
type Server struct {
	cfg      *config.Config
	registry *assistants.Registry
	quota    *assistants.Quota
	pipe     *pipeline.Pipeline
	agents   *agents.Client
	store    databases.Provider

	httpServer *http.Server
}

func New(cfg *config.Config, registry *assistants.Registry, quota *assistants.Quota, pipe *pipeline.Pipeline, agentClient *agents.Client, store databases.Provider) *Server {
	s := &Server{
		cfg:      cfg,
		registry: registry,
		quota:    quota,
		pipe:     pipe,
		agents:   agentClient,
		store:    store,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      s.router(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}
	return s
}

func (s *Server) router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(observabilityMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/assistants", s.handleListAssistants)
		r.Get("/assistants/resolved", s.handleListResolved)
		r.Get("/assistants/{alias}", s.handleGetAssistant)
		r.Post("/assistants/{alias}/ask", s.handleAsk)
		r.Post("/assistants/{alias}/refresh", s.handleRefresh)
		r.Get("/assistants/{alias}/data", s.handleData)
		r.Get("/orchestrator/agents", s.handleOrchestratorAgents)
		r.Get("/retrieval/points", s.handleScrollPoints)
	})

	return r
}

// Handler exposes the configured router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	slog.Info("http server shutting down")
	return s.httpServer.Shutdown(shutdownCtx)
}
