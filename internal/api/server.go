// Package api exposes plan generation, sequencing, degrade and chain edits over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"

	"github.com/julianstephens/daychain/internal/config"
	apperrors "github.com/julianstephens/daychain/internal/errors"
	"github.com/julianstephens/daychain/internal/logger"
	"github.com/julianstephens/daychain/internal/metrics"
	"github.com/julianstephens/daychain/internal/planner"
	"github.com/julianstephens/daychain/internal/sequencer"
	"github.com/julianstephens/daychain/internal/storage"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	store     storage.Provider
	builder   *planner.Builder
	sequencer *sequencer.Service
	metrics   *metrics.Metrics
	cfg       config.Server
	router    *mux.Router
	log       *log.Logger
}

// NewServer wires the routes. m may be nil, in which case /metrics answers 404.
func NewServer(store storage.Provider, builder *planner.Builder, m *metrics.Metrics, cfg config.Server) *Server {
	s := &Server{
		store:     store,
		builder:   builder,
		sequencer: sequencer.NewService(store, builder),
		metrics:   m,
		cfg:       cfg,
		router:    mux.NewRouter(),
		log:       logger.Component("api"),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(metricsMiddleware(s.metrics))
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.Use(rateLimitMiddleware(newLimiter(s.cfg.RateLimit, s.cfg.Burst)))

	v1.HandleFunc("/plans", s.handleGenerate).Methods(http.MethodPost)
	v1.HandleFunc("/plans/{planID}", s.handleGetPlan).Methods(http.MethodGet)
	v1.HandleFunc("/users/{userID}/plans/{date}", s.handleGetPlanByDate).Methods(http.MethodGet)

	v1.HandleFunc("/plans/{planID}/current", s.handleCurrent).Methods(http.MethodGet)
	v1.HandleFunc("/plans/{planID}/next", s.handleNext).Methods(http.MethodGet)
	v1.HandleFunc("/plans/{planID}/blocks/{blockID}/complete", s.handleComplete).Methods(http.MethodPost)
	v1.HandleFunc("/plans/{planID}/blocks/{blockID}/skip", s.handleSkip).Methods(http.MethodPost)
	v1.HandleFunc("/plans/{planID}/blocks/{blockID}/step", s.handleEditBlockStep).Methods(http.MethodPatch)

	v1.HandleFunc("/plans/{planID}/degrade", s.handleDegrade).Methods(http.MethodPost)

	v1.HandleFunc("/plans/{planID}/chains/{chainID}/steps", s.handleAddStep).Methods(http.MethodPost)
	v1.HandleFunc("/plans/{planID}/chains/{chainID}/steps/{stepID}", s.handleEditStep).Methods(http.MethodPatch)
	v1.HandleFunc("/plans/{planID}/chains/{chainID}/steps/{stepID}", s.handleDeleteStep).Methods(http.MethodDelete)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeCode(w, apperrors.CodeNotFound, "no such route")
	})
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.log.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
