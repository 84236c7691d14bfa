// package server exposes import jobs, scheduled runs and provider statistics over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/services"
	"github.com/desertthunder/crate/internal/shared"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// JobService is the background job runner.
type JobService interface {
	CreateImportJob(ctx context.Context, playlistURL, createdBy string) (string, error)
	GetImportJob(ctx context.Context, id string) (*models.ImportJob, error)
	GetAllImportJobs(ctx context.Context) ([]*models.ImportJob, error)
	CancelImportJob(id string) bool
	Running() int
}

// LogReader lists scheduled run logs.
type LogReader interface {
	List(ctx context.Context, limit int) ([]*models.ImportLog, error)
}

// RunTrigger starts a scheduled run out of band.
type RunTrigger interface {
	Trigger(ctx context.Context) error
}

// StatsSource reports provider lookup statistics.
type StatsSource interface {
	Stats() services.StatsSnapshot
	Providers() []models.Source
}

// Deps collects the components the server routes to. Scheduler may be nil.
type Deps struct {
	Jobs      JobService
	Logs      LogReader
	Scheduler RunTrigger
	Stats     StatsSource
	Logger    *log.Logger
}

// Server is the admin HTTP surface.
type Server struct {
	deps     Deps
	router   chi.Router
	registry *prometheus.Registry
	logger   *log.Logger
}

// New builds the router and registers metrics.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		deps.Logger = shared.NewLogger(nil)
	}

	s := &Server{
		deps:     deps,
		registry: prometheus.NewRegistry(),
		logger:   shared.WithLogger(deps.Logger, "component", "server"),
	}

	if err := registerMetrics(s.registry, deps.Stats, deps.Jobs); err != nil {
		return nil, err
	}

	s.router = s.routes()
	return s, nil
}

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx ends, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer, s.requestLogger)

	r.Get("/health", s.health)
	r.Handle("/metrics", metricsHandler(s.registry))

	r.Route("/api", func(r chi.Router) {
		r.Route("/import-jobs", func(r chi.Router) {
			r.Post("/", s.createJob)
			r.Get("/", s.listJobs)
			r.Get("/{id}", s.getJob)
			r.Post("/{id}/cancel", s.cancelJob)
		})
		r.Get("/import-logs", s.listLogs)
		r.Post("/import-logs/run", s.runNow)
		r.Get("/provider-stats", s.providerStats)
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "status", ww.Status(),
			"duration", time.Since(start), "request_id", middleware.GetReqID(r.Context()))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
