package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/emissions-impact-etl/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Runner produces the dataset for the configured input file. The pipeline
// implements it; every API request re-runs it through the load cache so an
// edited file is picked up without a restart.
type Runner interface {
	Run(ctx context.Context, path string) (domain.Dataset, error)
}

// API configures the /api routes.
type API struct {
	Runner       Runner
	InputPath    string
	GasConstants domain.GasConstants
	TopN         int
}

// Server exposes health, readiness, metrics and the emissions API.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	api        API
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and the
// /api routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, api API, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
		api:    api,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/records", s.handleRecords)
	mux.HandleFunc("GET /api/gases", s.handleGases)
	mux.HandleFunc("GET /api/correlations", s.handleCorrelations)
	mux.HandleFunc("GET /api/describe", s.handleDescribe)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}
