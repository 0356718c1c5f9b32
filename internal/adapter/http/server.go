package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/air-quality-classifier/internal/domain"
	"github.com/couchcryptid/air-quality-classifier/internal/prediction"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Predictor is the prediction surface the API exposes.
type Predictor interface {
	Predict(ctx context.Context, model string, rec domain.RawRecord) (domain.Prediction, error)
	ValidateInput(rec domain.RawRecord) error
	Models() []domain.Model
	Model(name string) (domain.Model, error)
	MetricsTable() []prediction.MetricsRow
	Zones() []string
	Indicators() []string
	Bounds() domain.InputBounds
	Recent(ctx context.Context, limit int) ([]domain.Prediction, error)
}

// Server exposes the prediction API alongside health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	predictor  Predictor
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and the /v1 API routes.
func NewServer(addr string, predictor Predictor, ready sharedobs.ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		predictor: predictor,
		logger:    logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /v1/models", s.handleListModels)
	mux.HandleFunc("GET /v1/models/{name}", s.handleGetModel)
	mux.HandleFunc("GET /v1/metrics", s.handleMetricsTable)
	mux.HandleFunc("GET /v1/zones", s.handleZones)
	mux.HandleFunc("POST /v1/predictions", s.handlePredict)
	mux.HandleFunc("GET /v1/predictions", s.handleRecent)

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
