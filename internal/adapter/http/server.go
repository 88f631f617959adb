package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/sf-parking-risk-service/internal/domain"
	"github.com/couchcryptid/sf-parking-risk-service/internal/observability"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/afero"
)

// RiskModel answers the risk queries behind the JSON API.
type RiskModel interface {
	sharedobs.ReadinessChecker
	Assessment(id int, now time.Time) (domain.Assessment, error)
	Safest(now time.Time, n int) []domain.ZoneRank
	Dangerous(now time.Time, n int) []domain.ZoneRank
	Profile(id int) ([]domain.TimeCell, error)
	HeatPoints(center domain.Point, radius float64) [][2]float64
}

// Options configures the routes that do not depend on the risk model.
type Options struct {
	// Streets is served by /zones with availability computed per request.
	Streets domain.FeatureCollection
	// StaticFS and StaticDir locate the front-end build. A nil StaticFS disables static serving.
	StaticFS    afero.Fs
	StaticDir   string
	CORSOrigins []string
}

// Server exposes the parking risk API, health, readiness, metrics, and the front-end build.
type Server struct {
	httpServer *http.Server
	model      RiskModel
	streets    domain.FeatureCollection
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewServer creates an HTTP server with the API, operational, and static routes.
func NewServer(addr string, model RiskModel, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Server {
	r := chi.NewRouter()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		model:   model,
		streets: opts.Streets,
		logger:  logger,
		metrics: metrics,
	}

	r.Use(s.instrument)
	r.Use(s.recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(model))
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/zones", s.handleZones)
	r.Get("/tickets", s.handleTickets)
	r.Get("/risk-score/{id:[0-9]+}", s.handleRiskScore)
	r.Get("/risk-profile/{id:[0-9]+}", s.handleRiskProfile)
	r.Get("/safest-zones", s.handleSafestZones)
	r.Get("/danger-zones", s.handleDangerZones)
	r.Get("/risk-score/*", handleZoneNotFound)
	r.Get("/risk-profile/*", handleZoneNotFound)

	if opts.StaticFS != nil {
		r.Get("/*", newStaticHandler(opts.StaticFS, opts.StaticDir))
	}

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

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client went away
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
