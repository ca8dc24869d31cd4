package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"sql-advisor/internal/infra/redis"
	"sql-advisor/internal/usecase"
)

// Server exposes the analysis session API and the single-shot optimize
// endpoint. It is a pure read/write projection over the use cases; all
// orchestration state lives behind them.
type Server struct {
	analysisUC usecase.AnalysisUseCase
	optimizeUC usecase.OptimizeUseCase

	limiter    *redis.RateLimiter // nil disables rate limiting
	rateLimit  int
	rateWindow time.Duration

	corsAllowAll bool
	log          *zerolog.Logger
}

func NewServer(
	analysisUC usecase.AnalysisUseCase,
	optimizeUC usecase.OptimizeUseCase,
	limiter *redis.RateLimiter,
	rateLimit int,
	rateWindow time.Duration,
	corsAllowAll bool,
	log *zerolog.Logger,
) *Server {
	return &Server{
		analysisUC:   analysisUC,
		optimizeUC:   optimizeUC,
		limiter:      limiter,
		rateLimit:    rateLimit,
		rateWindow:   rateWindow,
		corsAllowAll: corsAllowAll,
		log:          log,
	}
}

// Router builds the chi routing tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	if s.corsAllowAll {
		// Restrict in production: list the UI origin instead of "*".
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
			AllowedHeaders: []string{"*"},
		}))
	}

	r.Get("/health", s.healthHandler())
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.With(s.rateLimited).Post("/analysis/sessions", s.createSessionHandler())
		r.Get("/analysis/sessions/{sessionID}", s.statusHandler())
		r.Delete("/analysis/sessions/{sessionID}", s.deleteSessionHandler())
		r.With(s.rateLimited).Post("/optimize", s.optimizeHandler())
	})

	return r
}
