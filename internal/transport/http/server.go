package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"

	"ptbxl/internal/middleware"
	"ptbxl/internal/services"
	"ptbxl/internal/websocket"
)

// Defaults for RouterConfig
const (
	DefaultRequestTimeout = 30 * time.Second
	DefaultPipelineRPS    = 0.2
	DefaultPipelineBurst  = 2
)

// RouterConfig wires the router's dependencies. Metrics and Hub are optional.
type RouterConfig struct {
	Dataset  *services.DatasetService
	Pipeline *services.PipelineService
	Hub      *websocket.Hub
	Metrics  http.Handler
	Logger   *slog.Logger

	RequestTimeout time.Duration
	// AllowedOrigins for CORS; empty allows any origin
	AllowedOrigins []string
	// PipelineRPS limits how often a pipeline can be started
	PipelineRPS   float64
	PipelineBurst int
}

// NewRouter builds the status server routes
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.PipelineRPS <= 0 {
		cfg.PipelineRPS = DefaultPipelineRPS
	}
	if cfg.PipelineBurst <= 0 {
		cfg.PipelineBurst = DefaultPipelineBurst
	}

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Tracing)
	r.Use(middleware.StructuredLogger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))

	health := NewHealthHandler(cfg.Hub)
	r.Get("/health", health.Health)
	r.Get("/version", health.Version)
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}
	if cfg.Hub != nil {
		r.Handle("/ws", cfg.Hub)
	}

	dataset := NewDatasetHandler(cfg.Dataset, logger)
	pipeline := NewPipelineHandler(cfg.Pipeline, logger)
	limiter := middleware.NewRateLimiter(cfg.PipelineRPS, cfg.PipelineBurst, logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(chimw.Timeout(cfg.RequestTimeout))

		r.Get("/dataset", dataset.Inspect)
		r.Route("/records/{ecgID}", func(r chi.Router) {
			r.Get("/", dataset.Record)
			r.Get("/signal", dataset.Signal)
		})

		r.With(limiter.Handler).Post("/pipeline", pipeline.Start)
		r.Get("/pipeline/{id}", pipeline.Status)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteProblem(w, r, middleware.NewProblem(r, http.StatusNotFound, "not-found", "no route for "+r.URL.Path))
	})
	return r
}
