package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apperrors "ptbxl/internal/errors"
	"ptbxl/internal/middleware"
	"ptbxl/internal/plot"
	"ptbxl/internal/services"
)

// PipelineHandler starts pipeline runs and reports their state
type PipelineHandler struct {
	service *services.PipelineService
	logger  *slog.Logger
}

// NewPipelineHandler creates a pipeline handler
func NewPipelineHandler(service *services.PipelineService, logger *slog.Logger) *PipelineHandler {
	return &PipelineHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "pipeline")),
	}
}

// PipelineRequest is the optional body of POST /api/pipeline
type PipelineRequest struct {
	PerDiag int    `json:"per_diag"`
	Format  string `json:"format"`
}

// Start handles POST /api/pipeline
func (h *PipelineHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req PipelineRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil && !errors.Is(err, io.EOF) {
		middleware.WriteError(w, r, apperrors.NewAppValidationError("invalid request body: "+err.Error()))
		return
	}

	opts := services.PipelineOptions{PerDiag: req.PerDiag}
	if req.Format != "" {
		format, err := plot.ParseFormat(req.Format)
		if err != nil {
			middleware.WriteError(w, r, apperrors.NewAppValidationError(err.Error()))
			return
		}
		opts.Format = format
	}
	if opts.PerDiag < 0 {
		middleware.WriteError(w, r, apperrors.NewAppValidationError("per_diag must not be negative"))
		return
	}

	id, err := h.service.Start(r.Context(), opts, func(err error) {
		if err != nil {
			h.logger.Warn("Pipeline run failed", slog.String("error", err.Error()))
		}
	})
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Pipeline started", slog.String("operation_id", id))
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]string{"operation_id": id, "status": "started"})
}

// Status handles GET /api/pipeline/{id}
func (h *PipelineHandler) Status(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	state, ok := h.service.Status(id)
	if !ok {
		middleware.WriteError(w, r, apperrors.NewNotFoundError("operation "+id))
		return
	}
	render.JSON(w, r, state.Snapshot())
}
