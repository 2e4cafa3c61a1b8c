package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apperrors "ptbxl/internal/errors"
	"ptbxl/internal/middleware"
	"ptbxl/internal/services"
)

// DatasetHandler serves dataset and record lookups
type DatasetHandler struct {
	service *services.DatasetService
	logger  *slog.Logger
}

// NewDatasetHandler creates a dataset handler
func NewDatasetHandler(service *services.DatasetService, logger *slog.Logger) *DatasetHandler {
	return &DatasetHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "dataset")),
	}
}

// SignalResponse is one lead of a record's waveform
type SignalResponse struct {
	ECGID        int       `json:"ecg_id"`
	SamplingRate int       `json:"sampling_rate"`
	Samples      int       `json:"samples"`
	Channels     int       `json:"channels"`
	Lead         int       `json:"lead"`
	Values       []float64 `json:"values"`
}

func ecgIDParam(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "ecgID")
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.NewAppValidationError(fmt.Sprintf("invalid ecg_id %q", raw))
	}
	return id, nil
}

// Inspect handles GET /api/dataset
func (h *DatasetHandler) Inspect(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Inspect(r.Context())
	if err != nil {
		h.logger.WarnContext(r.Context(), "Dataset inspection failed", slog.String("error", err.Error()))
		middleware.WriteError(w, r, err)
		return
	}
	render.JSON(w, r, report)
}

// Record handles GET /api/records/{ecgID}
func (h *DatasetHandler) Record(w http.ResponseWriter, r *http.Request) {
	id, err := ecgIDParam(r)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	rec, err := h.service.Record(r.Context(), id)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	render.JSON(w, r, rec)
}

// Signal handles GET /api/records/{ecgID}/signal?lead=n
func (h *DatasetHandler) Signal(w http.ResponseWriter, r *http.Request) {
	id, err := ecgIDParam(r)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	lead := 0
	if raw := r.URL.Query().Get("lead"); raw != "" {
		if lead, err = strconv.Atoi(raw); err != nil {
			middleware.WriteError(w, r, apperrors.NewAppValidationError(fmt.Sprintf("invalid lead %q", raw)))
			return
		}
	}

	sig, err := h.service.Signal(r.Context(), id)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	samples, channels := sig.Shape()
	if lead < 0 || lead >= channels {
		middleware.WriteError(w, r, apperrors.NewAppValidationError(
			fmt.Sprintf("lead %d out of range for %d channels", lead, channels)))
		return
	}

	render.JSON(w, r, SignalResponse{
		ECGID:        id,
		SamplingRate: h.service.SamplingRate(),
		Samples:      samples,
		Channels:     channels,
		Lead:         lead,
		Values:       sig.Channel(lead),
	})
}
