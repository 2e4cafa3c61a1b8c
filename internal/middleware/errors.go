package middleware

import (
	"encoding/json"
	"net/http"

	apperrors "ptbxl/internal/errors"
	"ptbxl/internal/infrastructure"
)

// Problem represents an RFC 7807 problem details object
type Problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
	RunID  string `json:"run_id,omitempty"`
}

// NewProblem builds a problem for status with the request's run id
func NewProblem(r *http.Request, status int, slug, detail string) *Problem {
	return &Problem{
		Type:   "/errors/" + slug,
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
		RunID:  infrastructure.GetRunID(r.Context()),
	}
}

// ProblemFromError maps application errors onto HTTP problems
func ProblemFromError(r *http.Request, err error) *Problem {
	switch {
	case apperrors.IsType(err, apperrors.ErrTypeNotFound):
		return NewProblem(r, http.StatusNotFound, "not-found", err.Error())
	case apperrors.IsType(err, apperrors.ErrTypeValidation):
		return NewProblem(r, http.StatusBadRequest, "validation", err.Error())
	case apperrors.IsType(err, apperrors.ErrTypeConflict):
		return NewProblem(r, http.StatusConflict, "conflict", err.Error())
	case apperrors.IsType(err, apperrors.ErrTypeParsing):
		return NewProblem(r, http.StatusUnprocessableEntity, "parsing", err.Error())
	default:
		return NewProblem(r, http.StatusInternalServerError, "internal-server-error", err.Error())
	}
}

// WriteProblem renders p as application/problem+json
func WriteProblem(w http.ResponseWriter, r *http.Request, p *Problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// WriteError renders err through ProblemFromError
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	WriteProblem(w, r, ProblemFromError(r, err))
}
