// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/imsulglobal/community-portal/internal/capacity"
	"github.com/imsulglobal/community-portal/internal/model"
	"github.com/imsulglobal/community-portal/internal/repository"
)

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeServiceError maps domain sentinels onto HTTP statuses. Anything
// unclassified is a 500 with a generic message; validation failures are 400s
// with the validator's text.
func writeServiceError(w http.ResponseWriter, err error) {
	var vErrs validator.ValidationErrors
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, repository.ErrOfferingNotOpen):
		writeError(w, http.StatusConflict, "this offering is not accepting applications")
	case errors.Is(err, repository.ErrDuplicateApplicant):
		writeError(w, http.StatusConflict, "you have already applied to this offering")
	case errors.Is(err, capacity.ErrExhausted):
		writeError(w, http.StatusConflict, "no slots remaining")
	case errors.Is(err, capacity.ErrInvalidTransition):
		writeError(w, http.StatusUnprocessableEntity, "invalid status transition")
	case errors.Is(err, capacity.ErrNotClosed):
		writeError(w, http.StatusConflict, "offering is not closed")
	case errors.As(err, &vErrs):
		writeError(w, http.StatusBadRequest, vErrs.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
