package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/imsulglobal/community-portal/internal/capacity"
	"github.com/imsulglobal/community-portal/internal/model"
	"github.com/imsulglobal/community-portal/internal/service"
)

// VolunteerHandler holds HTTP handlers for volunteer positions and
// applications.
type VolunteerHandler struct {
	svc *service.VolunteerService
}

// NewVolunteerHandler constructs a VolunteerHandler.
func NewVolunteerHandler(svc *service.VolunteerService) *VolunteerHandler {
	return &VolunteerHandler{svc: svc}
}

// List handles GET /volunteer-positions, open positions only.
func (h *VolunteerHandler) List(w http.ResponseWriter, r *http.Request) {
	positions, err := h.svc.ListPublic(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list positions")
		return
	}
	if positions == nil {
		positions = []model.Position{}
	}
	writeJSON(w, http.StatusOK, positions)
}

// Get handles GET /volunteer-positions/{id}
func (h *VolunteerHandler) Get(w http.ResponseWriter, r *http.Request) {
	position, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, position)
}

type applyResponse struct {
	Application *model.Application `json:"application"`
	Position    *model.Position    `json:"position"`
}

// Apply handles POST /volunteer-positions/{id}/apply, the public
// submission path.
func (h *VolunteerHandler) Apply(w http.ResponseWriter, r *http.Request) {
	var req model.ApplyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	application, position, err := h.svc.Apply(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, applyResponse{Application: application, Position: position})
}

// ─── Staff handlers ───────────────────────────────────────────────────────────

// Create handles POST /admin/volunteer-positions
func (h *VolunteerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreatePositionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	position, err := h.svc.Create(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, position)
}

// AdminList handles GET /admin/volunteer-positions?status=
func (h *VolunteerHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	positions, err := h.svc.ListAdmin(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list positions")
		return
	}
	if positions == nil {
		positions = []model.Position{}
	}
	writeJSON(w, http.StatusOK, positions)
}

// Update handles PUT /admin/volunteer-positions/{id}
func (h *VolunteerHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req model.UpdatePositionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	position, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, position)
}

// Delete handles DELETE /admin/volunteer-positions/{id}
func (h *VolunteerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Close handles POST /admin/volunteer-positions/{id}/close
func (h *VolunteerHandler) Close(w http.ResponseWriter, r *http.Request) {
	position, err := h.svc.Close(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, position)
}

// Reopen handles POST /admin/volunteer-positions/{id}/reopen
func (h *VolunteerHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	position, err := h.svc.Reopen(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, position)
}

// ListApplications handles GET /admin/volunteer-positions/{id}/applications?status=
func (h *VolunteerHandler) ListApplications(w http.ResponseWriter, r *http.Request) {
	applications, err := h.svc.ListApplications(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("status"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if applications == nil {
		applications = []model.Application{}
	}
	writeJSON(w, http.StatusOK, applications)
}

type applicationTransitionResponse struct {
	Application *model.Application `json:"application"`
	Position    *model.Position    `json:"position"`
	Note        string             `json:"note,omitempty"`
}

// Transition handles PATCH /admin/applications/{id}/status
func (h *VolunteerHandler) Transition(w http.ResponseWriter, r *http.Request) {
	var req model.TransitionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	application, position, err := h.svc.Transition(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		if errors.Is(err, capacity.ErrNoChange) {
			writeJSON(w, http.StatusOK, applicationTransitionResponse{Note: "status unchanged"})
			return
		}
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, applicationTransitionResponse{Application: application, Position: position})
}

// BulkTransition handles POST /admin/applications/status
func (h *VolunteerHandler) BulkTransition(w http.ResponseWriter, r *http.Request) {
	var req model.BulkTransitionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "ids is required")
		return
	}
	writeJSON(w, http.StatusOK, h.svc.BulkTransition(r.Context(), req))
}

// DeleteApplication handles DELETE /admin/applications/{id}
func (h *VolunteerHandler) DeleteApplication(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteApplication(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Export handles GET /admin/volunteer-positions/{id}/applications/export?format=csv|pdf
func (h *VolunteerHandler) Export(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "pdf" {
		writeError(w, http.StatusBadRequest, "format must be csv or pdf")
		return
	}
	out, contentType, err := h.svc.ExportApplications(r.Context(), chi.URLParam(r, "id"), format)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="applications.%s"`, format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}
