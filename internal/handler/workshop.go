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

// WorkshopHandler holds HTTP handlers for workshops and enrollments.
type WorkshopHandler struct {
	svc *service.WorkshopService
}

// NewWorkshopHandler constructs a WorkshopHandler.
func NewWorkshopHandler(svc *service.WorkshopService) *WorkshopHandler {
	return &WorkshopHandler{svc: svc}
}

// List handles GET /workshops, available workshops only.
func (h *WorkshopHandler) List(w http.ResponseWriter, r *http.Request) {
	workshops, err := h.svc.ListPublic(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list workshops")
		return
	}
	if workshops == nil {
		workshops = []model.Workshop{}
	}
	writeJSON(w, http.StatusOK, workshops)
}

// Get handles GET /workshops/{id}
func (h *WorkshopHandler) Get(w http.ResponseWriter, r *http.Request) {
	workshop, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, workshop)
}

// enrollResponse pairs the created enrollment with the workshop's capacity
// after the reservation.
type enrollResponse struct {
	Enrollment *model.Enrollment `json:"enrollment"`
	Workshop   *model.Workshop   `json:"workshop"`
}

// Enroll handles POST /workshops/{id}/enroll, the public submission path.
func (h *WorkshopHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	var req model.EnrollRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	enrollment, workshop, err := h.svc.Enroll(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, enrollResponse{Enrollment: enrollment, Workshop: workshop})
}

// ─── Staff handlers ───────────────────────────────────────────────────────────

// Create handles POST /admin/workshops
func (h *WorkshopHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateWorkshopRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	workshop, err := h.svc.Create(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, workshop)
}

// AdminList handles GET /admin/workshops?status=
func (h *WorkshopHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	workshops, err := h.svc.ListAdmin(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list workshops")
		return
	}
	if workshops == nil {
		workshops = []model.Workshop{}
	}
	writeJSON(w, http.StatusOK, workshops)
}

// Update handles PUT /admin/workshops/{id}
func (h *WorkshopHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateWorkshopRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	workshop, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, workshop)
}

// Delete handles DELETE /admin/workshops/{id}
func (h *WorkshopHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Close handles POST /admin/workshops/{id}/close
func (h *WorkshopHandler) Close(w http.ResponseWriter, r *http.Request) {
	workshop, err := h.svc.Close(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, workshop)
}

// Reopen handles POST /admin/workshops/{id}/reopen
func (h *WorkshopHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	workshop, err := h.svc.Reopen(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, workshop)
}

// ListEnrollments handles GET /admin/workshops/{id}/enrollments?status=
func (h *WorkshopHandler) ListEnrollments(w http.ResponseWriter, r *http.Request) {
	enrollments, err := h.svc.ListEnrollments(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("status"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if enrollments == nil {
		enrollments = []model.Enrollment{}
	}
	writeJSON(w, http.StatusOK, enrollments)
}

// transitionResponse pairs the changed record with the offering's updated
// capacity snapshot.
type transitionResponse struct {
	Enrollment *model.Enrollment `json:"enrollment"`
	Workshop   *model.Workshop   `json:"workshop"`
	Note       string            `json:"note,omitempty"`
}

// Transition handles PATCH /admin/enrollments/{id}/status
func (h *WorkshopHandler) Transition(w http.ResponseWriter, r *http.Request) {
	var req model.TransitionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	enrollment, workshop, err := h.svc.Transition(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		// A same-status request is a no-op confirmation, not a failure.
		if errors.Is(err, capacity.ErrNoChange) {
			writeJSON(w, http.StatusOK, transitionResponse{Note: "status unchanged"})
			return
		}
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, transitionResponse{Enrollment: enrollment, Workshop: workshop})
}

// BulkTransition handles POST /admin/enrollments/status
func (h *WorkshopHandler) BulkTransition(w http.ResponseWriter, r *http.Request) {
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

// DeleteEnrollment handles DELETE /admin/enrollments/{id}
func (h *WorkshopHandler) DeleteEnrollment(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteEnrollment(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Export handles GET /admin/workshops/{id}/enrollments/export?format=csv|pdf
func (h *WorkshopHandler) Export(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "pdf" {
		writeError(w, http.StatusBadRequest, "format must be csv or pdf")
		return
	}
	out, contentType, err := h.svc.ExportEnrollments(r.Context(), chi.URLParam(r, "id"), format)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="enrollments.%s"`, format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}
