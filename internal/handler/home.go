package handler

import (
	"net/http"

	"github.com/imsulglobal/community-portal/internal/service"
)

// HomeHandler serves the aggregated landing page payload.
type HomeHandler struct {
	svc *service.HomeService
}

// NewHomeHandler constructs a HomeHandler.
func NewHomeHandler(svc *service.HomeService) *HomeHandler {
	return &HomeHandler{svc: svc}
}

// Page handles GET /home
func (h *HomeHandler) Page(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.Page(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to build home page")
		return
	}
	writeJSON(w, http.StatusOK, page)
}
