package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/imsulglobal/community-portal/internal/model"
	"github.com/imsulglobal/community-portal/internal/service"
)

// ArticleHandler holds HTTP handlers for news articles.
type ArticleHandler struct {
	svc *service.ArticleService
}

// NewArticleHandler constructs an ArticleHandler.
func NewArticleHandler(svc *service.ArticleService) *ArticleHandler {
	return &ArticleHandler{svc: svc}
}

// List handles GET /articles?category=, published and visible articles only.
func (h *ArticleHandler) List(w http.ResponseWriter, r *http.Request) {
	articles, err := h.svc.ListPublic(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list articles")
		return
	}
	if articles == nil {
		articles = []model.Article{}
	}
	writeJSON(w, http.StatusOK, articles)
}

// Get handles GET /articles/{slug}
func (h *ArticleHandler) Get(w http.ResponseWriter, r *http.Request) {
	article, err := h.svc.GetPublic(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, article)
}

// ─── Staff handlers ───────────────────────────────────────────────────────────

// Create handles POST /admin/articles
func (h *ArticleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateArticleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	article, err := h.svc.Create(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, article)
}

// AdminList handles GET /admin/articles
func (h *ArticleHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	articles, err := h.svc.ListAdmin(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list articles")
		return
	}
	if articles == nil {
		articles = []model.Article{}
	}
	writeJSON(w, http.StatusOK, articles)
}

// Update handles PUT /admin/articles/{id}
func (h *ArticleHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateArticleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	article, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, article)
}

// Delete handles DELETE /admin/articles/{id}
func (h *ArticleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
