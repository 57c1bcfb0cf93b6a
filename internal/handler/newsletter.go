package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/imsulglobal/community-portal/internal/model"
	"github.com/imsulglobal/community-portal/internal/repository"
	"github.com/imsulglobal/community-portal/internal/service"
)

// NewsletterHandler holds HTTP handlers for newsletter signups.
type NewsletterHandler struct {
	svc *service.NewsletterService
}

// NewNewsletterHandler constructs a NewsletterHandler.
func NewNewsletterHandler(svc *service.NewsletterService) *NewsletterHandler {
	return &NewsletterHandler{svc: svc}
}

type subscribeResponse struct {
	Subscriber *model.Subscriber `json:"subscriber"`
	Note       string            `json:"note,omitempty"`
}

// Subscribe handles POST /newsletter/subscribe. Re-subscribing an active
// address is not an error from the caller's point of view.
func (h *NewsletterHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req model.SubscribeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	subscriber, err := h.svc.Subscribe(r.Context(), req)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadySubscribed) {
			writeJSON(w, http.StatusOK, subscribeResponse{Subscriber: subscriber, Note: "already subscribed"})
			return
		}
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, subscribeResponse{Subscriber: subscriber})
}

// Unsubscribe handles POST /newsletter/unsubscribe
func (h *NewsletterHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req model.SubscribeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := h.svc.Unsubscribe(r.Context(), req); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "unsubscribed"})
}

// List handles GET /admin/newsletter/subscribers?active=true
func (h *NewsletterHandler) List(w http.ResponseWriter, r *http.Request) {
	activeOnly, _ := strconv.ParseBool(r.URL.Query().Get("active"))
	subscribers, err := h.svc.List(r.Context(), activeOnly)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list subscribers")
		return
	}
	if subscribers == nil {
		subscribers = []model.Subscriber{}
	}
	writeJSON(w, http.StatusOK, subscribers)
}
