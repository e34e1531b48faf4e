package reaction

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ylack/internal/apperr"
	"ylack/internal/middleware"
)

// Memberships is the workspace-membership precondition, same contract as the
// message handler's.
type Memberships interface {
	RequireMember(ctx context.Context, workspaceID, userID string) error
}

type Handler struct {
	service *Service
	members Memberships
}

func NewHandler(s *Service, members Memberships) *Handler {
	return &Handler{service: s, members: members}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	base := "/workspaces/{workspaceID}/channels/{channelID}/messages/{messageID}/reactions"
	r.Get(base, h.List)
	r.Post(base, h.Add)
	r.Delete(base, h.Remove)
}

type addRequest struct {
	Emoji string `json:"emoji"`
}

func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	userID, workspaceID, channelID, messageID, ok := h.authorize(w, r)
	if !ok {
		return
	}

	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.WriteError(w, apperr.Validation("body", "malformed JSON"))
		return
	}

	result, err := h.service.Add(r.Context(), messageID, channelID, workspaceID, userID, req.Emoji)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, workspaceID, channelID, messageID, ok := h.authorize(w, r)
	if !ok {
		return
	}

	emoji := r.URL.Query().Get("emoji")
	result, err := h.service.Remove(r.Context(), messageID, channelID, workspaceID, userID, emoji)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, workspaceID, channelID, messageID, ok := h.authorize(w, r)
	if !ok {
		return
	}

	result, err := h.service.List(r.Context(), messageID, channelID, workspaceID, userID)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	if result == nil {
		result = []*Aggregate{}
	}
	apperr.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) authorize(w http.ResponseWriter, r *http.Request) (userID, workspaceID, channelID, messageID string, ok bool) {
	userID, _, authed := middleware.Identity(r.Context())
	if !authed {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return "", "", "", "", false
	}
	workspaceID = chi.URLParam(r, "workspaceID")
	channelID = chi.URLParam(r, "channelID")
	messageID = chi.URLParam(r, "messageID")

	if err := h.members.RequireMember(r.Context(), workspaceID, userID); err != nil {
		apperr.WriteError(w, err)
		return "", "", "", "", false
	}
	return userID, workspaceID, channelID, messageID, true
}
