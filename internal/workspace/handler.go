package workspace

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ylack/internal/apperr"
	"ylack/internal/middleware"
)

type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/workspaces", h.ListWorkspaces)
	r.Post("/workspaces", h.CreateWorkspace)
	r.Post("/workspaces/join", h.Join)
	r.Get("/workspaces/{workspaceID}/members", h.ListMembers)
	r.Get("/workspaces/{workspaceID}/channels", h.ListChannels)
	r.Post("/workspaces/{workspaceID}/channels", h.CreateChannel)
}

func (h *Handler) CreateWorkspace(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := middleware.Identity(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req CreateWorkspaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.WriteError(w, apperr.Validation("body", "malformed JSON"))
		return
	}

	ws, err := h.service.Create(r.Context(), req.Name, userID)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusCreated, ws)
}

func (h *Handler) ListWorkspaces(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := middleware.Identity(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	workspaces, err := h.service.ListForUser(r.Context(), userID)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	if workspaces == nil {
		workspaces = []*Workspace{}
	}
	apperr.WriteJSON(w, http.StatusOK, workspaces)
}

func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := middleware.Identity(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.WriteError(w, apperr.Validation("body", "malformed JSON"))
		return
	}

	ws, err := h.service.Join(r.Context(), req.InviteCode, userID)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, ws)
}

func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := middleware.Identity(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	workspaceID := chi.URLParam(r, "workspaceID")

	if err := h.service.RequireMember(r.Context(), workspaceID, userID); err != nil {
		apperr.WriteError(w, err)
		return
	}

	members, err := h.service.ListMembers(r.Context(), workspaceID)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, members)
}

func (h *Handler) CreateChannel(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := middleware.Identity(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	workspaceID := chi.URLParam(r, "workspaceID")

	if err := h.service.RequireMember(r.Context(), workspaceID, userID); err != nil {
		apperr.WriteError(w, err)
		return
	}

	var req CreateChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.WriteError(w, apperr.Validation("body", "malformed JSON"))
		return
	}

	ch, err := h.service.CreateChannel(r.Context(), workspaceID, req.Name)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusCreated, ch)
}

func (h *Handler) ListChannels(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := middleware.Identity(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	workspaceID := chi.URLParam(r, "workspaceID")

	if err := h.service.RequireMember(r.Context(), workspaceID, userID); err != nil {
		apperr.WriteError(w, err)
		return
	}

	channels, err := h.service.ListChannels(r.Context(), workspaceID)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	if channels == nil {
		channels = []*Channel{}
	}
	apperr.WriteJSON(w, http.StatusOK, channels)
}
