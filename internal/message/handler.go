package message

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ylack/internal/apperr"
	"ylack/internal/middleware"
)

// Memberships is the authorization precondition enforced before any message
// operation. It is the slim view of the workspace collaborator this handler needs.
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
	r.Get("/workspaces/{workspaceID}/channels/{channelID}/messages", h.List)
	r.Post("/workspaces/{workspaceID}/channels/{channelID}/messages", h.Submit)
}

type submitRequest struct {
	Content   string  `json:"content"`
	ReplyToID *string `json:"replyToId,omitempty"`
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := middleware.Identity(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	workspaceID := chi.URLParam(r, "workspaceID")
	channelID := chi.URLParam(r, "channelID")

	if err := h.members.RequireMember(r.Context(), workspaceID, userID); err != nil {
		apperr.WriteError(w, err)
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.WriteError(w, apperr.Validation("body", "malformed JSON"))
		return
	}

	m, err := h.service.Submit(r.Context(), SubmitInput{
		Content:     req.Content,
		ChannelID:   channelID,
		WorkspaceID: workspaceID,
		AuthorID:    userID,
		ReplyToID:   req.ReplyToID,
	})
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusCreated, m)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := middleware.Identity(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	workspaceID := chi.URLParam(r, "workspaceID")
	channelID := chi.URLParam(r, "channelID")

	if err := h.members.RequireMember(r.Context(), workspaceID, userID); err != nil {
		apperr.WriteError(w, err)
		return
	}

	limit := DefaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	messages, err := h.service.List(r.Context(), channelID, workspaceID, limit)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	if messages == nil {
		messages = []*Message{}
	}
	apperr.WriteJSON(w, http.StatusOK, messages)
}
