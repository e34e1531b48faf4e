package user

import (
	"encoding/json"
	"net/http"

	"ylack/internal/apperr"
)

type Handler struct {
	Service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{Service: s}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.WriteError(w, apperr.Validation("body", "malformed JSON"))
		return
	}
	if req.Username == "" || req.Password == "" {
		apperr.WriteError(w, apperr.Validation("credentials", "username and password are required"))
		return
	}

	res, err := h.Service.Register(r.Context(), &req)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}

	apperr.WriteJSON(w, http.StatusCreated, res)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.WriteError(w, apperr.Validation("body", "malformed JSON"))
		return
	}

	res, err := h.Service.Login(r.Context(), &req)
	if err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	apperr.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Service.SearchUsers(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	if users == nil {
		users = []User{}
	}
	apperr.WriteJSON(w, http.StatusOK, users)
}
