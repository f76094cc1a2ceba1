// Package api provides HTTP handlers for the CBAg chat API.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/cbag-ai/cbag-web/internal/chat"
	"github.com/cbag-ai/cbag-web/internal/geo"
	"github.com/cbag-ai/cbag-web/internal/identity"
	"github.com/go-chi/chi/v5"
)

// maxRequestBodySize caps chat API request bodies (64KB is plenty for a
// chat message).
const maxRequestBodySize = 64 << 10

// Handler serves the chat API.
type Handler struct {
	chat *chat.Service
	geo  *geo.Service
}

// NewHandler creates a new Handler.
func NewHandler(chatSvc *chat.Service, geoSvc *geo.Service) *Handler {
	return &Handler{chat: chatSvc, geo: geoSvc}
}

// RegisterRoutes mounts the chat API under /api.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/session", h.handleSession)
		r.Post("/chat/message", h.handleMessage)
		r.Post("/auth/login", h.handleLogin)
		r.Post("/auth/logout", h.handleLogout)
		r.Get("/greeting", h.handleGreeting)
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// sessionResponse wraps a view, optionally with a user-facing error.
type sessionResponse struct {
	Session chat.View `json:"session"`
	Error   string    `json:"error,omitempty"`
}

type messageRequest struct {
	Message string `json:"message"`
}

func (h *Handler) handleMessage(w http.ResponseWriter, r *http.Request) {
	deviceID := identity.DeviceIDFromContext(r.Context())

	var req messageRequest
	body := http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	view, err := h.chat.Submit(r.Context(), deviceID, req.Message)
	switch {
	case err == nil:
		JSON(w, http.StatusOK, sessionResponse{Session: view})
	case errors.Is(err, chat.ErrEmptyInput):
		Error(w, http.StatusBadRequest, "message cannot be empty")
	case errors.Is(err, chat.ErrBusy):
		Error(w, http.StatusConflict, "a message is already being processed")
	case errors.Is(err, chat.ErrTrialExhausted), errors.Is(err, chat.ErrLocked):
		JSON(w, http.StatusForbidden, sessionResponse{
			Session: view,
			Error:   "free trial exhausted, please register to continue",
		})
	default:
		Error(w, http.StatusInternalServerError, "failed to process message")
	}
}

type loginRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	deviceID := identity.DeviceIDFromContext(r.Context())

	var req loginRequest
	body := http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		Error(w, http.StatusBadRequest, "a valid email is required")
		return
	}

	view := h.chat.Login(r.Context(), deviceID, req.Email, strings.TrimSpace(req.DisplayName))
	JSON(w, http.StatusOK, sessionResponse{Session: view})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	deviceID := identity.DeviceIDFromContext(r.Context())
	view := h.chat.Logout(r.Context(), deviceID)
	JSON(w, http.StatusOK, sessionResponse{Session: view})
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	deviceID := identity.DeviceIDFromContext(r.Context())
	view := h.chat.ViewFor(r.Context(), deviceID)
	JSON(w, http.StatusOK, sessionResponse{Session: view})
}

func (h *Handler) handleGreeting(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.geo.Greeting(r.Context()))
}
