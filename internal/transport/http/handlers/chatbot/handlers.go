package chatbothandler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"leavedesk/internal/domain/auth"
	"leavedesk/internal/domain/chatbot"
	"leavedesk/internal/transport/http/api"
	"leavedesk/internal/transport/http/middleware"
)

type Handler struct {
	Service *chatbot.Service
}

func NewHandler(service *chatbot.Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequirePermission(auth.PermChatbotUse)).Post("/chatbot/messages", h.handleMessage)
}

func (h *Handler) handleMessage(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	var payload struct {
		Messages []chatbot.Message `json:"messages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || len(payload.Messages) == 0 {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "at least one message is required", reqID)
		return
	}

	reply, err := h.Service.Ask(r.Context(), user.UserID, payload.Messages)
	if err != nil {
		switch {
		case errors.Is(err, chatbot.ErrRateLimited):
			api.Fail(w, http.StatusTooManyRequests, "rate_limited", "too many chatbot requests, slow down", reqID)
		case errors.Is(err, chatbot.ErrNotConfigured):
			api.Fail(w, http.StatusServiceUnavailable, "chatbot_unavailable", "chatbot is not configured", reqID)
		default:
			api.Fail(w, http.StatusBadGateway, "chatbot_failed", "chatbot request failed", reqID)
		}
		return
	}
	api.Success(w, map[string]string{"reply": reply}, reqID)
}
