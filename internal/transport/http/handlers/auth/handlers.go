package authhandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"leavedesk/internal/domain/audit"
	"leavedesk/internal/domain/auth"
	"leavedesk/internal/domain/directory"
	"leavedesk/internal/transport/http/api"
	"leavedesk/internal/transport/http/middleware"
	"leavedesk/internal/transport/http/shared"
)

type Handler struct {
	Service   *auth.Service
	Directory *directory.Service
	Audit     *audit.Service
}

func NewHandler(service *auth.Service, dir *directory.Service, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Directory: dir, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.handleLogin)
		r.Post("/2fa/verify", h.handleVerifyTwoFactor)
		r.Post("/2fa/resend", h.handleResendTwoFactor)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Get("/me", h.handleMe)
			r.Post("/change-password", h.handleChangePassword)
			r.Post("/2fa/enable", h.handleSetTwoFactor(true))
			r.Post("/2fa/disable", h.handleSetTwoFactor(false))
		})
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	v := shared.NewValidator()
	v.Required("email", payload.Email, "email is required")
	v.Required("password", payload.Password, "password is required")
	if v.Reject(w, reqID) {
		return
	}

	result, err := h.Service.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password", reqID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "login_failed", "login failed", reqID)
		return
	}

	_ = h.Audit.Record(r.Context(), result.User.ID, "auth.login", "user", result.User.ID, reqID, shared.ClientIP(r), nil)
	api.Success(w, result, reqID)
}

// pendingUser extracts the user from a token that is still waiting on the
// two-factor step.
func (h *Handler) pendingUser(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	parts := strings.Split(header, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", false
	}
	claims, err := auth.ParseToken(h.Service.Secret, parts[1])
	if err != nil || !claims.TwoFactorPending {
		return "", false
	}
	return claims.UserID, true
}

func (h *Handler) handleVerifyTwoFactor(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	userID, ok := h.pendingUser(r)
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "a pending login token is required", reqID)
		return
	}

	var payload struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	token, err := h.Service.VerifyTwoFactor(r.Context(), userID, strings.TrimSpace(payload.Code))
	if err != nil {
		if errors.Is(err, auth.ErrCodeInvalid) {
			api.Fail(w, http.StatusUnauthorized, "code_invalid", "invalid or expired verification code", reqID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "verify_failed", "verification failed", reqID)
		return
	}

	_ = h.Audit.Record(r.Context(), userID, "auth.2fa.verify", "user", userID, reqID, shared.ClientIP(r), nil)
	api.Success(w, map[string]string{"token": token}, reqID)
}

func (h *Handler) handleResendTwoFactor(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	userID, ok := h.pendingUser(r)
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "a pending login token is required", reqID)
		return
	}
	if err := h.Service.ResendTwoFactor(r.Context(), userID); err != nil {
		api.Fail(w, http.StatusInternalServerError, "resend_failed", "could not resend code", reqID)
		return
	}
	api.Success(w, map[string]string{"status": "sent"}, reqID)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	employee, err := h.Directory.EmployeeByID(r.Context(), user.UserID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "profile_failed", "could not load profile", reqID)
		return
	}
	api.Success(w, employee, reqID)
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	var payload struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	v := shared.NewValidator()
	v.Required("currentPassword", payload.CurrentPassword, "current password is required")
	if len(payload.NewPassword) < 8 {
		v.Add("newPassword", "must be at least 8 characters")
	}
	if v.Reject(w, reqID) {
		return
	}

	if err := h.Service.ChangePassword(r.Context(), user.UserID, payload.CurrentPassword, payload.NewPassword); err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "current password is wrong", reqID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "change_password_failed", "could not change password", reqID)
		return
	}

	_ = h.Audit.Record(r.Context(), user.UserID, "auth.password.change", "user", user.UserID, reqID, shared.ClientIP(r), nil)
	api.Success(w, map[string]string{"status": "changed"}, reqID)
}

func (h *Handler) handleSetTwoFactor(enabled bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqID := middleware.GetRequestID(r.Context())
		user, _ := middleware.GetUser(r.Context())
		if err := h.Service.SetTwoFactorEnabled(r.Context(), user.UserID, enabled); err != nil {
			api.Fail(w, http.StatusInternalServerError, "twofactor_failed", "could not update two-factor setting", reqID)
			return
		}
		action := "auth.2fa.disable"
		if enabled {
			action = "auth.2fa.enable"
		}
		_ = h.Audit.Record(r.Context(), user.UserID, action, "user", user.UserID, reqID, shared.ClientIP(r), nil)
		api.Success(w, map[string]bool{"twoFactorEnabled": enabled}, reqID)
	}
}
