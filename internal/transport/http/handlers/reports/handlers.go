package reportshandler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"leavedesk/internal/domain/auth"
	"leavedesk/internal/domain/leave"
	"leavedesk/internal/domain/reports"
	"leavedesk/internal/transport/http/api"
	"leavedesk/internal/transport/http/middleware"
	"leavedesk/internal/transport/http/shared"
)

type Handler struct {
	Service    *reports.Service
	LeaveStore *leave.Store
}

func NewHandler(service *reports.Service, leaveStore *leave.Store) *Handler {
	return &Handler{Service: service, LeaveStore: leaveStore}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequireAuth).Get("/dashboard", h.handleDashboard)
	r.Route("/reports", func(r chi.Router) {
		r.Use(middleware.RequirePermission(auth.PermReportsRead))
		r.Get("/overview", h.handleOverview)
		r.Get("/by-type", h.handleByType)
		r.Get("/by-department", h.handleByDepartment)
		r.Get("/monthly", h.handleMonthly)
		r.Get("/top-takers", h.handleTopTakers)
		r.Get("/export.csv", h.handleExportCSV)
		r.Get("/export.pdf", h.handleExportPDF)
	})
}

// handleDashboard assembles the landing view: the caller's balances, recent
// requests, and (for approvers) the pending inbox size.
func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	year := shared.ParseYear(r, time.Now().Year())

	balances, err := h.LeaveStore.BalancesForUser(r.Context(), user.UserID, year)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "dashboard_failed", "failed to load dashboard", reqID)
		return
	}
	recent, _, err := h.LeaveStore.ListRequests(r.Context(), leave.RequestFilter{
		UserID: user.UserID,
		Limit:  5,
	})
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "dashboard_failed", "failed to load dashboard", reqID)
		return
	}

	payload := map[string]any{
		"year":           year,
		"balances":       balances,
		"recentRequests": recent,
	}
	if user.Role == auth.RoleManager || user.Role == auth.RoleAdmin {
		pending, err := h.LeaveStore.PendingForApprover(r.Context(), leave.Actor{ID: user.UserID, Role: user.Role})
		if err != nil {
			api.Fail(w, http.StatusInternalServerError, "dashboard_failed", "failed to load dashboard", reqID)
			return
		}
		payload["pendingApprovals"] = len(pending)
	}
	api.Success(w, payload, reqID)
}

func (h *Handler) handleOverview(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	overview, err := h.Service.Overview(r.Context(), shared.ParseYear(r, time.Now().Year()))
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to build report", reqID)
		return
	}
	api.Success(w, overview, reqID)
}

func (h *Handler) handleByType(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	usage, err := h.Service.ByType(r.Context(), shared.ParseYear(r, time.Now().Year()))
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to build report", reqID)
		return
	}
	api.Success(w, usage, reqID)
}

func (h *Handler) handleByDepartment(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	usage, err := h.Service.ByDepartment(r.Context(), shared.ParseYear(r, time.Now().Year()))
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to build report", reqID)
		return
	}
	api.Success(w, usage, reqID)
}

func (h *Handler) handleMonthly(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	usage, err := h.Service.Monthly(r.Context(), shared.ParseYear(r, time.Now().Year()))
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to build report", reqID)
		return
	}
	api.Success(w, usage, reqID)
}

func (h *Handler) handleTopTakers(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	page := shared.ParsePagination(r, 10, 50)
	takers, err := h.Service.TopTakers(r.Context(), shared.ParseYear(r, time.Now().Year()), page.Limit)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to build report", reqID)
		return
	}
	api.Success(w, takers, reqID)
}

func (h *Handler) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	year := shared.ParseYear(r, time.Now().Year())
	data, err := h.Service.ExportCSV(r.Context(), year)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "export_failed", "failed to export report", reqID)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=leave-%d.csv", year))
	_, _ = w.Write(data)
}

func (h *Handler) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	year := shared.ParseYear(r, time.Now().Year())
	data, err := h.Service.ExportPDF(r.Context(), year)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "export_failed", "failed to export report", reqID)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=leave-%d.pdf", year))
	_, _ = w.Write(data)
}
