package leavehandler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"leavedesk/internal/domain/audit"
	"leavedesk/internal/domain/auth"
	"leavedesk/internal/domain/leave"
	"leavedesk/internal/domain/notifications"
	"leavedesk/internal/transport/http/api"
	"leavedesk/internal/transport/http/middleware"
	"leavedesk/internal/transport/http/shared"
)

type Handler struct {
	Service      *leave.Service
	Store        *leave.Store
	Notify       *notifications.Service
	Audit        *audit.Service
	CarryOverCap float64
}

func NewHandler(service *leave.Service, store *leave.Store, notify *notifications.Service, auditSvc *audit.Service, carryOverCap float64) *Handler {
	return &Handler{Service: service, Store: store, Notify: notify, Audit: auditSvc, CarryOverCap: carryOverCap}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/leave", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermLeaveRead)).Get("/types", h.handleListTypes)
		r.With(middleware.RequirePermission(auth.PermTypesManage)).Post("/types", h.handleCreateType)
		r.With(middleware.RequirePermission(auth.PermTypesManage)).Put("/types/{typeID}", h.handleUpdateType)
		r.With(middleware.RequirePermission(auth.PermTypesManage)).Delete("/types/{typeID}", h.handleDeleteType)

		r.With(middleware.RequirePermission(auth.PermLeaveRead)).Get("/holidays", h.handleListHolidays)
		r.With(middleware.RequirePermission(auth.PermHolidaysManage)).Post("/holidays", h.handleCreateHoliday)
		r.With(middleware.RequirePermission(auth.PermHolidaysManage)).Put("/holidays/{holidayID}", h.handleUpdateHoliday)
		r.With(middleware.RequirePermission(auth.PermHolidaysManage)).Delete("/holidays/{holidayID}", h.handleDeleteHoliday)

		r.With(middleware.RequirePermission(auth.PermLeaveRead)).Get("/balances", h.handleListBalances)
		r.With(middleware.RequirePermission(auth.PermBalancesManage)).Post("/balances/adjust", h.handleAdjustBalance)
		r.With(middleware.RequirePermission(auth.PermBalancesManage)).Post("/balances/allocate", h.handleAllocateYear)

		r.With(middleware.RequirePermission(auth.PermLeaveRead)).Get("/requests", h.handleListRequests)
		r.With(middleware.RequirePermission(auth.PermLeaveRead)).Get("/requests/preview", h.handlePreview)
		r.With(middleware.RequirePermission(auth.PermLeaveRead)).Get("/requests/{requestID}", h.handleGetRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveWrite)).Post("/requests", h.handleCreateRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove)).Post("/requests/{requestID}/approve", h.handleApproveRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove)).Post("/requests/{requestID}/reject", h.handleRejectRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveWrite)).Post("/requests/{requestID}/cancel", h.handleCancelRequest)

		r.With(middleware.RequirePermission(auth.PermLeaveApprove)).Get("/approvals", h.handleApprovalsInbox)
		r.With(middleware.RequirePermission(auth.PermLeaveRead)).Get("/calendar", h.handleCalendar)
	})
}

func failLeaveError(w http.ResponseWriter, err error, reqID string) {
	switch {
	case errors.Is(err, leave.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), reqID)
	case errors.Is(err, leave.ErrOverlap):
		api.Fail(w, http.StatusConflict, "overlapping_request", "the range overlaps an existing pending or approved request", reqID)
	case errors.Is(err, leave.ErrInsufficientBalance):
		api.Fail(w, http.StatusConflict, "insufficient_balance", err.Error(), reqID)
	case errors.Is(err, leave.ErrInvalidTransition):
		api.Fail(w, http.StatusConflict, "invalid_transition", err.Error(), reqID)
	case errors.Is(err, leave.ErrNotAllowed):
		api.Fail(w, http.StatusForbidden, "forbidden", err.Error(), reqID)
	case errors.Is(err, leave.ErrNoChargeableDays):
		api.Fail(w, http.StatusBadRequest, "no_chargeable_days", "the range contains only weekends and holidays", reqID)
	case errors.Is(err, leave.ErrTypeInUse):
		api.Fail(w, http.StatusConflict, "type_in_use", "leave type has requests and cannot be deleted", reqID)
	default:
		api.Fail(w, http.StatusInternalServerError, "leave_operation_failed", "operation failed", reqID)
	}
}

func (h *Handler) handleListTypes(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	activeOnly := user.Role != auth.RoleAdmin || r.URL.Query().Get("all") == ""
	types, err := h.Store.ListLeaveTypes(r.Context(), activeOnly)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "leave_types_failed", "failed to list leave types", reqID)
		return
	}
	api.Success(w, types, reqID)
}

type leaveTypePayload struct {
	Name             string `json:"name"`
	Code             string `json:"code"`
	Description      string `json:"description"`
	DaysPerYear      int    `json:"daysPerYear"`
	IsPaid           bool   `json:"isPaid"`
	RequiresApproval bool   `json:"requiresApproval"`
	IsActive         bool   `json:"isActive"`
}

func (p leaveTypePayload) validate(v *shared.Validator) {
	v.Required("name", p.Name, "name is required")
	v.Required("code", p.Code, "code is required")
	if p.DaysPerYear < 0 || p.DaysPerYear > 366 {
		v.Add("daysPerYear", "must be between 0 and 366")
	}
}

func (h *Handler) handleCreateType(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	var payload leaveTypePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	v := shared.NewValidator()
	payload.validate(v)
	if v.Reject(w, reqID) {
		return
	}

	created, err := h.Store.CreateLeaveType(r.Context(), leave.LeaveType{
		Name:             payload.Name,
		Code:             strings.ToUpper(strings.TrimSpace(payload.Code)),
		Description:      payload.Description,
		DaysPerYear:      payload.DaysPerYear,
		IsPaid:           payload.IsPaid,
		RequiresApproval: payload.RequiresApproval,
		IsActive:         payload.IsActive,
	})
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "leave_type_create_failed", "failed to create leave type", reqID)
		return
	}
	h.record(r, user.UserID, "leave.type.create", "leave_type", created.ID, created)
	api.Created(w, created, reqID)
}

func (h *Handler) handleUpdateType(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	typeID := chi.URLParam(r, "typeID")

	var payload leaveTypePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	v := shared.NewValidator()
	payload.validate(v)
	if v.Reject(w, reqID) {
		return
	}

	lt := leave.LeaveType{
		ID:               typeID,
		Name:             payload.Name,
		Code:             strings.ToUpper(strings.TrimSpace(payload.Code)),
		Description:      payload.Description,
		DaysPerYear:      payload.DaysPerYear,
		IsPaid:           payload.IsPaid,
		RequiresApproval: payload.RequiresApproval,
		IsActive:         payload.IsActive,
	}
	if err := h.Store.UpdateLeaveType(r.Context(), lt); err != nil {
		failLeaveError(w, err, reqID)
		return
	}
	h.record(r, user.UserID, "leave.type.update", "leave_type", typeID, lt)
	api.Success(w, lt, reqID)
}

func (h *Handler) handleDeleteType(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	typeID := chi.URLParam(r, "typeID")

	if err := h.Store.DeleteLeaveType(r.Context(), typeID); err != nil {
		failLeaveError(w, err, reqID)
		return
	}
	h.record(r, user.UserID, "leave.type.delete", "leave_type", typeID, nil)
	api.Success(w, map[string]string{"status": "deleted"}, reqID)
}

func (h *Handler) handleListHolidays(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	year := shared.ParseYear(r, time.Now().Year())
	holidays, err := h.Store.ListHolidays(r.Context(), year)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "holidays_failed", "failed to list holidays", reqID)
		return
	}
	api.Success(w, holidays, reqID)
}

type holidayPayload struct {
	Name        string `json:"name"`
	Date        string `json:"date"`
	Description string `json:"description"`
	IsRecurring bool   `json:"isRecurring"`
}

func (h *Handler) handleCreateHoliday(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	var payload holidayPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	v := shared.NewValidator()
	v.Required("name", payload.Name, "name is required")
	date, _ := v.Date("date", payload.Date)
	if v.Reject(w, reqID) {
		return
	}

	created, err := h.Store.CreateHoliday(r.Context(), leave.Holiday{
		Name:        payload.Name,
		Date:        date,
		Description: payload.Description,
		IsRecurring: payload.IsRecurring,
	})
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "holiday_create_failed", "failed to create holiday", reqID)
		return
	}
	h.record(r, user.UserID, "leave.holiday.create", "holiday", created.ID, created)
	api.Created(w, created, reqID)
}

func (h *Handler) handleUpdateHoliday(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	holidayID := chi.URLParam(r, "holidayID")

	var payload holidayPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	v := shared.NewValidator()
	v.Required("name", payload.Name, "name is required")
	date, _ := v.Date("date", payload.Date)
	if v.Reject(w, reqID) {
		return
	}

	holiday := leave.Holiday{
		ID:          holidayID,
		Name:        payload.Name,
		Date:        date,
		Description: payload.Description,
		IsRecurring: payload.IsRecurring,
	}
	if err := h.Store.UpdateHoliday(r.Context(), holiday); err != nil {
		failLeaveError(w, err, reqID)
		return
	}
	h.record(r, user.UserID, "leave.holiday.update", "holiday", holidayID, holiday)
	api.Success(w, holiday, reqID)
}

func (h *Handler) handleDeleteHoliday(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	holidayID := chi.URLParam(r, "holidayID")

	if err := h.Store.DeleteHoliday(r.Context(), holidayID); err != nil {
		failLeaveError(w, err, reqID)
		return
	}
	h.record(r, user.UserID, "leave.holiday.delete", "holiday", holidayID, nil)
	api.Success(w, map[string]string{"status": "deleted"}, reqID)
}

func (h *Handler) handleListBalances(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	targetID := user.UserID
	if requested := r.URL.Query().Get("userId"); requested != "" && requested != user.UserID {
		if !h.canViewBalances(r, user, requested) {
			api.Fail(w, http.StatusForbidden, "forbidden", "cannot view another user's balances", reqID)
			return
		}
		targetID = requested
	}
	year := shared.ParseYear(r, time.Now().Year())

	balances, err := h.Store.BalancesForUser(r.Context(), targetID, year)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "balances_failed", "failed to list balances", reqID)
		return
	}
	api.Success(w, balances, reqID)
}

// canViewBalances allows an admin, or a manager for their direct reports.
func (h *Handler) canViewBalances(r *http.Request, user auth.UserContext, targetID string) bool {
	if user.Role == auth.RoleAdmin {
		return true
	}
	if user.Role != auth.RoleManager {
		return false
	}
	managerID, err := h.Store.ManagerOf(r.Context(), targetID)
	return err == nil && managerID == user.UserID
}

func (h *Handler) handleAdjustBalance(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	var payload struct {
		UserID      string `json:"userId"`
		LeaveTypeID string `json:"leaveTypeId"`
		Year        int    `json:"year"`
		Allocated   string `json:"allocatedDays"`
		CarriedOver string `json:"carriedOverDays"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	v := shared.NewValidator()
	v.Required("userId", payload.UserID, "userId is required")
	v.Required("leaveTypeId", payload.LeaveTypeID, "leaveTypeId is required")
	if payload.Year < 2000 || payload.Year > 2200 {
		v.Add("year", "must be a plausible year")
	}
	allocated, err := decimal.NewFromString(payload.Allocated)
	if err != nil || allocated.IsNegative() {
		v.Add("allocatedDays", "must be a non-negative number")
	}
	carried := decimal.Zero
	if payload.CarriedOver != "" {
		if carried, err = decimal.NewFromString(payload.CarriedOver); err != nil || carried.IsNegative() {
			v.Add("carriedOverDays", "must be a non-negative number")
		}
	}
	if v.Reject(w, reqID) {
		return
	}

	adjusted, err := h.Store.AdjustBalance(r.Context(), leave.Balance{
		UserID:      payload.UserID,
		LeaveTypeID: payload.LeaveTypeID,
		Year:        payload.Year,
		Allocated:   allocated,
		CarriedOver: carried,
	})
	if err != nil {
		failLeaveError(w, err, reqID)
		return
	}
	h.record(r, user.UserID, "leave.balance.adjust", "leave_balance", adjusted.ID, adjusted)
	api.Success(w, adjusted, reqID)
}

func (h *Handler) handleAllocateYear(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	var payload struct {
		Year int `json:"year"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	if payload.Year < 2000 || payload.Year > 2200 {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "year must be plausible", reqID)
		return
	}

	created, err := h.Store.AllocateYear(r.Context(), payload.Year, h.CarryOverCap)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "allocate_failed", "failed to allocate balances", reqID)
		return
	}
	h.record(r, user.UserID, "leave.balance.allocate", "leave_balance", fmt.Sprintf("year:%d", payload.Year), map[string]any{"year": payload.Year, "created": created})
	api.Success(w, map[string]any{"year": payload.Year, "created": created}, reqID)
}

func (h *Handler) record(r *http.Request, actorID, action, entityType, entityID string, details any) {
	if err := h.Audit.Record(r.Context(), actorID, action, entityType, entityID,
		middleware.GetRequestID(r.Context()), shared.ClientIP(r), details); err != nil {
		slog.Warn("audit record failed", "action", action, "err", err)
	}
}
