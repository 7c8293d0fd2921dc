package leavehandler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"leavedesk/internal/domain/auth"
	"leavedesk/internal/domain/leave"
	"leavedesk/internal/domain/notifications"
	"leavedesk/internal/transport/http/api"
	"leavedesk/internal/transport/http/middleware"
	"leavedesk/internal/transport/http/shared"
)

func actorOf(user auth.UserContext) leave.Actor {
	return leave.Actor{ID: user.UserID, Role: user.Role}
}

func (h *Handler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	page := shared.ParsePagination(r, 20, 100)

	filter := leave.RequestFilter{
		Status: leave.Status(r.URL.Query().Get("status")),
		Year:   shared.ParseYear(r, 0),
		Limit:  page.Limit,
		Offset: page.Offset,
	}
	if user.Role == auth.RoleAdmin {
		filter.UserID = r.URL.Query().Get("userId")
	} else {
		filter.UserID = user.UserID
	}

	requests, total, err := h.Store.ListRequests(r.Context(), filter)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "requests_failed", "failed to list requests", reqID)
		return
	}
	api.Success(w, map[string]any{"items": requests, "total": total}, reqID)
}

func (h *Handler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	requestID := chi.URLParam(r, "requestID")

	req, err := h.Store.RequestByID(r.Context(), requestID)
	if err != nil {
		failLeaveError(w, err, reqID)
		return
	}
	if !h.canView(r, user, req) {
		api.Fail(w, http.StatusForbidden, "forbidden", "cannot view this request", reqID)
		return
	}
	api.Success(w, req, reqID)
}

// canView allows the owner, an admin, or the owner's direct manager.
func (h *Handler) canView(r *http.Request, user auth.UserContext, req leave.Request) bool {
	if req.UserID == user.UserID || user.Role == auth.RoleAdmin {
		return true
	}
	if user.Role != auth.RoleManager {
		return false
	}
	managerID, err := h.Store.ManagerOf(r.Context(), req.UserID)
	return err == nil && managerID == user.UserID
}

func (h *Handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	v := shared.NewValidator()
	start, _ := v.Date("start", r.URL.Query().Get("start"))
	end, _ := v.Date("end", r.URL.Query().Get("end"))
	v.DateOrder("start", start, "end", end)
	if v.Reject(w, reqID) {
		return
	}
	halfDay := r.URL.Query().Get("halfDay") == "true"

	days, err := h.Service.Preview(r.Context(), start, end, halfDay)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "preview_failed", err.Error(), reqID)
		return
	}
	api.Success(w, map[string]string{"chargeableDays": days.String()}, reqID)
}

type requestPayload struct {
	UserID         string `json:"userId"`
	LeaveTypeID    string `json:"leaveTypeId"`
	StartDate      string `json:"startDate"`
	EndDate        string `json:"endDate"`
	Reason         string `json:"reason"`
	Attachment     string `json:"attachment"`
	IsHalfDay      bool   `json:"isHalfDay"`
	HalfDaySegment string `json:"halfDaySegment"`
}

func (h *Handler) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	var payload requestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	v := shared.NewValidator()
	v.Required("leaveTypeId", payload.LeaveTypeID, "leaveTypeId is required")
	v.Required("reason", payload.Reason, "reason is required")
	start, _ := v.Date("startDate", payload.StartDate)
	end, _ := v.Date("endDate", payload.EndDate)
	v.DateOrder("startDate", start, "endDate", end)
	if payload.IsHalfDay {
		v.Enum("halfDaySegment", payload.HalfDaySegment,
			[]string{leave.SegmentMorning, leave.SegmentAfternoon},
			"must be morning or afternoon")
		v.Required("halfDaySegment", payload.HalfDaySegment, "required for half-day requests")
	}
	if v.Reject(w, reqID) {
		return
	}

	targetID := user.UserID
	if payload.UserID != "" {
		targetID = payload.UserID
	}

	req, err := h.Service.Submit(r.Context(), actorOf(user), leave.SubmitInput{
		UserID:         targetID,
		LeaveTypeID:    payload.LeaveTypeID,
		StartDate:      start,
		EndDate:        end,
		Reason:         payload.Reason,
		Attachment:     payload.Attachment,
		IsHalfDay:      payload.IsHalfDay,
		HalfDaySegment: payload.HalfDaySegment,
	})
	if err != nil {
		failLeaveError(w, err, reqID)
		return
	}

	h.record(r, user.UserID, "leave.request.submit", "leave_request", req.ID, req)
	h.notifyManager(r, req)
	api.Created(w, req, reqID)
}

func (h *Handler) notifyManager(r *http.Request, req leave.Request) {
	managerID, err := h.Store.ManagerOf(r.Context(), req.UserID)
	if err != nil || managerID == "" {
		return
	}
	title := "New leave request"
	body := fmt.Sprintf("A leave request for %s to %s (%s days) is awaiting your decision.",
		req.StartDate.Format("2006-01-02"), req.EndDate.Format("2006-01-02"), req.TotalDays)
	_ = h.Notify.Notify(r.Context(), managerID, notifications.TypeLeaveSubmitted, title, body, req.ID)
}

func (h *Handler) handleApproveRequest(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	requestID := chi.URLParam(r, "requestID")

	req, err := h.Service.Approve(r.Context(), actorOf(user), requestID)
	if err != nil {
		failLeaveError(w, err, reqID)
		return
	}

	h.record(r, user.UserID, "leave.request.approve", "leave_request", req.ID, req)
	_ = h.Notify.Notify(r.Context(), req.UserID, notifications.TypeLeaveApproved,
		"Leave request approved",
		fmt.Sprintf("Your leave from %s to %s was approved.",
			req.StartDate.Format("2006-01-02"), req.EndDate.Format("2006-01-02")),
		req.ID)
	api.Success(w, req, reqID)
}

func (h *Handler) handleRejectRequest(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	requestID := chi.URLParam(r, "requestID")

	var payload struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	v := shared.NewValidator()
	v.Required("reason", payload.Reason, "a rejection reason is required")
	if v.Reject(w, reqID) {
		return
	}

	req, err := h.Service.Reject(r.Context(), actorOf(user), requestID, payload.Reason)
	if err != nil {
		failLeaveError(w, err, reqID)
		return
	}

	h.record(r, user.UserID, "leave.request.reject", "leave_request", req.ID, req)
	_ = h.Notify.Notify(r.Context(), req.UserID, notifications.TypeLeaveRejected,
		"Leave request rejected",
		fmt.Sprintf("Your leave from %s to %s was rejected: %s",
			req.StartDate.Format("2006-01-02"), req.EndDate.Format("2006-01-02"), payload.Reason),
		req.ID)
	api.Success(w, req, reqID)
}

func (h *Handler) handleCancelRequest(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	requestID := chi.URLParam(r, "requestID")

	req, err := h.Service.Cancel(r.Context(), actorOf(user), requestID)
	if err != nil {
		failLeaveError(w, err, reqID)
		return
	}

	h.record(r, user.UserID, "leave.request.cancel", "leave_request", req.ID, req)
	if managerID, err := h.Store.ManagerOf(r.Context(), req.UserID); err == nil && managerID != "" {
		_ = h.Notify.Notify(r.Context(), managerID, notifications.TypeLeaveCancelled,
			"Leave request cancelled",
			fmt.Sprintf("The leave from %s to %s was cancelled.",
				req.StartDate.Format("2006-01-02"), req.EndDate.Format("2006-01-02")),
			req.ID)
	}
	api.Success(w, req, reqID)
}

func (h *Handler) handleApprovalsInbox(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	requests, err := h.Store.PendingForApprover(r.Context(), actorOf(user))
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "approvals_failed", "failed to list pending approvals", reqID)
		return
	}
	api.Success(w, requests, reqID)
}

func (h *Handler) handleCalendar(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	v := shared.NewValidator()
	var from, to time.Time
	if raw := r.URL.Query().Get("from"); raw != "" {
		from, _ = v.Date("from", raw)
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		to, _ = v.Date("to", raw)
	}
	if from.IsZero() && to.IsZero() {
		now := time.Now().UTC()
		from = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	if to.IsZero() {
		to = from.AddDate(0, 1, -1)
	}
	if from.IsZero() {
		from = to.AddDate(0, -1, 1)
	}
	v.DateOrder("from", from, "to", to)
	if v.Reject(w, reqID) {
		return
	}

	requests, err := h.Store.RequestsInRange(r.Context(), from, to)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "calendar_failed", "failed to load calendar", reqID)
		return
	}
	holidays, err := h.Store.HolidaysOverlapping(r.Context(), from, to)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "calendar_failed", "failed to load calendar", reqID)
		return
	}
	api.Success(w, map[string]any{"requests": requests, "holidays": holidays}, reqID)
}
