package directoryhandler

import (
	"encoding/json"
	"errors"
	"log/slog"
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
	Service *directory.Service
	Audit   *audit.Service
}

func NewHandler(service *directory.Service, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/employees", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermDirectoryRead)).Get("/", h.handleListEmployees)
		r.With(middleware.RequirePermission(auth.PermDirectoryRead)).Get("/{employeeID}", h.handleGetEmployee)
		r.With(middleware.RequirePermission(auth.PermDirectoryWrite)).Post("/", h.handleCreateEmployee)
		r.With(middleware.RequirePermission(auth.PermDirectoryWrite)).Put("/{employeeID}", h.handleUpdateEmployee)
		r.With(middleware.RequirePermission(auth.PermDirectoryWrite)).Delete("/{employeeID}", h.handleDeactivateEmployee)
	})
	r.With(middleware.RequirePermission(auth.PermLeaveApprove)).Get("/team", h.handleTeam)
	r.Route("/departments", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermDirectoryRead)).Get("/", h.handleListDepartments)
		r.With(middleware.RequirePermission(auth.PermDirectoryWrite)).Post("/", h.handleCreateDepartment)
		r.With(middleware.RequirePermission(auth.PermDirectoryWrite)).Put("/{departmentID}", h.handleUpdateDepartment)
		r.With(middleware.RequirePermission(auth.PermDirectoryWrite)).Delete("/{departmentID}", h.handleDeleteDepartment)
	})
}

func failDirectoryError(w http.ResponseWriter, err error, reqID string) {
	switch {
	case errors.Is(err, directory.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), reqID)
	case errors.Is(err, directory.ErrEmailTaken):
		api.Fail(w, http.StatusConflict, "email_taken", "email already registered", reqID)
	case errors.Is(err, directory.ErrManagerCycle):
		api.Fail(w, http.StatusConflict, "manager_cycle", "manager assignment creates a cycle", reqID)
	case errors.Is(err, directory.ErrInvalidRole):
		api.Fail(w, http.StatusBadRequest, "invalid_role", err.Error(), reqID)
	case errors.Is(err, directory.ErrDepartmentUsed):
		api.Fail(w, http.StatusConflict, "department_in_use", "department still has members", reqID)
	default:
		api.Fail(w, http.StatusInternalServerError, "directory_failed", "operation failed", reqID)
	}
}

func (h *Handler) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	page := shared.ParsePagination(r, 20, 100)
	q := r.URL.Query()

	employees, total, err := h.Service.ListEmployees(r.Context(), directory.EmployeeFilter{
		DepartmentID: q.Get("departmentId"),
		Role:         q.Get("role"),
		Search:       q.Get("search"),
		ActiveOnly:   q.Get("includeInactive") == "",
		Limit:        page.Limit,
		Offset:       page.Offset,
	})
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "employees_failed", "failed to list employees", reqID)
		return
	}
	api.Success(w, map[string]any{"items": employees, "total": total}, reqID)
}

func (h *Handler) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	employee, err := h.Service.EmployeeByID(r.Context(), chi.URLParam(r, "employeeID"))
	if err != nil {
		failDirectoryError(w, err, reqID)
		return
	}
	api.Success(w, employee, reqID)
}

type employeePayload struct {
	Email        string `json:"email"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Role         string `json:"role"`
	Position     string `json:"position"`
	DepartmentID string `json:"departmentId"`
	ManagerID    string `json:"managerId"`
	HireDate     string `json:"hireDate"`
	IsActive     *bool  `json:"isActive"`
	TwoFactor    bool   `json:"twoFactorEnabled"`
	Password     string `json:"password"`
}

func (p employeePayload) toEmployee(v *shared.Validator) directory.Employee {
	v.Required("email", p.Email, "email is required")
	if p.Email != "" && !strings.Contains(p.Email, "@") {
		v.Add("email", "must be a valid email address")
	}
	v.Required("firstName", p.FirstName, "first name is required")
	v.Required("lastName", p.LastName, "last name is required")
	v.Required("role", p.Role, "role is required")

	e := directory.Employee{
		Email:            strings.TrimSpace(p.Email),
		FirstName:        strings.TrimSpace(p.FirstName),
		LastName:         strings.TrimSpace(p.LastName),
		Role:             p.Role,
		Position:         p.Position,
		DepartmentID:     p.DepartmentID,
		ManagerID:        p.ManagerID,
		IsActive:         true,
		TwoFactorEnabled: p.TwoFactor,
	}
	if p.IsActive != nil {
		e.IsActive = *p.IsActive
	}
	if p.HireDate != "" {
		if hired, ok := v.Date("hireDate", p.HireDate); ok {
			e.HireDate = &hired
		}
	}
	return e
}

func (h *Handler) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	var payload employeePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	v := shared.NewValidator()
	employee := payload.toEmployee(v)
	if len(payload.Password) < 8 {
		v.Add("password", "must be at least 8 characters")
	}
	if v.Reject(w, reqID) {
		return
	}

	created, err := h.Service.CreateEmployee(r.Context(), employee, payload.Password)
	if err != nil {
		failDirectoryError(w, err, reqID)
		return
	}
	h.record(r, user.UserID, "directory.employee.create", "user", created.ID, created)
	api.Created(w, created, reqID)
}

func (h *Handler) handleUpdateEmployee(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	var payload employeePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	v := shared.NewValidator()
	employee := payload.toEmployee(v)
	if v.Reject(w, reqID) {
		return
	}
	employee.ID = chi.URLParam(r, "employeeID")

	if err := h.Service.UpdateEmployee(r.Context(), employee); err != nil {
		failDirectoryError(w, err, reqID)
		return
	}
	h.record(r, user.UserID, "directory.employee.update", "user", employee.ID, employee)
	api.Success(w, employee, reqID)
}

func (h *Handler) handleDeactivateEmployee(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	employeeID := chi.URLParam(r, "employeeID")

	if err := h.Service.DeactivateEmployee(r.Context(), employeeID); err != nil {
		failDirectoryError(w, err, reqID)
		return
	}
	h.record(r, user.UserID, "directory.employee.deactivate", "user", employeeID, nil)
	api.Success(w, map[string]string{"status": "deactivated"}, reqID)
}

func (h *Handler) handleTeam(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	team, err := h.Service.TeamOf(r.Context(), user.UserID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "team_failed", "failed to list team", reqID)
		return
	}
	api.Success(w, team, reqID)
}

func (h *Handler) handleListDepartments(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	departments, err := h.Service.ListDepartments(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "departments_failed", "failed to list departments", reqID)
		return
	}
	api.Success(w, departments, reqID)
}

type departmentPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ManagerID   string `json:"managerId"`
}

func (h *Handler) handleCreateDepartment(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	var payload departmentPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	v := shared.NewValidator()
	v.Required("name", payload.Name, "name is required")
	if v.Reject(w, reqID) {
		return
	}

	created, err := h.Service.CreateDepartment(r.Context(), directory.Department{
		Name:        strings.TrimSpace(payload.Name),
		Description: payload.Description,
		ManagerID:   payload.ManagerID,
	})
	if err != nil {
		failDirectoryError(w, err, reqID)
		return
	}
	h.record(r, user.UserID, "directory.department.create", "department", created.ID, created)
	api.Created(w, created, reqID)
}

func (h *Handler) handleUpdateDepartment(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	var payload departmentPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	v := shared.NewValidator()
	v.Required("name", payload.Name, "name is required")
	if v.Reject(w, reqID) {
		return
	}

	department := directory.Department{
		ID:          chi.URLParam(r, "departmentID"),
		Name:        strings.TrimSpace(payload.Name),
		Description: payload.Description,
		ManagerID:   payload.ManagerID,
	}
	if err := h.Service.UpdateDepartment(r.Context(), department); err != nil {
		failDirectoryError(w, err, reqID)
		return
	}
	h.record(r, user.UserID, "directory.department.update", "department", department.ID, department)
	api.Success(w, department, reqID)
}

func (h *Handler) handleDeleteDepartment(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	departmentID := chi.URLParam(r, "departmentID")

	if err := h.Service.DeleteDepartment(r.Context(), departmentID); err != nil {
		failDirectoryError(w, err, reqID)
		return
	}
	h.record(r, user.UserID, "directory.department.delete", "department", departmentID, nil)
	api.Success(w, map[string]string{"status": "deleted"}, reqID)
}

func (h *Handler) record(r *http.Request, actorID, action, entityType, entityID string, details any) {
	if err := h.Audit.Record(r.Context(), actorID, action, entityType, entityID,
		middleware.GetRequestID(r.Context()), shared.ClientIP(r), details); err != nil {
		slog.Warn("audit record failed", "action", action, "err", err)
	}
}
