package directory

import (
	"context"
	"fmt"
	"strings"

	"leavedesk/internal/domain/auth"
)

// managerWalkLimit bounds the cycle check walk; chains deeper than this are
// treated as cyclic.
const managerWalkLimit = 64

type managerLookup interface {
	ManagerOf(ctx context.Context, id string) (string, error)
}

type Service struct {
	Store *Store
}

func NewService(store *Store) *Service {
	return &Service{Store: store}
}

func (s *Service) CreateEmployee(ctx context.Context, e Employee, password string) (Employee, error) {
	if err := s.validate(ctx, e); err != nil {
		return Employee{}, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return Employee{}, err
	}
	return s.Store.CreateEmployee(ctx, e, hash)
}

func (s *Service) UpdateEmployee(ctx context.Context, e Employee) error {
	if err := s.validate(ctx, e); err != nil {
		return err
	}
	return s.Store.UpdateEmployee(ctx, e)
}

func (s *Service) validate(ctx context.Context, e Employee) error {
	if !auth.ValidRole(e.Role) {
		return fmt.Errorf("%w: %q", ErrInvalidRole, e.Role)
	}
	taken, err := s.Store.EmailExists(ctx, strings.TrimSpace(e.Email), e.ID)
	if err != nil {
		return err
	}
	if taken {
		return ErrEmailTaken
	}
	if e.ManagerID != "" {
		if e.ManagerID == e.ID {
			return ErrManagerCycle
		}
		if err := checkManagerCycle(ctx, s.Store, e.ID, e.ManagerID); err != nil {
			return err
		}
	}
	return nil
}

// checkManagerCycle walks up from the proposed manager; hitting the employee
// again means the assignment would close a loop.
func checkManagerCycle(ctx context.Context, lookup managerLookup, employeeID, managerID string) error {
	current := managerID
	for i := 0; current != "" && i < managerWalkLimit; i++ {
		if current == employeeID {
			return ErrManagerCycle
		}
		next, err := lookup.ManagerOf(ctx, current)
		if err != nil {
			return err
		}
		current = next
	}
	if current != "" {
		return ErrManagerCycle
	}
	return nil
}

func (s *Service) EmployeeByID(ctx context.Context, id string) (Employee, error) {
	return s.Store.EmployeeByID(ctx, id)
}

func (s *Service) ListEmployees(ctx context.Context, filter EmployeeFilter) ([]Employee, int, error) {
	return s.Store.ListEmployees(ctx, filter)
}

func (s *Service) DeactivateEmployee(ctx context.Context, id string) error {
	return s.Store.DeactivateEmployee(ctx, id)
}

// TeamOf lists the manager's active direct reports.
func (s *Service) TeamOf(ctx context.Context, managerID string) ([]Employee, error) {
	team, _, err := s.Store.ListEmployees(ctx, EmployeeFilter{ManagerID: managerID, ActiveOnly: true})
	return team, err
}

func (s *Service) ListDepartments(ctx context.Context) ([]Department, error) {
	return s.Store.ListDepartments(ctx)
}

func (s *Service) CreateDepartment(ctx context.Context, d Department) (Department, error) {
	return s.Store.CreateDepartment(ctx, d)
}

func (s *Service) UpdateDepartment(ctx context.Context, d Department) error {
	return s.Store.UpdateDepartment(ctx, d)
}

func (s *Service) DeleteDepartment(ctx context.Context, id string) error {
	return s.Store.DeleteDepartment(ctx, id)
}
