package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

const employeeQuery = `
    SELECT id, email, first_name, last_name, role, COALESCE(position, ''),
           COALESCE(department_id::text, ''), COALESCE(manager_id::text, ''),
           hire_date, is_active, two_factor_enabled, created_at
    FROM users`

func scanEmployee(row pgx.Row) (Employee, error) {
	var e Employee
	err := row.Scan(&e.ID, &e.Email, &e.FirstName, &e.LastName, &e.Role, &e.Position,
		&e.DepartmentID, &e.ManagerID, &e.HireDate, &e.IsActive, &e.TwoFactorEnabled, &e.CreatedAt)
	return e, err
}

func (s *Store) EmployeeByID(ctx context.Context, id string) (Employee, error) {
	e, err := scanEmployee(s.DB.QueryRow(ctx, employeeQuery+`
    WHERE id = $1
  `, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, fmt.Errorf("%w: employee %s", ErrNotFound, id)
	}
	return e, err
}

func (s *Store) EmailExists(ctx context.Context, email, excludeID string) (bool, error) {
	var exists bool
	err := s.DB.QueryRow(ctx, `
    SELECT EXISTS (SELECT 1 FROM users WHERE lower(email) = lower($1) AND id::text <> $2)
  `, email, excludeID).Scan(&exists)
	return exists, err
}

type EmployeeFilter struct {
	DepartmentID string
	ManagerID    string
	Role         string
	Search       string
	ActiveOnly   bool
	Limit        int
	Offset       int
}

func (s *Store) ListEmployees(ctx context.Context, filter EmployeeFilter) ([]Employee, int, error) {
	where := " WHERE 1=1"
	args := []any{}
	if filter.DepartmentID != "" {
		args = append(args, filter.DepartmentID)
		where += fmt.Sprintf(" AND department_id = $%d", len(args))
	}
	if filter.ManagerID != "" {
		args = append(args, filter.ManagerID)
		where += fmt.Sprintf(" AND manager_id = $%d", len(args))
	}
	if filter.Role != "" {
		args = append(args, filter.Role)
		where += fmt.Sprintf(" AND role = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where += fmt.Sprintf(" AND (first_name ILIKE $%d OR last_name ILIKE $%d OR email ILIKE $%d)",
			len(args), len(args), len(args))
	}
	if filter.ActiveOnly {
		where += " AND is_active"
	}

	var total int
	if err := s.DB.QueryRow(ctx, "SELECT count(*) FROM users"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := employeeQuery + where + " ORDER BY last_name, first_name"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var employees []Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, 0, err
		}
		employees = append(employees, e)
	}
	return employees, total, rows.Err()
}

func (s *Store) CreateEmployee(ctx context.Context, e Employee, passwordHash string) (Employee, error) {
	err := s.DB.QueryRow(ctx, `
    INSERT INTO users
      (email, first_name, last_name, role, position, department_id, manager_id,
       hire_date, is_active, two_factor_enabled, password_hash)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
    RETURNING id, created_at
  `, e.Email, e.FirstName, e.LastName, e.Role, nullable(e.Position),
		nullable(e.DepartmentID), nullable(e.ManagerID), e.HireDate,
		e.IsActive, e.TwoFactorEnabled, passwordHash).Scan(&e.ID, &e.CreatedAt)
	return e, err
}

func (s *Store) UpdateEmployee(ctx context.Context, e Employee) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE users SET
      email = $1, first_name = $2, last_name = $3, role = $4, position = $5,
      department_id = $6, manager_id = $7, hire_date = $8, is_active = $9,
      two_factor_enabled = $10, updated_at = now()
    WHERE id = $11
  `, e.Email, e.FirstName, e.LastName, e.Role, nullable(e.Position),
		nullable(e.DepartmentID), nullable(e.ManagerID), e.HireDate,
		e.IsActive, e.TwoFactorEnabled, e.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: employee %s", ErrNotFound, e.ID)
	}
	return nil
}

func (s *Store) DeactivateEmployee(ctx context.Context, id string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE users SET is_active = false, updated_at = now() WHERE id = $1
  `, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: employee %s", ErrNotFound, id)
	}
	return nil
}

// ManagerOf returns the employee's manager id, or "" at the top of the chain.
func (s *Store) ManagerOf(ctx context.Context, id string) (string, error) {
	var managerID *string
	err := s.DB.QueryRow(ctx, "SELECT manager_id FROM users WHERE id = $1", id).Scan(&managerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("%w: employee %s", ErrNotFound, id)
	}
	if err != nil {
		return "", err
	}
	if managerID == nil {
		return "", nil
	}
	return *managerID, nil
}

func (s *Store) ListDepartments(ctx context.Context) ([]Department, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT d.id, d.name, COALESCE(d.description, ''), COALESCE(d.manager_id::text, ''),
           count(u.id), d.created_at
    FROM departments d
    LEFT JOIN users u ON u.department_id = d.id AND u.is_active
    GROUP BY d.id
    ORDER BY d.name
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var departments []Department
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.ID, &d.Name, &d.Description, &d.ManagerID, &d.Headcount, &d.CreatedAt); err != nil {
			return nil, err
		}
		departments = append(departments, d)
	}
	return departments, rows.Err()
}

func (s *Store) CreateDepartment(ctx context.Context, d Department) (Department, error) {
	err := s.DB.QueryRow(ctx, `
    INSERT INTO departments (name, description, manager_id)
    VALUES ($1,$2,$3)
    RETURNING id, created_at
  `, d.Name, nullable(d.Description), nullable(d.ManagerID)).Scan(&d.ID, &d.CreatedAt)
	return d, err
}

func (s *Store) UpdateDepartment(ctx context.Context, d Department) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE departments SET name = $1, description = $2, manager_id = $3
    WHERE id = $4
  `, d.Name, nullable(d.Description), nullable(d.ManagerID), d.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: department %s", ErrNotFound, d.ID)
	}
	return nil
}

func (s *Store) DeleteDepartment(ctx context.Context, id string) error {
	var members int
	if err := s.DB.QueryRow(ctx, `
    SELECT count(*) FROM users WHERE department_id = $1
  `, id).Scan(&members); err != nil {
		return err
	}
	if members > 0 {
		return ErrDepartmentUsed
	}
	tag, err := s.DB.Exec(ctx, "DELETE FROM departments WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: department %s", ErrNotFound, id)
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
