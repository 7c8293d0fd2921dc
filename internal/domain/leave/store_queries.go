package leave

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"leavedesk/internal/domain/auth"
)

// RequestFilter narrows ListRequests. Zero values mean "no filter".
type RequestFilter struct {
	UserID string
	Status Status
	Year   int
	Limit  int
	Offset int
}

func (s *Store) RequestByID(ctx context.Context, id string) (Request, error) {
	req, err := scanRequest(s.DB.QueryRow(ctx, requestQuery+`
    WHERE id = $1
  `, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Request{}, fmt.Errorf("%w: request %s", ErrNotFound, id)
	}
	return req, err
}

func (s *Store) ListRequests(ctx context.Context, filter RequestFilter) ([]Request, int, error) {
	where := " WHERE 1=1"
	args := []any{}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		where += fmt.Sprintf(" AND user_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Year != 0 {
		args = append(args, filter.Year)
		where += fmt.Sprintf(" AND EXTRACT(YEAR FROM start_date) = $%d", len(args))
	}

	var total int
	if err := s.DB.QueryRow(ctx, "SELECT count(*) FROM leave_requests"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := requestQuery + where + " ORDER BY created_at DESC"
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

	var requests []Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		requests = append(requests, req)
	}
	return requests, total, rows.Err()
}

// PendingForApprover lists pending requests the actor may decide: an admin
// sees all of them, a manager only those of direct reports.
func (s *Store) PendingForApprover(ctx context.Context, actor Actor) ([]Request, error) {
	query := requestQuery + `
    WHERE status = 'pending'
    ORDER BY created_at
  `
	args := []any{}
	if actor.Role != auth.RoleAdmin {
		query = requestQuery + `
    WHERE status = 'pending'
      AND user_id IN (SELECT id FROM users WHERE manager_id = $1)
    ORDER BY created_at
  `
		args = append(args, actor.ID)
	}

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// BalancesForUser returns the user's materialized rows for the year plus a
// default row for every active leave type not yet touched.
func (s *Store) BalancesForUser(ctx context.Context, userID string, year int) ([]Balance, error) {
	types, err := s.ListLeaveTypes(ctx, true)
	if err != nil {
		return nil, err
	}

	rows, err := s.DB.Query(ctx, balanceQuery+`
    WHERE user_id = $1 AND year = $2
  `, userID, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stored := make(map[string]Balance)
	for rows.Next() {
		b, _, err := scanBalance(rows)
		if err != nil {
			return nil, err
		}
		stored[b.LeaveTypeID] = b
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	balances := make([]Balance, 0, len(types))
	for _, lt := range types {
		if b, ok := stored[lt.ID]; ok {
			balances = append(balances, b)
			continue
		}
		balances = append(balances, DefaultBalance(userID, lt, year))
	}
	return balances, nil
}

func (s *Store) ListLeaveTypes(ctx context.Context, activeOnly bool) ([]LeaveType, error) {
	query := `
    SELECT id, name, code, COALESCE(description, ''), days_per_year, is_paid, requires_approval, is_active, created_at
    FROM leave_types
  `
	if activeOnly {
		query += " WHERE is_active"
	}
	query += " ORDER BY name"

	rows, err := s.DB.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var types []LeaveType
	for rows.Next() {
		var lt LeaveType
		if err := rows.Scan(&lt.ID, &lt.Name, &lt.Code, &lt.Description, &lt.DaysPerYear, &lt.IsPaid, &lt.RequiresApproval, &lt.IsActive, &lt.CreatedAt); err != nil {
			return nil, err
		}
		types = append(types, lt)
	}
	return types, rows.Err()
}

func (s *Store) ListHolidays(ctx context.Context, year int) ([]Holiday, error) {
	query := `
    SELECT id, name, date, COALESCE(description, ''), is_recurring
    FROM holidays
  `
	args := []any{}
	if year != 0 {
		query += " WHERE is_recurring OR EXTRACT(YEAR FROM date) = $1"
		args = append(args, year)
	}
	query += " ORDER BY date"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holidays []Holiday
	for rows.Next() {
		var h Holiday
		if err := rows.Scan(&h.ID, &h.Name, &h.Date, &h.Description, &h.IsRecurring); err != nil {
			return nil, err
		}
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}
