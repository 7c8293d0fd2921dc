package leave

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

func (s *Store) CreateLeaveType(ctx context.Context, lt LeaveType) (LeaveType, error) {
	err := s.DB.QueryRow(ctx, `
    INSERT INTO leave_types (name, code, description, days_per_year, is_paid, requires_approval, is_active)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
    RETURNING id, created_at
  `, lt.Name, lt.Code, nullable(lt.Description), lt.DaysPerYear, lt.IsPaid, lt.RequiresApproval, lt.IsActive).
		Scan(&lt.ID, &lt.CreatedAt)
	return lt, err
}

func (s *Store) UpdateLeaveType(ctx context.Context, lt LeaveType) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE leave_types SET
      name = $1, code = $2, description = $3, days_per_year = $4,
      is_paid = $5, requires_approval = $6, is_active = $7
    WHERE id = $8
  `, lt.Name, lt.Code, nullable(lt.Description), lt.DaysPerYear, lt.IsPaid, lt.RequiresApproval, lt.IsActive, lt.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: leave type %s", ErrNotFound, lt.ID)
	}
	return nil
}

// DeleteLeaveType removes a type no request references; types with history
// are deactivated instead.
func (s *Store) DeleteLeaveType(ctx context.Context, id string) error {
	var inUse bool
	if err := s.DB.QueryRow(ctx, `
    SELECT EXISTS (SELECT 1 FROM leave_requests WHERE leave_type_id = $1)
  `, id).Scan(&inUse); err != nil {
		return err
	}
	if inUse {
		return ErrTypeInUse
	}
	tag, err := s.DB.Exec(ctx, `DELETE FROM leave_types WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: leave type %s", ErrNotFound, id)
	}
	return nil
}

func (s *Store) CreateHoliday(ctx context.Context, h Holiday) (Holiday, error) {
	err := s.DB.QueryRow(ctx, `
    INSERT INTO holidays (name, date, description, is_recurring)
    VALUES ($1,$2,$3,$4)
    RETURNING id
  `, h.Name, h.Date, nullable(h.Description), h.IsRecurring).Scan(&h.ID)
	return h, err
}

func (s *Store) UpdateHoliday(ctx context.Context, h Holiday) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE holidays SET name = $1, date = $2, description = $3, is_recurring = $4
    WHERE id = $5
  `, h.Name, h.Date, nullable(h.Description), h.IsRecurring, h.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: holiday %s", ErrNotFound, h.ID)
	}
	return nil
}

func (s *Store) DeleteHoliday(ctx context.Context, id string) error {
	tag, err := s.DB.Exec(ctx, `DELETE FROM holidays WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: holiday %s", ErrNotFound, id)
	}
	return nil
}

// AdjustBalance lets an admin set the allocated and carried-over quantities of
// one ledger row. Used and pending stay under lifecycle control.
func (s *Store) AdjustBalance(ctx context.Context, b Balance) (Balance, error) {
	err := s.Transition(ctx, func(tx TransitionTx) error {
		current, found, err := tx.BalanceForUpdate(ctx, b.UserID, b.LeaveTypeID, b.Year)
		if err != nil {
			return err
		}
		if !found {
			lt, err := s.LeaveType(ctx, b.LeaveTypeID)
			if err != nil {
				return err
			}
			current = DefaultBalance(b.UserID, lt, b.Year)
			current.ID = uuid.NewString()
		}
		current.Allocated = b.Allocated
		current.CarriedOver = b.CarriedOver
		if current.Remaining().IsNegative() {
			return fmt.Errorf("%w: adjustment leaves remaining negative", ErrLedgerUnderflow)
		}
		b = current
		return tx.SaveBalance(ctx, current)
	})
	return b, err
}

// AllocateYear materializes balance rows for every active user and leave type
// for the given year. Carry-over brings forward last year's remaining days,
// capped at capDays; existing rows are left untouched.
func (s *Store) AllocateYear(ctx context.Context, year int, capDays float64) (int64, error) {
	tag, err := s.DB.Exec(ctx, `
    INSERT INTO leave_balances (user_id, leave_type_id, year, allocated_days, carried_over_days)
    SELECT u.id, lt.id, $1, lt.days_per_year,
           COALESCE(LEAST($2::numeric, GREATEST(0,
             prev.allocated_days + prev.carried_over_days - prev.used_days - prev.pending_days)), 0)
    FROM users u
    CROSS JOIN leave_types lt
    LEFT JOIN leave_balances prev
      ON prev.user_id = u.id AND prev.leave_type_id = lt.id AND prev.year = $1 - 1
    WHERE u.is_active AND lt.is_active
    ON CONFLICT (user_id, leave_type_id, year) DO NOTHING
  `, year, capDays)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// RequestsInRange returns approved or pending requests touching the window,
// for the team calendar view.
func (s *Store) RequestsInRange(ctx context.Context, from, to time.Time) ([]Request, error) {
	rows, err := s.DB.Query(ctx, requestQuery+`
    WHERE status IN ('pending', 'approved')
      AND start_date <= $2
      AND end_date >= $1
    ORDER BY start_date
  `, from, to)
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
