package leave

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) LeaveType(ctx context.Context, id string) (LeaveType, error) {
	var lt LeaveType
	err := s.DB.QueryRow(ctx, `
    SELECT id, name, code, COALESCE(description, ''), days_per_year, is_paid, requires_approval, is_active, created_at
    FROM leave_types
    WHERE id = $1
  `, id).Scan(&lt.ID, &lt.Name, &lt.Code, &lt.Description, &lt.DaysPerYear, &lt.IsPaid, &lt.RequiresApproval, &lt.IsActive, &lt.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return LeaveType{}, fmt.Errorf("%w: leave type %s", ErrNotFound, id)
	}
	return lt, err
}

func (s *Store) HolidaysOverlapping(ctx context.Context, from, to time.Time) ([]Holiday, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name, date, COALESCE(description, ''), is_recurring
    FROM holidays
    WHERE is_recurring OR (date >= $1 AND date <= $2)
    ORDER BY date
  `, from, to)
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

func (s *Store) ManagerOf(ctx context.Context, userID string) (string, error) {
	var managerID *string
	err := s.DB.QueryRow(ctx, `
    SELECT manager_id FROM users WHERE id = $1
  `, userID).Scan(&managerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	if err != nil {
		return "", err
	}
	if managerID == nil {
		return "", nil
	}
	return *managerID, nil
}

func (s *Store) FindBalance(ctx context.Context, userID, leaveTypeID string, year int) (Balance, bool, error) {
	return scanBalance(s.DB.QueryRow(ctx, balanceQuery+`
    WHERE user_id = $1 AND leave_type_id = $2 AND year = $3
  `, userID, leaveTypeID, year))
}

func (s *Store) Transition(ctx context.Context, fn func(tx TransitionTx) error) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(&txStore{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type txStore struct {
	tx pgx.Tx
}

// EnsureBalance inserts the default row when none exists, then locks it. The
// insert waits on a concurrent insert of the same key until that transaction
// commits, which is what serializes two first submissions.
func (t *txStore) EnsureBalance(ctx context.Context, userID string, lt LeaveType, year int) (Balance, error) {
	def := DefaultBalance(userID, lt, year)
	def.ID = uuid.NewString()
	_, err := t.tx.Exec(ctx, `
    INSERT INTO leave_balances (id, user_id, leave_type_id, year, allocated_days, used_days, pending_days, carried_over_days)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    ON CONFLICT (user_id, leave_type_id, year) DO NOTHING
  `, def.ID, def.UserID, def.LeaveTypeID, def.Year,
		def.Allocated.String(), def.Used.String(), def.Pending.String(), def.CarriedOver.String())
	if err != nil {
		return Balance{}, err
	}

	balance, found, err := t.BalanceForUpdate(ctx, userID, lt.ID, year)
	if err != nil {
		return Balance{}, err
	}
	if !found {
		return Balance{}, fmt.Errorf("balance row missing after insert for user %s type %s year %d", userID, lt.ID, year)
	}
	return balance, nil
}

func (t *txStore) BalanceForUpdate(ctx context.Context, userID, leaveTypeID string, year int) (Balance, bool, error) {
	return scanBalance(t.tx.QueryRow(ctx, balanceQuery+`
    WHERE user_id = $1 AND leave_type_id = $2 AND year = $3
    FOR UPDATE
  `, userID, leaveTypeID, year))
}

func (t *txStore) SaveBalance(ctx context.Context, b Balance) error {
	_, err := t.tx.Exec(ctx, `
    INSERT INTO leave_balances (id, user_id, leave_type_id, year, allocated_days, used_days, pending_days, carried_over_days)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    ON CONFLICT (user_id, leave_type_id, year) DO UPDATE SET
      allocated_days = EXCLUDED.allocated_days,
      used_days = EXCLUDED.used_days,
      pending_days = EXCLUDED.pending_days,
      carried_over_days = EXCLUDED.carried_over_days,
      updated_at = now()
  `, b.ID, b.UserID, b.LeaveTypeID, b.Year,
		b.Allocated.String(), b.Used.String(), b.Pending.String(), b.CarriedOver.String())
	return err
}

func (t *txStore) HasBlockingOverlap(ctx context.Context, userID string, start, end time.Time) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `
    SELECT EXISTS (
      SELECT 1 FROM leave_requests
      WHERE user_id = $1
        AND status IN ('pending', 'approved')
        AND start_date <= $3
        AND end_date >= $2
    )
  `, userID, start, end).Scan(&exists)
	return exists, err
}

func (t *txStore) InsertRequest(ctx context.Context, req *Request) error {
	_, err := t.tx.Exec(ctx, `
    INSERT INTO leave_requests
      (id, user_id, leave_type_id, start_date, end_date, total_days, status, reason,
       attachment, is_half_day, half_day_segment, created_at, updated_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
  `, req.ID, req.UserID, req.LeaveTypeID, req.StartDate, req.EndDate,
		req.TotalDays.String(), string(req.Status), req.Reason,
		nullable(req.Attachment), req.IsHalfDay, nullable(req.HalfDaySegment),
		req.CreatedAt, req.UpdatedAt)
	return err
}

func (t *txStore) RequestForUpdate(ctx context.Context, id string) (Request, error) {
	req, err := scanRequest(t.tx.QueryRow(ctx, requestQuery+`
    WHERE id = $1
    FOR UPDATE
  `, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Request{}, fmt.Errorf("%w: request %s", ErrNotFound, id)
	}
	return req, err
}

func (t *txStore) UpdateRequest(ctx context.Context, req Request) error {
	_, err := t.tx.Exec(ctx, `
    UPDATE leave_requests SET
      status = $1,
      rejection_reason = $2,
      approved_by = $3,
      approved_at = $4,
      updated_at = $5
    WHERE id = $6
  `, string(req.Status), nullable(req.RejectionReason), nullable(req.ApprovedBy),
		req.ApprovedAt, req.UpdatedAt, req.ID)
	return err
}

const balanceQuery = `
    SELECT id, user_id, leave_type_id, year,
           allocated_days::text, used_days::text, pending_days::text, carried_over_days::text
    FROM leave_balances`

const requestQuery = `
    SELECT id, user_id, leave_type_id, start_date, end_date, total_days::text, status,
           reason, rejection_reason, approved_by, approved_at,
           attachment, is_half_day, half_day_segment, created_at, updated_at
    FROM leave_requests`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBalance(row rowScanner) (Balance, bool, error) {
	var b Balance
	var allocated, used, pending, carried string
	err := row.Scan(&b.ID, &b.UserID, &b.LeaveTypeID, &b.Year, &allocated, &used, &pending, &carried)
	if errors.Is(err, pgx.ErrNoRows) {
		return Balance{}, false, nil
	}
	if err != nil {
		return Balance{}, false, err
	}
	for _, pair := range []struct {
		dst *decimal.Decimal
		src string
	}{{&b.Allocated, allocated}, {&b.Used, used}, {&b.Pending, pending}, {&b.CarriedOver, carried}} {
		if *pair.dst, err = decimal.NewFromString(pair.src); err != nil {
			return Balance{}, false, err
		}
	}
	return b, true, nil
}

func scanRequest(row rowScanner) (Request, error) {
	var req Request
	var totalDays, status string
	var rejectionReason, approvedBy, attachment, segment *string
	err := row.Scan(&req.ID, &req.UserID, &req.LeaveTypeID, &req.StartDate, &req.EndDate,
		&totalDays, &status, &req.Reason, &rejectionReason, &approvedBy, &req.ApprovedAt,
		&attachment, &req.IsHalfDay, &segment, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return Request{}, err
	}
	if req.TotalDays, err = decimal.NewFromString(totalDays); err != nil {
		return Request{}, err
	}
	req.Status = Status(status)
	req.RejectionReason = deref(rejectionReason)
	req.ApprovedBy = deref(approvedBy)
	req.Attachment = deref(attachment)
	req.HalfDaySegment = deref(segment)
	return req, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
