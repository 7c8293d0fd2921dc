package leave

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"leavedesk/internal/domain/auth"
)

// Service owns the request lifecycle. Every transition runs as a single
// transaction: lock the balance row, check, mutate, write the request.
type Service struct {
	store TransitionStore
	now   func() time.Time
}

func NewService(store TransitionStore) *Service {
	return &Service{store: store, now: time.Now}
}

type SubmitInput struct {
	UserID         string
	LeaveTypeID    string
	StartDate      time.Time
	EndDate        time.Time
	Reason         string
	Attachment     string
	IsHalfDay      bool
	HalfDaySegment string
}

// Submit creates a pending request and reserves its days against the balance
// of the year the leave starts in.
func (s *Service) Submit(ctx context.Context, actor Actor, in SubmitInput) (Request, error) {
	if in.UserID != actor.ID && actor.Role != auth.RoleAdmin {
		return Request{}, fmt.Errorf("%w: cannot submit for another user", ErrNotAllowed)
	}
	if strings.TrimSpace(in.Reason) == "" {
		return Request{}, fmt.Errorf("reason is required")
	}
	if in.IsHalfDay && in.HalfDaySegment != SegmentMorning && in.HalfDaySegment != SegmentAfternoon {
		return Request{}, fmt.Errorf("half day segment must be %q or %q", SegmentMorning, SegmentAfternoon)
	}

	start := truncateToDay(in.StartDate)
	end := truncateToDay(in.EndDate)
	if end.Before(start) {
		return Request{}, fmt.Errorf("end date before start date")
	}

	lt, err := s.store.LeaveType(ctx, in.LeaveTypeID)
	if err != nil {
		return Request{}, err
	}
	if !lt.IsActive {
		return Request{}, fmt.Errorf("%w: leave type %s is inactive", ErrNotFound, lt.Code)
	}

	holidays, err := s.store.HolidaysOverlapping(ctx, start, end)
	if err != nil {
		return Request{}, err
	}
	days, err := ChargeableDays(start, end, in.IsHalfDay, NewHolidayCalendar(holidays, start, end))
	if err != nil {
		return Request{}, err
	}
	if days.IsZero() {
		return Request{}, ErrNoChargeableDays
	}

	now := s.now().UTC()
	req := Request{
		ID:          uuid.NewString(),
		UserID:      in.UserID,
		LeaveTypeID: in.LeaveTypeID,
		StartDate:   start,
		EndDate:     end,
		TotalDays:   days,
		Status:      StatusPending,
		Reason:      in.Reason,
		Attachment:  in.Attachment,
		IsHalfDay:   in.IsHalfDay,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.IsHalfDay {
		req.HalfDaySegment = in.HalfDaySegment
	}

	err = s.store.Transition(ctx, func(tx TransitionTx) error {
		balance, err := tx.EnsureBalance(ctx, in.UserID, lt, start.Year())
		if err != nil {
			return err
		}
		overlap, err := tx.HasBlockingOverlap(ctx, in.UserID, start, end)
		if err != nil {
			return err
		}
		if overlap {
			return ErrOverlap
		}
		if err := balance.Reserve(days); err != nil {
			return err
		}
		if err := tx.SaveBalance(ctx, balance); err != nil {
			return err
		}
		return tx.InsertRequest(ctx, &req)
	})
	if err != nil {
		return Request{}, err
	}
	return req, nil
}

// Approve moves a pending request to approved and converts its reservation
// into usage. Only an admin or the owner's direct manager may approve.
func (s *Service) Approve(ctx context.Context, actor Actor, requestID string) (Request, error) {
	return s.decide(ctx, actor, requestID, StatusApproved, "")
}

// Reject moves a pending request to rejected and releases its reservation.
func (s *Service) Reject(ctx context.Context, actor Actor, requestID, reason string) (Request, error) {
	if strings.TrimSpace(reason) == "" {
		return Request{}, fmt.Errorf("rejection reason is required")
	}
	return s.decide(ctx, actor, requestID, StatusRejected, reason)
}

func (s *Service) decide(ctx context.Context, actor Actor, requestID string, target Status, reason string) (Request, error) {
	var out Request
	err := s.store.Transition(ctx, func(tx TransitionTx) error {
		req, err := tx.RequestForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if req.Status != StatusPending {
			return fmt.Errorf("%w: request is %s", ErrInvalidTransition, req.Status)
		}
		managerID, err := s.store.ManagerOf(ctx, req.UserID)
		if err != nil {
			return err
		}
		if !CanApprove(actor, managerID) {
			return fmt.Errorf("%w: only an admin or the employee's manager may decide", ErrNotAllowed)
		}

		balance, found, err := tx.BalanceForUpdate(ctx, req.UserID, req.LeaveTypeID, req.StartDate.Year())
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("%w: balance row for request %s", ErrLedgerUnderflow, req.ID)
		}
		switch target {
		case StatusApproved:
			err = balance.Commit(req.TotalDays)
		case StatusRejected:
			err = balance.Release(req.TotalDays)
		}
		if err != nil {
			return err
		}
		if err := tx.SaveBalance(ctx, balance); err != nil {
			return err
		}

		now := s.now().UTC()
		req.Status = target
		req.ApprovedBy = actor.ID
		req.ApprovedAt = &now
		req.RejectionReason = reason
		req.UpdatedAt = now
		if err := tx.UpdateRequest(ctx, req); err != nil {
			return err
		}
		out = req
		return nil
	})
	if err != nil {
		return Request{}, err
	}
	return out, nil
}

// Cancel withdraws a request. Pending requests release their reservation;
// approved requests that have not started yet refund their usage. Approved
// requests already underway cannot be cancelled.
func (s *Service) Cancel(ctx context.Context, actor Actor, requestID string) (Request, error) {
	var out Request
	err := s.store.Transition(ctx, func(tx TransitionTx) error {
		req, err := tx.RequestForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if !CanCancel(actor, req.UserID) {
			return fmt.Errorf("%w: only the owner or an admin may cancel", ErrNotAllowed)
		}
		today := truncateToDay(s.now().UTC())
		if !req.CanBeCancelled(today) {
			return fmt.Errorf("%w: %s request starting %s cannot be cancelled", ErrInvalidTransition, req.Status, req.StartDate.Format(dayFormat))
		}

		balance, found, err := tx.BalanceForUpdate(ctx, req.UserID, req.LeaveTypeID, req.StartDate.Year())
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("%w: balance row for request %s", ErrLedgerUnderflow, req.ID)
		}
		if req.Status == StatusPending {
			err = balance.Release(req.TotalDays)
		} else {
			err = balance.ReverseUsage(req.TotalDays)
		}
		if err != nil {
			return err
		}
		if err := tx.SaveBalance(ctx, balance); err != nil {
			return err
		}

		req.Status = StatusCancelled
		req.UpdatedAt = s.now().UTC()
		if err := tx.UpdateRequest(ctx, req); err != nil {
			return err
		}
		out = req
		return nil
	})
	if err != nil {
		return Request{}, err
	}
	return out, nil
}

// BalanceFor returns the ledger row for (user, type, year), or the type's
// default allotment when no row has been materialized yet.
func (s *Service) BalanceFor(ctx context.Context, userID, leaveTypeID string, year int) (Balance, error) {
	balance, found, err := s.store.FindBalance(ctx, userID, leaveTypeID, year)
	if err != nil {
		return Balance{}, err
	}
	if found {
		return balance, nil
	}
	lt, err := s.store.LeaveType(ctx, leaveTypeID)
	if err != nil {
		return Balance{}, err
	}
	return DefaultBalance(userID, lt, year), nil
}

// Preview computes the chargeable days for a range without creating anything.
func (s *Service) Preview(ctx context.Context, start, end time.Time, halfDay bool) (decimal.Decimal, error) {
	start = truncateToDay(start)
	end = truncateToDay(end)
	if end.Before(start) {
		return decimal.Zero, fmt.Errorf("end date before start date")
	}
	holidays, err := s.store.HolidaysOverlapping(ctx, start, end)
	if err != nil {
		return decimal.Zero, err
	}
	return ChargeableDays(start, end, halfDay, NewHolidayCalendar(holidays, start, end))
}
