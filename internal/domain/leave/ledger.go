package leave

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Balance is one (user, leave type, year) ledger row. All quantities are day
// counts with two-decimal precision. Rows are mutated only through the
// lifecycle transitions in Service; each mutation runs inside a transaction
// that holds the row lock.
type Balance struct {
	ID          string          `json:"id,omitempty"`
	UserID      string          `json:"userId"`
	LeaveTypeID string          `json:"leaveTypeId"`
	Year        int             `json:"year"`
	Allocated   decimal.Decimal `json:"allocatedDays"`
	Used        decimal.Decimal `json:"usedDays"`
	Pending     decimal.Decimal `json:"pendingDays"`
	CarriedOver decimal.Decimal `json:"carriedOverDays"`
}

// DefaultBalance is the virtual row used before any transition materializes
// one: the type's annual allotment, nothing used or pending.
func DefaultBalance(userID string, lt LeaveType, year int) Balance {
	return Balance{
		UserID:      userID,
		LeaveTypeID: lt.ID,
		Year:        year,
		Allocated:   decimal.NewFromInt(int64(lt.DaysPerYear)),
	}
}

func (b Balance) Remaining() decimal.Decimal {
	return b.Allocated.Add(b.CarriedOver).Sub(b.Used).Sub(b.Pending)
}

// Reserve holds days against the balance for a newly submitted request.
func (b *Balance) Reserve(days decimal.Decimal) error {
	if err := validateAmount(days); err != nil {
		return err
	}
	if b.Remaining().LessThan(days) {
		return fmt.Errorf("%w: remaining %s, requested %s", ErrInsufficientBalance, b.Remaining(), days)
	}
	b.Pending = b.Pending.Add(days)
	return nil
}

// Commit converts a reservation into usage on approval.
func (b *Balance) Commit(days decimal.Decimal) error {
	if err := validateAmount(days); err != nil {
		return err
	}
	if b.Pending.LessThan(days) {
		return fmt.Errorf("%w: pending %s, commit %s", ErrLedgerUnderflow, b.Pending, days)
	}
	b.Pending = b.Pending.Sub(days)
	b.Used = b.Used.Add(days)
	return nil
}

// Release drops a reservation on rejection or cancellation of a pending request.
func (b *Balance) Release(days decimal.Decimal) error {
	if err := validateAmount(days); err != nil {
		return err
	}
	if b.Pending.LessThan(days) {
		return fmt.Errorf("%w: pending %s, release %s", ErrLedgerUnderflow, b.Pending, days)
	}
	b.Pending = b.Pending.Sub(days)
	return nil
}

// ReverseUsage refunds usage when an approved, not-yet-started request is cancelled.
func (b *Balance) ReverseUsage(days decimal.Decimal) error {
	if err := validateAmount(days); err != nil {
		return err
	}
	if b.Used.LessThan(days) {
		return fmt.Errorf("%w: used %s, reverse %s", ErrLedgerUnderflow, b.Used, days)
	}
	b.Used = b.Used.Sub(days)
	return nil
}

func validateAmount(days decimal.Decimal) error {
	if !days.IsPositive() {
		return fmt.Errorf("%w: amount %s must be positive", ErrLedgerUnderflow, days)
	}
	return nil
}
