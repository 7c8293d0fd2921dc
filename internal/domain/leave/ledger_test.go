package leave

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func testBalance() Balance {
	return Balance{
		UserID:      "u1",
		LeaveTypeID: "lt1",
		Year:        2025,
		Allocated:   decimal.NewFromInt(20),
		CarriedOver: decimal.NewFromInt(3),
	}
}

func TestRemaining(t *testing.T) {
	b := testBalance()
	b.Used = decimal.NewFromInt(4)
	b.Pending = decimal.NewFromInt(2)

	if got := b.Remaining(); !got.Equal(decimal.NewFromInt(17)) {
		t.Fatalf("expected remaining 17, got %s", got)
	}
}

func TestReserveCommitCycle(t *testing.T) {
	b := testBalance()
	five := decimal.NewFromInt(5)

	if err := b.Reserve(five); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if !b.Pending.Equal(five) {
		t.Fatalf("expected pending 5, got %s", b.Pending)
	}

	if err := b.Commit(five); err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if !b.Pending.IsZero() || !b.Used.Equal(five) {
		t.Fatalf("expected pending 0 used 5, got pending %s used %s", b.Pending, b.Used)
	}
}

func TestReserveInsufficient(t *testing.T) {
	b := testBalance()
	err := b.Reserve(decimal.NewFromInt(24))
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if !b.Pending.IsZero() {
		t.Fatalf("failed reserve must not mutate, pending %s", b.Pending)
	}
}

func TestReleaseRestoresRemaining(t *testing.T) {
	b := testBalance()
	two := decimal.NewFromInt(2)
	if err := b.Reserve(two); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if err := b.Release(two); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if !b.Remaining().Equal(decimal.NewFromInt(23)) {
		t.Fatalf("expected remaining 23, got %s", b.Remaining())
	}
}

func TestCommitWithoutReservation(t *testing.T) {
	b := testBalance()
	if err := b.Commit(decimal.NewFromInt(1)); !errors.Is(err, ErrLedgerUnderflow) {
		t.Fatalf("expected ErrLedgerUnderflow, got %v", err)
	}
}

func TestReverseUsage(t *testing.T) {
	b := testBalance()
	b.Used = decimal.NewFromInt(5)

	if err := b.ReverseUsage(decimal.NewFromInt(3)); err != nil {
		t.Fatalf("reverse failed: %v", err)
	}
	if !b.Used.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("expected used 2, got %s", b.Used)
	}

	if err := b.ReverseUsage(decimal.NewFromInt(3)); !errors.Is(err, ErrLedgerUnderflow) {
		t.Fatalf("expected ErrLedgerUnderflow, got %v", err)
	}
}

func TestNonPositiveAmounts(t *testing.T) {
	b := testBalance()
	for _, amount := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-1)} {
		if err := b.Reserve(amount); err == nil {
			t.Fatalf("expected error reserving %s", amount)
		}
	}
}

func TestHalfDayPrecision(t *testing.T) {
	b := testBalance()
	half := decimal.NewFromFloat(0.5)
	if err := b.Reserve(half); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if err := b.Commit(half); err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if !b.Remaining().Equal(decimal.NewFromFloat(22.5)) {
		t.Fatalf("expected remaining 22.5, got %s", b.Remaining())
	}
}
