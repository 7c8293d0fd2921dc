package leave

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"leavedesk/internal/domain/auth"
)

// fakeStore keeps everything in maps and runs "transactions" by handing
// itself to the callback. Good enough for single-goroutine lifecycle tests.
type fakeStore struct {
	types        map[string]LeaveType
	holidays     []Holiday
	managers     map[string]string
	balances     map[string]Balance
	requests     map[string]Request
	materialized int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		types:    map[string]LeaveType{},
		managers: map[string]string{},
		balances: map[string]Balance{},
		requests: map[string]Request{},
	}
}

func balanceKey(userID, leaveTypeID string, year int) string {
	return fmt.Sprintf("%s|%s|%d", userID, leaveTypeID, year)
}

func (f *fakeStore) LeaveType(ctx context.Context, id string) (LeaveType, error) {
	lt, ok := f.types[id]
	if !ok {
		return LeaveType{}, fmt.Errorf("%w: leave type %s", ErrNotFound, id)
	}
	return lt, nil
}

func (f *fakeStore) HolidaysOverlapping(ctx context.Context, from, to time.Time) ([]Holiday, error) {
	return f.holidays, nil
}

func (f *fakeStore) ManagerOf(ctx context.Context, userID string) (string, error) {
	return f.managers[userID], nil
}

func (f *fakeStore) FindBalance(ctx context.Context, userID, leaveTypeID string, year int) (Balance, bool, error) {
	b, ok := f.balances[balanceKey(userID, leaveTypeID, year)]
	return b, ok, nil
}

func (f *fakeStore) Transition(ctx context.Context, fn func(tx TransitionTx) error) error {
	return fn(f)
}

func (f *fakeStore) EnsureBalance(ctx context.Context, userID string, lt LeaveType, year int) (Balance, error) {
	key := balanceKey(userID, lt.ID, year)
	if b, ok := f.balances[key]; ok {
		return b, nil
	}
	b := DefaultBalance(userID, lt, year)
	b.ID = fmt.Sprintf("bal-%d", len(f.balances)+1)
	f.balances[key] = b
	f.materialized++
	return b, nil
}

func (f *fakeStore) BalanceForUpdate(ctx context.Context, userID, leaveTypeID string, year int) (Balance, bool, error) {
	return f.FindBalance(ctx, userID, leaveTypeID, year)
}

func (f *fakeStore) SaveBalance(ctx context.Context, balance Balance) error {
	f.balances[balanceKey(balance.UserID, balance.LeaveTypeID, balance.Year)] = balance
	return nil
}

func (f *fakeStore) HasBlockingOverlap(ctx context.Context, userID string, start, end time.Time) (bool, error) {
	for _, req := range f.requests {
		if req.UserID != userID {
			continue
		}
		if req.Status != StatusPending && req.Status != StatusApproved {
			continue
		}
		if !req.StartDate.After(end) && !req.EndDate.Before(start) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) InsertRequest(ctx context.Context, req *Request) error {
	f.requests[req.ID] = *req
	return nil
}

func (f *fakeStore) RequestForUpdate(ctx context.Context, id string) (Request, error) {
	req, ok := f.requests[id]
	if !ok {
		return Request{}, fmt.Errorf("%w: request %s", ErrNotFound, id)
	}
	return req, nil
}

func (f *fakeStore) UpdateRequest(ctx context.Context, req Request) error {
	f.requests[req.ID] = req
	return nil
}

var (
	employee = Actor{ID: "emp-1", Role: auth.RoleEmployee}
	manager  = Actor{ID: "mgr-1", Role: auth.RoleManager}
	admin    = Actor{ID: "adm-1", Role: auth.RoleAdmin}
)

// Fixed clock: Sunday 2025-06-01. Requests in tests start the following week.
var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newFixture() (*Service, *fakeStore) {
	store := newFakeStore()
	store.types["annual"] = LeaveType{ID: "annual", Name: "Annual Leave", Code: "ANNUAL", DaysPerYear: 20, IsActive: true, RequiresApproval: true}
	store.managers[employee.ID] = manager.ID

	svc := NewService(store)
	svc.now = func() time.Time { return testNow }
	return svc, store
}

func submitWeek(t *testing.T, svc *Service) Request {
	t.Helper()
	req, err := svc.Submit(context.Background(), employee, SubmitInput{
		UserID:      employee.ID,
		LeaveTypeID: "annual",
		StartDate:   date(2025, 6, 9),
		EndDate:     date(2025, 6, 13),
		Reason:      "family trip",
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	return req
}

func storedBalance(t *testing.T, store *fakeStore) Balance {
	t.Helper()
	b, ok := store.balances[balanceKey(employee.ID, "annual", 2025)]
	if !ok {
		t.Fatal("expected a materialized balance row")
	}
	return b
}

func TestSubmitReservesBalance(t *testing.T) {
	svc, store := newFixture()
	req := submitWeek(t, svc)

	if req.Status != StatusPending {
		t.Fatalf("expected pending, got %s", req.Status)
	}
	if !req.TotalDays.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected 5 days, got %s", req.TotalDays)
	}
	b := storedBalance(t, store)
	if !b.Pending.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected pending 5, got %s", b.Pending)
	}
	if !b.Remaining().Equal(decimal.NewFromInt(15)) {
		t.Fatalf("expected remaining 15, got %s", b.Remaining())
	}
}

func TestSubmitSkipsHolidays(t *testing.T) {
	svc, store := newFixture()
	store.holidays = []Holiday{{Name: "Founders Day", Date: date(2025, 6, 11)}}

	req := submitWeek(t, svc)
	if !req.TotalDays.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("expected 4 days with midweek holiday, got %s", req.TotalDays)
	}
}

func TestSubmitMaterializesBalanceBeforeReserve(t *testing.T) {
	svc, store := newFixture()
	submitWeek(t, svc)

	first := storedBalance(t, store)
	if store.materialized != 1 {
		t.Fatalf("expected submit to materialize the balance row, got %d inserts", store.materialized)
	}

	// The following week reuses the same row instead of re-inserting it.
	if _, err := svc.Submit(context.Background(), employee, SubmitInput{
		UserID:      employee.ID,
		LeaveTypeID: "annual",
		StartDate:   date(2025, 6, 16),
		EndDate:     date(2025, 6, 18),
		Reason:      "follow-up trip",
	}); err != nil {
		t.Fatalf("second submit failed: %v", err)
	}

	second := storedBalance(t, store)
	if second.ID != first.ID || store.materialized != 1 {
		t.Fatalf("expected one materialized row, got id %s vs %s after %d inserts", second.ID, first.ID, store.materialized)
	}
	if !second.Pending.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("expected pending 8 across both requests, got %s", second.Pending)
	}
}

func TestSubmitOverlapRejected(t *testing.T) {
	svc, _ := newFixture()
	submitWeek(t, svc)

	_, err := svc.Submit(context.Background(), employee, SubmitInput{
		UserID:      employee.ID,
		LeaveTypeID: "annual",
		StartDate:   date(2025, 6, 12),
		EndDate:     date(2025, 6, 16),
		Reason:      "second trip",
	})
	if !errors.Is(err, ErrOverlap) {
		t.Fatalf("expected ErrOverlap, got %v", err)
	}
}

func TestSubmitInsufficientBalance(t *testing.T) {
	svc, store := newFixture()
	store.balances[balanceKey(employee.ID, "annual", 2025)] = Balance{
		ID: "b1", UserID: employee.ID, LeaveTypeID: "annual", Year: 2025,
		Allocated: decimal.NewFromInt(20), Used: decimal.NewFromInt(18),
	}

	_, err := svc.Submit(context.Background(), employee, SubmitInput{
		UserID:      employee.ID,
		LeaveTypeID: "annual",
		StartDate:   date(2025, 6, 9),
		EndDate:     date(2025, 6, 13),
		Reason:      "family trip",
	})
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestSubmitWeekendOnly(t *testing.T) {
	svc, _ := newFixture()
	_, err := svc.Submit(context.Background(), employee, SubmitInput{
		UserID:      employee.ID,
		LeaveTypeID: "annual",
		StartDate:   date(2025, 6, 7),
		EndDate:     date(2025, 6, 8),
		Reason:      "weekend",
	})
	if !errors.Is(err, ErrNoChargeableDays) {
		t.Fatalf("expected ErrNoChargeableDays, got %v", err)
	}
}

func TestSubmitForAnotherUser(t *testing.T) {
	svc, _ := newFixture()
	_, err := svc.Submit(context.Background(), employee, SubmitInput{
		UserID:      "someone-else",
		LeaveTypeID: "annual",
		StartDate:   date(2025, 6, 9),
		EndDate:     date(2025, 6, 9),
		Reason:      "not mine",
	})
	if !errors.Is(err, ErrNotAllowed) {
		t.Fatalf("expected ErrNotAllowed, got %v", err)
	}
}

func TestSubmitHalfDay(t *testing.T) {
	svc, _ := newFixture()
	req, err := svc.Submit(context.Background(), employee, SubmitInput{
		UserID:         employee.ID,
		LeaveTypeID:    "annual",
		StartDate:      date(2025, 6, 9),
		EndDate:        date(2025, 6, 9),
		Reason:         "appointment",
		IsHalfDay:      true,
		HalfDaySegment: SegmentMorning,
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if !req.TotalDays.Equal(decimal.NewFromFloat(0.5)) {
		t.Fatalf("expected 0.5 days, got %s", req.TotalDays)
	}
}

func TestApproveCommitsUsage(t *testing.T) {
	svc, store := newFixture()
	req := submitWeek(t, svc)

	approved, err := svc.Approve(context.Background(), manager, req.ID)
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if approved.Status != StatusApproved {
		t.Fatalf("expected approved, got %s", approved.Status)
	}
	if approved.ApprovedBy != manager.ID || approved.ApprovedAt == nil {
		t.Fatal("expected approver and timestamp to be recorded")
	}

	b := storedBalance(t, store)
	if !b.Pending.IsZero() {
		t.Fatalf("expected pending 0, got %s", b.Pending)
	}
	if !b.Used.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected used 5, got %s", b.Used)
	}
}

func TestApproveChargesStoredDays(t *testing.T) {
	svc, store := newFixture()
	req := submitWeek(t, svc)

	// A holiday declared after submission must not change what was reserved.
	store.holidays = append(store.holidays, Holiday{Name: "Surprise Day", Date: date(2025, 6, 11)})

	if _, err := svc.Approve(context.Background(), manager, req.ID); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	b := storedBalance(t, store)
	if !b.Used.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected the stored 5 days committed, got %s", b.Used)
	}
	if !b.Pending.IsZero() {
		t.Fatalf("expected pending cleared, got %s", b.Pending)
	}
}

func TestApproveTwice(t *testing.T) {
	svc, _ := newFixture()
	req := submitWeek(t, svc)

	if _, err := svc.Approve(context.Background(), manager, req.ID); err != nil {
		t.Fatalf("first approve failed: %v", err)
	}
	if _, err := svc.Approve(context.Background(), manager, req.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestApproveByUnrelatedManager(t *testing.T) {
	svc, _ := newFixture()
	req := submitWeek(t, svc)

	other := Actor{ID: "mgr-2", Role: auth.RoleManager}
	if _, err := svc.Approve(context.Background(), other, req.ID); !errors.Is(err, ErrNotAllowed) {
		t.Fatalf("expected ErrNotAllowed, got %v", err)
	}
}

func TestApproveByAdminWithoutManagerLink(t *testing.T) {
	svc, store := newFixture()
	delete(store.managers, employee.ID)
	req := submitWeek(t, svc)

	if _, err := svc.Approve(context.Background(), admin, req.ID); err != nil {
		t.Fatalf("admin approve failed: %v", err)
	}
}

func TestRejectReleasesReservation(t *testing.T) {
	svc, store := newFixture()
	req := submitWeek(t, svc)

	rejected, err := svc.Reject(context.Background(), manager, req.ID, "coverage gap")
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if rejected.Status != StatusRejected || rejected.RejectionReason != "coverage gap" {
		t.Fatalf("unexpected rejection state: %+v", rejected)
	}

	b := storedBalance(t, store)
	if !b.Pending.IsZero() || !b.Used.IsZero() {
		t.Fatalf("expected ledger untouched after release, pending %s used %s", b.Pending, b.Used)
	}
}

func TestRejectRequiresReason(t *testing.T) {
	svc, _ := newFixture()
	req := submitWeek(t, svc)

	if _, err := svc.Reject(context.Background(), manager, req.ID, "  "); err == nil {
		t.Fatal("expected error for blank rejection reason")
	}
}

func TestCancelPendingReleases(t *testing.T) {
	svc, store := newFixture()
	req := submitWeek(t, svc)

	cancelled, err := svc.Cancel(context.Background(), employee, req.ID)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if cancelled.Status != StatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}
	b := storedBalance(t, store)
	if !b.Remaining().Equal(decimal.NewFromInt(20)) {
		t.Fatalf("expected full balance back, got %s", b.Remaining())
	}
}

func TestCancelApprovedFutureReversesUsage(t *testing.T) {
	svc, store := newFixture()
	req := submitWeek(t, svc)
	if _, err := svc.Approve(context.Background(), manager, req.ID); err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	if _, err := svc.Cancel(context.Background(), employee, req.ID); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	b := storedBalance(t, store)
	if !b.Used.IsZero() || !b.Remaining().Equal(decimal.NewFromInt(20)) {
		t.Fatalf("expected usage refunded, used %s remaining %s", b.Used, b.Remaining())
	}
}

func TestCancelApprovedStarted(t *testing.T) {
	svc, _ := newFixture()
	req := submitWeek(t, svc)
	if _, err := svc.Approve(context.Background(), manager, req.ID); err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	// Move the clock into the middle of the leave.
	svc.now = func() time.Time { return date(2025, 6, 10) }
	if _, err := svc.Cancel(context.Background(), employee, req.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestCancelByUnrelatedUser(t *testing.T) {
	svc, _ := newFixture()
	req := submitWeek(t, svc)

	other := Actor{ID: "emp-2", Role: auth.RoleEmployee}
	if _, err := svc.Cancel(context.Background(), other, req.ID); !errors.Is(err, ErrNotAllowed) {
		t.Fatalf("expected ErrNotAllowed, got %v", err)
	}
}

func TestBalanceForDefaultsWhenUnmaterialized(t *testing.T) {
	svc, _ := newFixture()
	b, err := svc.BalanceFor(context.Background(), employee.ID, "annual", 2025)
	if err != nil {
		t.Fatalf("balance lookup failed: %v", err)
	}
	if !b.Allocated.Equal(decimal.NewFromInt(20)) || !b.Remaining().Equal(decimal.NewFromInt(20)) {
		t.Fatalf("expected default allotment, got %+v", b)
	}
}
