package leave

import (
	"context"
	"time"
)

// TransitionStore is the persistence surface the lifecycle service needs.
// Store implements it against Postgres; tests use an in-memory fake.
type TransitionStore interface {
	LeaveType(ctx context.Context, id string) (LeaveType, error)
	HolidaysOverlapping(ctx context.Context, from, to time.Time) ([]Holiday, error)
	ManagerOf(ctx context.Context, userID string) (string, error)
	FindBalance(ctx context.Context, userID, leaveTypeID string, year int) (Balance, bool, error)

	// Transition runs fn inside a single transaction; every balance and
	// request write of one lifecycle step commits or rolls back together.
	Transition(ctx context.Context, fn func(tx TransitionTx) error) error
}

type TransitionTx interface {
	// EnsureBalance materializes the (user, type, year) row if it does not
	// exist yet and row-locks it. Locking a row that is not there locks
	// nothing, so the first submission of a year must insert before it locks
	// or two concurrent first submissions would not serialize.
	EnsureBalance(ctx context.Context, userID string, lt LeaveType, year int) (Balance, error)
	// BalanceForUpdate loads and row-locks an existing balance, so concurrent
	// transitions on the same (user, type, year) serialize.
	BalanceForUpdate(ctx context.Context, userID, leaveTypeID string, year int) (Balance, bool, error)
	SaveBalance(ctx context.Context, balance Balance) error

	HasBlockingOverlap(ctx context.Context, userID string, start, end time.Time) (bool, error)

	InsertRequest(ctx context.Context, req *Request) error
	RequestForUpdate(ctx context.Context, id string) (Request, error)
	UpdateRequest(ctx context.Context, req Request) error
}
