package leave

import "errors"

var (
	// ErrInsufficientBalance is returned when a reservation exceeds the
	// remaining balance for the request's year.
	ErrInsufficientBalance = errors.New("insufficient leave balance")

	// ErrOverlap is returned when the requested range intersects another
	// pending or approved request of the same employee.
	ErrOverlap = errors.New("overlapping leave request")

	// ErrInvalidTransition is returned when a transition is attempted on a
	// request that is not in the required source state.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrNotAllowed is returned when the acting user lacks the authority for
	// the attempted transition.
	ErrNotAllowed = errors.New("not allowed")

	// ErrLedgerUnderflow indicates a lifecycle bug: a decrement larger than
	// the matching prior increment. Transitions must never trigger it.
	ErrLedgerUnderflow = errors.New("ledger underflow")

	// ErrTypeInUse blocks deleting a leave type that requests reference.
	ErrTypeInUse = errors.New("leave type has requests")

	// ErrNoChargeableDays is returned when a full-day range contains only
	// weekends and holidays, so the request would consume nothing.
	ErrNoChargeableDays = errors.New("no chargeable days in range")

	ErrNotFound = errors.New("not found")
)
