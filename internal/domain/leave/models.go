package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

const (
	SegmentMorning   = "morning"
	SegmentAfternoon = "afternoon"
)

type LeaveType struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Code             string    `json:"code"`
	Description      string    `json:"description,omitempty"`
	DaysPerYear      int       `json:"daysPerYear"`
	IsPaid           bool      `json:"isPaid"`
	RequiresApproval bool      `json:"requiresApproval"`
	IsActive         bool      `json:"isActive"`
	CreatedAt        time.Time `json:"createdAt"`
}

type Holiday struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Date        time.Time `json:"date"`
	Description string    `json:"description,omitempty"`
	IsRecurring bool      `json:"isRecurring"`
}

type Request struct {
	ID              string          `json:"id"`
	UserID          string          `json:"userId"`
	LeaveTypeID     string          `json:"leaveTypeId"`
	StartDate       time.Time       `json:"startDate"`
	EndDate         time.Time       `json:"endDate"`
	TotalDays       decimal.Decimal `json:"totalDays"`
	Status          Status          `json:"status"`
	Reason          string          `json:"reason"`
	RejectionReason string          `json:"rejectionReason,omitempty"`
	ApprovedBy      string          `json:"approvedBy,omitempty"`
	ApprovedAt      *time.Time      `json:"approvedAt,omitempty"`
	Attachment      string          `json:"attachment,omitempty"`
	IsHalfDay       bool            `json:"isHalfDay"`
	HalfDaySegment  string          `json:"halfDaySegment,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// CanBeCancelled reports whether the owner may still withdraw the request:
// any pending request, or an approved one that has not started yet.
func (r Request) CanBeCancelled(today time.Time) bool {
	if r.Status == StatusPending {
		return true
	}
	return r.Status == StatusApproved && r.StartDate.After(today)
}
