package leave

import (
	"context"
	"time"
)

type LeaveRequestStatus string

const (
	LeaveRequestStatusWaitingApproval LeaveRequestStatus = "waiting_approval"
	LeaveRequestStatusApproved        LeaveRequestStatus = "approved"
	LeaveRequestStatusRejected        LeaveRequestStatus = "rejected"
	LeaveRequestStatusCancelled       LeaveRequestStatus = "cancelled"
)

// LeaveDurationEnum maps to leave_duration_enum in DB
type LeaveDurationEnum string

const (
	LeaveDurationFullDay          LeaveDurationEnum = "full_day"
	LeaveDurationHalfDayMorning   LeaveDurationEnum = "half_day_morning"
	LeaveDurationHalfDayAfternoon LeaveDurationEnum = "half_day_afternoon"
)

func (d LeaveDurationEnum) IsHalfDay() bool {
	return d == LeaveDurationHalfDayMorning || d == LeaveDurationHalfDayAfternoon
}

// LeaveRequest entity
type LeaveRequest struct {
	ID          string
	EmployeeID  string
	LeaveTypeID string

	StartDate time.Time
	EndDate   time.Time

	DurationType LeaveDurationEnum
	Status       LeaveRequestStatus

	// Joined from leave_types
	LeaveTypeName *string
	IsPaid        bool
}

// Reader is the read-only view of leave the payroll calculator consumes.
type Reader interface {
	// ListApprovedUnpaid returns approved requests of unpaid leave types that
	// overlap [start, end].
	ListApprovedUnpaid(ctx context.Context, companyID, employeeID string, start, end time.Time) ([]LeaveRequest, error)
}
