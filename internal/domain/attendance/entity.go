package attendance

import (
	"context"
	"time"
)

type Status string

const (
	StatusPresent         Status = "present"
	StatusLate            Status = "late"
	StatusAbsent          Status = "absent"
	StatusHalfDay         Status = "half_day"
	StatusOnLeave         Status = "on_leave"
	StatusHoliday         Status = "holiday"
	StatusWaitingApproval Status = "waiting_approval"
)

// Attendance is the daily attendance row as far as payroll needs it.
type Attendance struct {
	ID         string
	EmployeeID string
	CompanyID  string
	Date       time.Time
	Status     Status
}

// Reader is the read-only view of attendance the payroll calculator consumes.
type Reader interface {
	ListByEmployeePeriod(ctx context.Context, companyID, employeeID string, start, end time.Time) ([]Attendance, error)
}
