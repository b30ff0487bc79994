package employee

import (
	"time"
)

type Employee struct {
	ID               string
	UserID           *string
	CompanyID        string
	BranchID         *string
	DepartmentID     *string
	EmployeeCode     string
	FullName         string
	HireDate         time.Time
	ResignationDate  *time.Time
	EmploymentStatus EmploymentStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeletedAt        *time.Time
}

type EmploymentStatus string

const (
	EmploymentStatusActive     EmploymentStatus = "active"
	EmploymentStatusResigned   EmploymentStatus = "resigned"
	EmploymentStatusTerminated EmploymentStatus = "terminated"
)

// PayrollScope narrows the employees a batch payroll run covers.
type PayrollScope struct {
	BranchID     *string
	DepartmentID *string
	EmployeeIDs  []string
}
