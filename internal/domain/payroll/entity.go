package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

// PayrollStatus enum
type PayrollStatus string

const (
	PayrollStatusDraft    PayrollStatus = "draft"
	PayrollStatusFailed   PayrollStatus = "failed"
	PayrollStatusApproved PayrollStatus = "approved"
	PayrollStatusPaid     PayrollStatus = "paid"
)

func (s PayrollStatus) IsValid() bool {
	switch s {
	case PayrollStatusDraft, PayrollStatusFailed, PayrollStatusApproved, PayrollStatusPaid:
		return true
	}
	return false
}

// Earnings are the prorated salary components of a month.
type Earnings struct {
	BasicSalary      decimal.Decimal `json:"basic_salary"`
	HousingAllowance decimal.Decimal `json:"housing_allowance"`
	SpecialAllowance decimal.Decimal `json:"special_allowance"`
	Bonus            decimal.Decimal `json:"bonus"`
	OtherAllowance   decimal.Decimal `json:"other_allowance"`
}

func (e Earnings) Total() decimal.Decimal {
	return e.BasicSalary.Add(e.HousingAllowance).Add(e.SpecialAllowance).Add(e.Bonus).Add(e.OtherAllowance)
}

// Deductions are copied verbatim from the salary structure.
type Deductions struct {
	ProvidentFund  decimal.Decimal `json:"provident_fund"`
	TaxDeduction   decimal.Decimal `json:"tax_deduction"`
	OtherDeduction decimal.Decimal `json:"other_deduction"`
}

func (d Deductions) Total() decimal.Decimal {
	return d.ProvidentFund.Add(d.TaxDeduction).Add(d.OtherDeduction)
}

// CalculationResult carries every intermediate of a proration run so a
// record can be reproduced and explained.
type CalculationResult struct {
	EmployeeID  string
	PeriodMonth time.Time

	DaysInMonth  int
	HolidayCount int

	WorkingDays       decimal.Decimal
	AttendanceLOPDays decimal.Decimal
	UnpaidLeaveDays   decimal.Decimal
	LOPDays           decimal.Decimal
	PayableDays       decimal.Decimal
	PayableOverridden bool
	Ratio             decimal.Decimal

	Earnings        Earnings
	GrossSalary     decimal.Decimal
	Deductions      Deductions
	TotalDeductions decimal.Decimal
	NetSalary       decimal.Decimal
}

// PayrollRecord - Generated payroll result, one per employee and month
type PayrollRecord struct {
	ID           string
	CompanyID    string
	EmployeeID   string
	PeriodMonth  time.Time
	BranchID     *string
	DepartmentID *string

	WorkingDays       decimal.Decimal
	AttendanceLOPDays decimal.Decimal
	UnpaidLeaveDays   decimal.Decimal
	LOPDays           decimal.Decimal
	PayableDays       decimal.Decimal
	PayableOverridden bool

	Earnings        Earnings
	GrossSalary     decimal.Decimal
	Deductions      Deductions
	TotalDeductions decimal.Decimal
	NetSalary       decimal.Decimal

	Status           PayrollStatus
	GeneratedBy      string
	GeneratedAt      time.Time
	ApprovedBy       *string
	ApprovedAt       *time.Time
	PaidBy           *string
	PaidAt           *time.Time
	PaymentMethod    *string
	PaymentReference *string
	Notes            *string

	CreatedAt time.Time
	UpdatedAt time.Time

	// Joined fields
	EmployeeName   *string
	EmployeeCode   *string
	EmployeeUserID *string
}

// ApplyCalculation overwrites the computed fields from a calculation.
func (r *PayrollRecord) ApplyCalculation(c CalculationResult) {
	r.EmployeeID = c.EmployeeID
	r.PeriodMonth = c.PeriodMonth
	r.WorkingDays = c.WorkingDays
	r.AttendanceLOPDays = c.AttendanceLOPDays
	r.UnpaidLeaveDays = c.UnpaidLeaveDays
	r.LOPDays = c.LOPDays
	r.PayableDays = c.PayableDays
	r.PayableOverridden = c.PayableOverridden
	r.Earnings = c.Earnings
	r.GrossSalary = c.GrossSalary
	r.Deductions = c.Deductions
	r.TotalDeductions = c.TotalDeductions
	r.NetSalary = c.NetSalary
}

// ResetWorkflow puts the record back to draft and clears approval and payment.
func (r *PayrollRecord) ResetWorkflow() {
	r.Status = PayrollStatusDraft
	r.ApprovedBy = nil
	r.ApprovedAt = nil
	r.PaidBy = nil
	r.PaidAt = nil
	r.PaymentMethod = nil
	r.PaymentReference = nil
}

// WorkflowSnapshot is the audit view of the workflow fields.
func (r PayrollRecord) WorkflowSnapshot() map[string]interface{} {
	return map[string]interface{}{
		"status":            string(r.Status),
		"approved_by":       strOrNil(r.ApprovedBy),
		"approved_at":       timeOrNil(r.ApprovedAt),
		"paid_by":           strOrNil(r.PaidBy),
		"paid_at":           timeOrNil(r.PaidAt),
		"payment_method":    strOrNil(r.PaymentMethod),
		"payment_reference": strOrNil(r.PaymentReference),
	}
}

// Snapshot is the audit view of the computed fields plus workflow state.
func (r PayrollRecord) Snapshot() map[string]interface{} {
	snap := r.WorkflowSnapshot()
	snap["working_days"] = r.WorkingDays.StringFixed(2)
	snap["lop_days"] = r.LOPDays.StringFixed(2)
	snap["payable_days"] = r.PayableDays.StringFixed(2)
	snap["payable_overridden"] = r.PayableOverridden
	snap["gross_salary"] = r.GrossSalary.StringFixed(2)
	snap["total_deductions"] = r.TotalDeductions.StringFixed(2)
	snap["net_salary"] = r.NetSalary.StringFixed(2)
	return snap
}

// RecordRef is the lightweight row batch operations iterate over.
type RecordRef struct {
	ID         string
	EmployeeID string
	Status     PayrollStatus
}

// BatchScope selects the records of a month a batch operation covers.
type BatchScope struct {
	PeriodMonth  time.Time
	BranchID     *string
	DepartmentID *string
	EmployeeID   *string
	RecordIDs    []string
}

func strOrNil(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func timeOrNil(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
