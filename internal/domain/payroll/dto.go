package payroll

import (
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========== GENERATE DTOs ==========

type GenerateRecordRequest struct {
	EmployeeID  string           `json:"employee_id" validate:"required,uuid"`
	PeriodMonth string           `json:"period_month" validate:"required"`
	PayableDays *decimal.Decimal `json:"payable_days,omitempty"`
	Notes       *string          `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

func (r *GenerateRecordRequest) Validate() error {
	errs := collect(validator.Struct(r))
	errs = appendPeriodError(errs, r.PeriodMonth)
	if r.PayableDays != nil && r.PayableDays.IsNegative() {
		errs = append(errs, validator.ValidationError{Field: "payable_days", Message: "must be non-negative"})
	}
	return errsOrNil(errs)
}

type GenerateMonthRequest struct {
	PeriodMonth  string   `json:"period_month" validate:"required"`
	BranchID     *string  `json:"branch_id,omitempty" validate:"omitempty,uuid"`
	DepartmentID *string  `json:"department_id,omitempty" validate:"omitempty,uuid"`
	EmployeeIDs  []string `json:"employee_ids,omitempty" validate:"omitempty,dive,uuid"` // Empty = all active employees
}

func (r *GenerateMonthRequest) Validate() error {
	errs := collect(validator.Struct(r))
	errs = appendPeriodError(errs, r.PeriodMonth)
	return errsOrNil(errs)
}

// ========== WORKFLOW DTOs ==========

type MarkPaidRequest struct {
	PaymentMethod    string  `json:"payment_method"`
	PaymentReference *string `json:"payment_reference,omitempty"`
}

type SetStatusRequest struct {
	Status           string  `json:"status" validate:"required,oneof=draft failed approved paid"`
	PaymentMethod    *string `json:"payment_method,omitempty"`
	PaymentReference *string `json:"payment_reference,omitempty"`
	Notes            *string `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

func (r *SetStatusRequest) Validate() error {
	return validator.Struct(r)
}

// BatchScopeRequest selects records of one month, optionally narrowed.
type BatchScopeRequest struct {
	PeriodMonth  string  `json:"period_month" validate:"required"`
	BranchID     *string `json:"branch_id,omitempty" validate:"omitempty,uuid"`
	DepartmentID *string `json:"department_id,omitempty" validate:"omitempty,uuid"`
	EmployeeID   *string `json:"employee_id,omitempty" validate:"omitempty,uuid"`
}

func (r *BatchScopeRequest) Validate() error {
	errs := collect(validator.Struct(r))
	errs = appendPeriodError(errs, r.PeriodMonth)
	return errsOrNil(errs)
}

// Scope converts the request into a repository scope. Call after Validate.
func (r BatchScopeRequest) Scope() BatchScope {
	month, _ := ParsePeriod(r.PeriodMonth)
	return BatchScope{
		PeriodMonth:  month,
		BranchID:     r.BranchID,
		DepartmentID: r.DepartmentID,
		EmployeeID:   r.EmployeeID,
	}
}

type BatchPayRequest struct {
	BatchScopeRequest
	PaymentMethod    string  `json:"payment_method"`
	PaymentReference *string `json:"payment_reference,omitempty"`
}

type CloseMonthRequest struct {
	BatchScopeRequest
	PaymentMethod    string  `json:"payment_method"`
	PaymentReference *string `json:"payment_reference,omitempty"`
	Confirm          bool    `json:"confirm"`
}

type UnlockMonthRequest struct {
	PeriodMonth string `json:"period_month" validate:"required"`
	Reason      string `json:"reason" validate:"max=1000"`
}

func (r *UnlockMonthRequest) Validate() error {
	errs := collect(validator.Struct(r))
	errs = appendPeriodError(errs, r.PeriodMonth)
	return errsOrNil(errs)
}

type BulkDeleteRequest struct {
	BatchScopeRequest
	RecordIDs []string `json:"record_ids,omitempty" validate:"omitempty,dive,uuid"`
}

func (r *BulkDeleteRequest) Validate() error {
	errs := collect(validator.Struct(r))
	errs = appendPeriodError(errs, r.PeriodMonth)
	return errsOrNil(errs)
}

// ========== RESPONSE DTOs ==========

type PayrollRecordResponse struct {
	ID                string          `json:"id"`
	EmployeeID        string          `json:"employee_id"`
	EmployeeName      string          `json:"employee_name"`
	EmployeeCode      string          `json:"employee_code"`
	BranchID          *string         `json:"branch_id,omitempty"`
	DepartmentID      *string         `json:"department_id,omitempty"`
	PeriodMonth       string          `json:"period_month"`
	WorkingDays       decimal.Decimal `json:"working_days"`
	AttendanceLOPDays decimal.Decimal `json:"attendance_lop_days"`
	UnpaidLeaveDays   decimal.Decimal `json:"unpaid_leave_days"`
	LOPDays           decimal.Decimal `json:"lop_days"`
	PayableDays       decimal.Decimal `json:"payable_days"`
	PayableOverridden bool            `json:"payable_overridden"`
	Earnings          Earnings        `json:"earnings"`
	GrossSalary       decimal.Decimal `json:"gross_salary"`
	Deductions        Deductions      `json:"deductions"`
	TotalDeductions   decimal.Decimal `json:"total_deductions"`
	NetSalary         decimal.Decimal `json:"net_salary"`
	Status            string          `json:"status"`
	GeneratedBy       string          `json:"generated_by"`
	GeneratedAt       string          `json:"generated_at"`
	ApprovedBy        *string         `json:"approved_by,omitempty"`
	ApprovedAt        *string         `json:"approved_at,omitempty"`
	PaidBy            *string         `json:"paid_by,omitempty"`
	PaidAt            *string         `json:"paid_at,omitempty"`
	PaymentMethod     *string         `json:"payment_method,omitempty"`
	PaymentReference  *string         `json:"payment_reference,omitempty"`
	Notes             *string         `json:"notes,omitempty"`
}

type CalculationResponse struct {
	EmployeeID        string          `json:"employee_id"`
	PeriodMonth       string          `json:"period_month"`
	DaysInMonth       int             `json:"days_in_month"`
	HolidayCount      int             `json:"holiday_count"`
	WorkingDays       decimal.Decimal `json:"working_days"`
	AttendanceLOPDays decimal.Decimal `json:"attendance_lop_days"`
	UnpaidLeaveDays   decimal.Decimal `json:"unpaid_leave_days"`
	LOPDays           decimal.Decimal `json:"lop_days"`
	PayableDays       decimal.Decimal `json:"payable_days"`
	PayableOverridden bool            `json:"payable_overridden"`
	Ratio             decimal.Decimal `json:"ratio"`
	Earnings          Earnings        `json:"earnings"`
	GrossSalary       decimal.Decimal `json:"gross_salary"`
	Deductions        Deductions      `json:"deductions"`
	TotalDeductions   decimal.Decimal `json:"total_deductions"`
	NetSalary         decimal.Decimal `json:"net_salary"`
}

type GenerateRecordResponse struct {
	Record         PayrollRecordResponse `json:"record"`
	WasUpdated     bool                  `json:"was_updated"`
	LockOverridden bool                  `json:"lock_overridden"`
	Regenerated    bool                  `json:"regenerated_after_unlock"`
}

type PayrollFilter struct {
	PeriodMonth  *string `json:"period_month,omitempty"`
	Status       *string `json:"status,omitempty"`
	EmployeeID   *string `json:"employee_id,omitempty"`
	BranchID     *string `json:"branch_id,omitempty"`
	DepartmentID *string `json:"department_id,omitempty"`
	Page         int     `json:"page"`
	Limit        int     `json:"limit"`
	SortBy       string  `json:"sort_by"`
	SortOrder    string  `json:"sort_order"`

	// Parsed PeriodMonth, set by the service
	Period *time.Time `json:"-"`
}

type ListPayrollRecordResponse struct {
	Data       []PayrollRecordResponse `json:"data"`
	TotalCount int64                   `json:"total_count"`
	Page       int                     `json:"page"`
	Limit      int                     `json:"limit"`
}

type PayrollSummary struct {
	TotalRecords    int
	DraftCount      int
	FailedCount     int
	ApprovedCount   int
	PaidCount       int
	TotalGross      decimal.Decimal
	TotalDeductions decimal.Decimal
	TotalNet        decimal.Decimal
}

type PayrollSummaryResponse struct {
	PeriodMonth     string          `json:"period_month"`
	TotalRecords    int             `json:"total_records"`
	DraftCount      int             `json:"draft_count"`
	FailedCount     int             `json:"failed_count"`
	ApprovedCount   int             `json:"approved_count"`
	PaidCount       int             `json:"paid_count"`
	TotalGross      decimal.Decimal `json:"total_gross"`
	TotalDeductions decimal.Decimal `json:"total_deductions"`
	TotalNet        decimal.Decimal `json:"total_net"`
	Locked          bool            `json:"locked"`
}

type BatchItemError struct {
	RecordID   string `json:"record_id,omitempty"`
	EmployeeID string `json:"employee_id,omitempty"`
	Error      string `json:"error"`
}

// BatchResult is the partial-success summary every batch operation returns.
type BatchResult struct {
	Matched int              `json:"matched"`
	Created int              `json:"created"`
	Updated int              `json:"updated"`
	Deleted int              `json:"deleted,omitempty"`
	Skipped int              `json:"skipped"`
	Failed  int              `json:"failed"`
	Errors  []BatchItemError `json:"errors,omitempty"`
}

// Fail records a failed item.
func (b *BatchResult) Fail(recordID, employeeID string, err error) {
	b.Failed++
	b.Errors = append(b.Errors, BatchItemError{RecordID: recordID, EmployeeID: employeeID, Error: err.Error()})
}

// Counts renders the summary for audit metadata.
func (b BatchResult) Counts() map[string]interface{} {
	return map[string]interface{}{
		"matched": b.Matched,
		"created": b.Created,
		"updated": b.Updated,
		"deleted": b.Deleted,
		"skipped": b.Skipped,
		"failed":  b.Failed,
	}
}

type MonthLockResponse struct {
	ID           string                 `json:"id"`
	PeriodMonth  string                 `json:"period_month"`
	Active       bool                   `json:"active"`
	LockedBy     string                 `json:"locked_by"`
	LockedAt     string                 `json:"locked_at"`
	UnlockedBy   *string                `json:"unlocked_by,omitempty"`
	UnlockedAt   *string                `json:"unlocked_at,omitempty"`
	UnlockReason *string                `json:"unlock_reason,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

type CloseMonthResponse struct {
	Result BatchResult        `json:"result"`
	Lock   *MonthLockResponse `json:"lock,omitempty"`
}

// ========== HELPERS ==========

func collect(err error) validator.ValidationErrors {
	if err == nil {
		return nil
	}
	if errs, ok := err.(validator.ValidationErrors); ok {
		return errs
	}
	return validator.ValidationErrors{{Field: "request", Message: err.Error()}}
}

func appendPeriodError(errs validator.ValidationErrors, period string) validator.ValidationErrors {
	if validator.IsEmpty(period) {
		return errs
	}
	if _, ok := validator.IsValidMonth(period); !ok {
		errs = append(errs, validator.ValidationError{Field: "period_month", Message: "must be in YYYY-MM format"})
	}
	return errs
}

func errsOrNil(errs validator.ValidationErrors) error {
	if len(errs) > 0 {
		return errs
	}
	return nil
}
