package payroll

import (
	"context"
	"time"
)

// PayrollRepository defines data access methods for payroll records.
// All methods include companyID parameter to prevent cross-company data access attacks.
type PayrollRepository interface {
	GetByID(ctx context.Context, id string, companyID string) (PayrollRecord, error)
	GetByIDForUpdate(ctx context.Context, id string, companyID string) (PayrollRecord, error)
	GetByEmployeePeriodForUpdate(ctx context.Context, companyID, employeeID string, month time.Time) (PayrollRecord, error)

	// Upsert inserts or replaces the record for (company, employee, month).
	// A paid row is only overwritten when allowPaid is set; otherwise
	// ErrPayrollRecordAlreadyPaid is returned and nothing changes.
	Upsert(ctx context.Context, record PayrollRecord, allowPaid bool) (PayrollRecord, bool, error)

	// UpdateWorkflow writes the workflow fields when the stored status still
	// equals expected, else ErrConcurrentModification.
	UpdateWorkflow(ctx context.Context, record PayrollRecord, expected PayrollStatus) (PayrollRecord, error)

	List(ctx context.Context, companyID string, filter PayrollFilter) ([]PayrollRecord, int64, error)
	ListForBatch(ctx context.Context, companyID string, scope BatchScope) ([]RecordRef, error)
	DeleteNonPaid(ctx context.Context, companyID string, ids []string) (int64, error)
	GetSummary(ctx context.Context, companyID string, month time.Time) (PayrollSummary, error)
}

// EventPublisher emits integration events after state changes commit.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

const (
	EventRecordGenerated = "payroll.record.generated"
	EventRecordApproved  = "payroll.record.approved"
	EventRecordPaid      = "payroll.record.paid"
	EventMonthClosed     = "payroll.month.closed"
	EventMonthUnlocked   = "payroll.month.unlocked"
)
