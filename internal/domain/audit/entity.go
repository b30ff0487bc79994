package audit

import (
	"context"
	"time"
)

type EntityType string

const (
	EntityPayrollRecord   EntityType = "payroll_record"
	EntityPayrollBatch    EntityType = "payroll_batch"
	EntityMonthLock       EntityType = "payroll_month_lock"
	EntitySalaryStructure EntityType = "salary_structure"
)

type Action string

const (
	ActionPayrollGenerated       Action = "payroll.generated"
	ActionPayrollRecalculated    Action = "payroll.recalculated"
	ActionPayrollRegenerated     Action = "payroll.regenerated_after_unlock"
	ActionPayrollApproved        Action = "payroll.approved"
	ActionPayrollPaid            Action = "payroll.paid"
	ActionPayrollStatusSet       Action = "payroll.status_set"
	ActionPayrollMonthGenerated  Action = "payroll.month_generated"
	ActionPayrollBulkApproved    Action = "payroll.bulk_approved"
	ActionPayrollBulkPaid        Action = "payroll.bulk_paid"
	ActionPayrollBulkDeleted     Action = "payroll.bulk_deleted"
	ActionMonthLocked            Action = "payroll.month_locked"
	ActionMonthUnlocked          Action = "payroll.month_unlocked"
	ActionSalaryStructureCreated Action = "salary_structure.created"
	ActionSalaryStructureUpdated Action = "salary_structure.updated"
	ActionSalaryBulkUpserted     Action = "salary_structure.bulk_upserted"
)

// Entry is an immutable audit log row.
type Entry struct {
	ID         string
	CompanyID  string
	EntityType EntityType
	EntityID   *string
	Action     Action
	ActorID    string
	Before     map[string]interface{}
	After      map[string]interface{}
	Metadata   map[string]interface{}
	CreatedAt  time.Time
}

// Recorder appends audit entries. Implementations are best-effort: a failed
// write is logged and never undoes the mutation it describes.
type Recorder interface {
	Record(ctx context.Context, entry Entry)
}
