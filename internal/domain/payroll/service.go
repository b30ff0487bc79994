package payroll

import (
	"context"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/user"
)

type PayrollService interface {
	// Generation
	Preview(ctx context.Context, viewer user.Viewer, req GenerateRecordRequest) (CalculationResponse, error)
	GenerateOrUpdate(ctx context.Context, viewer user.Viewer, req GenerateRecordRequest) (GenerateRecordResponse, error)
	GenerateMonth(ctx context.Context, viewer user.Viewer, req GenerateMonthRequest) (BatchResult, error)

	// Records
	GetRecord(ctx context.Context, viewer user.Viewer, id string) (PayrollRecordResponse, error)
	ListRecords(ctx context.Context, viewer user.Viewer, filter PayrollFilter) (ListPayrollRecordResponse, error)
	GetSummary(ctx context.Context, viewer user.Viewer, period string) (PayrollSummaryResponse, error)
	BulkDelete(ctx context.Context, viewer user.Viewer, req BulkDeleteRequest) (BatchResult, error)

	// Workflow
	Approve(ctx context.Context, viewer user.Viewer, id string) (PayrollRecordResponse, error)
	MarkPaid(ctx context.Context, viewer user.Viewer, id string, req MarkPaidRequest) (PayrollRecordResponse, error)
	SetStatus(ctx context.Context, viewer user.Viewer, id string, req SetStatusRequest) (PayrollRecordResponse, error)
	ApproveAll(ctx context.Context, viewer user.Viewer, req BatchScopeRequest) (BatchResult, error)
	MarkPaidAll(ctx context.Context, viewer user.Viewer, req BatchPayRequest) (BatchResult, error)

	// Month lock
	PayAndClose(ctx context.Context, viewer user.Viewer, req CloseMonthRequest) (CloseMonthResponse, error)
	Unlock(ctx context.Context, viewer user.Viewer, req UnlockMonthRequest) (MonthLockResponse, error)
	GetActiveLock(ctx context.Context, viewer user.Viewer, period string) (MonthLockResponse, error)
	ListLocks(ctx context.Context, viewer user.Viewer, period string) ([]MonthLockResponse, error)
}
