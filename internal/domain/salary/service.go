package salary

import (
	"context"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/user"
)

type SalaryService interface {
	BulkUpsert(ctx context.Context, viewer user.Viewer, req BulkUpsertStructureRequest) (BulkUpsertResult, error)
	GetStructure(ctx context.Context, viewer user.Viewer, employeeID string) (SalaryStructureResponse, error)
	ListHistory(ctx context.Context, viewer user.Viewer, employeeID string) ([]StructureHistoryResponse, error)
}
