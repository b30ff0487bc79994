package salary

//go:generate mockgen -source=repository.go -destination=mock/repository_mock.go -package=mock_salary

import "context"

// SalaryRepository defines data access methods for salary structures.
// All methods include companyID parameter to prevent cross-company data access.
type SalaryRepository interface {
	GetByEmployeeID(ctx context.Context, companyID, employeeID string) (SalaryStructure, error)
	// GetByEmployeeIDForUpdate locks the row; only meaningful inside a transaction.
	GetByEmployeeIDForUpdate(ctx context.Context, companyID, employeeID string) (SalaryStructure, error)
	Upsert(ctx context.Context, structure SalaryStructure) (SalaryStructure, error)

	CreateHistory(ctx context.Context, history StructureHistory) error
	ListHistory(ctx context.Context, companyID, employeeID string) ([]StructureHistory, error)
}
