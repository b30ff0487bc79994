package employee

//go:generate mockgen -source=repository.go -destination=mock/repository_mock.go -package=mock_employee

import "context"

// EmployeeRepository is the employee lookup payroll needs. All methods take
// companyID to keep reads tenant-scoped.
type EmployeeRepository interface {
	GetByID(ctx context.Context, id string, companyID string) (Employee, error)
	ListActiveForPayroll(ctx context.Context, companyID string, scope PayrollScope) ([]Employee, error)
}
