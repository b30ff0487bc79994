package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type employeeRepositoryImpl struct {
	db *database.DB
}

func NewEmployeeRepository(db *database.DB) employee.EmployeeRepository {
	return &employeeRepositoryImpl{db: db}
}

const employeeColumns = `
	id, user_id, company_id, branch_id, department_id, employee_code, full_name,
	hire_date, resignation_date, employment_status, created_at, updated_at, deleted_at
`

func scanEmployee(row pgx.Row) (employee.Employee, error) {
	var emp employee.Employee
	err := row.Scan(
		&emp.ID, &emp.UserID, &emp.CompanyID, &emp.BranchID, &emp.DepartmentID,
		&emp.EmployeeCode, &emp.FullName, &emp.HireDate, &emp.ResignationDate,
		&emp.EmploymentStatus, &emp.CreatedAt, &emp.UpdatedAt, &emp.DeletedAt,
	)
	return emp, err
}

// GetByID implements employee.EmployeeRepository. Soft-deleted rows are
// returned so callers can tell a removed employee from an unknown id.
func (e *employeeRepositoryImpl) GetByID(ctx context.Context, id string, companyID string) (employee.Employee, error) {
	q := GetQuerier(ctx, e.db)

	query := `SELECT ` + employeeColumns + ` FROM employees WHERE id = $1 AND company_id = $2`

	emp, err := scanEmployee(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return employee.Employee{}, employee.ErrEmployeeNotFound
		}
		return employee.Employee{}, fmt.Errorf("failed to get employee with id %s: %w", id, err)
	}
	return emp, nil
}

// ListActiveForPayroll implements employee.EmployeeRepository.
func (e *employeeRepositoryImpl) ListActiveForPayroll(ctx context.Context, companyID string, scope employee.PayrollScope) ([]employee.Employee, error) {
	q := GetQuerier(ctx, e.db)

	query := `
		SELECT ` + employeeColumns + `
		FROM employees
		WHERE company_id = $1 AND employment_status = $2 AND deleted_at IS NULL
	`
	args := []interface{}{companyID, employee.EmploymentStatusActive}
	argIdx := 3

	if scope.BranchID != nil {
		query += fmt.Sprintf(" AND branch_id = $%d", argIdx)
		args = append(args, *scope.BranchID)
		argIdx++
	}
	if scope.DepartmentID != nil {
		query += fmt.Sprintf(" AND department_id = $%d", argIdx)
		args = append(args, *scope.DepartmentID)
		argIdx++
	}
	if len(scope.EmployeeIDs) > 0 {
		query += fmt.Sprintf(" AND id = ANY($%d)", argIdx)
		args = append(args, scope.EmployeeIDs)
	}
	query += " ORDER BY employee_code"

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees for payroll: %w", err)
	}
	defer rows.Close()

	var employees []employee.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, emp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list employees for payroll: %w", err)
	}

	return employees, nil
}
