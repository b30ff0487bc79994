package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/salary"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type salaryRepository struct {
	db *database.DB
}

func NewSalaryRepository(db *database.DB) salary.SalaryRepository {
	return &salaryRepository{db: db}
}

const salaryStructureColumns = `
	id, company_id, employee_id,
	basic_salary, housing_allowance, special_allowance, bonus, other_allowance,
	provident_fund, tax_deduction, other_deduction,
	updated_by, created_at, updated_at
`

func scanSalaryStructure(row pgx.Row) (salary.SalaryStructure, error) {
	var s salary.SalaryStructure
	err := row.Scan(
		&s.ID, &s.CompanyID, &s.EmployeeID,
		&s.BasicSalary, &s.HousingAllowance, &s.SpecialAllowance, &s.Bonus, &s.OtherAllowance,
		&s.ProvidentFund, &s.TaxDeduction, &s.OtherDeduction,
		&s.UpdatedBy, &s.CreatedAt, &s.UpdatedAt,
	)
	return s, err
}

func (r *salaryRepository) GetByEmployeeID(ctx context.Context, companyID, employeeID string) (salary.SalaryStructure, error) {
	return r.get(ctx, companyID, employeeID, "")
}

func (r *salaryRepository) GetByEmployeeIDForUpdate(ctx context.Context, companyID, employeeID string) (salary.SalaryStructure, error) {
	return r.get(ctx, companyID, employeeID, "FOR UPDATE")
}

func (r *salaryRepository) get(ctx context.Context, companyID, employeeID, lock string) (salary.SalaryStructure, error) {
	q := GetQuerier(ctx, r.db)

	query := fmt.Sprintf(`
		SELECT %s
		FROM salary_structures
		WHERE company_id = $1 AND employee_id = $2
		%s
	`, salaryStructureColumns, lock)

	s, err := scanSalaryStructure(q.QueryRow(ctx, query, companyID, employeeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return salary.SalaryStructure{}, salary.ErrSalaryStructureNotFound
		}
		return salary.SalaryStructure{}, fmt.Errorf("failed to get salary structure: %w", err)
	}
	return s, nil
}

func (r *salaryRepository) Upsert(ctx context.Context, structure salary.SalaryStructure) (salary.SalaryStructure, error) {
	q := GetQuerier(ctx, r.db)

	query := fmt.Sprintf(`
		INSERT INTO salary_structures (
			id, company_id, employee_id,
			basic_salary, housing_allowance, special_allowance, bonus, other_allowance,
			provident_fund, tax_deduction, other_deduction,
			updated_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (company_id, employee_id) DO UPDATE SET
			basic_salary = EXCLUDED.basic_salary,
			housing_allowance = EXCLUDED.housing_allowance,
			special_allowance = EXCLUDED.special_allowance,
			bonus = EXCLUDED.bonus,
			other_allowance = EXCLUDED.other_allowance,
			provident_fund = EXCLUDED.provident_fund,
			tax_deduction = EXCLUDED.tax_deduction,
			other_deduction = EXCLUDED.other_deduction,
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at
		RETURNING %s
	`, salaryStructureColumns)

	saved, err := scanSalaryStructure(q.QueryRow(ctx, query,
		structure.ID, structure.CompanyID, structure.EmployeeID,
		structure.BasicSalary, structure.HousingAllowance, structure.SpecialAllowance, structure.Bonus, structure.OtherAllowance,
		structure.ProvidentFund, structure.TaxDeduction, structure.OtherDeduction,
		structure.UpdatedBy, structure.CreatedAt, structure.UpdatedAt,
	))
	if err != nil {
		return salary.SalaryStructure{}, fmt.Errorf("failed to upsert salary structure: %w", err)
	}
	return saved, nil
}

func (r *salaryRepository) CreateHistory(ctx context.Context, h salary.StructureHistory) error {
	q := GetQuerier(ctx, r.db)

	changes := h.Changes
	if changes == nil {
		changes = []map[string]interface{}{}
	}

	query := `
		INSERT INTO salary_structure_history (
			id, company_id, employee_id, structure_id, before, after, changes, changed_by, changed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := q.Exec(ctx, query,
		h.ID, h.CompanyID, h.EmployeeID, h.StructureID,
		h.Before, h.After, changes,
		h.ChangedBy, h.ChangedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create salary structure history: %w", err)
	}
	return nil
}

func (r *salaryRepository) ListHistory(ctx context.Context, companyID, employeeID string) ([]salary.StructureHistory, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, company_id, employee_id, structure_id, before, after, changes, changed_by, changed_at
		FROM salary_structure_history
		WHERE company_id = $1 AND employee_id = $2
		ORDER BY changed_at DESC, id DESC
	`

	rows, err := q.Query(ctx, query, companyID, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list salary structure history: %w", err)
	}
	defer rows.Close()

	var history []salary.StructureHistory
	for rows.Next() {
		var h salary.StructureHistory
		if err := rows.Scan(
			&h.ID, &h.CompanyID, &h.EmployeeID, &h.StructureID,
			&h.Before, &h.After, &h.Changes,
			&h.ChangedBy, &h.ChangedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan salary structure history: %w", err)
		}
		history = append(history, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list salary structure history: %w", err)
	}

	return history, nil
}
