package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type payrollRepository struct {
	db *database.DB
}

func NewPayrollRepository(db *database.DB) payroll.PayrollRepository {
	return &payrollRepository{db: db}
}

const payrollRecordColumns = `
	pr.id, pr.company_id, pr.employee_id, pr.period_month, pr.branch_id, pr.department_id,
	pr.working_days, pr.attendance_lop_days, pr.unpaid_leave_days, pr.lop_days, pr.payable_days, pr.payable_overridden,
	pr.basic_salary, pr.housing_allowance, pr.special_allowance, pr.bonus, pr.other_allowance, pr.gross_salary,
	pr.provident_fund, pr.tax_deduction, pr.other_deduction, pr.total_deductions, pr.net_salary,
	pr.status, pr.generated_by, pr.generated_at, pr.approved_by, pr.approved_at,
	pr.paid_by, pr.paid_at, pr.payment_method, pr.payment_reference, pr.notes,
	pr.created_at, pr.updated_at,
	e.full_name, e.employee_code, e.user_id
`

func scanPayrollRecord(row pgx.Row) (payroll.PayrollRecord, error) {
	var rec payroll.PayrollRecord
	err := row.Scan(
		&rec.ID, &rec.CompanyID, &rec.EmployeeID, &rec.PeriodMonth, &rec.BranchID, &rec.DepartmentID,
		&rec.WorkingDays, &rec.AttendanceLOPDays, &rec.UnpaidLeaveDays, &rec.LOPDays, &rec.PayableDays, &rec.PayableOverridden,
		&rec.Earnings.BasicSalary, &rec.Earnings.HousingAllowance, &rec.Earnings.SpecialAllowance,
		&rec.Earnings.Bonus, &rec.Earnings.OtherAllowance, &rec.GrossSalary,
		&rec.Deductions.ProvidentFund, &rec.Deductions.TaxDeduction, &rec.Deductions.OtherDeduction,
		&rec.TotalDeductions, &rec.NetSalary,
		&rec.Status, &rec.GeneratedBy, &rec.GeneratedAt, &rec.ApprovedBy, &rec.ApprovedAt,
		&rec.PaidBy, &rec.PaidAt, &rec.PaymentMethod, &rec.PaymentReference, &rec.Notes,
		&rec.CreatedAt, &rec.UpdatedAt,
		&rec.EmployeeName, &rec.EmployeeCode, &rec.EmployeeUserID,
	)
	return rec, err
}

// ========== READS ==========

func (r *payrollRepository) GetByID(ctx context.Context, id string, companyID string) (payroll.PayrollRecord, error) {
	return r.getOne(ctx, "WHERE pr.id = $1 AND pr.company_id = $2", "", id, companyID)
}

func (r *payrollRepository) GetByIDForUpdate(ctx context.Context, id string, companyID string) (payroll.PayrollRecord, error) {
	return r.getOne(ctx, "WHERE pr.id = $1 AND pr.company_id = $2", "FOR UPDATE OF pr", id, companyID)
}

func (r *payrollRepository) GetByEmployeePeriodForUpdate(ctx context.Context, companyID, employeeID string, month time.Time) (payroll.PayrollRecord, error) {
	return r.getOne(ctx, "WHERE pr.company_id = $1 AND pr.employee_id = $2 AND pr.period_month = $3", "FOR UPDATE OF pr", companyID, employeeID, month)
}

func (r *payrollRepository) getOne(ctx context.Context, where, lock string, args ...interface{}) (payroll.PayrollRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := fmt.Sprintf(`
		SELECT %s
		FROM payroll_records pr
		JOIN employees e ON pr.employee_id = e.id
		%s
		%s
	`, payrollRecordColumns, where, lock)

	rec, err := scanPayrollRecord(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayrollRecord{}, payroll.ErrPayrollRecordNotFound
		}
		return payroll.PayrollRecord{}, fmt.Errorf("failed to get payroll record: %w", err)
	}
	return rec, nil
}

// ========== WRITES ==========

// Upsert relies on the (company_id, employee_id, period_month) unique key.
// The conditional DO UPDATE leaves a paid row untouched and returns no row,
// which is reported as ErrPayrollRecordAlreadyPaid.
func (r *payrollRepository) Upsert(ctx context.Context, record payroll.PayrollRecord, allowPaid bool) (payroll.PayrollRecord, bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO payroll_records (
			id, company_id, employee_id, period_month, branch_id, department_id,
			working_days, attendance_lop_days, unpaid_leave_days, lop_days, payable_days, payable_overridden,
			basic_salary, housing_allowance, special_allowance, bonus, other_allowance, gross_salary,
			provident_fund, tax_deduction, other_deduction, total_deductions, net_salary,
			status, generated_by, generated_at, notes
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18,
			$19, $20, $21, $22, $23,
			$24, $25, $26, $27
		)
		ON CONFLICT (company_id, employee_id, period_month) DO UPDATE SET
			branch_id = EXCLUDED.branch_id,
			department_id = EXCLUDED.department_id,
			working_days = EXCLUDED.working_days,
			attendance_lop_days = EXCLUDED.attendance_lop_days,
			unpaid_leave_days = EXCLUDED.unpaid_leave_days,
			lop_days = EXCLUDED.lop_days,
			payable_days = EXCLUDED.payable_days,
			payable_overridden = EXCLUDED.payable_overridden,
			basic_salary = EXCLUDED.basic_salary,
			housing_allowance = EXCLUDED.housing_allowance,
			special_allowance = EXCLUDED.special_allowance,
			bonus = EXCLUDED.bonus,
			other_allowance = EXCLUDED.other_allowance,
			gross_salary = EXCLUDED.gross_salary,
			provident_fund = EXCLUDED.provident_fund,
			tax_deduction = EXCLUDED.tax_deduction,
			other_deduction = EXCLUDED.other_deduction,
			total_deductions = EXCLUDED.total_deductions,
			net_salary = EXCLUDED.net_salary,
			status = EXCLUDED.status,
			generated_by = EXCLUDED.generated_by,
			generated_at = EXCLUDED.generated_at,
			approved_by = NULL,
			approved_at = NULL,
			paid_by = NULL,
			paid_at = NULL,
			payment_method = NULL,
			payment_reference = NULL,
			notes = EXCLUDED.notes,
			updated_at = NOW()
		WHERE payroll_records.status <> 'paid' OR $28::boolean
		RETURNING id, (xmax = 0) AS inserted
	`

	var (
		id       string
		inserted bool
	)
	err := q.QueryRow(ctx, query,
		record.ID, record.CompanyID, record.EmployeeID, record.PeriodMonth, record.BranchID, record.DepartmentID,
		record.WorkingDays, record.AttendanceLOPDays, record.UnpaidLeaveDays, record.LOPDays, record.PayableDays, record.PayableOverridden,
		record.Earnings.BasicSalary, record.Earnings.HousingAllowance, record.Earnings.SpecialAllowance,
		record.Earnings.Bonus, record.Earnings.OtherAllowance, record.GrossSalary,
		record.Deductions.ProvidentFund, record.Deductions.TaxDeduction, record.Deductions.OtherDeduction,
		record.TotalDeductions, record.NetSalary,
		record.Status, record.GeneratedBy, record.GeneratedAt, record.Notes,
		allowPaid,
	).Scan(&id, &inserted)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayrollRecord{}, false, payroll.ErrPayrollRecordAlreadyPaid
		}
		return payroll.PayrollRecord{}, false, fmt.Errorf("failed to upsert payroll record: %w", err)
	}

	saved, err := r.GetByID(ctx, id, record.CompanyID)
	if err != nil {
		return payroll.PayrollRecord{}, false, err
	}
	return saved, inserted, nil
}

func (r *payrollRepository) UpdateWorkflow(ctx context.Context, record payroll.PayrollRecord, expected payroll.PayrollStatus) (payroll.PayrollRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE payroll_records
		SET status = $3,
			approved_by = $4, approved_at = $5,
			paid_by = $6, paid_at = $7,
			payment_method = $8, payment_reference = $9,
			notes = $10,
			updated_at = NOW()
		WHERE id = $1 AND company_id = $2 AND status = $11
		RETURNING id
	`

	var id string
	err := q.QueryRow(ctx, query,
		record.ID, record.CompanyID, record.Status,
		record.ApprovedBy, record.ApprovedAt,
		record.PaidBy, record.PaidAt,
		record.PaymentMethod, record.PaymentReference,
		record.Notes,
		expected,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayrollRecord{}, payroll.ErrConcurrentModification
		}
		return payroll.PayrollRecord{}, fmt.Errorf("failed to update payroll workflow: %w", err)
	}

	return r.GetByID(ctx, id, record.CompanyID)
}

func (r *payrollRepository) DeleteNonPaid(ctx context.Context, companyID string, ids []string) (int64, error) {
	q := GetQuerier(ctx, r.db)

	query := `DELETE FROM payroll_records WHERE company_id = $1 AND id = ANY($2) AND status <> 'paid'`

	tag, err := q.Exec(ctx, query, companyID, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to delete payroll records: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ========== LISTS ==========

func (r *payrollRepository) List(ctx context.Context, companyID string, filter payroll.PayrollFilter) ([]payroll.PayrollRecord, int64, error) {
	q := GetQuerier(ctx, r.db)

	baseQuery := `
		FROM payroll_records pr
		JOIN employees e ON pr.employee_id = e.id
		WHERE pr.company_id = $1
	`
	args := []interface{}{companyID}
	argIdx := 2

	if filter.Period != nil {
		baseQuery += fmt.Sprintf(" AND pr.period_month = $%d", argIdx)
		args = append(args, *filter.Period)
		argIdx++
	}
	if filter.Status != nil {
		baseQuery += fmt.Sprintf(" AND pr.status = $%d", argIdx)
		args = append(args, *filter.Status)
		argIdx++
	}
	if filter.EmployeeID != nil {
		baseQuery += fmt.Sprintf(" AND pr.employee_id = $%d", argIdx)
		args = append(args, *filter.EmployeeID)
		argIdx++
	}
	if filter.BranchID != nil {
		baseQuery += fmt.Sprintf(" AND pr.branch_id = $%d", argIdx)
		args = append(args, *filter.BranchID)
		argIdx++
	}
	if filter.DepartmentID != nil {
		baseQuery += fmt.Sprintf(" AND pr.department_id = $%d", argIdx)
		args = append(args, *filter.DepartmentID)
		argIdx++
	}

	// Count query
	var totalCount int64
	countQuery := "SELECT COUNT(*) " + baseQuery
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count payroll records: %w", err)
	}

	// Sort
	sortColumn := "pr.created_at"
	if filter.SortBy != "" {
		allowedColumns := map[string]string{
			"created_at":    "pr.created_at",
			"period":        "pr.period_month",
			"employee_name": "e.full_name",
			"employee_code": "e.employee_code",
			"net_salary":    "pr.net_salary",
			"status":        "pr.status",
		}
		if col, ok := allowedColumns[filter.SortBy]; ok {
			sortColumn = col
		}
	}
	sortOrder := "DESC"
	if filter.SortOrder == "asc" {
		sortOrder = "ASC"
	}

	// Pagination
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	offset := (filter.Page - 1) * filter.Limit

	selectQuery := fmt.Sprintf(`
		SELECT %s
		%s
		ORDER BY %s %s, pr.id
		LIMIT $%d OFFSET $%d
	`, payrollRecordColumns, baseQuery, sortColumn, sortOrder, argIdx, argIdx+1)

	args = append(args, filter.Limit, offset)

	rows, err := q.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payroll records: %w", err)
	}
	defer rows.Close()

	var records []payroll.PayrollRecord
	for rows.Next() {
		rec, err := scanPayrollRecord(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan payroll record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list payroll records: %w", err)
	}

	return records, totalCount, nil
}

func (r *payrollRepository) ListForBatch(ctx context.Context, companyID string, scope payroll.BatchScope) ([]payroll.RecordRef, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, employee_id, status
		FROM payroll_records
		WHERE company_id = $1 AND period_month = $2
	`
	args := []interface{}{companyID, scope.PeriodMonth}
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
	if scope.EmployeeID != nil {
		query += fmt.Sprintf(" AND employee_id = $%d", argIdx)
		args = append(args, *scope.EmployeeID)
		argIdx++
	}
	if len(scope.RecordIDs) > 0 {
		query += fmt.Sprintf(" AND id = ANY($%d)", argIdx)
		args = append(args, scope.RecordIDs)
	}
	query += " ORDER BY employee_id"

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list payroll batch: %w", err)
	}
	defer rows.Close()

	var refs []payroll.RecordRef
	for rows.Next() {
		var ref payroll.RecordRef
		if err := rows.Scan(&ref.ID, &ref.EmployeeID, &ref.Status); err != nil {
			return nil, fmt.Errorf("failed to scan payroll batch: %w", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list payroll batch: %w", err)
	}

	return refs, nil
}

// ========== AGGREGATIONS ==========

func (r *payrollRepository) GetSummary(ctx context.Context, companyID string, month time.Time) (payroll.PayrollSummary, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT
			COUNT(*) as total_records,
			COUNT(*) FILTER (WHERE status = 'draft') as draft_count,
			COUNT(*) FILTER (WHERE status = 'failed') as failed_count,
			COUNT(*) FILTER (WHERE status = 'approved') as approved_count,
			COUNT(*) FILTER (WHERE status = 'paid') as paid_count,
			COALESCE(SUM(gross_salary), 0) as total_gross,
			COALESCE(SUM(total_deductions), 0) as total_deductions,
			COALESCE(SUM(net_salary), 0) as total_net
		FROM payroll_records
		WHERE company_id = $1 AND period_month = $2
	`

	var s payroll.PayrollSummary
	err := q.QueryRow(ctx, query, companyID, month).Scan(
		&s.TotalRecords, &s.DraftCount, &s.FailedCount, &s.ApprovedCount, &s.PaidCount,
		&s.TotalGross, &s.TotalDeductions, &s.TotalNet,
	)
	if err != nil {
		return payroll.PayrollSummary{}, fmt.Errorf("failed to get payroll summary: %w", err)
	}

	return s, nil
}
