package payroll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/audit"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/monthlock"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/notification"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/salary"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/user"
	"github.com/shopspring/decimal"
)

type generateOutcome struct {
	record         payroll.PayrollRecord
	previous       *payroll.PayrollRecord
	inserted       bool
	lockOverridden bool
	regenerated    bool
}

// ========== GENERATION ==========

// Preview runs the calculation without touching the store or the month lock.
func (s *PayrollServiceImpl) Preview(ctx context.Context, viewer user.Viewer, req payroll.GenerateRecordRequest) (payroll.CalculationResponse, error) {
	if err := user.Authorize(viewer, user.PermissionPayrollGenerate); err != nil {
		return payroll.CalculationResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return payroll.CalculationResponse{}, err
	}

	month, err := payroll.ParsePeriod(req.PeriodMonth)
	if err != nil {
		return payroll.CalculationResponse{}, err
	}

	emp, err := s.loadEmployee(ctx, viewer.CompanyID, req.EmployeeID, month)
	if err != nil {
		return payroll.CalculationResponse{}, err
	}

	structure, err := s.loadStructure(ctx, viewer.CompanyID, emp.ID)
	if err != nil {
		return payroll.CalculationResponse{}, err
	}

	result, err := s.calculator.Calculate(ctx, emp, month, &structure, req.PayableDays)
	if err != nil {
		return payroll.CalculationResponse{}, err
	}

	return toCalculationResponse(result), nil
}

func (s *PayrollServiceImpl) GenerateOrUpdate(ctx context.Context, viewer user.Viewer, req payroll.GenerateRecordRequest) (payroll.GenerateRecordResponse, error) {
	if err := user.Authorize(viewer, user.PermissionPayrollGenerate); err != nil {
		return payroll.GenerateRecordResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return payroll.GenerateRecordResponse{}, err
	}

	month, err := payroll.ParsePeriod(req.PeriodMonth)
	if err != nil {
		return payroll.GenerateRecordResponse{}, err
	}

	emp, err := s.loadEmployee(ctx, viewer.CompanyID, req.EmployeeID, month)
	if err != nil {
		return payroll.GenerateRecordResponse{}, err
	}

	outcome, err := s.generateOne(ctx, viewer, emp, month, req.PayableDays, req.Notes)
	if err != nil {
		return payroll.GenerateRecordResponse{}, err
	}

	return payroll.GenerateRecordResponse{
		Record:         toRecordResponse(outcome.record),
		WasUpdated:     !outcome.inserted,
		LockOverridden: outcome.lockOverridden,
		Regenerated:    outcome.regenerated,
	}, nil
}

// GenerateMonth generates every active employee in scope, one transaction
// per employee. Paid records are skipped and other failures are collected.
func (s *PayrollServiceImpl) GenerateMonth(ctx context.Context, viewer user.Viewer, req payroll.GenerateMonthRequest) (payroll.BatchResult, error) {
	if err := user.Authorize(viewer, user.PermissionPayrollGenerate); err != nil {
		return payroll.BatchResult{}, err
	}
	if err := req.Validate(); err != nil {
		return payroll.BatchResult{}, err
	}

	month, err := payroll.ParsePeriod(req.PeriodMonth)
	if err != nil {
		return payroll.BatchResult{}, err
	}

	lockOverridden, err := s.checkLock(ctx, viewer, month)
	if err != nil {
		return payroll.BatchResult{}, err
	}

	employees, err := s.employeeRepo.ListActiveForPayroll(ctx, viewer.CompanyID, employee.PayrollScope{
		BranchID:     req.BranchID,
		DepartmentID: req.DepartmentID,
		EmployeeIDs:  req.EmployeeIDs,
	})
	if err != nil {
		return payroll.BatchResult{}, fmt.Errorf("failed to list employees: %w", err)
	}

	result := payroll.BatchResult{Matched: len(employees)}
	for _, emp := range employees {
		outcome, err := s.generateOne(ctx, viewer, emp, month, nil, nil)
		switch {
		case errors.Is(err, payroll.ErrPayrollRecordAlreadyPaid):
			result.Skipped++
		case err != nil:
			result.Fail("", emp.ID, err)
		case outcome.inserted:
			result.Created++
		default:
			result.Updated++
		}
	}

	metadata := result.Counts()
	metadata["period_month"] = payroll.FormatPeriod(month)
	metadata["lock_overridden"] = lockOverridden
	metadata["scope"] = map[string]interface{}{
		"branch_id":     req.BranchID,
		"department_id": req.DepartmentID,
		"employee_ids":  req.EmployeeIDs,
	}
	s.recordAudit(ctx, viewer, audit.EntityPayrollBatch, nil, audit.ActionPayrollMonthGenerated, nil, nil, metadata)
	s.notifyBatch(ctx, viewer, "Payroll generated", month, result)

	s.logger.WithCompany(viewer.CompanyID).Info().
		Str("period_month", payroll.FormatPeriod(month)).
		Int("created", result.Created).
		Int("updated", result.Updated).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("payroll month generated")

	return result, nil
}

// generateOne creates or recalculates the record of one employee and month.
// The record is re-read under a row lock, so a concurrent mark-paid either
// commits first and makes this fail, or waits for this to finish.
func (s *PayrollServiceImpl) generateOne(ctx context.Context, viewer user.Viewer, emp employee.Employee, month time.Time, override *decimal.Decimal, notes *string) (generateOutcome, error) {
	var out generateOutcome

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		structure, err := s.loadStructure(ctx, viewer.CompanyID, emp.ID)
		if err != nil {
			return err
		}

		out.lockOverridden, err = s.checkLock(ctx, viewer, month)
		if err != nil {
			return err
		}

		existing, err := s.payrollRepo.GetByEmployeePeriodForUpdate(ctx, viewer.CompanyID, emp.ID, month)
		switch {
		case errors.Is(err, payroll.ErrPayrollRecordNotFound):
		case err != nil:
			return err
		default:
			out.previous = &existing
		}

		allowPaid := false
		if out.previous != nil {
			if out.previous.Status == payroll.PayrollStatusPaid {
				allowPaid, err = s.unlockedSincePaid(ctx, viewer.CompanyID, *out.previous, out.lockOverridden)
				if err != nil {
					return err
				}
				if !allowPaid {
					return payroll.ErrPayrollRecordAlreadyPaid
				}
				out.regenerated = true
			} else if err := payroll.ValidateTransition(out.previous.Status, payroll.PayrollStatusDraft, payroll.TriggerRecalculate); err != nil {
				return err
			}
		}

		result, err := s.calculator.Calculate(ctx, emp, month, &structure, override)
		if err != nil {
			return err
		}

		record := payroll.PayrollRecord{
			CompanyID:    viewer.CompanyID,
			BranchID:     emp.BranchID,
			DepartmentID: emp.DepartmentID,
			GeneratedBy:  viewer.UserID,
			GeneratedAt:  s.now().UTC(),
			Notes:        notes,
		}
		if out.previous != nil {
			record.ID = out.previous.ID
			if notes == nil {
				record.Notes = out.previous.Notes
			}
		} else if record.ID, err = s.newID(); err != nil {
			return err
		}
		record.ApplyCalculation(result)
		record.ResetWorkflow()

		saved, inserted, err := s.payrollRepo.Upsert(ctx, record, allowPaid)
		if err != nil {
			return err
		}
		saved.EmployeeName = strPtr(emp.FullName)
		saved.EmployeeCode = strPtr(emp.EmployeeCode)
		saved.EmployeeUserID = emp.UserID

		out.record = saved
		out.inserted = inserted
		return nil
	})
	if err != nil {
		return generateOutcome{}, err
	}

	// A concurrent first generate can win the insert; the upsert result
	// decides the action, the before-image only exists if we read one.
	action := audit.ActionPayrollGenerated
	if !out.inserted {
		action = audit.ActionPayrollRecalculated
	}
	var before map[string]interface{}
	if out.previous != nil {
		before = out.previous.Snapshot()
	}
	if out.regenerated {
		action = audit.ActionPayrollRegenerated
	}
	var payableOverride interface{}
	if override != nil {
		payableOverride = override.StringFixed(2)
	}
	s.recordAudit(ctx, viewer, audit.EntityPayrollRecord, &out.record.ID, action, before, out.record.Snapshot(), map[string]interface{}{
		"employee_id":      emp.ID,
		"period_month":     payroll.FormatPeriod(month),
		"lock_overridden":  out.lockOverridden,
		"payable_override": payableOverride,
	})

	s.publish(ctx, payroll.EventRecordGenerated, map[string]interface{}{
		"company_id":   viewer.CompanyID,
		"record_id":    out.record.ID,
		"employee_id":  emp.ID,
		"period_month": payroll.FormatPeriod(month),
		"net_salary":   out.record.NetSalary.StringFixed(2),
		"regenerated":  out.regenerated,
	})

	return out, nil
}

// unlockedSincePaid allows regenerating a paid record only when its month
// was unlocked after the payment and is not locked again.
func (s *PayrollServiceImpl) unlockedSincePaid(ctx context.Context, companyID string, record payroll.PayrollRecord, locked bool) (bool, error) {
	if locked || record.PaidAt == nil {
		return false, nil
	}

	latest, err := s.lockRepo.GetLatestUnlocked(ctx, companyID, record.PeriodMonth)
	if err != nil {
		if errors.Is(err, monthlock.ErrMonthNotLocked) {
			return false, nil
		}
		return false, err
	}

	return latest.UnlockedAt != nil && latest.UnlockedAt.After(*record.PaidAt), nil
}

func (s *PayrollServiceImpl) loadEmployee(ctx context.Context, companyID, employeeID string, month time.Time) (employee.Employee, error) {
	emp, err := s.employeeRepo.GetByID(ctx, employeeID, companyID)
	if err != nil {
		return employee.Employee{}, err
	}
	if emp.DeletedAt != nil {
		return employee.Employee{}, employee.ErrEmployeeNotFound
	}

	// A leaver is still paid for the months before their resignation date
	if emp.EmploymentStatus != employee.EmploymentStatusActive &&
		(emp.ResignationDate == nil || emp.ResignationDate.Before(month)) {
		return employee.Employee{}, employee.ErrEmployeeInactive
	}
	return emp, nil
}

func (s *PayrollServiceImpl) loadStructure(ctx context.Context, companyID, employeeID string) (salary.SalaryStructure, error) {
	structure, err := s.salaryRepo.GetByEmployeeID(ctx, companyID, employeeID)
	if err != nil {
		if errors.Is(err, salary.ErrSalaryStructureNotFound) {
			return salary.SalaryStructure{}, fmt.Errorf("%w for employee %s", payroll.ErrMissingSalaryStructure, employeeID)
		}
		return salary.SalaryStructure{}, err
	}
	return structure, nil
}

func (s *PayrollServiceImpl) notifyBatch(ctx context.Context, viewer user.Viewer, title string, month time.Time, result payroll.BatchResult) {
	severity := notification.SeveritySuccess
	if result.Failed > 0 {
		severity = notification.SeverityWarning
	}
	period := payroll.FormatPeriod(month)

	s.notifier.NotifyUser(ctx, notification.CreateNotificationRequest{
		CompanyID:   viewer.CompanyID,
		RecipientID: viewer.UserID,
		Type:        notification.TypePayrollBatchComplete,
		Severity:    severity,
		Title:       title,
		Message: fmt.Sprintf("%s: %d matched, %d created, %d updated, %d skipped, %d failed",
			period, result.Matched, result.Created, result.Updated, result.Skipped, result.Failed),
		Link: strPtr("/payroll?period_month=" + period),
		Data: result.Counts(),
	})
}
