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
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/database"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/logger"
	"github.com/google/uuid"
)

type PayrollServiceImpl struct {
	tx           database.Transactor
	payrollRepo  payroll.PayrollRepository
	employeeRepo employee.EmployeeRepository
	salaryRepo   salary.SalaryRepository
	lockRepo     monthlock.Repository
	calculator   *Calculator
	audit        audit.Recorder
	notifier     notification.Sink
	publisher    payroll.EventPublisher
	logger       *logger.Logger

	now func() time.Time
}

func NewPayrollService(
	tx database.Transactor,
	payrollRepo payroll.PayrollRepository,
	employeeRepo employee.EmployeeRepository,
	salaryRepo salary.SalaryRepository,
	lockRepo monthlock.Repository,
	calculator *Calculator,
	recorder audit.Recorder,
	notifier notification.Sink,
	publisher payroll.EventPublisher,
	log *logger.Logger,
) *PayrollServiceImpl {
	return &PayrollServiceImpl{
		tx:           tx,
		payrollRepo:  payrollRepo,
		employeeRepo: employeeRepo,
		salaryRepo:   salaryRepo,
		lockRepo:     lockRepo,
		calculator:   calculator,
		audit:        recorder,
		notifier:     notifier,
		publisher:    publisher,
		logger:       log.WithComponent("payroll"),
		now:          time.Now,
	}
}

var _ payroll.PayrollService = (*PayrollServiceImpl)(nil)

// ========== RECORDS ==========

func (s *PayrollServiceImpl) GetRecord(ctx context.Context, viewer user.Viewer, id string) (payroll.PayrollRecordResponse, error) {
	record, err := s.payrollRepo.GetByID(ctx, id, viewer.CompanyID)
	if err != nil {
		return payroll.PayrollRecordResponse{}, err
	}

	// Employees may read their own record
	if !viewer.Can(user.PermissionPayrollView) && !ownsRecord(viewer, record) {
		return payroll.PayrollRecordResponse{}, fmt.Errorf("%w: %s", user.ErrInsufficientPermissions, user.PermissionPayrollView)
	}

	return toRecordResponse(record), nil
}

func (s *PayrollServiceImpl) ListRecords(ctx context.Context, viewer user.Viewer, filter payroll.PayrollFilter) (payroll.ListPayrollRecordResponse, error) {
	if !viewer.Can(user.PermissionPayrollView) {
		if viewer.EmployeeID == nil {
			return payroll.ListPayrollRecordResponse{}, fmt.Errorf("%w: %s", user.ErrInsufficientPermissions, user.PermissionPayrollView)
		}
		filter.EmployeeID = viewer.EmployeeID
	}

	if filter.PeriodMonth != nil && *filter.PeriodMonth != "" {
		month, err := payroll.ParsePeriod(*filter.PeriodMonth)
		if err != nil {
			return payroll.ListPayrollRecordResponse{}, err
		}
		filter.Period = &month
	}
	if filter.Status != nil && !payroll.PayrollStatus(*filter.Status).IsValid() {
		return payroll.ListPayrollRecordResponse{}, fmt.Errorf("%w: %q", payroll.ErrInvalidStatus, *filter.Status)
	}

	// Defaults
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}

	records, total, err := s.payrollRepo.List(ctx, viewer.CompanyID, filter)
	if err != nil {
		return payroll.ListPayrollRecordResponse{}, err
	}

	data := make([]payroll.PayrollRecordResponse, 0, len(records))
	for _, r := range records {
		data = append(data, toRecordResponse(r))
	}

	return payroll.ListPayrollRecordResponse{
		Data:       data,
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}, nil
}

func (s *PayrollServiceImpl) GetSummary(ctx context.Context, viewer user.Viewer, period string) (payroll.PayrollSummaryResponse, error) {
	if err := user.Authorize(viewer, user.PermissionPayrollView); err != nil {
		return payroll.PayrollSummaryResponse{}, err
	}

	month, err := payroll.ParsePeriod(period)
	if err != nil {
		return payroll.PayrollSummaryResponse{}, err
	}

	summary, err := s.payrollRepo.GetSummary(ctx, viewer.CompanyID, month)
	if err != nil {
		return payroll.PayrollSummaryResponse{}, err
	}

	locked := true
	if _, err := s.lockRepo.GetActive(ctx, viewer.CompanyID, month); err != nil {
		if !errors.Is(err, monthlock.ErrMonthNotLocked) {
			return payroll.PayrollSummaryResponse{}, err
		}
		locked = false
	}

	return payroll.PayrollSummaryResponse{
		PeriodMonth:     payroll.FormatPeriod(month),
		TotalRecords:    summary.TotalRecords,
		DraftCount:      summary.DraftCount,
		FailedCount:     summary.FailedCount,
		ApprovedCount:   summary.ApprovedCount,
		PaidCount:       summary.PaidCount,
		TotalGross:      summary.TotalGross,
		TotalDeductions: summary.TotalDeductions,
		TotalNet:        summary.TotalNet,
		Locked:          locked,
	}, nil
}

// ========== HELPERS ==========

// checkLock fails with ErrMonthLocked when the month has an active lock and
// the viewer cannot override it. It reports whether a lock was overridden.
func (s *PayrollServiceImpl) checkLock(ctx context.Context, viewer user.Viewer, month time.Time) (bool, error) {
	if err := s.lockRepo.AcquireGuard(ctx, viewer.CompanyID, month, monthlock.GuardShared); err != nil {
		return false, err
	}

	lock, err := s.lockRepo.GetActive(ctx, viewer.CompanyID, month)
	if err != nil {
		if errors.Is(err, monthlock.ErrMonthNotLocked) {
			return false, nil
		}
		return false, err
	}

	if !viewer.Can(user.PermissionPayrollOverrideLock) {
		return false, fmt.Errorf("%w: %s", payroll.ErrMonthLocked, payroll.FormatPeriod(lock.PeriodMonth))
	}
	return true, nil
}

func (s *PayrollServiceImpl) newID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate id: %w", err)
	}
	return id.String(), nil
}

func (s *PayrollServiceImpl) publish(ctx context.Context, eventType string, data interface{}) {
	if err := s.publisher.Publish(context.WithoutCancel(ctx), eventType, data); err != nil {
		s.logger.Warn().Err(err).Str("event_type", eventType).Msg("failed to publish payroll event")
	}
}

func (s *PayrollServiceImpl) recordAudit(ctx context.Context, viewer user.Viewer, entityType audit.EntityType, entityID *string, action audit.Action, before, after, metadata map[string]interface{}) {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	if before != nil || after != nil {
		metadata["changes"] = audit.ChangesToMaps(audit.Diff(before, after))
	}
	s.audit.Record(ctx, audit.Entry{
		CompanyID:  viewer.CompanyID,
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		ActorID:    viewer.UserID,
		Before:     before,
		After:      after,
		Metadata:   metadata,
	})
}

func ownsRecord(viewer user.Viewer, record payroll.PayrollRecord) bool {
	return viewer.EmployeeID != nil && *viewer.EmployeeID == record.EmployeeID
}

func toRecordResponse(r payroll.PayrollRecord) payroll.PayrollRecordResponse {
	resp := payroll.PayrollRecordResponse{
		ID:                r.ID,
		EmployeeID:        r.EmployeeID,
		BranchID:          r.BranchID,
		DepartmentID:      r.DepartmentID,
		PeriodMonth:       payroll.FormatPeriod(r.PeriodMonth),
		WorkingDays:       r.WorkingDays,
		AttendanceLOPDays: r.AttendanceLOPDays,
		UnpaidLeaveDays:   r.UnpaidLeaveDays,
		LOPDays:           r.LOPDays,
		PayableDays:       r.PayableDays,
		PayableOverridden: r.PayableOverridden,
		Earnings:          r.Earnings,
		GrossSalary:       r.GrossSalary,
		Deductions:        r.Deductions,
		TotalDeductions:   r.TotalDeductions,
		NetSalary:         r.NetSalary,
		Status:            string(r.Status),
		GeneratedBy:       r.GeneratedBy,
		GeneratedAt:       r.GeneratedAt.UTC().Format(time.RFC3339),
		ApprovedBy:        r.ApprovedBy,
		ApprovedAt:        formatTime(r.ApprovedAt),
		PaidBy:            r.PaidBy,
		PaidAt:            formatTime(r.PaidAt),
		PaymentMethod:     r.PaymentMethod,
		PaymentReference:  r.PaymentReference,
		Notes:             r.Notes,
	}
	if r.EmployeeName != nil {
		resp.EmployeeName = *r.EmployeeName
	}
	if r.EmployeeCode != nil {
		resp.EmployeeCode = *r.EmployeeCode
	}
	return resp
}

func toCalculationResponse(c payroll.CalculationResult) payroll.CalculationResponse {
	return payroll.CalculationResponse{
		EmployeeID:        c.EmployeeID,
		PeriodMonth:       payroll.FormatPeriod(c.PeriodMonth),
		DaysInMonth:       c.DaysInMonth,
		HolidayCount:      c.HolidayCount,
		WorkingDays:       c.WorkingDays,
		AttendanceLOPDays: c.AttendanceLOPDays,
		UnpaidLeaveDays:   c.UnpaidLeaveDays,
		LOPDays:           c.LOPDays,
		PayableDays:       c.PayableDays,
		PayableOverridden: c.PayableOverridden,
		Ratio:             c.Ratio,
		Earnings:          c.Earnings,
		GrossSalary:       c.GrossSalary,
		Deductions:        c.Deductions,
		TotalDeductions:   c.TotalDeductions,
		NetSalary:         c.NetSalary,
	}
}

func toLockResponse(l monthlock.MonthLock) payroll.MonthLockResponse {
	return payroll.MonthLockResponse{
		ID:           l.ID,
		PeriodMonth:  payroll.FormatPeriod(l.PeriodMonth),
		Active:       l.IsActive(),
		LockedBy:     l.LockedBy,
		LockedAt:     l.LockedAt.UTC().Format(time.RFC3339),
		UnlockedBy:   l.UnlockedBy,
		UnlockedAt:   formatTime(l.UnlockedAt),
		UnlockReason: l.UnlockReason,
		Metadata:     l.Metadata,
	}
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	str := t.UTC().Format(time.RFC3339)
	return &str
}

func strPtr(s string) *string {
	return &s
}
