package payroll

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/audit"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/monthlock"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/notification"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/salary"
)

// ========== STORES ==========

type memEmployeeRepo struct {
	rows map[string]employee.Employee
}

func (m *memEmployeeRepo) GetByID(_ context.Context, id string, companyID string) (employee.Employee, error) {
	emp, ok := m.rows[id]
	if !ok || emp.CompanyID != companyID {
		return employee.Employee{}, employee.ErrEmployeeNotFound
	}
	return emp, nil
}

func (m *memEmployeeRepo) ListActiveForPayroll(_ context.Context, companyID string, scope employee.PayrollScope) ([]employee.Employee, error) {
	wanted := map[string]bool{}
	for _, id := range scope.EmployeeIDs {
		wanted[id] = true
	}

	var out []employee.Employee
	for _, emp := range m.rows {
		if emp.CompanyID != companyID || emp.EmploymentStatus != employee.EmploymentStatusActive {
			continue
		}
		if len(wanted) > 0 && !wanted[emp.ID] {
			continue
		}
		if scope.BranchID != nil && (emp.BranchID == nil || *emp.BranchID != *scope.BranchID) {
			continue
		}
		if scope.DepartmentID != nil && (emp.DepartmentID == nil || *emp.DepartmentID != *scope.DepartmentID) {
			continue
		}
		out = append(out, emp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeCode < out[j].EmployeeCode })
	return out, nil
}

type memPayrollRepo struct {
	mu        sync.Mutex
	rows      map[string]payroll.PayrollRecord
	employees *memEmployeeRepo

	// afterNextUpdate runs once, after the next successful UpdateWorkflow,
	// to interleave another writer with a running batch.
	afterNextUpdate func()
}

func newMemPayrollRepo(employees *memEmployeeRepo) *memPayrollRepo {
	return &memPayrollRepo{rows: map[string]payroll.PayrollRecord{}, employees: employees}
}

func (m *memPayrollRepo) join(r payroll.PayrollRecord) payroll.PayrollRecord {
	if emp, ok := m.employees.rows[r.EmployeeID]; ok {
		name, code := emp.FullName, emp.EmployeeCode
		r.EmployeeName = &name
		r.EmployeeCode = &code
		r.EmployeeUserID = emp.UserID
	}
	return r
}

func (m *memPayrollRepo) GetByID(_ context.Context, id string, companyID string) (payroll.PayrollRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok || r.CompanyID != companyID {
		return payroll.PayrollRecord{}, payroll.ErrPayrollRecordNotFound
	}
	return m.join(r), nil
}

func (m *memPayrollRepo) GetByIDForUpdate(ctx context.Context, id string, companyID string) (payroll.PayrollRecord, error) {
	return m.GetByID(ctx, id, companyID)
}

func (m *memPayrollRepo) GetByEmployeePeriodForUpdate(_ context.Context, companyID, employeeID string, month time.Time) (payroll.PayrollRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.CompanyID == companyID && r.EmployeeID == employeeID && r.PeriodMonth.Equal(month) {
			return m.join(r), nil
		}
	}
	return payroll.PayrollRecord{}, payroll.ErrPayrollRecordNotFound
}

func (m *memPayrollRepo) Upsert(_ context.Context, record payroll.PayrollRecord, allowPaid bool) (payroll.PayrollRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, existing := range m.rows {
		if existing.CompanyID != record.CompanyID || existing.EmployeeID != record.EmployeeID || !existing.PeriodMonth.Equal(record.PeriodMonth) {
			continue
		}
		if existing.Status == payroll.PayrollStatusPaid && !allowPaid {
			return payroll.PayrollRecord{}, false, payroll.ErrPayrollRecordAlreadyPaid
		}
		record.ID = id
		record.CreatedAt = existing.CreatedAt
		record.UpdatedAt = record.GeneratedAt
		m.rows[id] = record
		return m.join(record), false, nil
	}

	record.CreatedAt = record.GeneratedAt
	record.UpdatedAt = record.GeneratedAt
	m.rows[record.ID] = record
	return m.join(record), true, nil
}

func (m *memPayrollRepo) UpdateWorkflow(ctx context.Context, record payroll.PayrollRecord, expected payroll.PayrollStatus) (payroll.PayrollRecord, error) {
	updated, err := m.updateWorkflow(record, expected)
	if err != nil {
		return payroll.PayrollRecord{}, err
	}

	m.mu.Lock()
	hook := m.afterNextUpdate
	m.afterNextUpdate = nil
	m.mu.Unlock()
	if hook != nil {
		hook()
	}
	return updated, nil
}

func (m *memPayrollRepo) updateWorkflow(record payroll.PayrollRecord, expected payroll.PayrollStatus) (payroll.PayrollRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.rows[record.ID]
	if !ok {
		return payroll.PayrollRecord{}, payroll.ErrPayrollRecordNotFound
	}
	if stored.Status != expected {
		return payroll.PayrollRecord{}, payroll.ErrConcurrentModification
	}

	stored.Status = record.Status
	stored.ApprovedBy = record.ApprovedBy
	stored.ApprovedAt = record.ApprovedAt
	stored.PaidBy = record.PaidBy
	stored.PaidAt = record.PaidAt
	stored.PaymentMethod = record.PaymentMethod
	stored.PaymentReference = record.PaymentReference
	stored.Notes = record.Notes
	m.rows[record.ID] = stored
	return m.join(stored), nil
}

func (m *memPayrollRepo) List(_ context.Context, companyID string, filter payroll.PayrollFilter) ([]payroll.PayrollRecord, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []payroll.PayrollRecord
	for _, r := range m.rows {
		if r.CompanyID != companyID {
			continue
		}
		if filter.Period != nil && !r.PeriodMonth.Equal(*filter.Period) {
			continue
		}
		if filter.EmployeeID != nil && r.EmployeeID != *filter.EmployeeID {
			continue
		}
		if !sameOrg(r, filter.BranchID, filter.DepartmentID) {
			continue
		}
		if filter.Status != nil && string(r.Status) != *filter.Status {
			continue
		}
		out = append(out, m.join(r))
	}
	return out, int64(len(out)), nil
}

func (m *memPayrollRepo) ListForBatch(_ context.Context, companyID string, scope payroll.BatchScope) ([]payroll.RecordRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := map[string]bool{}
	for _, id := range scope.RecordIDs {
		ids[id] = true
	}

	var out []payroll.RecordRef
	for _, r := range m.rows {
		if r.CompanyID != companyID || !r.PeriodMonth.Equal(scope.PeriodMonth) {
			continue
		}
		if scope.EmployeeID != nil && r.EmployeeID != *scope.EmployeeID {
			continue
		}
		if !sameOrg(r, scope.BranchID, scope.DepartmentID) {
			continue
		}
		if len(ids) > 0 && !ids[r.ID] {
			continue
		}
		out = append(out, payroll.RecordRef{ID: r.ID, EmployeeID: r.EmployeeID, Status: r.Status})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out, nil
}

// sameOrg applies the optional branch and department filters to the
// placement stamped on the record at generation.
func sameOrg(r payroll.PayrollRecord, branchID, departmentID *string) bool {
	if branchID != nil && (r.BranchID == nil || *r.BranchID != *branchID) {
		return false
	}
	if departmentID != nil && (r.DepartmentID == nil || *r.DepartmentID != *departmentID) {
		return false
	}
	return true
}

func (m *memPayrollRepo) DeleteNonPaid(_ context.Context, companyID string, ids []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var deleted int64
	for _, id := range ids {
		r, ok := m.rows[id]
		if !ok || r.CompanyID != companyID || r.Status == payroll.PayrollStatusPaid {
			continue
		}
		delete(m.rows, id)
		deleted++
	}
	return deleted, nil
}

func (m *memPayrollRepo) GetSummary(_ context.Context, companyID string, month time.Time) (payroll.PayrollSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var sum payroll.PayrollSummary
	for _, r := range m.rows {
		if r.CompanyID != companyID || !r.PeriodMonth.Equal(month) {
			continue
		}
		sum.TotalRecords++
		switch r.Status {
		case payroll.PayrollStatusDraft:
			sum.DraftCount++
		case payroll.PayrollStatusFailed:
			sum.FailedCount++
		case payroll.PayrollStatusApproved:
			sum.ApprovedCount++
		case payroll.PayrollStatusPaid:
			sum.PaidCount++
		}
		sum.TotalGross = sum.TotalGross.Add(r.GrossSalary)
		sum.TotalDeductions = sum.TotalDeductions.Add(r.TotalDeductions)
		sum.TotalNet = sum.TotalNet.Add(r.NetSalary)
	}
	return sum, nil
}

func (m *memPayrollRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type memSalaryRepo struct {
	rows    map[string]salary.SalaryStructure
	history []salary.StructureHistory
}

func (m *memSalaryRepo) GetByEmployeeID(_ context.Context, companyID, employeeID string) (salary.SalaryStructure, error) {
	s, ok := m.rows[employeeID]
	if !ok || s.CompanyID != companyID {
		return salary.SalaryStructure{}, salary.ErrSalaryStructureNotFound
	}
	return s, nil
}

func (m *memSalaryRepo) GetByEmployeeIDForUpdate(ctx context.Context, companyID, employeeID string) (salary.SalaryStructure, error) {
	return m.GetByEmployeeID(ctx, companyID, employeeID)
}

func (m *memSalaryRepo) Upsert(_ context.Context, s salary.SalaryStructure) (salary.SalaryStructure, error) {
	m.rows[s.EmployeeID] = s
	return s, nil
}

func (m *memSalaryRepo) CreateHistory(_ context.Context, h salary.StructureHistory) error {
	m.history = append(m.history, h)
	return nil
}

func (m *memSalaryRepo) ListHistory(_ context.Context, companyID, employeeID string) ([]salary.StructureHistory, error) {
	return m.history, nil
}

type memLockRepo struct {
	mu     sync.Mutex
	locks  []monthlock.MonthLock
	guards []monthlock.GuardMode
}

func (m *memLockRepo) AcquireGuard(_ context.Context, _ string, _ time.Time, mode monthlock.GuardMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.guards = append(m.guards, mode)
	return nil
}

func (m *memLockRepo) guardCount(mode monthlock.GuardMode) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, g := range m.guards {
		if g == mode {
			n++
		}
	}
	return n
}

func (m *memLockRepo) GetActive(_ context.Context, companyID string, month time.Time) (monthlock.MonthLock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.locks {
		if l.CompanyID == companyID && l.PeriodMonth.Equal(month) && l.IsActive() {
			return l, nil
		}
	}
	return monthlock.MonthLock{}, monthlock.ErrMonthNotLocked
}

func (m *memLockRepo) GetLatestUnlocked(_ context.Context, companyID string, month time.Time) (monthlock.MonthLock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var latest *monthlock.MonthLock
	for i := range m.locks {
		l := m.locks[i]
		if l.CompanyID != companyID || !l.PeriodMonth.Equal(month) || l.IsActive() {
			continue
		}
		if latest == nil || l.UnlockedAt.After(*latest.UnlockedAt) {
			latest = &l
		}
	}
	if latest == nil {
		return monthlock.MonthLock{}, monthlock.ErrMonthNotLocked
	}
	return *latest, nil
}

func (m *memLockRepo) Create(ctx context.Context, lock monthlock.MonthLock) (monthlock.MonthLock, error) {
	if _, err := m.GetActive(ctx, lock.CompanyID, lock.PeriodMonth); err == nil {
		return monthlock.MonthLock{}, monthlock.ErrMonthAlreadyLocked
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks = append(m.locks, lock)
	return lock, nil
}

func (m *memLockRepo) Unlock(_ context.Context, companyID, lockID, unlockedBy, reason string, at time.Time) (monthlock.MonthLock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, l := range m.locks {
		if l.ID == lockID && l.CompanyID == companyID && l.IsActive() {
			l.UnlockedBy = &unlockedBy
			l.UnlockedAt = &at
			l.UnlockReason = &reason
			m.locks[i] = l
			return l, nil
		}
	}
	return monthlock.MonthLock{}, monthlock.ErrMonthNotLocked
}

func (m *memLockRepo) ListByMonth(_ context.Context, companyID string, month time.Time) ([]monthlock.MonthLock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []monthlock.MonthLock
	for _, l := range m.locks {
		if l.CompanyID == companyID && l.PeriodMonth.Equal(month) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memLockRepo) activeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, l := range m.locks {
		if l.IsActive() {
			n++
		}
	}
	return n
}

// ========== SIDE EFFECTS ==========

type passthroughTx struct{}

func (passthroughTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type captureRecorder struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (c *captureRecorder) Record(_ context.Context, entry audit.Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, entry)
}

func (c *captureRecorder) byAction(action audit.Action) []audit.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []audit.Entry
	for _, e := range c.entries {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

type captureNotifier struct {
	mu   sync.Mutex
	sent []notification.CreateNotificationRequest
}

func (c *captureNotifier) NotifyUser(_ context.Context, req notification.CreateNotificationRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, req)
}

type capturePublisher struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (c *capturePublisher) Publish(_ context.Context, eventType string, _ interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, eventType)
	return c.err
}

// tickingClock advances one minute per reading so timestamps taken by
// consecutive operations are strictly ordered.
type tickingClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Minute)
	return c.now
}
