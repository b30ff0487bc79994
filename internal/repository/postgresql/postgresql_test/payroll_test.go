package postgresql_test

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/monthlock"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/notification"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/salary"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/database"
	"github.com/cmlabs-hris/hris-payroll-go/internal/repository/postgresql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	june      = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	companyID = "0190c2a4-0000-7000-8000-000000000001"
	actorID   = "0190c2a4-0000-7000-8000-0000000000aa"
)

func seedEmployee(t *testing.T, db *database.DB, code string) string {
	t.Helper()
	id := uuid.NewString()
	userID := uuid.NewString()
	_, err := db.Exec(context.Background(), `
		INSERT INTO employees (id, user_id, company_id, employee_code, full_name, hire_date)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, userID, companyID, code, "Employee "+code, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return id
}

func draftRecord(employeeID string) payroll.PayrollRecord {
	return payroll.PayrollRecord{
		ID:              uuid.NewString(),
		CompanyID:       companyID,
		EmployeeID:      employeeID,
		PeriodMonth:     june,
		WorkingDays:     decimal.NewFromInt(30),
		LOPDays:         decimal.NewFromInt(2),
		PayableDays:     decimal.NewFromInt(28),
		Earnings:        payroll.Earnings{BasicSalary: decimal.RequireFromString("2800")},
		GrossSalary:     decimal.RequireFromString("2800"),
		TotalDeductions: decimal.RequireFromString("200"),
		NetSalary:       decimal.RequireFromString("2600"),
		Status:          payroll.PayrollStatusDraft,
		GeneratedBy:     actorID,
		GeneratedAt:     time.Now().UTC(),
	}
}

func TestPayrollRepository_UpsertAndWorkflow(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	repo := postgresql.NewPayrollRepository(db)
	empID := seedEmployee(t, db, "E001")

	first, inserted, err := repo.Upsert(ctx, draftRecord(empID), false)
	require.NoError(t, err)
	assert.True(t, inserted)
	require.NotNil(t, first.EmployeeName)
	assert.Equal(t, "Employee E001", *first.EmployeeName)
	assert.True(t, first.NetSalary.Equal(decimal.RequireFromString("2600")))

	again := draftRecord(empID)
	again.NetSalary = decimal.RequireFromString("2500")
	second, inserted, err := repo.Upsert(ctx, again, false)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.NetSalary.Equal(decimal.RequireFromString("2500")))

	// Approve with a stale expected status loses the race.
	now := time.Now().UTC()
	approved := second
	approved.Status = payroll.PayrollStatusApproved
	approved.ApprovedBy = &actorID
	approved.ApprovedAt = &now
	_, err = repo.UpdateWorkflow(ctx, approved, payroll.PayrollStatusFailed)
	assert.ErrorIs(t, err, payroll.ErrConcurrentModification)

	approved, err = repo.UpdateWorkflow(ctx, approved, payroll.PayrollStatusDraft)
	require.NoError(t, err)
	assert.Equal(t, payroll.PayrollStatusApproved, approved.Status)

	method := "bank_transfer"
	paid := approved
	paid.Status = payroll.PayrollStatusPaid
	paid.PaidBy = &actorID
	paid.PaidAt = &now
	paid.PaymentMethod = &method
	_, err = repo.UpdateWorkflow(ctx, paid, payroll.PayrollStatusApproved)
	require.NoError(t, err)

	_, _, err = repo.Upsert(ctx, draftRecord(empID), false)
	assert.ErrorIs(t, err, payroll.ErrPayrollRecordAlreadyPaid)

	regenerated, inserted, err := repo.Upsert(ctx, draftRecord(empID), true)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, payroll.PayrollStatusDraft, regenerated.Status)
	assert.Nil(t, regenerated.PaidAt)
	assert.Nil(t, regenerated.PaymentMethod)
}

func TestPayrollRepository_BatchListAndSummary(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	repo := postgresql.NewPayrollRepository(db)

	var ids []string
	for _, code := range []string{"E001", "E002", "E003"} {
		rec, _, err := repo.Upsert(ctx, draftRecord(seedEmployee(t, db, code)), false)
		require.NoError(t, err)
		ids = append(ids, rec.ID)
	}

	refs, err := repo.ListForBatch(ctx, companyID, payroll.BatchScope{PeriodMonth: june})
	require.NoError(t, err)
	assert.Len(t, refs, 3)

	refs, err = repo.ListForBatch(ctx, companyID, payroll.BatchScope{PeriodMonth: june, RecordIDs: ids[:1]})
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, ids[0], refs[0].ID)

	records, total, err := repo.List(ctx, companyID, payroll.PayrollFilter{Period: &june, SortBy: "employee_code", SortOrder: "asc", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, records, 2)
	assert.Equal(t, "E001", *records[0].EmployeeCode)

	deleted, err := repo.DeleteNonPaid(ctx, companyID, ids[1:])
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	summary, err := repo.GetSummary(ctx, companyID, june)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalRecords)
	assert.Equal(t, 1, summary.DraftCount)
	assert.True(t, summary.TotalNet.Equal(decimal.RequireFromString("2600")))
}

func TestMonthLockRepository_SingleActiveLock(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	repo := postgresql.NewMonthLockRepository(db)

	lock := monthlock.MonthLock{
		ID:          uuid.NewString(),
		CompanyID:   companyID,
		PeriodMonth: june,
		LockedBy:    actorID,
		LockedAt:    time.Now().UTC(),
		Metadata:    map[string]interface{}{"paid": 3},
	}
	created, err := repo.Create(ctx, lock)
	require.NoError(t, err)
	assert.Equal(t, float64(3), created.Metadata["paid"])

	lock.ID = uuid.NewString()
	_, err = repo.Create(ctx, lock)
	assert.ErrorIs(t, err, monthlock.ErrMonthAlreadyLocked)

	_, err = repo.GetLatestUnlocked(ctx, companyID, june)
	assert.ErrorIs(t, err, monthlock.ErrMonthNotLocked)

	released, err := repo.Unlock(ctx, companyID, created.ID, actorID, "late bonus", time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, released.IsActive())

	_, err = repo.GetActive(ctx, companyID, june)
	assert.ErrorIs(t, err, monthlock.ErrMonthNotLocked)

	latest, err := repo.GetLatestUnlocked(ctx, companyID, june)
	require.NoError(t, err)
	assert.Equal(t, created.ID, latest.ID)

	_, err = repo.Create(ctx, lock)
	require.NoError(t, err)

	locks, err := repo.ListByMonth(ctx, companyID, june)
	require.NoError(t, err)
	assert.Len(t, locks, 2)
}

func TestMonthLockRepository_GuardSerializesClose(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	repo := postgresql.NewMonthLockRepository(db)
	transactor := postgresql.NewTransactor(db)
	july := june.AddDate(0, 1, 0)

	held := make(chan struct{})
	release := make(chan struct{})
	closed := make(chan error, 1)
	go func() {
		closed <- transactor.WithinTransaction(ctx, func(ctx context.Context) error {
			if err := repo.AcquireGuard(ctx, companyID, july, monthlock.GuardExclusive); err != nil {
				return err
			}
			close(held)
			<-release
			return nil
		})
	}()

	select {
	case <-held:
	case err := <-closed:
		t.Fatalf("exclusive guard failed: %v", err)
	}

	shared := make(chan error, 1)
	go func() {
		shared <- transactor.WithinTransaction(ctx, func(ctx context.Context) error {
			return repo.AcquireGuard(ctx, companyID, july, monthlock.GuardShared)
		})
	}()

	select {
	case <-shared:
		t.Fatal("shared guard acquired while the month was being closed")
	case <-time.After(200 * time.Millisecond):
	}

	// Other months are not blocked
	require.NoError(t, transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		return repo.AcquireGuard(ctx, companyID, june, monthlock.GuardShared)
	}))

	close(release)
	require.NoError(t, <-closed)

	select {
	case err := <-shared:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("shared guard still blocked after the close committed")
	}
}

func TestSalaryRepository_UpsertAndHistory(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	repo := postgresql.NewSalaryRepository(db)
	empID := seedEmployee(t, db, "E001")

	_, err := repo.GetByEmployeeID(ctx, companyID, empID)
	assert.ErrorIs(t, err, salary.ErrSalaryStructureNotFound)

	now := time.Now().UTC()
	saved, err := repo.Upsert(ctx, salary.SalaryStructure{
		ID:          uuid.NewString(),
		CompanyID:   companyID,
		EmployeeID:  empID,
		BasicSalary: decimal.RequireFromString("3000"),
		UpdatedBy:   actorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	require.NoError(t, err)

	err = repo.CreateHistory(ctx, salary.StructureHistory{
		ID:          uuid.NewString(),
		CompanyID:   companyID,
		EmployeeID:  empID,
		StructureID: saved.ID,
		After:       saved.Snapshot(),
		Changes:     []map[string]interface{}{{"field": "basic_salary", "from": nil, "to": "3000.00"}},
		ChangedBy:   actorID,
		ChangedAt:   now,
	})
	require.NoError(t, err)

	history, err := repo.ListHistory(ctx, companyID, empID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Nil(t, history[0].Before)
	assert.Equal(t, "3000.00", history[0].After["basic_salary"])
}

func TestCollaboratorReaders(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	empID := seedEmployee(t, db, "E001")

	_, err := db.Exec(ctx, `INSERT INTO holidays (company_id, date, name) VALUES ($1, $2, 'Company day')`, companyID, june.AddDate(0, 0, 4))
	require.NoError(t, err)
	_, err = db.Exec(ctx, `INSERT INTO holidays (company_id, branch_id, date, name) VALUES ($1, $2, $3, 'Branch day')`, companyID, uuid.NewString(), june.AddDate(0, 0, 5))
	require.NoError(t, err)

	holidays, err := postgresql.NewHolidayRepository(db).DateMap(ctx, companyID, june, june.AddDate(0, 1, -1), nil)
	require.NoError(t, err)
	assert.Len(t, holidays, 1)
	assert.True(t, holidays.Contains(june.AddDate(0, 0, 4)))

	var paidType, unpaidType string
	require.NoError(t, db.QueryRow(ctx, `INSERT INTO leave_types (company_id, name, is_paid) VALUES ($1, 'Annual', true) RETURNING id`, companyID).Scan(&paidType))
	require.NoError(t, db.QueryRow(ctx, `INSERT INTO leave_types (company_id, name, is_paid) VALUES ($1, 'Unpaid', false) RETURNING id`, companyID).Scan(&unpaidType))
	for _, typeID := range []string{paidType, unpaidType} {
		_, err = db.Exec(ctx, `
			INSERT INTO leave_requests (employee_id, leave_type_id, start_date, end_date, status)
			VALUES ($1, $2, $3, $4, 'approved')
		`, empID, typeID, june.AddDate(0, 0, -2), june.AddDate(0, 0, 1))
		require.NoError(t, err)
	}

	leaves, err := postgresql.NewLeaveRequestRepository(db).ListApprovedUnpaid(ctx, companyID, empID, june, june.AddDate(0, 1, -1))
	require.NoError(t, err)
	require.Len(t, leaves, 1)
	assert.False(t, leaves[0].IsPaid)

	emps, err := postgresql.NewEmployeeRepository(db).ListActiveForPayroll(ctx, companyID, employee.PayrollScope{EmployeeIDs: []string{empID}})
	require.NoError(t, err)
	require.Len(t, emps, 1)
	assert.Equal(t, "E001", emps[0].EmployeeCode)
}

func TestNotificationRepository_DedupeKey(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	repo := postgresql.NewNotificationRepository(db)
	recipient := uuid.NewString()
	key := "payroll:paid:1"

	newNotification := func() *notification.Notification {
		return &notification.Notification{
			CompanyID:   companyID,
			RecipientID: recipient,
			Type:        notification.TypePayrollPaid,
			Title:       "Salary paid",
			Message:     "Your June salary was paid",
			DedupeKey:   &key,
			CreatedAt:   time.Now().UTC(),
		}
	}

	created, err := repo.Create(ctx, newNotification())
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Create(ctx, newNotification())
	require.NoError(t, err)
	assert.False(t, created)

	batch, err := repo.CreateBatch(ctx, []*notification.Notification{newNotification(), {
		CompanyID:   companyID,
		RecipientID: recipient,
		Type:        notification.TypePayrollApproved,
		Title:       "Payroll approved",
		Message:     "Your June payroll was approved",
		CreatedAt:   time.Now().UTC(),
	}})
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, notification.TypePayrollApproved, batch[0].Type)

	count, err := repo.GetUnreadCount(ctx, companyID, recipient)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = repo.GetUnreadCount(ctx, uuid.NewString(), recipient)
	require.NoError(t, err)
	assert.Zero(t, count)

	paidType := notification.TypePayrollPaid
	paid, total, err := repo.List(ctx, notification.ListFilter{
		CompanyID:   companyID,
		RecipientID: recipient,
		Type:        &paidType,
		Page:        1,
		PageSize:    20,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, paid, 1)
	assert.Equal(t, "Salary paid", paid[0].Title)

	warning := notification.SeverityWarning
	_, total, err = repo.List(ctx, notification.ListFilter{
		CompanyID:   companyID,
		RecipientID: recipient,
		Severity:    &warning,
		Page:        1,
		PageSize:    20,
	})
	require.NoError(t, err)
	assert.Zero(t, total)

	require.NoError(t, repo.MarkAllAsRead(ctx, companyID, recipient, time.Now().UTC()))
	unread, _, err := repo.List(ctx, notification.ListFilter{CompanyID: companyID, RecipientID: recipient, UnreadOnly: true, Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Empty(t, unread)

	assert.ErrorIs(t, repo.Delete(ctx, uuid.NewString(), recipient, paid[0].ID), notification.ErrNotificationNotFound)
	require.NoError(t, repo.Delete(ctx, companyID, recipient, paid[0].ID))
}
