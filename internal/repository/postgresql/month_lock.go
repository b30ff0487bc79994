package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/monthlock"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type monthLockRepository struct {
	db *database.DB
}

func NewMonthLockRepository(db *database.DB) monthlock.Repository {
	return &monthLockRepository{db: db}
}

const monthLockColumns = `id, company_id, period_month, locked_by, locked_at, metadata, unlocked_by, unlocked_at, unlock_reason`

func scanMonthLock(row pgx.Row) (monthlock.MonthLock, error) {
	var l monthlock.MonthLock
	err := row.Scan(
		&l.ID, &l.CompanyID, &l.PeriodMonth, &l.LockedBy, &l.LockedAt, &l.Metadata,
		&l.UnlockedBy, &l.UnlockedAt, &l.UnlockReason,
	)
	return l, err
}

// AcquireGuard maps the month onto a transaction-scoped advisory lock, so a
// close serializes against in-flight generates and transitions without
// blocking readers.
func (r *monthLockRepository) AcquireGuard(ctx context.Context, companyID string, month time.Time, mode monthlock.GuardMode) error {
	q := GetQuerier(ctx, r.db)

	query := `SELECT pg_advisory_xact_lock_shared(hashtextextended($1, 0))`
	if mode == monthlock.GuardExclusive {
		query = `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`
	}

	key := companyID + ":" + month.Format("2006-01")
	if _, err := q.Exec(ctx, query, key); err != nil {
		return fmt.Errorf("failed to acquire month guard: %w", err)
	}
	return nil
}

func (r *monthLockRepository) GetActive(ctx context.Context, companyID string, month time.Time) (monthlock.MonthLock, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + monthLockColumns + `
		FROM payroll_month_locks
		WHERE company_id = $1 AND period_month = $2 AND unlocked_at IS NULL
	`

	l, err := scanMonthLock(q.QueryRow(ctx, query, companyID, month))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return monthlock.MonthLock{}, monthlock.ErrMonthNotLocked
		}
		return monthlock.MonthLock{}, fmt.Errorf("failed to get month lock: %w", err)
	}
	return l, nil
}

func (r *monthLockRepository) GetLatestUnlocked(ctx context.Context, companyID string, month time.Time) (monthlock.MonthLock, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + monthLockColumns + `
		FROM payroll_month_locks
		WHERE company_id = $1 AND period_month = $2 AND unlocked_at IS NOT NULL
		ORDER BY unlocked_at DESC
		LIMIT 1
	`

	l, err := scanMonthLock(q.QueryRow(ctx, query, companyID, month))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return monthlock.MonthLock{}, monthlock.ErrMonthNotLocked
		}
		return monthlock.MonthLock{}, fmt.Errorf("failed to get released month lock: %w", err)
	}
	return l, nil
}

// Create depends on the partial unique index over active locks; a second
// concurrent close fails with a unique violation.
func (r *monthLockRepository) Create(ctx context.Context, lock monthlock.MonthLock) (monthlock.MonthLock, error) {
	q := GetQuerier(ctx, r.db)

	metadata := lock.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}

	query := `
		INSERT INTO payroll_month_locks (id, company_id, period_month, locked_by, locked_at, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + monthLockColumns

	created, err := scanMonthLock(q.QueryRow(ctx, query,
		lock.ID, lock.CompanyID, lock.PeriodMonth, lock.LockedBy, lock.LockedAt, metadata,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return monthlock.MonthLock{}, monthlock.ErrMonthAlreadyLocked
		}
		return monthlock.MonthLock{}, fmt.Errorf("failed to create month lock: %w", err)
	}
	return created, nil
}

func (r *monthLockRepository) Unlock(ctx context.Context, companyID, lockID, unlockedBy, reason string, at time.Time) (monthlock.MonthLock, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE payroll_month_locks
		SET unlocked_by = $3, unlocked_at = $4, unlock_reason = $5
		WHERE id = $1 AND company_id = $2 AND unlocked_at IS NULL
		RETURNING ` + monthLockColumns

	l, err := scanMonthLock(q.QueryRow(ctx, query, lockID, companyID, unlockedBy, at, reason))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return monthlock.MonthLock{}, monthlock.ErrMonthNotLocked
		}
		return monthlock.MonthLock{}, fmt.Errorf("failed to unlock month: %w", err)
	}
	return l, nil
}

func (r *monthLockRepository) ListByMonth(ctx context.Context, companyID string, month time.Time) ([]monthlock.MonthLock, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + monthLockColumns + `
		FROM payroll_month_locks
		WHERE company_id = $1 AND period_month = $2
		ORDER BY locked_at DESC
	`

	rows, err := q.Query(ctx, query, companyID, month)
	if err != nil {
		return nil, fmt.Errorf("failed to list month locks: %w", err)
	}
	defer rows.Close()

	var locks []monthlock.MonthLock
	for rows.Next() {
		l, err := scanMonthLock(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan month lock: %w", err)
		}
		locks = append(locks, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list month locks: %w", err)
	}
	return locks, nil
}
