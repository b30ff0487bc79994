package monthlock

import (
	"context"
	"time"
)

// GuardMode selects how a transaction holds the month guard.
type GuardMode int

const (
	// GuardShared is held by writers that check the lock before changing a record.
	GuardShared GuardMode = iota
	// GuardExclusive is held while a month is closed; it waits for every shared holder.
	GuardExclusive
)

type Repository interface {
	// AcquireGuard takes the per-month guard for the rest of the current
	// transaction. Outside a transaction it is released immediately.
	AcquireGuard(ctx context.Context, companyID string, month time.Time, mode GuardMode) error
	// GetActive returns ErrMonthNotLocked when the month has no active lock.
	GetActive(ctx context.Context, companyID string, month time.Time) (MonthLock, error)
	// GetLatestUnlocked returns the most recently released lock of the month,
	// or ErrMonthNotLocked when the month was never unlocked.
	GetLatestUnlocked(ctx context.Context, companyID string, month time.Time) (MonthLock, error)
	// Create returns ErrMonthAlreadyLocked when an active lock exists.
	Create(ctx context.Context, lock MonthLock) (MonthLock, error)
	Unlock(ctx context.Context, companyID, lockID, unlockedBy, reason string, at time.Time) (MonthLock, error)
	ListByMonth(ctx context.Context, companyID string, month time.Time) ([]MonthLock, error)
}
