package monthlock

import (
	"time"
)

// MonthLock records one close of a payroll month. A lock is active until
// UnlockedAt is set; at most one active lock exists per company and month.
type MonthLock struct {
	ID           string
	CompanyID    string
	PeriodMonth  time.Time
	LockedBy     string
	LockedAt     time.Time
	Metadata     map[string]interface{}
	UnlockedBy   *string
	UnlockedAt   *time.Time
	UnlockReason *string
}

func (l MonthLock) IsActive() bool {
	return l.UnlockedAt == nil
}

// Snapshot renders the lock state for audit entries.
func (l MonthLock) Snapshot() map[string]interface{} {
	snap := map[string]interface{}{
		"period_month":  l.PeriodMonth.Format("2006-01"),
		"locked_by":     l.LockedBy,
		"locked_at":     l.LockedAt.UTC().Format(time.RFC3339),
		"unlocked_by":   nil,
		"unlocked_at":   nil,
		"unlock_reason": nil,
	}
	if l.UnlockedBy != nil {
		snap["unlocked_by"] = *l.UnlockedBy
	}
	if l.UnlockedAt != nil {
		snap["unlocked_at"] = l.UnlockedAt.UTC().Format(time.RFC3339)
	}
	if l.UnlockReason != nil {
		snap["unlock_reason"] = *l.UnlockReason
	}
	return snap
}
