package monthlock

import "errors"

var (
	ErrMonthNotLocked       = errors.New("month is not locked")
	ErrMonthAlreadyLocked   = errors.New("month is already locked")
	ErrUnlockReasonRequired = errors.New("unlock reason is required")
)
