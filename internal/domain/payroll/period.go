package payroll

import (
	"fmt"
	"time"
)

const periodLayout = "2006-01"

// MonthStart normalizes t to the first day of its month at UTC midnight.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthEnd is the last calendar day of the month starting at monthStart.
func MonthEnd(monthStart time.Time) time.Time {
	return monthStart.AddDate(0, 1, -1)
}

// ParsePeriod parses "YYYY-MM" into the month start.
func ParsePeriod(period string) (time.Time, error) {
	t, err := time.Parse(periodLayout, period)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
	}
	return MonthStart(t), nil
}

func FormatPeriod(monthStart time.Time) string {
	return monthStart.Format(periodLayout)
}
