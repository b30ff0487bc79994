package holiday

import "time"

const dateLayout = "2006-01-02"

// Holiday is a company-wide day off. A nil BranchID applies to every branch.
type Holiday struct {
	ID        string
	CompanyID string
	BranchID  *string
	Date      time.Time
	Name      string
	CreatedAt time.Time
}

// DateSet is a set of calendar dates keyed by YYYY-MM-DD.
type DateSet map[string]struct{}

func NewDateSet(dates ...time.Time) DateSet {
	set := make(DateSet, len(dates))
	for _, d := range dates {
		set.Add(d)
	}
	return set
}

func (s DateSet) Add(d time.Time) {
	s[d.Format(dateLayout)] = struct{}{}
}

// Contains reports whether the calendar date of d is in the set.
func (s DateSet) Contains(d time.Time) bool {
	_, ok := s[d.Format(dateLayout)]
	return ok
}

// CountBetween counts set dates within [start, end] inclusive.
func (s DateSet) CountBetween(start, end time.Time) int {
	count := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if s.Contains(d) {
			count++
		}
	}
	return count
}
