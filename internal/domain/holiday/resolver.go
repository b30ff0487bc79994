package holiday

import (
	"context"
	"time"
)

// Resolver returns the holiday dates for a company in [start, end], scoped to
// a location (branch). A nil location returns company-wide holidays only.
type Resolver interface {
	DateMap(ctx context.Context, companyID string, start, end time.Time, locationID *string) (DateSet, error)
}
