package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/holiday"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/database"
)

type holidayRepository struct {
	db *database.DB
}

func NewHolidayRepository(db *database.DB) holiday.Resolver {
	return &holidayRepository{db: db}
}

// DateMap implements holiday.Resolver. Company-wide holidays (branch_id NULL)
// always apply; branch holidays only when locationID matches.
func (r *holidayRepository) DateMap(ctx context.Context, companyID string, start, end time.Time, locationID *string) (holiday.DateSet, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT DISTINCT date
		FROM holidays
		WHERE company_id = $1 AND date BETWEEN $2 AND $3
			AND (branch_id IS NULL OR branch_id = $4)
	`

	rows, err := q.Query(ctx, query, companyID, start, end, locationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list holidays: %w", err)
	}
	defer rows.Close()

	set := holiday.NewDateSet()
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan holiday: %w", err)
		}
		set.Add(d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list holidays: %w", err)
	}

	return set, nil
}
