package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/leave"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/database"
)

type leaveRequestRepositoryImpl struct {
	db *database.DB
}

func NewLeaveRequestRepository(db *database.DB) leave.Reader {
	return &leaveRequestRepositoryImpl{db: db}
}

// ListApprovedUnpaid implements leave.Reader.
func (r *leaveRequestRepositoryImpl) ListApprovedUnpaid(ctx context.Context, companyID, employeeID string, start, end time.Time) ([]leave.LeaveRequest, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT lr.id, lr.employee_id, lr.leave_type_id, lr.start_date, lr.end_date,
			lr.duration_type, lr.status, lt.name, lt.is_paid
		FROM leave_requests lr
		JOIN leave_types lt ON lr.leave_type_id = lt.id
		JOIN employees e ON lr.employee_id = e.id
		WHERE e.company_id = $1
			AND lr.employee_id = $2
			AND lr.status = $3
			AND lt.is_paid = false
			AND lr.start_date <= $5
			AND lr.end_date >= $4
		ORDER BY lr.start_date
	`

	rows, err := q.Query(ctx, query, companyID, employeeID, leave.LeaveRequestStatusApproved, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list unpaid leave: %w", err)
	}
	defer rows.Close()

	var requests []leave.LeaveRequest
	for rows.Next() {
		var lr leave.LeaveRequest
		if err := rows.Scan(
			&lr.ID, &lr.EmployeeID, &lr.LeaveTypeID, &lr.StartDate, &lr.EndDate,
			&lr.DurationType, &lr.Status, &lr.LeaveTypeName, &lr.IsPaid,
		); err != nil {
			return nil, fmt.Errorf("failed to scan leave request: %w", err)
		}
		requests = append(requests, lr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list unpaid leave: %w", err)
	}

	return requests, nil
}
