package response

import (
	"errors"
	"net/http"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/audit"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/auth"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/monthlock"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/notification"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/salary"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/user"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Auth and capability errors
	case errors.Is(err, auth.ErrInvalidToken):
		Unauthorized(w, "Invalid or expired token")
	case errors.Is(err, auth.ErrTokenExpired):
		Unauthorized(w, "Token has expired")
	case errors.Is(err, user.ErrInsufficientPermissions):
		Forbidden(w, err.Error())
	case errors.Is(err, user.ErrCompanyIDRequired):
		Forbidden(w, "Company membership required")
	case errors.Is(err, user.ErrUserIDRequired):
		Unauthorized(w, "Unauthorized")

	// Employee domain errors
	case errors.Is(err, employee.ErrEmployeeNotFound):
		NotFound(w, "Employee not found")
	case errors.Is(err, employee.ErrEmployeeInactive):
		UnprocessableEntity(w, err.Error())

	// Salary domain errors
	case errors.Is(err, salary.ErrSalaryStructureNotFound):
		NotFound(w, "Salary structure not found")
	case errors.Is(err, salary.ErrNegativeAmount),
		errors.Is(err, salary.ErrDuplicateEmployee):
		BadRequest(w, err.Error(), nil)

	// Payroll domain errors
	case errors.Is(err, payroll.ErrPayrollRecordNotFound):
		NotFound(w, "Payroll record not found")
	case errors.Is(err, payroll.ErrMissingSalaryStructure),
		errors.Is(err, payroll.ErrPayableDaysOutOfRange):
		UnprocessableEntity(w, err.Error())
	case errors.Is(err, payroll.ErrInvalidPeriod),
		errors.Is(err, payroll.ErrInvalidStatus),
		errors.Is(err, payroll.ErrPaymentMethodRequired),
		errors.Is(err, payroll.ErrPaymentReferenceRequired),
		errors.Is(err, payroll.ErrConfirmationRequired):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, payroll.ErrNoRecordsMatched):
		NotFound(w, err.Error())
	case errors.Is(err, payroll.ErrPayrollRecordAlreadyPaid),
		errors.Is(err, payroll.ErrMonthLocked),
		errors.Is(err, payroll.ErrInvalidTransition),
		errors.Is(err, payroll.ErrRecordsNotApproved),
		errors.Is(err, payroll.ErrConcurrentModification),
		errors.Is(err, payroll.ErrBatchIncomplete):
		Conflict(w, err.Error())

	// Month lock errors
	case errors.Is(err, monthlock.ErrMonthNotLocked):
		NotFound(w, err.Error())
	case errors.Is(err, monthlock.ErrMonthAlreadyLocked):
		Conflict(w, err.Error())
	case errors.Is(err, monthlock.ErrUnlockReasonRequired):
		BadRequest(w, err.Error(), nil)

	// Audit and notification errors
	case errors.Is(err, audit.ErrInvalidEntityType),
		errors.Is(err, notification.ErrInvalidNotificationType),
		errors.Is(err, notification.ErrInvalidSeverity):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, notification.ErrNotificationNotFound):
		NotFound(w, "Notification not found")

	// Default
	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}
