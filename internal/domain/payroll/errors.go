package payroll

import "errors"

var (
	ErrPayrollRecordNotFound    = errors.New("payroll record not found")
	ErrPayrollRecordAlreadyPaid = errors.New("payroll record already paid")
	ErrMissingSalaryStructure   = errors.New("missing salary structure")
	ErrPayableDaysOutOfRange    = errors.New("payable days out of range")
	ErrMonthLocked              = errors.New("month is locked")
	ErrInvalidTransition        = errors.New("invalid status transition")
	ErrInvalidStatus            = errors.New("invalid payroll status")
	ErrPaymentMethodRequired    = errors.New("payment method is required")
	ErrPaymentReferenceRequired = errors.New("payment reference is required")
	ErrRecordsNotApproved       = errors.New("all records must be approved first")
	ErrConfirmationRequired     = errors.New("confirmation is required to pay and close the month")
	ErrNoRecordsMatched         = errors.New("no payroll records matched")
	ErrBatchIncomplete          = errors.New("some payroll records could not be processed")
	ErrInvalidPeriod            = errors.New("invalid payroll period")
	ErrConcurrentModification   = errors.New("payroll record was modified concurrently")
)
