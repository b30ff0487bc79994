package payroll

import (
	"fmt"
	"strings"
)

// Trigger names what moves a record between statuses.
type Trigger string

const (
	TriggerRecalculate Trigger = "recalculate" // generate-or-update
	TriggerApprove     Trigger = "approve"
	TriggerPay         Trigger = "pay"
	TriggerManual      Trigger = "manual" // administrative set-status
)

// transitions is the single source of truth for the workflow. Paid has no
// outgoing edges; the only way back is regeneration after a month unlock.
var transitions = map[PayrollStatus]map[PayrollStatus][]Trigger{
	PayrollStatusDraft: {
		PayrollStatusDraft:    {TriggerRecalculate},
		PayrollStatusFailed:   {TriggerManual},
		PayrollStatusApproved: {TriggerApprove, TriggerManual},
	},
	PayrollStatusFailed: {
		PayrollStatusDraft:    {TriggerRecalculate, TriggerManual},
		PayrollStatusApproved: {TriggerApprove, TriggerManual},
	},
	PayrollStatusApproved: {
		PayrollStatusDraft:  {TriggerRecalculate, TriggerManual},
		PayrollStatusFailed: {TriggerManual},
		PayrollStatusPaid:   {TriggerPay, TriggerManual},
	},
	PayrollStatusPaid: {},
}

// CanTransition reports whether trigger may move a record from one status to another.
func CanTransition(from, to PayrollStatus, trigger Trigger) bool {
	for _, t := range transitions[from][to] {
		if t == trigger {
			return true
		}
	}
	return false
}

// ValidateTransition returns ErrPayrollRecordAlreadyPaid when leaving paid and
// ErrInvalidTransition for any other edge missing from the table.
func ValidateTransition(from, to PayrollStatus, trigger Trigger) error {
	if !to.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}
	if CanTransition(from, to, trigger) {
		return nil
	}
	if from == PayrollStatusPaid {
		return ErrPayrollRecordAlreadyPaid
	}
	return fmt.Errorf("%w: %s -> %s via %s", ErrInvalidTransition, from, to, trigger)
}

// PaymentDetails trims the method and reference of a payment and rejects
// either one when blank.
func PaymentDetails(method string, reference *string) (string, string, error) {
	method = strings.TrimSpace(method)
	if method == "" {
		return "", "", ErrPaymentMethodRequired
	}
	if reference == nil || strings.TrimSpace(*reference) == "" {
		return "", "", ErrPaymentReferenceRequired
	}
	return method, strings.TrimSpace(*reference), nil
}
