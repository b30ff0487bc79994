package payroll

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/audit"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/notification"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/user"
)

type transitionOutcome struct {
	before         payroll.PayrollRecord
	after          payroll.PayrollRecord
	lockOverridden bool
}

// ========== SINGLE RECORD ==========

func (s *PayrollServiceImpl) Approve(ctx context.Context, viewer user.Viewer, id string) (payroll.PayrollRecordResponse, error) {
	if err := user.Authorize(viewer, user.PermissionPayrollApprove); err != nil {
		return payroll.PayrollRecordResponse{}, err
	}

	out, err := s.approveOne(ctx, viewer, id)
	if err != nil {
		return payroll.PayrollRecordResponse{}, err
	}
	return toRecordResponse(out.after), nil
}

func (s *PayrollServiceImpl) MarkPaid(ctx context.Context, viewer user.Viewer, id string, req payroll.MarkPaidRequest) (payroll.PayrollRecordResponse, error) {
	if err := user.Authorize(viewer, user.PermissionPayrollMarkPaid); err != nil {
		return payroll.PayrollRecordResponse{}, err
	}

	method, reference, err := payroll.PaymentDetails(req.PaymentMethod, req.PaymentReference)
	if err != nil {
		return payroll.PayrollRecordResponse{}, err
	}

	out, err := s.payOne(ctx, viewer, id, method, reference)
	if err != nil {
		return payroll.PayrollRecordResponse{}, err
	}
	return toRecordResponse(out.after), nil
}

// SetStatus is the administrative override. It still follows the transition
// table, so a paid record can never be moved.
func (s *PayrollServiceImpl) SetStatus(ctx context.Context, viewer user.Viewer, id string, req payroll.SetStatusRequest) (payroll.PayrollRecordResponse, error) {
	if err := user.Authorize(viewer, user.PermissionPayrollSetStatus); err != nil {
		return payroll.PayrollRecordResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return payroll.PayrollRecordResponse{}, err
	}

	to := payroll.PayrollStatus(req.Status)
	var method, reference string
	if to == payroll.PayrollStatusPaid {
		var requested string
		if req.PaymentMethod != nil {
			requested = *req.PaymentMethod
		}
		var err error
		if method, reference, err = payroll.PaymentDetails(requested, req.PaymentReference); err != nil {
			return payroll.PayrollRecordResponse{}, err
		}
	}

	now := s.now().UTC()
	out, err := s.transition(ctx, viewer, id, to, payroll.TriggerManual, func(r *payroll.PayrollRecord) {
		switch to {
		case payroll.PayrollStatusDraft, payroll.PayrollStatusFailed:
			r.ResetWorkflow()
		case payroll.PayrollStatusApproved:
			r.ResetWorkflow()
			r.ApprovedBy = &viewer.UserID
			r.ApprovedAt = &now
		case payroll.PayrollStatusPaid:
			r.PaidBy = &viewer.UserID
			r.PaidAt = &now
			r.PaymentMethod = &method
			r.PaymentReference = &reference
		}
		r.Status = to
		if req.Notes != nil {
			r.Notes = req.Notes
		}
	})
	if err != nil {
		return payroll.PayrollRecordResponse{}, err
	}

	s.auditTransition(ctx, viewer, audit.ActionPayrollStatusSet, payroll.TriggerManual, out)
	if to == payroll.PayrollStatusPaid {
		s.afterPaid(ctx, viewer, out.after)
	}
	return toRecordResponse(out.after), nil
}

// ========== BATCH ==========

// ApproveAll approves every draft or failed record in scope. Records already
// approved or paid are skipped.
func (s *PayrollServiceImpl) ApproveAll(ctx context.Context, viewer user.Viewer, req payroll.BatchScopeRequest) (payroll.BatchResult, error) {
	if err := user.Authorize(viewer, user.PermissionPayrollApprove); err != nil {
		return payroll.BatchResult{}, err
	}
	if err := req.Validate(); err != nil {
		return payroll.BatchResult{}, err
	}

	scope := req.Scope()
	lockOverridden, err := s.checkLock(ctx, viewer, scope.PeriodMonth)
	if err != nil {
		return payroll.BatchResult{}, err
	}

	refs, err := s.payrollRepo.ListForBatch(ctx, viewer.CompanyID, scope)
	if err != nil {
		return payroll.BatchResult{}, err
	}

	result := payroll.BatchResult{Matched: len(refs)}
	for _, ref := range refs {
		if ref.Status == payroll.PayrollStatusApproved || ref.Status == payroll.PayrollStatusPaid {
			result.Skipped++
			continue
		}
		if _, err := s.approveOne(ctx, viewer, ref.ID); err != nil {
			result.Fail(ref.ID, ref.EmployeeID, err)
			continue
		}
		result.Updated++
	}

	metadata := batchMetadata(req, result)
	metadata["lock_overridden"] = lockOverridden
	s.recordAudit(ctx, viewer, audit.EntityPayrollBatch, nil, audit.ActionPayrollBulkApproved, nil, nil, metadata)
	s.notifyBatch(ctx, viewer, "Payroll approved", scope.PeriodMonth, result)

	return result, nil
}

// MarkPaidAll pays every approved record in scope. Paid records are skipped;
// draft and failed records are reported as failures.
func (s *PayrollServiceImpl) MarkPaidAll(ctx context.Context, viewer user.Viewer, req payroll.BatchPayRequest) (payroll.BatchResult, error) {
	if err := user.Authorize(viewer, user.PermissionPayrollMarkPaid); err != nil {
		return payroll.BatchResult{}, err
	}
	if err := req.Validate(); err != nil {
		return payroll.BatchResult{}, err
	}

	method, reference, err := payroll.PaymentDetails(req.PaymentMethod, req.PaymentReference)
	if err != nil {
		return payroll.BatchResult{}, err
	}

	scope := req.Scope()
	lockOverridden, err := s.checkLock(ctx, viewer, scope.PeriodMonth)
	if err != nil {
		return payroll.BatchResult{}, err
	}

	refs, err := s.payrollRepo.ListForBatch(ctx, viewer.CompanyID, scope)
	if err != nil {
		return payroll.BatchResult{}, err
	}

	result := s.payRefs(ctx, viewer, refs, method, reference)

	metadata := batchMetadata(req.BatchScopeRequest, result)
	metadata["payment_method"] = method
	metadata["payment_reference"] = reference
	metadata["lock_overridden"] = lockOverridden
	s.recordAudit(ctx, viewer, audit.EntityPayrollBatch, nil, audit.ActionPayrollBulkPaid, nil, nil, metadata)
	s.notifyBatch(ctx, viewer, "Payroll paid", scope.PeriodMonth, result)

	return result, nil
}

// BulkDelete removes the non-paid records in scope. Paid records are kept
// and counted as skipped.
func (s *PayrollServiceImpl) BulkDelete(ctx context.Context, viewer user.Viewer, req payroll.BulkDeleteRequest) (payroll.BatchResult, error) {
	if err := user.Authorize(viewer, user.PermissionPayrollDelete); err != nil {
		return payroll.BatchResult{}, err
	}
	if err := req.Validate(); err != nil {
		return payroll.BatchResult{}, err
	}

	scope := req.Scope()
	scope.RecordIDs = req.RecordIDs

	var (
		result         payroll.BatchResult
		deletedIDs     []string
		lockOverridden bool
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		lockOverridden, err = s.checkLock(ctx, viewer, scope.PeriodMonth)
		if err != nil {
			return err
		}

		refs, err := s.payrollRepo.ListForBatch(ctx, viewer.CompanyID, scope)
		if err != nil {
			return err
		}

		result = payroll.BatchResult{Matched: len(refs)}
		ids := make([]string, 0, len(refs))
		for _, ref := range refs {
			if ref.Status == payroll.PayrollStatusPaid {
				result.Skipped++
				continue
			}
			ids = append(ids, ref.ID)
		}
		if len(ids) == 0 {
			return nil
		}

		deleted, err := s.payrollRepo.DeleteNonPaid(ctx, viewer.CompanyID, ids)
		if err != nil {
			return err
		}
		result.Deleted = int(deleted)
		// Rows paid between the listing and the delete survive
		result.Skipped += len(ids) - int(deleted)
		deletedIDs = ids
		return nil
	})
	if err != nil {
		return payroll.BatchResult{}, err
	}

	metadata := batchMetadata(req.BatchScopeRequest, result)
	metadata["record_ids"] = deletedIDs
	metadata["lock_overridden"] = lockOverridden
	s.recordAudit(ctx, viewer, audit.EntityPayrollBatch, nil, audit.ActionPayrollBulkDeleted, nil, nil, metadata)

	return result, nil
}

// ========== INTERNALS ==========

func (s *PayrollServiceImpl) approveOne(ctx context.Context, viewer user.Viewer, id string) (transitionOutcome, error) {
	now := s.now().UTC()
	out, err := s.transition(ctx, viewer, id, payroll.PayrollStatusApproved, payroll.TriggerApprove, func(r *payroll.PayrollRecord) {
		r.Status = payroll.PayrollStatusApproved
		r.ApprovedBy = &viewer.UserID
		r.ApprovedAt = &now
	})
	if err != nil {
		return transitionOutcome{}, err
	}

	s.auditTransition(ctx, viewer, audit.ActionPayrollApproved, payroll.TriggerApprove, out)
	if out.after.EmployeeUserID != nil {
		s.notifier.NotifyUser(ctx, notification.CreateNotificationRequest{
			CompanyID:   viewer.CompanyID,
			RecipientID: *out.after.EmployeeUserID,
			SenderID:    &viewer.UserID,
			Type:        notification.TypePayrollApproved,
			Severity:    notification.SeverityInfo,
			Title:       "Payroll approved",
			Message:     fmt.Sprintf("Your payroll for %s has been approved", payroll.FormatPeriod(out.after.PeriodMonth)),
			Link:        strPtr("/payroll/" + out.after.ID),
			DedupeKey:   fmt.Sprintf("payroll:approved:%s:%d", out.after.ID, now.Unix()),
		})
	}
	s.publish(ctx, payroll.EventRecordApproved, map[string]interface{}{
		"company_id":   viewer.CompanyID,
		"record_id":    out.after.ID,
		"employee_id":  out.after.EmployeeID,
		"period_month": payroll.FormatPeriod(out.after.PeriodMonth),
	})
	return out, nil
}

func (s *PayrollServiceImpl) payOne(ctx context.Context, viewer user.Viewer, id, method, reference string) (transitionOutcome, error) {
	now := s.now().UTC()
	out, err := s.transition(ctx, viewer, id, payroll.PayrollStatusPaid, payroll.TriggerPay, func(r *payroll.PayrollRecord) {
		r.Status = payroll.PayrollStatusPaid
		r.PaidBy = &viewer.UserID
		r.PaidAt = &now
		r.PaymentMethod = &method
		r.PaymentReference = &reference
	})
	if err != nil {
		return transitionOutcome{}, err
	}

	s.auditTransition(ctx, viewer, audit.ActionPayrollPaid, payroll.TriggerPay, out)
	s.afterPaid(ctx, viewer, out.after)
	return out, nil
}

func (s *PayrollServiceImpl) payRefs(ctx context.Context, viewer user.Viewer, refs []payroll.RecordRef, method, reference string) payroll.BatchResult {
	result := payroll.BatchResult{Matched: len(refs)}
	for _, ref := range refs {
		if ref.Status == payroll.PayrollStatusPaid {
			result.Skipped++
			continue
		}
		if _, err := s.payOne(ctx, viewer, ref.ID, method, reference); err != nil {
			result.Fail(ref.ID, ref.EmployeeID, err)
			continue
		}
		result.Updated++
	}
	return result
}

// transition moves one record to status `to` under a row lock. apply mutates
// the locked copy; the write is conditional on the status read, so a record
// changed by another writer fails with ErrConcurrentModification.
func (s *PayrollServiceImpl) transition(ctx context.Context, viewer user.Viewer, id string, to payroll.PayrollStatus, trigger payroll.Trigger, apply func(*payroll.PayrollRecord)) (transitionOutcome, error) {
	var out transitionOutcome

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		current, err := s.payrollRepo.GetByIDForUpdate(ctx, id, viewer.CompanyID)
		if err != nil {
			return err
		}

		out.lockOverridden, err = s.checkLock(ctx, viewer, current.PeriodMonth)
		if err != nil {
			return err
		}

		if err := payroll.ValidateTransition(current.Status, to, trigger); err != nil {
			return err
		}

		next := current
		apply(&next)

		updated, err := s.payrollRepo.UpdateWorkflow(ctx, next, current.Status)
		if err != nil {
			return err
		}

		out.before = current
		out.after = updated
		return nil
	})
	if err != nil {
		return transitionOutcome{}, err
	}
	return out, nil
}

func (s *PayrollServiceImpl) auditTransition(ctx context.Context, viewer user.Viewer, action audit.Action, trigger payroll.Trigger, out transitionOutcome) {
	s.recordAudit(ctx, viewer, audit.EntityPayrollRecord, &out.after.ID, action,
		out.before.WorkflowSnapshot(), out.after.WorkflowSnapshot(),
		map[string]interface{}{
			"employee_id":     out.after.EmployeeID,
			"period_month":    payroll.FormatPeriod(out.after.PeriodMonth),
			"trigger":         string(trigger),
			"lock_overridden": out.lockOverridden,
		})
}

func (s *PayrollServiceImpl) afterPaid(ctx context.Context, viewer user.Viewer, record payroll.PayrollRecord) {
	if record.EmployeeUserID != nil {
		var paidAt int64
		if record.PaidAt != nil {
			paidAt = record.PaidAt.Unix()
		}
		s.notifier.NotifyUser(ctx, notification.CreateNotificationRequest{
			CompanyID:   viewer.CompanyID,
			RecipientID: *record.EmployeeUserID,
			SenderID:    &viewer.UserID,
			Type:        notification.TypePayrollPaid,
			Severity:    notification.SeveritySuccess,
			Title:       "Salary paid",
			Message: fmt.Sprintf("Your salary for %s has been paid: %s",
				payroll.FormatPeriod(record.PeriodMonth), record.NetSalary.StringFixed(2)),
			Link:      strPtr("/payroll/" + record.ID),
			DedupeKey: fmt.Sprintf("payroll:paid:%s:%d", record.ID, paidAt),
			Data: map[string]interface{}{
				"record_id":  record.ID,
				"net_salary": record.NetSalary.StringFixed(2),
			},
		})
	}

	s.publish(ctx, payroll.EventRecordPaid, map[string]interface{}{
		"company_id":     viewer.CompanyID,
		"record_id":      record.ID,
		"employee_id":    record.EmployeeID,
		"period_month":   payroll.FormatPeriod(record.PeriodMonth),
		"net_salary":     record.NetSalary.StringFixed(2),
		"payment_method": record.PaymentMethod,
	})
}

func batchMetadata(req payroll.BatchScopeRequest, result payroll.BatchResult) map[string]interface{} {
	metadata := result.Counts()
	metadata["period_month"] = req.PeriodMonth
	metadata["scope"] = map[string]interface{}{
		"branch_id":     req.BranchID,
		"department_id": req.DepartmentID,
		"employee_id":   req.EmployeeID,
	}
	if len(result.Errors) > 0 {
		failures := make([]map[string]interface{}, 0, len(result.Errors))
		for _, e := range result.Errors {
			failures = append(failures, map[string]interface{}{"record_id": e.RecordID, "error": e.Error})
		}
		metadata["failures"] = failures
	}
	return metadata
}
