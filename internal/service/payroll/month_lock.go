package payroll

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/audit"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/monthlock"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/notification"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/user"
)

// ========== MONTH CLOSE ==========

// PayAndClose pays every approved record in scope and then locks the month.
// Nothing is paid while any record in scope is still draft or failed, and the
// lock is only taken when every payment succeeded.
func (s *PayrollServiceImpl) PayAndClose(ctx context.Context, viewer user.Viewer, req payroll.CloseMonthRequest) (payroll.CloseMonthResponse, error) {
	if err := user.Authorize(viewer, user.PermissionPayrollCloseMonth); err != nil {
		return payroll.CloseMonthResponse{}, err
	}
	if !req.Confirm {
		return payroll.CloseMonthResponse{}, payroll.ErrConfirmationRequired
	}
	if err := req.Validate(); err != nil {
		return payroll.CloseMonthResponse{}, err
	}

	method, reference, err := payroll.PaymentDetails(req.PaymentMethod, req.PaymentReference)
	if err != nil {
		return payroll.CloseMonthResponse{}, err
	}

	scope := req.Scope()
	period := payroll.FormatPeriod(scope.PeriodMonth)

	if _, err := s.lockRepo.GetActive(ctx, viewer.CompanyID, scope.PeriodMonth); err == nil {
		return payroll.CloseMonthResponse{}, fmt.Errorf("%w: %s", monthlock.ErrMonthAlreadyLocked, period)
	} else if !errors.Is(err, monthlock.ErrMonthNotLocked) {
		return payroll.CloseMonthResponse{}, err
	}

	refs, err := s.payrollRepo.ListForBatch(ctx, viewer.CompanyID, scope)
	if err != nil {
		return payroll.CloseMonthResponse{}, err
	}
	if len(refs) == 0 {
		return payroll.CloseMonthResponse{}, fmt.Errorf("%w for %s", payroll.ErrNoRecordsMatched, period)
	}

	if pending, _ := countUnsettled(refs); pending > 0 {
		return payroll.CloseMonthResponse{}, fmt.Errorf("%w: %d of %d records are not approved", payroll.ErrRecordsNotApproved, pending, len(refs))
	}

	result := s.payRefs(ctx, viewer, refs, method, reference)

	metadata := batchMetadata(req.BatchScopeRequest, result)
	metadata["payment_method"] = method
	metadata["payment_reference"] = reference
	s.recordAudit(ctx, viewer, audit.EntityPayrollBatch, nil, audit.ActionPayrollBulkPaid, nil, nil, metadata)

	if result.Failed > 0 {
		s.notifyBatch(ctx, viewer, "Payroll close incomplete", scope.PeriodMonth, result)
		return payroll.CloseMonthResponse{Result: result}, fmt.Errorf("%w: %d of %d records failed, month left open", payroll.ErrBatchIncomplete, result.Failed, result.Matched)
	}

	lockID, err := s.newID()
	if err != nil {
		return payroll.CloseMonthResponse{Result: result}, err
	}

	// Writers hold the shared guard until commit. Under the exclusive guard the
	// re-read sees every committed change and no writer can start before the
	// lock row is visible. Concurrent closes still meet the unique index.
	var lock monthlock.MonthLock
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.lockRepo.AcquireGuard(ctx, viewer.CompanyID, scope.PeriodMonth, monthlock.GuardExclusive); err != nil {
			return err
		}

		current, err := s.payrollRepo.ListForBatch(ctx, viewer.CompanyID, scope)
		if err != nil {
			return err
		}
		pending, unpaid := countUnsettled(current)
		if pending > 0 {
			return fmt.Errorf("%w: %d of %d records changed while paying, month left open", payroll.ErrRecordsNotApproved, pending, len(current))
		}
		if unpaid > 0 {
			return fmt.Errorf("%w: %d of %d records are unpaid, month left open", payroll.ErrBatchIncomplete, unpaid, len(current))
		}

		lock, err = s.lockRepo.Create(ctx, monthlock.MonthLock{
			ID:          lockID,
			CompanyID:   viewer.CompanyID,
			PeriodMonth: scope.PeriodMonth,
			LockedBy:    viewer.UserID,
			LockedAt:    s.now().UTC(),
			Metadata:    metadata,
		})
		return err
	})
	if err != nil {
		if errors.Is(err, payroll.ErrRecordsNotApproved) || errors.Is(err, payroll.ErrBatchIncomplete) {
			s.notifyBatch(ctx, viewer, "Payroll close incomplete", scope.PeriodMonth, result)
		}
		return payroll.CloseMonthResponse{Result: result}, err
	}

	s.recordAudit(ctx, viewer, audit.EntityMonthLock, &lock.ID, audit.ActionMonthLocked, nil, lock.Snapshot(), map[string]interface{}{
		"period_month":   period,
		"paid":           result.Updated,
		"skipped":        result.Skipped,
		"payment_method": method,
	})

	s.notifier.NotifyUser(ctx, notification.CreateNotificationRequest{
		CompanyID:   viewer.CompanyID,
		RecipientID: viewer.UserID,
		Type:        notification.TypePayrollMonthClosed,
		Severity:    notification.SeveritySuccess,
		Title:       "Payroll month closed",
		Message:     fmt.Sprintf("%s is paid and locked: %d paid, %d already paid", period, result.Updated, result.Skipped),
		Link:        strPtr("/payroll?period_month=" + period),
		DedupeKey:   "payroll:month_closed:" + lock.ID,
	})

	s.publish(ctx, payroll.EventMonthClosed, map[string]interface{}{
		"company_id":   viewer.CompanyID,
		"lock_id":      lock.ID,
		"period_month": period,
		"paid":         result.Updated,
		"skipped":      result.Skipped,
	})

	s.logger.WithCompany(viewer.CompanyID).Info().
		Str("period_month", period).
		Str("lock_id", lock.ID).
		Int("paid", result.Updated).
		Msg("payroll month closed")

	lockResp := toLockResponse(lock)
	return payroll.CloseMonthResponse{Result: result, Lock: &lockResp}, nil
}

// countUnsettled splits the records that keep a month open into those still
// awaiting approval and those approved but not yet paid.
func countUnsettled(refs []payroll.RecordRef) (pending, unpaid int) {
	for _, ref := range refs {
		switch ref.Status {
		case payroll.PayrollStatusDraft, payroll.PayrollStatusFailed:
			pending++
		case payroll.PayrollStatusApproved:
			unpaid++
		}
	}
	return pending, unpaid
}

// Unlock releases the active lock of a month. The released row is kept so
// the close and the reason for reopening stay on record.
func (s *PayrollServiceImpl) Unlock(ctx context.Context, viewer user.Viewer, req payroll.UnlockMonthRequest) (payroll.MonthLockResponse, error) {
	if err := user.Authorize(viewer, user.PermissionPayrollUnlock); err != nil {
		return payroll.MonthLockResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return payroll.MonthLockResponse{}, err
	}

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return payroll.MonthLockResponse{}, monthlock.ErrUnlockReasonRequired
	}

	month, err := payroll.ParsePeriod(req.PeriodMonth)
	if err != nil {
		return payroll.MonthLockResponse{}, err
	}

	active, err := s.lockRepo.GetActive(ctx, viewer.CompanyID, month)
	if err != nil {
		return payroll.MonthLockResponse{}, err
	}

	released, err := s.lockRepo.Unlock(ctx, viewer.CompanyID, active.ID, viewer.UserID, reason, s.now().UTC())
	if err != nil {
		return payroll.MonthLockResponse{}, err
	}

	period := payroll.FormatPeriod(month)
	s.recordAudit(ctx, viewer, audit.EntityMonthLock, &released.ID, audit.ActionMonthUnlocked, active.Snapshot(), released.Snapshot(), map[string]interface{}{
		"period_month": period,
		"reason":       reason,
	})

	s.notifier.NotifyUser(ctx, notification.CreateNotificationRequest{
		CompanyID:   viewer.CompanyID,
		RecipientID: active.LockedBy,
		SenderID:    &viewer.UserID,
		Type:        notification.TypePayrollMonthUnlocked,
		Severity:    notification.SeverityWarning,
		Title:       "Payroll month reopened",
		Message:     fmt.Sprintf("%s was unlocked: %s", period, reason),
		Link:        strPtr("/payroll?period_month=" + period),
		DedupeKey:   "payroll:month_unlocked:" + released.ID,
	})

	s.publish(ctx, payroll.EventMonthUnlocked, map[string]interface{}{
		"company_id":   viewer.CompanyID,
		"lock_id":      released.ID,
		"period_month": period,
		"reason":       reason,
	})

	s.logger.WithCompany(viewer.CompanyID).Warn().
		Str("period_month", period).
		Str("unlocked_by", viewer.UserID).
		Msg("payroll month unlocked")

	return toLockResponse(released), nil
}

func (s *PayrollServiceImpl) GetActiveLock(ctx context.Context, viewer user.Viewer, period string) (payroll.MonthLockResponse, error) {
	if err := user.Authorize(viewer, user.PermissionPayrollView); err != nil {
		return payroll.MonthLockResponse{}, err
	}

	month, err := payroll.ParsePeriod(period)
	if err != nil {
		return payroll.MonthLockResponse{}, err
	}

	lock, err := s.lockRepo.GetActive(ctx, viewer.CompanyID, month)
	if err != nil {
		return payroll.MonthLockResponse{}, err
	}
	return toLockResponse(lock), nil
}

func (s *PayrollServiceImpl) ListLocks(ctx context.Context, viewer user.Viewer, period string) ([]payroll.MonthLockResponse, error) {
	if err := user.Authorize(viewer, user.PermissionPayrollView); err != nil {
		return nil, err
	}

	month, err := payroll.ParsePeriod(period)
	if err != nil {
		return nil, err
	}

	locks, err := s.lockRepo.ListByMonth(ctx, viewer.CompanyID, month)
	if err != nil {
		return nil, err
	}

	resp := make([]payroll.MonthLockResponse, 0, len(locks))
	for _, l := range locks {
		resp = append(resp, toLockResponse(l))
	}
	return resp, nil
}
