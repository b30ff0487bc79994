package salary

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/audit"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/notification"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/salary"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/user"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/database"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/logger"
	"github.com/google/uuid"
)

type SalaryServiceImpl struct {
	tx           database.Transactor
	salaryRepo   salary.SalaryRepository
	employeeRepo employee.EmployeeRepository
	audit        audit.Recorder
	notifier     notification.Sink
	logger       *logger.Logger

	now func() time.Time
}

func NewSalaryService(
	tx database.Transactor,
	salaryRepo salary.SalaryRepository,
	employeeRepo employee.EmployeeRepository,
	recorder audit.Recorder,
	notifier notification.Sink,
	log *logger.Logger,
) *SalaryServiceImpl {
	return &SalaryServiceImpl{
		tx:           tx,
		salaryRepo:   salaryRepo,
		employeeRepo: employeeRepo,
		audit:        recorder,
		notifier:     notifier,
		logger:       log.WithComponent("salary"),
		now:          time.Now,
	}
}

var _ salary.SalaryService = (*SalaryServiceImpl)(nil)

type upsertOutcome struct {
	employee  employee.Employee
	structure salary.SalaryStructure
	before    map[string]interface{}
	after     map[string]interface{}
	changes   []audit.FieldChange
	created   bool
	unchanged bool
}

// BulkUpsert saves each item in its own transaction. A failing item is
// reported and the remaining items are still processed.
func (s *SalaryServiceImpl) BulkUpsert(ctx context.Context, viewer user.Viewer, req salary.BulkUpsertStructureRequest) (salary.BulkUpsertResult, error) {
	if err := user.Authorize(viewer, user.PermissionSalaryManage); err != nil {
		return salary.BulkUpsertResult{}, err
	}
	if err := req.Validate(); err != nil {
		return salary.BulkUpsertResult{}, err
	}

	result := salary.BulkUpsertResult{Total: len(req.Items)}
	for i, item := range req.Items {
		out, err := s.upsertOne(ctx, viewer, item)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, salary.BulkItemError{Index: i, EmployeeID: item.EmployeeID, Error: err.Error()})
			continue
		}

		switch {
		case out.unchanged:
			result.Unchanged++
			continue
		case out.created:
			result.Created++
		default:
			result.Updated++
		}
		s.afterSave(ctx, viewer, out)
	}

	s.audit.Record(ctx, audit.Entry{
		CompanyID:  viewer.CompanyID,
		EntityType: audit.EntitySalaryStructure,
		Action:     audit.ActionSalaryBulkUpserted,
		ActorID:    viewer.UserID,
		Metadata: map[string]interface{}{
			"total":     result.Total,
			"created":   result.Created,
			"updated":   result.Updated,
			"unchanged": result.Unchanged,
			"failed":    result.Failed,
		},
	})

	s.logger.WithCompany(viewer.CompanyID).Info().
		Int("total", result.Total).
		Int("created", result.Created).
		Int("updated", result.Updated).
		Int("failed", result.Failed).
		Msg("salary structures upserted")

	return result, nil
}

func (s *SalaryServiceImpl) upsertOne(ctx context.Context, viewer user.Viewer, item salary.StructureInput) (upsertOutcome, error) {
	var out upsertOutcome

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		emp, err := s.employeeRepo.GetByID(ctx, item.EmployeeID, viewer.CompanyID)
		if err != nil {
			return err
		}
		out.employee = emp

		current, err := s.salaryRepo.GetByEmployeeIDForUpdate(ctx, viewer.CompanyID, item.EmployeeID)
		switch {
		case errors.Is(err, salary.ErrSalaryStructureNotFound):
			id, err := uuid.NewV7()
			if err != nil {
				return fmt.Errorf("failed to generate id: %w", err)
			}
			current = salary.SalaryStructure{ID: id.String(), CompanyID: viewer.CompanyID}
			out.created = true
		case err != nil:
			return err
		default:
			out.before = current.Snapshot()
		}

		next := item.Apply(current)
		out.after = next.Snapshot()
		out.changes = audit.Diff(out.before, out.after)
		if !out.created && len(out.changes) == 0 {
			out.structure = current
			out.unchanged = true
			return nil
		}

		now := s.now().UTC()
		next.UpdatedBy = viewer.UserID
		next.UpdatedAt = now
		if out.created {
			next.CreatedAt = now
		}

		saved, err := s.salaryRepo.Upsert(ctx, next)
		if err != nil {
			return err
		}
		out.structure = saved

		historyID, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate id: %w", err)
		}
		return s.salaryRepo.CreateHistory(ctx, salary.StructureHistory{
			ID:          historyID.String(),
			CompanyID:   viewer.CompanyID,
			EmployeeID:  item.EmployeeID,
			StructureID: saved.ID,
			Before:      out.before,
			After:       out.after,
			Changes:     audit.ChangesToMaps(out.changes),
			ChangedBy:   viewer.UserID,
			ChangedAt:   now,
		})
	})
	if err != nil {
		return upsertOutcome{}, err
	}
	return out, nil
}

func (s *SalaryServiceImpl) afterSave(ctx context.Context, viewer user.Viewer, out upsertOutcome) {
	action := audit.ActionSalaryStructureUpdated
	if out.created {
		action = audit.ActionSalaryStructureCreated
	}
	s.audit.Record(ctx, audit.Entry{
		CompanyID:  viewer.CompanyID,
		EntityType: audit.EntitySalaryStructure,
		EntityID:   &out.structure.ID,
		Action:     action,
		ActorID:    viewer.UserID,
		Before:     out.before,
		After:      out.after,
		Metadata: map[string]interface{}{
			"employee_id": out.employee.ID,
			"changes":     audit.ChangesToMaps(out.changes),
		},
	})

	if out.employee.UserID == nil {
		return
	}
	s.notifier.NotifyUser(ctx, notification.CreateNotificationRequest{
		CompanyID:   viewer.CompanyID,
		RecipientID: *out.employee.UserID,
		SenderID:    &viewer.UserID,
		Type:        notification.TypeSalaryUpdated,
		Severity:    notification.SeverityInfo,
		Title:       "Salary structure updated",
		Message:     fmt.Sprintf("%d field(s) of your salary structure changed", len(out.changes)),
		DedupeKey:   fmt.Sprintf("salary:updated:%s:%d", out.structure.ID, out.structure.UpdatedAt.Unix()),
	})
}

func (s *SalaryServiceImpl) GetStructure(ctx context.Context, viewer user.Viewer, employeeID string) (salary.SalaryStructureResponse, error) {
	if err := authorizeRead(viewer, employeeID); err != nil {
		return salary.SalaryStructureResponse{}, err
	}

	structure, err := s.salaryRepo.GetByEmployeeID(ctx, viewer.CompanyID, employeeID)
	if err != nil {
		return salary.SalaryStructureResponse{}, err
	}
	return toStructureResponse(structure), nil
}

func (s *SalaryServiceImpl) ListHistory(ctx context.Context, viewer user.Viewer, employeeID string) ([]salary.StructureHistoryResponse, error) {
	if err := authorizeRead(viewer, employeeID); err != nil {
		return nil, err
	}

	rows, err := s.salaryRepo.ListHistory(ctx, viewer.CompanyID, employeeID)
	if err != nil {
		return nil, err
	}

	resp := make([]salary.StructureHistoryResponse, 0, len(rows))
	for _, h := range rows {
		resp = append(resp, salary.StructureHistoryResponse{
			ID:         h.ID,
			EmployeeID: h.EmployeeID,
			Before:     h.Before,
			After:      h.After,
			Changes:    h.Changes,
			ChangedBy:  h.ChangedBy,
			ChangedAt:  h.ChangedAt.UTC().Format(time.RFC3339),
		})
	}
	return resp, nil
}

// authorizeRead lets employees read their own structure without salary.view.
func authorizeRead(viewer user.Viewer, employeeID string) error {
	if viewer.EmployeeID != nil && *viewer.EmployeeID == employeeID {
		return nil
	}
	return user.Authorize(viewer, user.PermissionSalaryView)
}

func toStructureResponse(s salary.SalaryStructure) salary.SalaryStructureResponse {
	return salary.SalaryStructureResponse{
		ID:               s.ID,
		EmployeeID:       s.EmployeeID,
		BasicSalary:      s.BasicSalary,
		HousingAllowance: s.HousingAllowance,
		SpecialAllowance: s.SpecialAllowance,
		Bonus:            s.Bonus,
		OtherAllowance:   s.OtherAllowance,
		ProvidentFund:    s.ProvidentFund,
		TaxDeduction:     s.TaxDeduction,
		OtherDeduction:   s.OtherDeduction,
		TotalEarnings:    s.TotalEarnings(),
		TotalDeductions:  s.TotalDeductions(),
		UpdatedBy:        s.UpdatedBy,
		UpdatedAt:        s.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
