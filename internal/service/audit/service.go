package audit

import (
	"context"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/audit"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/user"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/logger"
	"github.com/google/uuid"
)

const writeTimeout = 5 * time.Second

// AuditServiceImpl records and lists audit entries.
type AuditServiceImpl struct {
	repo   audit.Repository
	logger *logger.Logger
	now    func() time.Time
}

func NewAuditService(repo audit.Repository, log *logger.Logger) *AuditServiceImpl {
	return &AuditServiceImpl{
		repo:   repo,
		logger: log.WithComponent("audit"),
		now:    time.Now,
	}
}

// Record writes the entry outside the caller's cancellation. A failed write
// is logged at error level with the full entry so it can be replayed.
func (s *AuditServiceImpl) Record(ctx context.Context, entry audit.Entry) {
	if entry.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to generate audit entry id")
			return
		}
		entry.ID = id.String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}
	if entry.Metadata == nil {
		entry.Metadata = map[string]interface{}{}
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	if err := s.repo.Create(writeCtx, entry); err != nil {
		s.logger.WithError(err).WithCompany(entry.CompanyID).Error().
			Str("entity_type", string(entry.EntityType)).
			Str("action", string(entry.Action)).
			Str("actor_id", entry.ActorID).
			Interface("entity_id", entry.EntityID).
			Interface("before", entry.Before).
			Interface("after", entry.After).
			Interface("metadata", entry.Metadata).
			Msg("audit write failed")
	}
}

func (s *AuditServiceImpl) List(ctx context.Context, viewer user.Viewer, req audit.ListRequest) (audit.ListResponse, error) {
	if err := user.Authorize(viewer, user.PermissionAuditView); err != nil {
		return audit.ListResponse{}, err
	}

	if req.EntityType != nil && !validEntityType(*req.EntityType) {
		return audit.ListResponse{}, audit.ErrInvalidEntityType
	}

	// Defaults
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 20
	}

	entries, total, err := s.repo.List(ctx, viewer.CompanyID, audit.Filter{
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		Action:     req.Action,
		ActorID:    req.ActorID,
		Page:       req.Page,
		Limit:      req.Limit,
	})
	if err != nil {
		return audit.ListResponse{}, err
	}

	data := make([]audit.EntryResponse, 0, len(entries))
	for _, e := range entries {
		data = append(data, audit.EntryResponse{
			ID:         e.ID,
			EntityType: string(e.EntityType),
			EntityID:   e.EntityID,
			Action:     string(e.Action),
			ActorID:    e.ActorID,
			Before:     e.Before,
			After:      e.After,
			Changes:    audit.Diff(e.Before, e.After),
			Metadata:   e.Metadata,
			CreatedAt:  e.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	return audit.ListResponse{
		Data:       data,
		TotalCount: total,
		Page:       req.Page,
		Limit:      req.Limit,
	}, nil
}

func validEntityType(t string) bool {
	switch audit.EntityType(t) {
	case audit.EntityPayrollRecord, audit.EntityPayrollBatch, audit.EntityMonthLock, audit.EntitySalaryStructure:
		return true
	}
	return false
}
