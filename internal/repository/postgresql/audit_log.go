package postgresql

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/audit"
	"github.com/jmoiron/sqlx"
)

// auditLogRepository goes through database/sql so audit writes never join the
// caller's pgx transaction; a rolled back mutation is still traceable.
type auditLogRepository struct {
	db *sqlx.DB
}

func NewAuditLogRepository(db *sqlx.DB) audit.Repository {
	return &auditLogRepository{db: db}
}

type auditLogRow struct {
	ID         string    `db:"id"`
	CompanyID  string    `db:"company_id"`
	EntityType string    `db:"entity_type"`
	EntityID   *string   `db:"entity_id"`
	Action     string    `db:"action"`
	ActorID    string    `db:"actor_id"`
	Before     []byte    `db:"before"`
	After      []byte    `db:"after"`
	Metadata   []byte    `db:"metadata"`
	CreatedAt  time.Time `db:"created_at"`
}

func marshalJSONB(m map[string]interface{}) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func unmarshalJSONB(b []byte) (map[string]interface{}, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func (r *auditLogRepository) Create(ctx context.Context, entry audit.Entry) error {
	row := auditLogRow{
		ID:         entry.ID,
		CompanyID:  entry.CompanyID,
		EntityType: string(entry.EntityType),
		EntityID:   entry.EntityID,
		Action:     string(entry.Action),
		ActorID:    entry.ActorID,
		CreatedAt:  entry.CreatedAt,
	}

	var err error
	if row.Before, err = marshalJSONB(entry.Before); err != nil {
		return fmt.Errorf("failed to marshal audit before: %w", err)
	}
	if row.After, err = marshalJSONB(entry.After); err != nil {
		return fmt.Errorf("failed to marshal audit after: %w", err)
	}
	metadata := entry.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	if row.Metadata, err = marshalJSONB(metadata); err != nil {
		return fmt.Errorf("failed to marshal audit metadata: %w", err)
	}

	query := `
		INSERT INTO audit_logs (id, company_id, entity_type, entity_id, action, actor_id, before, after, metadata, created_at)
		VALUES (:id, :company_id, :entity_type, :entity_id, :action, :actor_id, :before, :after, :metadata, :created_at)
	`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

func (r *auditLogRepository) List(ctx context.Context, companyID string, filter audit.Filter) ([]audit.Entry, int64, error) {
	baseQuery := `FROM audit_logs WHERE company_id = $1`
	args := []interface{}{companyID}
	argIdx := 2

	if filter.EntityType != nil {
		baseQuery += fmt.Sprintf(" AND entity_type = $%d", argIdx)
		args = append(args, *filter.EntityType)
		argIdx++
	}
	if filter.EntityID != nil {
		baseQuery += fmt.Sprintf(" AND entity_id = $%d", argIdx)
		args = append(args, *filter.EntityID)
		argIdx++
	}
	if filter.Action != nil {
		baseQuery += fmt.Sprintf(" AND action = $%d", argIdx)
		args = append(args, *filter.Action)
		argIdx++
	}
	if filter.ActorID != nil {
		baseQuery += fmt.Sprintf(" AND actor_id = $%d", argIdx)
		args = append(args, *filter.ActorID)
		argIdx++
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count audit logs: %w", err)
	}

	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	offset := (filter.Page - 1) * filter.Limit

	selectQuery := fmt.Sprintf(`
		SELECT id, company_id, entity_type, entity_id, action, actor_id, before, after, metadata, created_at
		%s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, baseQuery, argIdx, argIdx+1)
	args = append(args, filter.Limit, offset)

	var rows []auditLogRow
	if err := r.db.SelectContext(ctx, &rows, selectQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list audit logs: %w", err)
	}

	entries := make([]audit.Entry, 0, len(rows))
	for _, row := range rows {
		entry := audit.Entry{
			ID:         row.ID,
			CompanyID:  row.CompanyID,
			EntityType: audit.EntityType(row.EntityType),
			EntityID:   row.EntityID,
			Action:     audit.Action(row.Action),
			ActorID:    row.ActorID,
			CreatedAt:  row.CreatedAt,
		}
		var err error
		if entry.Before, err = unmarshalJSONB(row.Before); err != nil {
			return nil, 0, fmt.Errorf("failed to unmarshal audit before: %w", err)
		}
		if entry.After, err = unmarshalJSONB(row.After); err != nil {
			return nil, 0, fmt.Errorf("failed to unmarshal audit after: %w", err)
		}
		if entry.Metadata, err = unmarshalJSONB(row.Metadata); err != nil {
			return nil, 0, fmt.Errorf("failed to unmarshal audit metadata: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, total, nil
}
