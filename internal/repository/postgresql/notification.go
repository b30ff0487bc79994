package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/notification"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type notificationRepository struct {
	db *database.DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *database.DB) notification.Repository {
	return &notificationRepository{db: db}
}

const notificationColumns = `id, company_id, recipient_id, sender_id, type, severity, title, message, link, dedupe_key, data, is_read, read_at, created_at`

func scanNotification(row pgx.Row) (*notification.Notification, error) {
	var n notification.Notification
	var dataJSON []byte
	var notifType, severity string

	if err := row.Scan(
		&n.ID,
		&n.CompanyID,
		&n.RecipientID,
		&n.SenderID,
		&notifType,
		&severity,
		&n.Title,
		&n.Message,
		&n.Link,
		&n.DedupeKey,
		&dataJSON,
		&n.IsRead,
		&n.ReadAt,
		&n.CreatedAt,
	); err != nil {
		return nil, err
	}

	n.Type = notification.NotificationType(notifType)
	n.Severity = notification.Severity(severity)
	if dataJSON != nil {
		if err := json.Unmarshal(dataJSON, &n.Data); err != nil {
			return nil, fmt.Errorf("failed to unmarshal notification data: %w", err)
		}
	}
	return &n, nil
}

func notificationArgs(n *notification.Notification) ([]interface{}, error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.Severity == "" {
		n.Severity = notification.SeverityInfo
	}

	dataJSON, err := json.Marshal(n.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notification data: %w", err)
	}

	return []interface{}{
		n.ID,
		n.CompanyID,
		n.RecipientID,
		n.SenderID,
		string(n.Type),
		string(n.Severity),
		n.Title,
		n.Message,
		n.Link,
		n.DedupeKey,
		dataJSON,
		n.IsRead,
		n.CreatedAt,
	}, nil
}

const notificationInsertColumns = `id, company_id, recipient_id, sender_id, type, severity, title, message, link, dedupe_key, data, is_read, created_at`

const notificationDedupeConflict = `ON CONFLICT (recipient_id, dedupe_key) WHERE dedupe_key IS NOT NULL DO NOTHING`

// Create inserts a notification; a repeated dedupe key is a silent no-op.
func (r *notificationRepository) Create(ctx context.Context, n *notification.Notification) (bool, error) {
	q := GetQuerier(ctx, r.db)

	args, err := notificationArgs(n)
	if err != nil {
		return false, err
	}

	query := fmt.Sprintf(`
		INSERT INTO notifications (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		%s
		RETURNING id
	`, notificationInsertColumns, notificationDedupeConflict)

	var id string
	if err := q.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create notification: %w", err)
	}

	return true, nil
}

// CreateBatch inserts notifications in one statement and returns the rows
// that were not dropped by the dedupe index.
func (r *notificationRepository) CreateBatch(ctx context.Context, notifications []*notification.Notification) ([]*notification.Notification, error) {
	if len(notifications) == 0 {
		return nil, nil
	}

	q := GetQuerier(ctx, r.db)

	const width = 13
	valueStrings := make([]string, 0, len(notifications))
	valueArgs := make([]interface{}, 0, len(notifications)*width)

	for i, n := range notifications {
		args, err := notificationArgs(n)
		if err != nil {
			return nil, err
		}

		placeholders := make([]string, width)
		for j := range placeholders {
			placeholders[j] = fmt.Sprintf("$%d", i*width+j+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ", ")+")")
		valueArgs = append(valueArgs, args...)
	}

	query := fmt.Sprintf(`
		INSERT INTO notifications (%s)
		VALUES %s
		%s
		RETURNING id
	`, notificationInsertColumns, strings.Join(valueStrings, ", "), notificationDedupeConflict)

	rows, err := q.Query(ctx, query, valueArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to batch create notifications: %w", err)
	}
	defer rows.Close()

	inserted := make(map[string]struct{}, len(notifications))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan notification id: %w", err)
		}
		inserted[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to batch create notifications: %w", err)
	}

	created := make([]*notification.Notification, 0, len(inserted))
	for _, n := range notifications {
		if _, ok := inserted[n.ID]; ok {
			created = append(created, n)
		}
	}
	return created, nil
}

// List returns one recipient's notifications in a company, newest first.
func (r *notificationRepository) List(ctx context.Context, filter notification.ListFilter) ([]*notification.Notification, int, error) {
	q := GetQuerier(ctx, r.db)

	whereClause := "company_id = $1 AND recipient_id = $2"
	args := []interface{}{filter.CompanyID, filter.RecipientID}
	argIndex := 3

	if filter.UnreadOnly {
		whereClause += " AND is_read = false"
	}
	if filter.Type != nil {
		whereClause += fmt.Sprintf(" AND type = $%d", argIndex)
		args = append(args, string(*filter.Type))
		argIndex++
	}
	if filter.Severity != nil {
		whereClause += fmt.Sprintf(" AND severity = $%d", argIndex)
		args = append(args, string(*filter.Severity))
		argIndex++
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM notifications WHERE %s", whereClause)
	var total int
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM notifications
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, notificationColumns, whereClause, argIndex, argIndex+1)

	args = append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*notification.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to query notifications: %w", err)
	}

	return notifications, total, nil
}

func (r *notificationRepository) GetUnreadCount(ctx context.Context, companyID, userID string) (int, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT COUNT(*) FROM notifications WHERE company_id = $1 AND recipient_id = $2 AND is_read = false`
	var count int
	if err := q.QueryRow(ctx, query, companyID, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	return count, nil
}

// MarkAsRead ignores ids that are not the user's or are already read.
func (r *notificationRepository) MarkAsRead(ctx context.Context, companyID, userID string, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE notifications
		SET is_read = true, read_at = $1
		WHERE company_id = $2 AND recipient_id = $3 AND id = ANY($4) AND is_read = false
	`

	if _, err := q.Exec(ctx, query, at, companyID, userID, ids); err != nil {
		return fmt.Errorf("failed to mark notifications as read: %w", err)
	}

	return nil
}

func (r *notificationRepository) MarkAllAsRead(ctx context.Context, companyID, userID string, at time.Time) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE notifications
		SET is_read = true, read_at = $1
		WHERE company_id = $2 AND recipient_id = $3 AND is_read = false
	`

	if _, err := q.Exec(ctx, query, at, companyID, userID); err != nil {
		return fmt.Errorf("failed to mark all notifications as read: %w", err)
	}

	return nil
}

func (r *notificationRepository) Delete(ctx context.Context, companyID, userID, id string) error {
	q := GetQuerier(ctx, r.db)

	query := `DELETE FROM notifications WHERE id = $1 AND company_id = $2 AND recipient_id = $3`
	result, err := q.Exec(ctx, query, id, companyID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}

	if result.RowsAffected() == 0 {
		return notification.ErrNotificationNotFound
	}

	return nil
}

// ============= Preferences =============

// GetPreferences retrieves all notification preferences for a user
func (r *notificationRepository) GetPreferences(ctx context.Context, userID string) ([]*notification.NotificationPreference, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, user_id, notification_type, push_enabled, created_at, updated_at
		FROM notification_preferences
		WHERE user_id = $1
	`

	rows, err := q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query preferences: %w", err)
	}
	defer rows.Close()

	var prefs []*notification.NotificationPreference
	for rows.Next() {
		var p notification.NotificationPreference
		var notifType string

		if err := rows.Scan(
			&p.ID,
			&p.UserID,
			&notifType,
			&p.PushEnabled,
			&p.CreatedAt,
			&p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan preference: %w", err)
		}

		p.NotificationType = notification.NotificationType(notifType)
		prefs = append(prefs, &p)
	}

	return prefs, rows.Err()
}

// UpsertPreference creates or updates a notification preference
func (r *notificationRepository) UpsertPreference(ctx context.Context, pref *notification.NotificationPreference) error {
	q := GetQuerier(ctx, r.db)

	if pref.ID == "" {
		pref.ID = uuid.New().String()
	}

	query := `
		INSERT INTO notification_preferences (id, user_id, notification_type, push_enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, notification_type)
		DO UPDATE SET push_enabled = $4, updated_at = $6
	`

	now := time.Now()
	_, err := q.Exec(ctx, query,
		pref.ID,
		pref.UserID,
		string(pref.NotificationType),
		pref.PushEnabled,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert preference: %w", err)
	}

	return nil
}

// IsNotificationEnabled checks if push notifications are enabled for a user and type
func (r *notificationRepository) IsNotificationEnabled(ctx context.Context, userID string, notifType notification.NotificationType) (bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT push_enabled
		FROM notification_preferences
		WHERE user_id = $1 AND notification_type = $2
	`

	var enabled bool
	err := q.QueryRow(ctx, query, userID, string(notifType)).Scan(&enabled)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Default to enabled if no preference exists
			return true, nil
		}
		return false, fmt.Errorf("failed to check notification enabled: %w", err)
	}

	return enabled, nil
}
