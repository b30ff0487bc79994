package notification

import (
	"context"
	"time"
)

// ListFilter selects one recipient's notifications inside a company.
type ListFilter struct {
	CompanyID   string
	RecipientID string
	UnreadOnly  bool
	Type        *NotificationType
	Severity    *Severity
	Page        int
	PageSize    int
}

// Repository defines the notification repository interface
type Repository interface {
	// Create inserts the notification. It returns false without error when a
	// notification with the same recipient and dedupe key already exists.
	Create(ctx context.Context, notification *Notification) (bool, error)
	// CreateBatch returns the notifications that were actually inserted.
	CreateBatch(ctx context.Context, notifications []*Notification) ([]*Notification, error)
	List(ctx context.Context, filter ListFilter) ([]*Notification, int, error)
	GetUnreadCount(ctx context.Context, companyID, userID string) (int, error)
	MarkAsRead(ctx context.Context, companyID, userID string, ids []string, at time.Time) error
	MarkAllAsRead(ctx context.Context, companyID, userID string, at time.Time) error
	// Delete returns ErrNotificationNotFound when the notification is not the user's.
	Delete(ctx context.Context, companyID, userID, id string) error

	// Preferences
	GetPreferences(ctx context.Context, userID string) ([]*NotificationPreference, error)
	UpsertPreference(ctx context.Context, pref *NotificationPreference) error
	IsNotificationEnabled(ctx context.Context, userID string, notifType NotificationType) (bool, error)
}

// Deduper claims a dedupe key before a notification is queued so retries
// inside the TTL are dropped without touching the database.
type Deduper interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}
