package notification

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/validator"
)

// ============= Request DTOs =============

// CreateNotificationRequest represents a request to create a notification.
// Requests sharing a DedupeKey for the same recipient are delivered once.
type CreateNotificationRequest struct {
	CompanyID   string
	RecipientID string
	SenderID    *string
	Type        NotificationType
	Severity    Severity
	Title       string
	Message     string
	Link        *string
	DedupeKey   string
	Data        map[string]interface{}
}

// ListRequest narrows the viewer's inbox. Type and Severity let the payroll
// screens show, say, only paid-salary notices or only warnings.
type ListRequest struct {
	Page       int
	PageSize   int
	UnreadOnly bool
	Type       *NotificationType
	Severity   *Severity
}

func (r *ListRequest) Validate() error {
	if r.Type != nil && !r.Type.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidNotificationType, *r.Type)
	}
	if r.Severity != nil && !r.Severity.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidSeverity, *r.Severity)
	}
	return nil
}

// Normalize applies the paging defaults.
func (r *ListRequest) Normalize() {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.PageSize < 1 || r.PageSize > 100 {
		r.PageSize = 20
	}
}

// MarkAsReadRequest represents a request to mark notifications as read
type MarkAsReadRequest struct {
	NotificationIDs []string `json:"notification_ids" validate:"required,min=1,dive,uuid"`
}

func (r *MarkAsReadRequest) Validate() error {
	return validator.Struct(r)
}

// UpdatePreferenceRequest represents a request to update notification preference
type UpdatePreferenceRequest struct {
	NotificationType NotificationType `json:"notification_type" validate:"required"`
	PushEnabled      bool             `json:"push_enabled"`
}

func (r *UpdatePreferenceRequest) Validate() error {
	if err := validator.Struct(r); err != nil {
		return err
	}
	if !r.NotificationType.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidNotificationType, r.NotificationType)
	}
	return nil
}

// ============= Response DTOs =============

// NotificationResponse represents a notification in API responses
type NotificationResponse struct {
	ID        string                 `json:"id"`
	Type      NotificationType       `json:"type"`
	Severity  Severity               `json:"severity"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Link      *string                `json:"link,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	IsRead    bool                   `json:"is_read"`
	ReadAt    *time.Time             `json:"read_at,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// NotificationListResponse represents a paginated list of notifications
type NotificationListResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
	Total         int                    `json:"total"`
	UnreadCount   int                    `json:"unread_count"`
	Page          int                    `json:"page"`
	PageSize      int                    `json:"page_size"`
}

// PreferenceResponse represents a notification preference in API responses
type PreferenceResponse struct {
	NotificationType NotificationType `json:"notification_type"`
	PushEnabled      bool             `json:"push_enabled"`
}

// UnreadCountResponse represents unread count response
type UnreadCountResponse struct {
	UnreadCount int `json:"unread_count"`
}

// SSETokenResponse represents the SSE token response
type SSETokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

// ============= SSE Event =============

// SSEEvent represents a Server-Sent Event
type SSEEvent struct {
	Event string               `json:"event"`
	Data  NotificationResponse `json:"data"`
}
