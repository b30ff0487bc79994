package notification

import (
	"context"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/user"
)

// Sink is the fire-and-forget port the payroll engine notifies through.
// Failures are logged by the implementation and never returned.
type Sink interface {
	NotifyUser(ctx context.Context, req CreateNotificationRequest)
}

// Service defines the notification service interface. Inbox operations act
// on the viewer's own notifications inside the viewer's company.
type Service interface {
	Sink

	// Queue notification (async processing via background workers)
	QueueNotification(ctx context.Context, req CreateNotificationRequest) error

	// Inbox
	GetNotifications(ctx context.Context, viewer user.Viewer, req ListRequest) (*NotificationListResponse, error)
	GetUnreadCount(ctx context.Context, viewer user.Viewer) (int, error)
	MarkAsRead(ctx context.Context, viewer user.Viewer, req MarkAsReadRequest) error
	MarkAllAsRead(ctx context.Context, viewer user.Viewer) error
	Delete(ctx context.Context, viewer user.Viewer, notificationID string) error

	// Preferences
	GetPreferences(ctx context.Context, viewer user.Viewer) ([]PreferenceResponse, error)
	UpdatePreference(ctx context.Context, viewer user.Viewer, req UpdatePreferenceRequest) error

	// SSE subscription
	Subscribe(ctx context.Context, userID string) (<-chan SSEEvent, func())

	// Lifecycle
	Stop()
}
