package notification

import (
	"time"
)

// NotificationType represents the type of notification
type NotificationType string

const (
	TypePayrollGenerated     NotificationType = "payroll_generated"
	TypePayrollApproved      NotificationType = "payroll_approved"
	TypePayrollPaid          NotificationType = "payroll_paid"
	TypePayrollBatchComplete NotificationType = "payroll_batch_complete"
	TypePayrollMonthClosed   NotificationType = "payroll_month_closed"
	TypePayrollMonthUnlocked NotificationType = "payroll_month_unlocked"
	TypeSalaryUpdated        NotificationType = "salary_updated"
)

// AllNotificationTypes returns all available notification types
func AllNotificationTypes() []NotificationType {
	return []NotificationType{
		TypePayrollGenerated,
		TypePayrollApproved,
		TypePayrollPaid,
		TypePayrollBatchComplete,
		TypePayrollMonthClosed,
		TypePayrollMonthUnlocked,
		TypeSalaryUpdated,
	}
}

// IsValid reports whether t is one of AllNotificationTypes.
func (t NotificationType) IsValid() bool {
	for _, known := range AllNotificationTypes() {
		if known == t {
			return true
		}
	}
	return false
}

// Severity drives how clients render a notification
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

func (s Severity) IsValid() bool {
	switch s {
	case SeverityInfo, SeveritySuccess, SeverityWarning, SeverityError:
		return true
	}
	return false
}

// Notification represents a notification entity
type Notification struct {
	ID          string
	CompanyID   string
	RecipientID string
	SenderID    *string
	Type        NotificationType
	Severity    Severity
	Title       string
	Message     string
	Link        *string
	DedupeKey   *string
	Data        map[string]interface{}
	IsRead      bool
	ReadAt      *time.Time
	CreatedAt   time.Time
}

// NotificationPreference represents user preference for a notification type
type NotificationPreference struct {
	ID               string
	UserID           string
	NotificationType NotificationType
	PushEnabled      bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
