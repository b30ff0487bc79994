package notification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/notification"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/user"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/logger"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/sse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	mu         sync.Mutex
	rows       []*notification.Notification
	disabled   map[notification.NotificationType]bool
	lastFilter notification.ListFilter
}

func (m *memoryRepo) insert(n *notification.Notification) bool {
	if n.DedupeKey != nil {
		for _, existing := range m.rows {
			if existing.RecipientID == n.RecipientID && existing.DedupeKey != nil && *existing.DedupeKey == *n.DedupeKey {
				return false
			}
		}
	}
	m.rows = append(m.rows, n)
	return true
}

func (m *memoryRepo) Create(ctx context.Context, n *notification.Notification) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insert(n), nil
}

func (m *memoryRepo) CreateBatch(ctx context.Context, ns []*notification.Notification) ([]*notification.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var inserted []*notification.Notification
	for _, n := range ns {
		if m.insert(n) {
			inserted = append(inserted, n)
		}
	}
	return inserted, nil
}

func (m *memoryRepo) List(ctx context.Context, filter notification.ListFilter) ([]*notification.Notification, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastFilter = filter
	var out []*notification.Notification
	for _, n := range m.rows {
		if n.CompanyID != filter.CompanyID || n.RecipientID != filter.RecipientID {
			continue
		}
		if filter.UnreadOnly && n.IsRead {
			continue
		}
		if filter.Type != nil && n.Type != *filter.Type {
			continue
		}
		if filter.Severity != nil && n.Severity != *filter.Severity {
			continue
		}
		out = append(out, n)
	}
	return out, len(out), nil
}

func (m *memoryRepo) GetUnreadCount(ctx context.Context, companyID, userID string) (int, error) {
	rows, _, _ := m.List(ctx, notification.ListFilter{CompanyID: companyID, RecipientID: userID, UnreadOnly: true})
	return len(rows), nil
}

func (m *memoryRepo) MarkAsRead(ctx context.Context, companyID, userID string, ids []string, at time.Time) error {
	return nil
}

func (m *memoryRepo) MarkAllAsRead(ctx context.Context, companyID, userID string, at time.Time) error {
	return nil
}

func (m *memoryRepo) Delete(ctx context.Context, companyID, userID, id string) error { return nil }

func (m *memoryRepo) GetPreferences(ctx context.Context, userID string) ([]*notification.NotificationPreference, error) {
	return []*notification.NotificationPreference{{UserID: userID, NotificationType: notification.TypePayrollPaid, PushEnabled: false}}, nil
}

func (m *memoryRepo) UpsertPreference(ctx context.Context, pref *notification.NotificationPreference) error {
	return nil
}

func (m *memoryRepo) IsNotificationEnabled(ctx context.Context, userID string, t notification.NotificationType) (bool, error) {
	return !m.disabled[t], nil
}

type memoryDeduper struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (d *memoryDeduper) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen[key] {
		return false, nil
	}
	d.seen[key] = true
	return true, nil
}

var viewer = user.Viewer{UserID: "user-1", CompanyID: "company-1", Role: user.RoleEmployee}

func newTestService(repo *memoryRepo, hub *sse.Hub) *service {
	return NewNotificationService(repo, hub, &memoryDeduper{seen: map[string]bool{}}, Config{
		FlushInterval: time.Hour,
		WorkerCount:   1,
	}, logger.Nop()).(*service)
}

func TestNotifyUser_DedupesAndFlushesOnStop(t *testing.T) {
	repo := &memoryRepo{}
	hub := sse.NewHub()
	events, cleanup := hub.Subscribe("user-1")
	defer cleanup()

	svc := newTestService(repo, hub)

	req := notification.CreateNotificationRequest{
		CompanyID:   "company-1",
		RecipientID: "user-1",
		Type:        notification.TypePayrollPaid,
		Severity:    notification.SeveritySuccess,
		Title:       "Salary paid",
		Message:     "Your June 2024 salary has been paid",
		DedupeKey:   "payroll:paid:rec-1",
	}
	svc.NotifyUser(context.Background(), req)
	svc.NotifyUser(context.Background(), req)
	svc.Stop()

	require.Len(t, repo.rows, 1)
	assert.Equal(t, "payroll:paid:rec-1", *repo.rows[0].DedupeKey)

	select {
	case event := <-events:
		resp, ok := event.Data.(notification.NotificationResponse)
		require.True(t, ok)
		assert.Equal(t, "Salary paid", resp.Title)
		assert.Equal(t, notification.SeveritySuccess, resp.Severity)
	default:
		t.Fatal("expected an SSE event")
	}
}

func TestNotifyUser_SkipsDisabledTypeAndMissingRecipient(t *testing.T) {
	repo := &memoryRepo{disabled: map[notification.NotificationType]bool{notification.TypePayrollApproved: true}}
	svc := newTestService(repo, sse.NewHub())

	svc.NotifyUser(context.Background(), notification.CreateNotificationRequest{RecipientID: "user-1", Type: notification.TypePayrollApproved})
	svc.NotifyUser(context.Background(), notification.CreateNotificationRequest{Type: notification.TypePayrollPaid})
	svc.Stop()

	assert.Empty(t, repo.rows)
}

func TestGetPreferences_DefaultsToEnabled(t *testing.T) {
	svc := newTestService(&memoryRepo{}, sse.NewHub())
	defer svc.Stop()

	prefs, err := svc.GetPreferences(context.Background(), viewer)
	require.NoError(t, err)
	require.Len(t, prefs, len(notification.AllNotificationTypes()))

	for _, p := range prefs {
		if p.NotificationType == notification.TypePayrollPaid {
			assert.False(t, p.PushEnabled)
		} else {
			assert.True(t, p.PushEnabled)
		}
	}
}

func TestUpdatePreference_RejectsUnknownType(t *testing.T) {
	svc := newTestService(&memoryRepo{}, sse.NewHub())
	defer svc.Stop()

	err := svc.UpdatePreference(context.Background(), viewer, notification.UpdatePreferenceRequest{NotificationType: "leave_approved"})
	assert.ErrorIs(t, err, notification.ErrInvalidNotificationType)
}

func TestGetNotifications_ScopedToViewerAndFiltered(t *testing.T) {
	paidType := notification.TypePayrollPaid
	repo := &memoryRepo{rows: []*notification.Notification{
		{ID: "n1", CompanyID: "company-1", RecipientID: "user-1", Type: notification.TypePayrollPaid, Severity: notification.SeveritySuccess, Title: "Salary paid"},
		{ID: "n2", CompanyID: "company-1", RecipientID: "user-1", Type: notification.TypePayrollMonthUnlocked, Severity: notification.SeverityWarning, Title: "Month reopened"},
		{ID: "n3", CompanyID: "company-2", RecipientID: "user-1", Type: notification.TypePayrollPaid, Severity: notification.SeveritySuccess, Title: "Other company"},
		{ID: "n4", CompanyID: "company-1", RecipientID: "user-2", Type: notification.TypePayrollPaid, Severity: notification.SeveritySuccess, Title: "Someone else"},
	}}
	svc := newTestService(repo, sse.NewHub())
	defer svc.Stop()
	ctx := context.Background()

	all, err := svc.GetNotifications(ctx, viewer, notification.ListRequest{PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, 2, all.Total)
	assert.Equal(t, 2, all.UnreadCount)
	assert.Equal(t, 1, all.Page)
	assert.Equal(t, 20, all.PageSize)

	paid, err := svc.GetNotifications(ctx, viewer, notification.ListRequest{Type: &paidType})
	require.NoError(t, err)
	require.Len(t, paid.Notifications, 1)
	assert.Equal(t, "n1", paid.Notifications[0].ID)
	assert.Equal(t, 2, paid.UnreadCount)
	assert.Equal(t, "company-1", repo.lastFilter.CompanyID)
	assert.Equal(t, "user-1", repo.lastFilter.RecipientID)

	warning := notification.SeverityWarning
	warnings, err := svc.GetNotifications(ctx, viewer, notification.ListRequest{Severity: &warning})
	require.NoError(t, err)
	require.Len(t, warnings.Notifications, 1)
	assert.Equal(t, "Month reopened", warnings.Notifications[0].Title)
}

func TestGetNotifications_RejectsBadInput(t *testing.T) {
	svc := newTestService(&memoryRepo{}, sse.NewHub())
	defer svc.Stop()
	ctx := context.Background()

	unknownType := notification.NotificationType("leave_approved")
	_, err := svc.GetNotifications(ctx, viewer, notification.ListRequest{Type: &unknownType})
	assert.ErrorIs(t, err, notification.ErrInvalidNotificationType)

	loud := notification.Severity("critical")
	_, err = svc.GetNotifications(ctx, viewer, notification.ListRequest{Severity: &loud})
	assert.ErrorIs(t, err, notification.ErrInvalidSeverity)

	_, err = svc.GetNotifications(ctx, user.Viewer{UserID: "user-1"}, notification.ListRequest{})
	assert.ErrorIs(t, err, user.ErrCompanyIDRequired)

	_, err = svc.GetUnreadCount(ctx, user.Viewer{CompanyID: "company-1"})
	assert.ErrorIs(t, err, user.ErrUserIDRequired)

	err = svc.MarkAsRead(ctx, viewer, notification.MarkAsReadRequest{})
	assert.Error(t, err)
}
