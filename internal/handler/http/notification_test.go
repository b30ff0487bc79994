package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/notification"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/user"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotificationService struct {
	notification.Service

	lastViewer user.Viewer
	lastList   notification.ListRequest
	subscriber string
	events     []notification.SSEEvent
}

func (f *fakeNotificationService) GetNotifications(ctx context.Context, viewer user.Viewer, req notification.ListRequest) (*notification.NotificationListResponse, error) {
	f.lastViewer = viewer
	f.lastList = req
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &notification.NotificationListResponse{Page: 1, PageSize: 20}, nil
}

func (f *fakeNotificationService) Subscribe(ctx context.Context, userID string) (<-chan notification.SSEEvent, func()) {
	f.subscriber = userID
	ch := make(chan notification.SSEEvent, len(f.events))
	for _, e := range f.events {
		ch <- e
	}
	close(ch)
	return ch, func() {}
}

func newNotificationRouter(t *testing.T, svc notification.Service) (http.Handler, jwt.Service) {
	t.Helper()
	jwtService := jwt.NewJWTService(routerTestSecret, time.Hour)
	router := NewRouter(RouterConfig{AppName: "hris-payroll", Env: "test"}, jwtService, Handlers{
		Payroll:      NewPayrollHandler(&fakePayrollService{}),
		Salary:       NewSalaryHandler(nil),
		Audit:        NewAuditHandler(nil),
		Notification: NewNotificationHandler(svc, jwtService),
	})
	return router, jwtService
}

func TestNotifications_ListScopesToViewerAndFilters(t *testing.T) {
	svc := &fakeNotificationService{}
	router, jwtService := newNotificationRouter(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications?type=payroll_paid&severity=success&unread_only=true&page=2&page_size=5", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken(t, jwtService, user.RoleEmployee, "company-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", svc.lastViewer.UserID)
	assert.Equal(t, "company-1", svc.lastViewer.CompanyID)
	require.NotNil(t, svc.lastList.Type)
	assert.Equal(t, notification.TypePayrollPaid, *svc.lastList.Type)
	require.NotNil(t, svc.lastList.Severity)
	assert.Equal(t, notification.SeveritySuccess, *svc.lastList.Severity)
	assert.True(t, svc.lastList.UnreadOnly)
	assert.Equal(t, 2, svc.lastList.Page)
	assert.Equal(t, 5, svc.lastList.PageSize)
}

func TestNotifications_ListRejectsUnknownFilters(t *testing.T) {
	router, jwtService := newNotificationRouter(t, &fakeNotificationService{})

	for _, query := range []string{"type=leave_approved", "severity=critical"} {
		t.Run(query, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications?"+query, nil)
			req.Header.Set("Authorization", "Bearer "+accessToken(t, jwtService, user.RoleEmployee, "company-1"))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestNotifications_SSETokenOpensStream(t *testing.T) {
	svc := &fakeNotificationService{events: []notification.SSEEvent{
		{Event: "notification", Data: notification.NotificationResponse{ID: "n1", Type: notification.TypePayrollApproved, Title: "Payroll approved"}},
		{Event: "notification", Data: notification.NotificationResponse{ID: "n2", Type: notification.TypePayrollPaid, Title: "Salary paid"}},
	}}
	router, jwtService := newNotificationRouter(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications/sse-token", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken(t, jwtService, user.RoleEmployee, "company-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data notification.SSETokenResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.Data.Token)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/notifications/stream?type=payroll_paid&token="+body.Data.Token, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "user-1", svc.subscriber)

	stream := rec.Body.String()
	assert.True(t, strings.HasPrefix(stream, "event: connected\n"))
	assert.Contains(t, stream, `"title":"Salary paid"`)
	assert.NotContains(t, stream, "Payroll approved")
}

func TestNotifications_StreamRejectsBadRequests(t *testing.T) {
	router, jwtService := newNotificationRouter(t, &fakeNotificationService{})
	sseToken, _, err := jwtService.GenerateSSEToken("user-1")
	require.NoError(t, err)

	tests := []struct {
		name   string
		query  string
		status int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"access token instead of stream token", "token=" + accessToken(t, jwtService, user.RoleEmployee, "company-1"), http.StatusUnauthorized},
		{"unknown type", "type=payroll_paid,leave_approved&token=" + sseToken, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications/stream?"+tt.query, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
		})
	}
}
