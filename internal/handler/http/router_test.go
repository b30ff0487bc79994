package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/user"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const routerTestSecret = "test-secret-key-for-jwt"

type fakePayrollService struct {
	payroll.PayrollService

	lastViewer user.Viewer
	lastID     string
	closeReq   payroll.CloseMonthRequest
	closeResp  payroll.CloseMonthResponse
	err        error
}

func (f *fakePayrollService) GetRecord(ctx context.Context, viewer user.Viewer, id string) (payroll.PayrollRecordResponse, error) {
	f.lastViewer = viewer
	f.lastID = id
	if f.err != nil {
		return payroll.PayrollRecordResponse{}, f.err
	}
	return payroll.PayrollRecordResponse{ID: id, Status: "pending", PeriodMonth: "2025-03"}, nil
}

func (f *fakePayrollService) PayAndClose(ctx context.Context, viewer user.Viewer, req payroll.CloseMonthRequest) (payroll.CloseMonthResponse, error) {
	f.lastViewer = viewer
	f.closeReq = req
	return f.closeResp, f.err
}

func newTestRouter(t *testing.T, svc payroll.PayrollService) (http.Handler, jwt.Service) {
	t.Helper()
	jwtService := jwt.NewJWTService(routerTestSecret, time.Hour)
	router := NewRouter(RouterConfig{AppName: "hris-payroll", Env: "test"}, jwtService, Handlers{
		Payroll:      NewPayrollHandler(svc),
		Salary:       NewSalaryHandler(nil),
		Audit:        NewAuditHandler(nil),
		Notification: NewNotificationHandler(nil, jwtService),
	})
	return router, jwtService
}

func accessToken(t *testing.T, jwtService jwt.Service, role user.Role, companyID string) string {
	t.Helper()
	token, _, err := jwtService.GenerateAccessToken(jwt.AccessClaims{
		UserID:    "user-1",
		CompanyID: companyID,
		Role:      role,
	})
	require.NoError(t, err)
	return token
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRouter_RequiresToken(t *testing.T) {
	router, _ := newTestRouter(t, &fakePayrollService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payroll/records/rec-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeResponse(t, rec)
	assert.Equal(t, false, body["success"])
}

func TestRouter_RejectsPendingViewer(t *testing.T) {
	router, jwtService := newTestRouter(t, &fakePayrollService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payroll/records/rec-1", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken(t, jwtService, user.RolePending, "company-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRouter_GetRecord(t *testing.T) {
	svc := &fakePayrollService{}
	router, jwtService := newTestRouter(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payroll/records/rec-1", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken(t, jwtService, user.RoleManager, "company-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "rec-1", svc.lastID)
	assert.Equal(t, "user-1", svc.lastViewer.UserID)
	assert.Equal(t, "company-1", svc.lastViewer.CompanyID)
	assert.Equal(t, user.RoleManager, svc.lastViewer.Role)

	body := decodeResponse(t, rec)
	data, ok := body["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "rec-1", data["id"])
	assert.Equal(t, "pending", data["status"])
}

func TestRouter_MapsDomainErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", payroll.ErrPayrollRecordNotFound, http.StatusNotFound},
		{"month locked", payroll.ErrMonthLocked, http.StatusConflict},
		{"forbidden", user.ErrInsufficientPermissions, http.StatusForbidden},
		{"payment reference missing", payroll.ErrPaymentReferenceRequired, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, jwtService := newTestRouter(t, &fakePayrollService{err: tt.err})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/payroll/records/rec-1", nil)
			req.Header.Set("Authorization", "Bearer "+accessToken(t, jwtService, user.RoleOwner, "company-1"))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestRouter_CloseMonthTakesPeriodFromPath(t *testing.T) {
	svc := &fakePayrollService{}
	router, jwtService := newTestRouter(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payroll/months/2025-03/close",
		strings.NewReader(`{"payment_method":"bank_transfer","payment_reference":"BATCH-2025-03","confirm":true}`))
	req.Header.Set("Authorization", "Bearer "+accessToken(t, jwtService, user.RoleOwner, "company-1"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2025-03", svc.closeReq.PeriodMonth)
	require.NotNil(t, svc.closeReq.PaymentReference)
	assert.Equal(t, "BATCH-2025-03", *svc.closeReq.PaymentReference)
}

func TestRouter_CloseMonthReportsPaymentsWhenLeftOpen(t *testing.T) {
	svc := &fakePayrollService{
		err:       fmt.Errorf("%w: 1 of 2 records changed while paying, month left open", payroll.ErrRecordsNotApproved),
		closeResp: payroll.CloseMonthResponse{Result: payroll.BatchResult{Matched: 2, Updated: 2}},
	}
	router, jwtService := newTestRouter(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payroll/months/2025-03/close",
		strings.NewReader(`{"payment_method":"bank_transfer","payment_reference":"BATCH-2025-03","confirm":true}`))
	req.Header.Set("Authorization", "Bearer "+accessToken(t, jwtService, user.RoleOwner, "company-1"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)

	var body struct {
		Data payroll.CloseMonthResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Data.Result.Updated)
	assert.Nil(t, body.Data.Lock)
}

func TestRouter_Heartbeat(t *testing.T) {
	router, _ := newTestRouter(t, &fakePayrollService{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
