package audit

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/audit"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/user"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/logger"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	created []audit.Entry
	err     error
	filter  audit.Filter
}

func (f *fakeRepo) Create(ctx context.Context, entry audit.Entry) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, entry)
	return nil
}

func (f *fakeRepo) List(ctx context.Context, companyID string, filter audit.Filter) ([]audit.Entry, int64, error) {
	f.filter = filter
	return f.created, int64(len(f.created)), nil
}

func TestRecord_FillsDefaults(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewAuditService(repo, logger.Nop())
	svc.now = func() time.Time { return time.Date(2024, 6, 30, 10, 0, 0, 0, time.UTC) }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc.Record(ctx, audit.Entry{CompanyID: "c1", EntityType: audit.EntityPayrollRecord, Action: audit.ActionPayrollApproved, ActorID: "u1"})

	require.Len(t, repo.created, 1)
	entry := repo.created[0]
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, time.Date(2024, 6, 30, 10, 0, 0, 0, time.UTC), entry.CreatedAt)
	assert.NotNil(t, entry.Metadata)
}

func TestRecord_FailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	log := &logger.Logger{Logger: zerolog.New(&buf)}
	svc := NewAuditService(&fakeRepo{err: errors.New("db down")}, log)

	assert.NotPanics(t, func() {
		svc.Record(context.Background(), audit.Entry{CompanyID: "c1", Action: audit.ActionMonthLocked, ActorID: "u1"})
	})
	assert.Contains(t, buf.String(), "audit write failed")
	assert.Contains(t, buf.String(), "payroll.month_locked")
}

func TestList(t *testing.T) {
	before := map[string]interface{}{"status": "draft"}
	after := map[string]interface{}{"status": "approved"}
	repo := &fakeRepo{created: []audit.Entry{{ID: "a1", Action: audit.ActionPayrollApproved, Before: before, After: after}}}
	svc := NewAuditService(repo, logger.Nop())

	t.Run("employee is forbidden", func(t *testing.T) {
		_, err := svc.List(context.Background(), user.Viewer{UserID: "u-emp", CompanyID: "c1", Role: user.RoleEmployee}, audit.ListRequest{})
		assert.ErrorIs(t, err, user.ErrInsufficientPermissions)
	})

	t.Run("viewer without user id", func(t *testing.T) {
		_, err := svc.List(context.Background(), user.Viewer{CompanyID: "c1", Role: user.RoleOwner}, audit.ListRequest{})
		assert.ErrorIs(t, err, user.ErrUserIDRequired)
	})

	t.Run("invalid entity type", func(t *testing.T) {
		bad := "invoice"
		_, err := svc.List(context.Background(), user.Viewer{UserID: "u-owner", CompanyID: "c1", Role: user.RoleOwner}, audit.ListRequest{EntityType: &bad})
		assert.ErrorIs(t, err, audit.ErrInvalidEntityType)
	})

	t.Run("diffs entries and applies paging defaults", func(t *testing.T) {
		resp, err := svc.List(context.Background(), user.Viewer{UserID: "u-hr", CompanyID: "c1", Role: user.RoleManager}, audit.ListRequest{Limit: 500})
		require.NoError(t, err)

		assert.Equal(t, 1, repo.filter.Page)
		assert.Equal(t, 20, repo.filter.Limit)
		require.Len(t, resp.Data, 1)
		assert.Equal(t, []audit.FieldChange{{Field: "status", From: "draft", To: "approved"}}, resp.Data[0].Changes)
	})
}
