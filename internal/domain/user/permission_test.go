package user

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasPermission(t *testing.T) {
	assert.True(t, HasPermission(RoleOwner, PermissionPayrollOverrideLock))
	assert.True(t, HasPermission(RoleManager, PermissionPayrollApprove))
	assert.False(t, HasPermission(RoleManager, PermissionPayrollUnlock))
	assert.False(t, HasPermission(RoleManager, PermissionPayrollOverrideLock))
	assert.False(t, HasPermission(RoleEmployee, PermissionPayrollView))
	assert.False(t, HasPermission(Role("unknown"), PermissionPayrollView))
}

func TestPermission_Matches(t *testing.T) {
	cases := []struct {
		granted  Permission
		required Permission
		want     bool
	}{
		{PermissionAll, PermissionPayrollUnlock, true},
		{"payroll.*", PermissionPayrollUnlock, true},
		{"payroll.*", PermissionSalaryManage, false},
		{PermissionPayrollView, PermissionPayrollView, true},
		{PermissionPayrollView, PermissionPayrollApprove, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.granted.Matches(c.required), "%s covers %s", c.granted, c.required)
	}
}

func TestViewer_CanWithGrant(t *testing.T) {
	v := Viewer{UserID: "u1", CompanyID: "c1", Role: RoleManager, Permissions: []Permission{PermissionPayrollUnlock}}

	assert.True(t, v.Can(PermissionPayrollUnlock))
	assert.True(t, v.Can(PermissionPayrollApprove))
	assert.False(t, v.Can(PermissionPayrollOverrideLock))
}

func TestAuthorize(t *testing.T) {
	t.Run("allowed", func(t *testing.T) {
		err := Authorize(Viewer{UserID: "u1", CompanyID: "c1", Role: RoleOwner}, PermissionPayrollSetStatus)
		assert.NoError(t, err)
	})

	t.Run("denied", func(t *testing.T) {
		err := Authorize(Viewer{UserID: "u1", CompanyID: "c1", Role: RoleEmployee}, PermissionPayrollApprove)
		assert.True(t, errors.Is(err, ErrInsufficientPermissions))
	})

	t.Run("missing company", func(t *testing.T) {
		err := Authorize(Viewer{UserID: "u1", Role: RoleOwner}, PermissionPayrollView)
		assert.ErrorIs(t, err, ErrCompanyIDRequired)
	})
}
