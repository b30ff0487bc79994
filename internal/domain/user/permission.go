package user

import (
	"fmt"
	"strings"
)

type Permission string

const (
	// Payroll records
	PermissionPayrollView     Permission = "payroll.view"
	PermissionPayrollGenerate Permission = "payroll.generate"
	PermissionPayrollApprove  Permission = "payroll.approve"
	PermissionPayrollMarkPaid Permission = "payroll.mark_paid"
	PermissionPayrollDelete   Permission = "payroll.delete"

	// Month close
	PermissionPayrollCloseMonth Permission = "payroll.close_month"
	PermissionPayrollUnlock     Permission = "payroll.unlock"

	// Top administrative capabilities
	PermissionPayrollOverrideLock Permission = "payroll.override_lock"
	PermissionPayrollSetStatus    Permission = "payroll.set_status"

	// Salary structures
	PermissionSalaryView   Permission = "salary.view"
	PermissionSalaryManage Permission = "salary.manage"

	// Audit trail
	PermissionAuditView Permission = "audit.view"

	PermissionAll Permission = "*"
)

// RolePermissions maps roles to their permissions
var RolePermissions = map[Role][]Permission{
	RoleOwner: {
		// Owner has all permissions
		PermissionPayrollView,
		PermissionPayrollGenerate,
		PermissionPayrollApprove,
		PermissionPayrollMarkPaid,
		PermissionPayrollDelete,
		PermissionPayrollCloseMonth,
		PermissionPayrollUnlock,
		PermissionPayrollOverrideLock,
		PermissionPayrollSetStatus,
		PermissionSalaryView,
		PermissionSalaryManage,
		PermissionAuditView,
	},
	RoleManager: {
		// Manager runs the monthly cycle but cannot reopen or override a closed month
		PermissionPayrollView,
		PermissionPayrollGenerate,
		PermissionPayrollApprove,
		PermissionPayrollMarkPaid,
		PermissionPayrollDelete,
		PermissionPayrollCloseMonth,
		PermissionSalaryView,
		PermissionSalaryManage,
		PermissionAuditView,
	},
	RoleEmployee: {},
	RolePending: {
		// Pending role has no permissions
	},
}

// HasPermission checks if a role has a specific permission
func HasPermission(role Role, permission Permission) bool {
	permissions, exists := RolePermissions[role]
	if !exists {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}

	return false
}

// Matches reports whether a granted permission covers the required one.
// Supports "*" and "resource.*" wildcards.
func (p Permission) Matches(required Permission) bool {
	if p == PermissionAll || p == required {
		return true
	}
	if strings.HasSuffix(string(p), ".*") {
		prefix := strings.TrimSuffix(string(p), "*")
		return strings.HasPrefix(string(required), prefix)
	}
	return false
}

// Authorize is the single capability check used by every service operation.
func Authorize(viewer Viewer, permission Permission) error {
	if viewer.CompanyID == "" {
		return ErrCompanyIDRequired
	}
	if viewer.UserID == "" {
		return ErrUserIDRequired
	}
	if !viewer.Can(permission) {
		return fmt.Errorf("%w: required '%s', role '%s'", ErrInsufficientPermissions, permission, viewer.Role)
	}
	return nil
}
