package user

type Role string

const (
	RoleOwner    Role = "owner"    // Company owner - full access
	RoleManager  Role = "manager"  // Runs payroll operations
	RoleEmployee Role = "employee" // Regular employee
	RolePending  Role = "pending"  // Still in onboarding
)

// Viewer is the principal performing an operation. It is built from the
// verified access token on every request and is never persisted.
type Viewer struct {
	UserID     string
	EmployeeID *string
	CompanyID  string
	Role       Role

	// Extra grants on top of the role, e.g. "payroll.*" or "*".
	Permissions []Permission
}

// Can reports whether the viewer holds the permission through its role or
// through an explicit grant.
func (v Viewer) Can(permission Permission) bool {
	if HasPermission(v.Role, permission) {
		return true
	}
	for _, granted := range v.Permissions {
		if granted.Matches(permission) {
			return true
		}
	}
	return false
}
