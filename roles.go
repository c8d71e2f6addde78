package session

// Role is the closed set of roles the CMS backend assigns to users.
type Role string

const (
	// RoleUser is a plain account with no admin surface access
	RoleUser Role = "user"
	// RoleRadiologist can review studies and reports
	RoleRadiologist Role = "radiologist"
	// RoleAdmin has every permission implicitly
	RoleAdmin Role = "admin"
	// RoleCMSEditor manages site content and services
	RoleCMSEditor Role = "cms_editor"
	// RoleSalesAgent works contact requests and leads
	RoleSalesAgent Role = "sales_agent"
	// RoleHR manages staff accounts
	RoleHR Role = "hr"
	// RoleAccountant has access to billing exports
	RoleAccountant Role = "accountant"
)

// Permission names a single grantable capability. The vocabulary mirrors the
// admin screens: one manage permission per CRUD surface.
type Permission string

const (
	PermContentManage  Permission = "content.manage"
	PermServicesManage Permission = "services.manage"
	PermContactsView   Permission = "contacts.view"
	PermLeadsManage    Permission = "leads.manage"
	PermFilesUpload    Permission = "files.upload"
	PermUsersManage    Permission = "users.manage"
	PermReportsView    Permission = "reports.view"
)

// IsValid checks if the role is one of the predefined valid roles
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleRadiologist, RoleAdmin, RoleCMSEditor, RoleSalesAgent, RoleHR, RoleAccountant:
		return true
	default:
		return false
	}
}

// AllRoles returns the predefined roles
func AllRoles() []Role {
	return []Role{
		RoleUser,
		RoleRadiologist,
		RoleAdmin,
		RoleCMSEditor,
		RoleSalesAgent,
		RoleHR,
		RoleAccountant,
	}
}

// ParseRole safely parses a string into a Role
func ParseRole(raw string) (Role, bool) {
	role := Role(raw)
	return role, role.IsValid()
}

// HasRole reports whether user holds exactly the given role. A nil user
// (no session) never matches.
func HasRole(user *User, role Role) bool {
	if user == nil {
		return false
	}
	return user.Role == role
}

// HasPermission reports whether user may perform the action named by perm.
// Admins pass every check regardless of their permission set; everyone else
// needs the permission granted explicitly. A nil user never passes.
func HasPermission(user *User, perm Permission) bool {
	if user == nil {
		return false
	}
	if user.Role == RoleAdmin {
		return true
	}
	for _, p := range user.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}
