package session_test

import (
	"testing"

	session "github.com/radpanel/go-session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	role, ok := session.ParseRole("radiologist")
	require.True(t, ok)
	assert.Equal(t, session.RoleRadiologist, role)

	_, ok = session.ParseRole("superhero")
	assert.False(t, ok)
}

func TestAllRolesAreValid(t *testing.T) {
	for _, role := range session.AllRoles() {
		assert.True(t, role.IsValid(), "role %s should be valid", role)
	}
	assert.False(t, session.Role("superhero").IsValid())
}

func TestHasRole(t *testing.T) {
	user := &session.User{Role: session.RoleCMSEditor}

	assert.True(t, session.HasRole(user, session.RoleCMSEditor))
	assert.False(t, session.HasRole(user, session.RoleAdmin))
	assert.False(t, session.HasRole(nil, session.RoleCMSEditor))
}

func TestHasPermissionMembership(t *testing.T) {
	user := &session.User{
		Role:        session.RoleCMSEditor,
		Permissions: []session.Permission{session.PermContentManage, session.PermFilesUpload},
	}

	assert.True(t, session.HasPermission(user, session.PermContentManage))
	assert.True(t, session.HasPermission(user, session.PermFilesUpload))
	assert.False(t, session.HasPermission(user, session.PermUsersManage))
}

func TestHasPermissionAdminBypass(t *testing.T) {
	admin := &session.User{Role: session.RoleAdmin}

	// admins pass every permission check regardless of the grant list
	assert.True(t, session.HasPermission(admin, session.PermUsersManage))
	assert.True(t, session.HasPermission(admin, session.PermContentManage))
	assert.True(t, session.HasPermission(admin, session.PermReportsView))
}

func TestHasPermissionNilUser(t *testing.T) {
	assert.False(t, session.HasPermission(nil, session.PermContentManage))
}
