package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	t.Run("known roles", func(t *testing.T) {
		assert.Equal(t, RoleAdmin, ParseRole("admin"))
		assert.Equal(t, RoleManager, ParseRole("manager"))
		assert.Equal(t, RoleMember, ParseRole("member"))
	})

	t.Run("unknown values normalize to member", func(t *testing.T) {
		assert.Equal(t, RoleMember, ParseRole(""))
		assert.Equal(t, RoleMember, ParseRole("superadmin"))
		assert.Equal(t, RoleMember, ParseRole("Admin"))
	})
}

func TestRoleLevel(t *testing.T) {
	assert.Equal(t, 2, RoleAdmin.Level())
	assert.Equal(t, 1, RoleManager.Level())
	assert.Equal(t, 0, RoleMember.Level())
	assert.Equal(t, 0, Role("owner").Level())
}

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleAdmin.Valid())
	assert.True(t, RoleManager.Valid())
	assert.True(t, RoleMember.Valid())
	assert.False(t, Role("owner").Valid())
	assert.False(t, Role("").Valid())
}

func TestAssignableRoles(t *testing.T) {
	t.Run("admin can assign everything", func(t *testing.T) {
		got := AssignableRoles(AllRoles, RoleAdmin)
		assert.Equal(t, []Role{RoleAdmin, RoleManager, RoleMember}, got)
	})

	t.Run("manager cannot assign admin", func(t *testing.T) {
		got := AssignableRoles(AllRoles, RoleManager)
		assert.Equal(t, []Role{RoleManager, RoleMember}, got)
	})

	t.Run("member can only assign member", func(t *testing.T) {
		got := AssignableRoles(AllRoles, RoleMember)
		assert.Equal(t, []Role{RoleMember}, got)
	})

	t.Run("monotonic in requester level", func(t *testing.T) {
		// Each step up the hierarchy must yield a superset of the step below.
		previous := map[Role]bool{}
		for _, requester := range []Role{RoleMember, RoleManager, RoleAdmin} {
			current := map[Role]bool{}
			for _, r := range AssignableRoles(AllRoles, requester) {
				current[r] = true
			}
			for r := range previous {
				assert.True(t, current[r], "role %s lost when escalating to %s", r, requester)
			}
			previous = current
		}
	})
}
