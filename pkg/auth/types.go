package auth

import "time"

// Role represents a privilege tier. The same closed set is used for a user's
// global platform role and for their role within a single organization.
type Role string

const (
	RoleMember  Role = "member"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// AllRoles lists every valid role, highest privilege first.
var AllRoles = []Role{RoleAdmin, RoleManager, RoleMember}

// ParseRole maps a stored role value onto the closed role set. Unrecognized
// values normalize to member so a corrupt or legacy value can never grant
// elevated privilege.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleAdmin, RoleManager, RoleMember:
		return Role(s)
	default:
		return RoleMember
	}
}

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleMember:
		return true
	}
	return false
}

// Level returns the ordinal rank of the role: member=0, manager=1, admin=2.
// Unknown roles rank as member.
func (r Role) Level() int {
	switch r {
	case RoleAdmin:
		return 2
	case RoleManager:
		return 1
	default:
		return 0
	}
}

// AssignableRoles filters candidates down to the roles the requester may
// assign to others: exactly those at or below the requester's own level.
// A higher-level requester always receives a superset of a lower one.
func AssignableRoles(candidates []Role, requester Role) []Role {
	max := requester.Level()
	out := make([]Role, 0, len(candidates))
	for _, c := range candidates {
		if c.Level() <= max {
			out = append(out, c)
		}
	}
	return out
}

// User represents a managed account. PlatformRole is the single source of
// truth for global privilege; organization-scoped roles live on membership
// rows and are kept consistent with it by the role synchronizer.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name,omitempty"`
	PlatformRole Role      `json:"platform_role"`
	Banned       bool      `json:"banned"`
	BanReason    string    `json:"ban_reason,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
