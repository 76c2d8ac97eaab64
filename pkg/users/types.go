package users

import (
	"github.com/stewardhq/steward/pkg/auth"
)

// Actor identifies who is performing an administrative operation. A nil ID
// marks a system-initiated action, which bypasses the policy checks.
type Actor struct {
	ID          *string
	Role        auth.Role
	ActiveOrgID *string
}

// IsSystem reports whether the operation has no human actor behind it.
func (a Actor) IsSystem() bool {
	return a.ID == nil
}

// Is reports whether the actor is the user with the given ID.
func (a Actor) Is(userID string) bool {
	return a.ID != nil && *a.ID == userID
}

// SystemActor returns the actor used for internally triggered operations.
func SystemActor() Actor {
	return Actor{Role: auth.RoleAdmin}
}

// ProfileUpdate carries the editable profile fields. Nil fields are left
// untouched.
type ProfileUpdate struct {
	Email *string `json:"email,omitempty"`
	Name  *string `json:"name,omitempty"`
}

// Empty reports whether the update would change nothing.
func (p ProfileUpdate) Empty() bool {
	return p.Email == nil && p.Name == nil
}

// ListOptions controls user listing pagination.
type ListOptions struct {
	Limit  int
	Offset int
}

// UserPage is one page of user projections plus the total match count.
type UserPage struct {
	Users []*auth.User `json:"users"`
	Total int          `json:"total"`
}
