package orgs

import (
	"regexp"
	"time"

	"github.com/stewardhq/steward/pkg/auth"
)

// Organization represents a tenant.
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Member represents a user's membership in one organization. The role here
// is organization-scoped and independent of the user's platform role. A user
// has at most one membership row per organization; platform admins typically
// have none, since global scope supersedes organization scope.
type Member struct {
	OrganizationID string    `json:"organization_id"`
	UserID         string    `json:"user_id"`
	Role           auth.Role `json:"role"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// MemberDetail is a member joined with user display fields for listings.
type MemberDetail struct {
	Member
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// CreateOrgRequest represents a request to create an organization.
type CreateOrgRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// UpdateOrgRequest represents a request to update an organization.
type UpdateOrgRequest struct {
	Name *string `json:"name,omitempty"`
	Slug *string `json:"slug,omitempty"`
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// ValidSlug reports whether s is a well-formed organization slug:
// lowercase alphanumeric segments separated by single hyphens.
func ValidSlug(s string) bool {
	return slugPattern.MatchString(s)
}
