package orgs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/stewardhq/steward/pkg/auth"
)

// IsMember reports whether the user has a membership row in the organization.
// Used by the policy layer for manager organization scoping.
func (s *PostgresService) IsMember(ctx context.Context, orgID, userID string) (bool, error) {
	query := `SELECT 1 FROM organization_members WHERE organization_id = $1 AND user_id = $2`
	var one int
	err := s.db.QueryRowContext(ctx, query, orgID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return true, nil
}

// GetMember retrieves a single membership row
func (s *PostgresService) GetMember(ctx context.Context, orgID, userID string) (*Member, error) {
	query := `
		SELECT organization_id, user_id, role, created_at, updated_at
		FROM organization_members
		WHERE organization_id = $1 AND user_id = $2
	`
	m := &Member{}
	var role string
	err := s.db.QueryRowContext(ctx, query, orgID, userID).
		Scan(&m.OrganizationID, &m.UserID, &role, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.NewNotFound("membership")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	m.Role = auth.ParseRole(role)
	return m, nil
}

// ListMembers retrieves all members of an organization with user details
func (s *PostgresService) ListMembers(ctx context.Context, orgID string) ([]*MemberDetail, error) {
	query := `
		SELECT m.organization_id, m.user_id, m.role, m.created_at, m.updated_at,
		       u.email, u.name
		FROM organization_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.organization_id = $1
		ORDER BY m.created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*MemberDetail
	for rows.Next() {
		md := &MemberDetail{}
		var role string
		var name sql.NullString
		if err := rows.Scan(
			&md.OrganizationID, &md.UserID, &role, &md.CreatedAt, &md.UpdatedAt,
			&md.Email, &name,
		); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		md.Role = auth.ParseRole(role)
		if name.Valid {
			md.Name = name.String
		}
		members = append(members, md)
	}
	return members, rows.Err()
}

// AdminCount returns the live number of admin membership rows in the
// organization. The role synchronizer consults this inside its transaction
// to refuse demoting an organization's last admin; it is never cached.
func (s *PostgresService) AdminCount(ctx context.Context, orgID string) (int, error) {
	query := `SELECT COUNT(*) FROM organization_members WHERE organization_id = $1 AND role = 'admin'`
	var count int
	if err := s.db.QueryRowContext(ctx, query, orgID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count admins: %w", err)
	}
	return count, nil
}

// MostRecentMembership returns the user's newest membership row, or a
// NotFound error when the user belongs to no organization. The role
// synchronizer uses this to resolve the organization scope when an admin
// actor assigns a role without an active organization.
func (s *PostgresService) MostRecentMembership(ctx context.Context, userID string) (*Member, error) {
	query := `
		SELECT organization_id, user_id, role, created_at, updated_at
		FROM organization_members
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	m := &Member{}
	var role string
	err := s.db.QueryRowContext(ctx, query, userID).
		Scan(&m.OrganizationID, &m.UserID, &role, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.NewNotFound("membership")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get most recent membership: %w", err)
	}
	m.Role = auth.ParseRole(role)
	return m, nil
}
