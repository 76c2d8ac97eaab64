package orgs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/stewardhq/steward/pkg/auth"
)

// PostgresService implements organization management over PostgreSQL.
// Membership rows are read here but written only by the role synchronizer
// in pkg/users, which owns the transaction that keeps a user's platform
// role and their membership row consistent.
type PostgresService struct {
	db *sql.DB
}

// NewPostgresService creates a new organization service
func NewPostgresService(db *sql.DB) *PostgresService {
	return &PostgresService{db: db}
}

// CreateOrganization creates a new organization with a unique slug
func (s *PostgresService) CreateOrganization(ctx context.Context, req CreateOrgRequest) (*Organization, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, auth.NewBadRequest("organization name is required")
	}
	slug := strings.TrimSpace(req.Slug)
	if !ValidSlug(slug) {
		return nil, auth.NewBadRequest("organization slug must be lowercase alphanumeric with single hyphens")
	}

	query := `
		INSERT INTO organizations (id, name, slug)
		VALUES ($1, $2, $3)
		RETURNING id, name, slug, created_at, updated_at
	`
	org := &Organization{}
	err := s.db.QueryRowContext(ctx, query, uuid.NewString(), name, slug).
		Scan(&org.ID, &org.Name, &org.Slug, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, auth.NewBadRequest("organization slug already in use")
		}
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}
	return org, nil
}

// GetOrganization retrieves an organization by ID
func (s *PostgresService) GetOrganization(ctx context.Context, id string) (*Organization, error) {
	query := `SELECT id, name, slug, created_at, updated_at FROM organizations WHERE id = $1`
	org := &Organization{}
	err := s.db.QueryRowContext(ctx, query, id).
		Scan(&org.ID, &org.Name, &org.Slug, &org.CreatedAt, &org.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.NewNotFound("organization")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return org, nil
}

// GetOrganizationBySlug retrieves an organization by slug
func (s *PostgresService) GetOrganizationBySlug(ctx context.Context, slug string) (*Organization, error) {
	query := `SELECT id, name, slug, created_at, updated_at FROM organizations WHERE slug = $1`
	org := &Organization{}
	err := s.db.QueryRowContext(ctx, query, slug).
		Scan(&org.ID, &org.Name, &org.Slug, &org.CreatedAt, &org.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.NewNotFound("organization")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return org, nil
}

// ListOrganizations lists all organizations ordered by name
func (s *PostgresService) ListOrganizations(ctx context.Context) ([]*Organization, error) {
	query := `SELECT id, name, slug, created_at, updated_at FROM organizations ORDER BY name ASC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	var result []*Organization
	for rows.Next() {
		org := &Organization{}
		if err := rows.Scan(&org.ID, &org.Name, &org.Slug, &org.CreatedAt, &org.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		result = append(result, org)
	}
	return result, rows.Err()
}

// UpdateOrganization updates an organization's name and/or slug
func (s *PostgresService) UpdateOrganization(ctx context.Context, id string, req UpdateOrgRequest) (*Organization, error) {
	if req.Name == nil && req.Slug == nil {
		return nil, auth.NewBadRequest("no fields to update")
	}

	var sets []string
	var args []interface{}
	idx := 1
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, auth.NewBadRequest("organization name is required")
		}
		sets = append(sets, fmt.Sprintf("name = $%d", idx))
		args = append(args, name)
		idx++
	}
	if req.Slug != nil {
		if !ValidSlug(*req.Slug) {
			return nil, auth.NewBadRequest("organization slug must be lowercase alphanumeric with single hyphens")
		}
		sets = append(sets, fmt.Sprintf("slug = $%d", idx))
		args = append(args, *req.Slug)
		idx++
	}
	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE organizations SET %s WHERE id = $%d`, strings.Join(sets, ", "), idx)
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, auth.NewBadRequest("organization slug already in use")
		}
		return nil, fmt.Errorf("failed to update organization: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return nil, auth.NewNotFound("organization")
	}
	return s.GetOrganization(ctx, id)
}

// DeleteOrganization removes an organization and, via cascade, its memberships
func (s *PostgresService) DeleteOrganization(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return auth.NewNotFound("organization")
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
