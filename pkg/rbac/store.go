package rbac

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/stewardhq/steward/pkg/auth"
)

// Store handles role and permission persistence
type Store struct {
	db *sql.DB
}

// NewStore creates a new RBAC store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// ListPermissions returns every permission ordered by resource then action
func (s *Store) ListPermissions(ctx context.Context) ([]Permission, error) {
	query := `
		SELECT id, resource, action, description, created_at
		FROM permissions
		ORDER BY resource ASC, action ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	defer rows.Close()
	return scanPermissions(rows)
}

// ListPermissionsGrouped partitions the permission catalog by resource key
func (s *Store) ListPermissionsGrouped(ctx context.Context) (map[string][]Permission, error) {
	perms, err := s.ListPermissions(ctx)
	if err != nil {
		return nil, err
	}
	grouped := make(map[string][]Permission)
	for _, p := range perms {
		grouped[p.Resource] = append(grouped[p.Resource], p)
	}
	return grouped, nil
}

// CreatePermission registers a (resource, action) pair. Uniqueness is
// enforced by the store's constraint; callers are responsible for not
// double-creating.
func (s *Store) CreatePermission(ctx context.Context, resource, action, description string) (*Permission, error) {
	resource = strings.TrimSpace(strings.ToLower(resource))
	action = strings.TrimSpace(strings.ToLower(action))
	if resource == "" || action == "" {
		return nil, auth.NewBadRequest("permission resource and action are required")
	}

	query := `
		INSERT INTO permissions (id, resource, action, description)
		VALUES ($1, $2, $3, $4)
		RETURNING id, resource, action, description, created_at
	`
	p := &Permission{}
	var desc sql.NullString
	err := s.db.QueryRowContext(ctx, query, uuid.NewString(), resource, action, nullIfEmpty(description)).
		Scan(&p.ID, &p.Resource, &p.Action, &desc, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create permission: %w", err)
	}
	if desc.Valid {
		p.Description = desc.String
	}
	return p, nil
}

// GetRolePermissions resolves a role name to its effective permission set.
// An unknown role yields an empty list, not an error.
func (s *Store) GetRolePermissions(ctx context.Context, roleName string) ([]Permission, error) {
	query := `
		SELECT p.id, p.resource, p.action, p.description, p.created_at
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		JOIN roles r ON r.id = rp.role_id
		WHERE r.name = $1
		ORDER BY p.resource ASC, p.action ASC
	`
	rows, err := s.db.QueryContext(ctx, query, roleName)
	if err != nil {
		return nil, fmt.Errorf("failed to get role permissions: %w", err)
	}
	defer rows.Close()
	return scanPermissions(rows)
}

// HasPermission answers a point lookup: does the named role carry the
// (resource, action) permission. Absent roles or pairs yield false, not an
// error.
func (s *Store) HasPermission(ctx context.Context, roleName, resource, action string) (bool, error) {
	query := `
		SELECT 1
		FROM role_permissions rp
		JOIN roles r ON r.id = rp.role_id
		JOIN permissions p ON p.id = rp.permission_id
		WHERE r.name = $1 AND p.resource = $2 AND p.action = $3
	`
	var one int
	err := s.db.QueryRowContext(ctx, query, roleName, resource, action).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check permission: %w", err)
	}
	return true, nil
}

// SetRolePermissions replaces the role's entire permission set in one
// transaction. An empty permissionIDs slice clears all permissions.
func (s *Store) SetRolePermissions(ctx context.Context, roleID string, permissionIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var one int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM roles WHERE id = $1`, roleID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.NewNotFound("role")
	}
	if err != nil {
		return fmt.Errorf("failed to check role: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
		return fmt.Errorf("failed to clear role permissions: %w", err)
	}

	for _, permID := range permissionIDs {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO role_permissions (role_id, permission_id)
			SELECT $1, id FROM permissions WHERE id = $2
		`, roleID, permID)
		if err != nil {
			return fmt.Errorf("failed to assign permission: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return auth.NewNotFound("permission")
		}
	}

	return tx.Commit()
}

// GetRole retrieves a role by ID
func (s *Store) GetRole(ctx context.Context, id string) (*CustomRole, error) {
	query := `
		SELECT id, name, display_name, description, is_system, created_at, updated_at
		FROM roles WHERE id = $1
	`
	return s.scanRoleRow(s.db.QueryRowContext(ctx, query, id))
}

// GetRoleByName retrieves a role by its unique name
func (s *Store) GetRoleByName(ctx context.Context, name string) (*CustomRole, error) {
	query := `
		SELECT id, name, display_name, description, is_system, created_at, updated_at
		FROM roles WHERE name = $1
	`
	return s.scanRoleRow(s.db.QueryRowContext(ctx, query, name))
}

// GetRoles lists every role's display metadata together with the subset of
// role names the requester's platform role may assign.
func (s *Store) GetRoles(ctx context.Context, requester auth.Role) (*RoleCatalog, error) {
	query := `
		SELECT id, name, display_name, description, is_system, created_at, updated_at
		FROM roles
		ORDER BY name ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	catalog := &RoleCatalog{AssignableRoles: []string{}}
	for rows.Next() {
		role := CustomRole{}
		var desc sql.NullString
		if err := rows.Scan(&role.ID, &role.Name, &role.DisplayName, &desc,
			&role.IsSystem, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		if desc.Valid {
			role.Description = desc.String
		}
		catalog.Roles = append(catalog.Roles, role)
		if auth.ParseRole(role.Name).Level() <= requester.Level() && auth.Role(role.Name).Valid() {
			catalog.AssignableRoles = append(catalog.AssignableRoles, role.Name)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return catalog, nil
}

// CreateRole creates a custom (non-system) role
func (s *Store) CreateRole(ctx context.Context, name, displayName, description string) (*CustomRole, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, auth.NewBadRequest("role name is required")
	}
	if displayName == "" {
		displayName = name
	}

	query := `
		INSERT INTO roles (id, name, display_name, description, is_system)
		VALUES ($1, $2, $3, $4, FALSE)
		RETURNING id, name, display_name, description, is_system, created_at, updated_at
	`
	return s.scanRoleRow(s.db.QueryRowContext(ctx, query, uuid.NewString(), name, displayName, nullIfEmpty(description)))
}

// UpdateRole updates a role's fields. System roles accept display changes
// only; renaming one is forbidden.
func (s *Store) UpdateRole(ctx context.Context, id string, req UpdateRoleRequest) (*CustomRole, error) {
	role, err := s.GetRole(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil && role.IsSystem && *req.Name != role.Name {
		return nil, auth.NewForbidden("system roles cannot be renamed")
	}
	if req.Name == nil && req.DisplayName == nil && req.Description == nil {
		return nil, auth.NewBadRequest("no fields to update")
	}

	var sets []string
	var args []interface{}
	idx := 1
	if req.Name != nil {
		sets = append(sets, fmt.Sprintf("name = $%d", idx))
		args = append(args, strings.TrimSpace(*req.Name))
		idx++
	}
	if req.DisplayName != nil {
		sets = append(sets, fmt.Sprintf("display_name = $%d", idx))
		args = append(args, *req.DisplayName)
		idx++
	}
	if req.Description != nil {
		sets = append(sets, fmt.Sprintf("description = $%d", idx))
		args = append(args, nullIfEmpty(*req.Description))
		idx++
	}
	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE roles SET %s WHERE id = $%d`, strings.Join(sets, ", "), idx)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}
	return s.GetRole(ctx, id)
}

// DeleteRole removes a custom role. System roles are protected.
func (s *Store) DeleteRole(ctx context.Context, id string) error {
	role, err := s.GetRole(ctx, id)
	if err != nil {
		return err
	}
	if role.IsSystem {
		return auth.NewForbidden("system roles cannot be deleted")
	}
	result, err := s.db.ExecContext(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return auth.NewNotFound("role")
	}
	return nil
}

func (s *Store) scanRoleRow(row *sql.Row) (*CustomRole, error) {
	role := &CustomRole{}
	var desc sql.NullString
	err := row.Scan(&role.ID, &role.Name, &role.DisplayName, &desc,
		&role.IsSystem, &role.CreatedAt, &role.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.NewNotFound("role")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	if desc.Valid {
		role.Description = desc.String
	}
	return role, nil
}

func scanPermissions(rows *sql.Rows) ([]Permission, error) {
	var perms []Permission
	for rows.Next() {
		p := Permission{}
		var desc sql.NullString
		if err := rows.Scan(&p.ID, &p.Resource, &p.Action, &desc, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		if desc.Valid {
			p.Description = desc.String
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

func nullIfEmpty(s string) sql.NullString {
	s = strings.TrimSpace(s)
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
