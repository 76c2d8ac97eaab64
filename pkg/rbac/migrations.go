package rbac

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns the schema migrations for the admin backend
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create users table",
			SQL: `
				CREATE TABLE IF NOT EXISTS users (
					id UUID PRIMARY KEY,
					email VARCHAR(255) NOT NULL UNIQUE,
					name VARCHAR(255),
					password_hash TEXT,
					platform_role VARCHAR(50) NOT NULL DEFAULT 'member',
					banned BOOLEAN NOT NULL DEFAULT FALSE,
					ban_reason TEXT,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_users_platform_role ON users(platform_role);
			`,
		},
		{
			Version:     2,
			Description: "Create organizations and organization_members tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS organizations (
					id UUID PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					slug VARCHAR(255) NOT NULL UNIQUE,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE TABLE IF NOT EXISTS organization_members (
					organization_id UUID NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
					user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					role VARCHAR(50) NOT NULL DEFAULT 'member',
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					PRIMARY KEY (organization_id, user_id)
				);

				CREATE INDEX IF NOT EXISTS idx_org_members_user_id ON organization_members(user_id);
				CREATE INDEX IF NOT EXISTS idx_org_members_role ON organization_members(organization_id, role);
			`,
		},
		{
			Version:     3,
			Description: "Create roles, permissions and role_permissions tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS roles (
					id UUID PRIMARY KEY,
					name VARCHAR(255) NOT NULL UNIQUE,
					display_name VARCHAR(255) NOT NULL,
					description TEXT,
					is_system BOOLEAN NOT NULL DEFAULT FALSE,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE TABLE IF NOT EXISTS permissions (
					id UUID PRIMARY KEY,
					resource VARCHAR(255) NOT NULL,
					action VARCHAR(255) NOT NULL,
					description TEXT,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					UNIQUE(resource, action)
				);

				CREATE TABLE IF NOT EXISTS role_permissions (
					role_id UUID NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
					permission_id UUID NOT NULL REFERENCES permissions(id) ON DELETE CASCADE,
					PRIMARY KEY (role_id, permission_id)
				);
			`,
		},
		{
			Version:     4,
			Description: "Create sessions table",
			SQL: `
				CREATE TABLE IF NOT EXISTS sessions (
					token UUID PRIMARY KEY,
					user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					impersonated_by UUID REFERENCES users(id) ON DELETE SET NULL,
					active_organization_id UUID REFERENCES organizations(id) ON DELETE SET NULL,
					expires_at TIMESTAMPTZ NOT NULL,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id);
				CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);
			`,
		},
		{
			Version:     5,
			Description: "Create audit_logs table",
			SQL: `
				CREATE TABLE IF NOT EXISTS audit_logs (
					id UUID PRIMARY KEY,
					actor_id UUID,
					target_id UUID,
					action VARCHAR(100) NOT NULL,
					outcome VARCHAR(50) NOT NULL,
					reason TEXT,
					occurred_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_audit_logs_actor_id ON audit_logs(actor_id);
				CREATE INDEX IF NOT EXISTS idx_audit_logs_occurred_at ON audit_logs(occurred_at);
			`,
		},
		{
			Version:     6,
			Description: "Seed system roles and default permission catalog",
			SQL: `
				INSERT INTO roles (id, name, display_name, description, is_system) VALUES
					(gen_random_uuid(), 'admin', 'Administrator', 'Full platform access', TRUE),
					(gen_random_uuid(), 'manager', 'Manager', 'Manages members of an organization', TRUE),
					(gen_random_uuid(), 'member', 'Member', 'Standard account', TRUE)
				ON CONFLICT (name) DO NOTHING;

				INSERT INTO permissions (id, resource, action, description) VALUES
					(gen_random_uuid(), 'user', 'read', 'View user accounts'),
					(gen_random_uuid(), 'user', 'update', 'Edit user profiles'),
					(gen_random_uuid(), 'user', 'ban', 'Ban and unban users'),
					(gen_random_uuid(), 'user', 'delete', 'Remove user accounts'),
					(gen_random_uuid(), 'user', 'set_role', 'Assign roles to users'),
					(gen_random_uuid(), 'user', 'impersonate', 'Impersonate users'),
					(gen_random_uuid(), 'session', 'revoke', 'Revoke user sessions'),
					(gen_random_uuid(), 'organization', 'read', 'View organizations'),
					(gen_random_uuid(), 'organization', 'manage', 'Create and edit organizations'),
					(gen_random_uuid(), 'role', 'read', 'View roles and permissions'),
					(gen_random_uuid(), 'role', 'manage', 'Create roles and edit permission grants')
				ON CONFLICT (resource, action) DO NOTHING;
			`,
		},
	}
}

// RunMigrations applies all migrations in order, tracking applied versions
func RunMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	for _, m := range GetMigrations() {
		var one int
		err := db.QueryRowContext(ctx, `SELECT 1 FROM schema_migrations WHERE version = $1`, m.Version).Scan(&one)
		if err == nil {
			continue
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("failed to check migration %d: %w", m.Version, err)
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", m.Version, err)
		}
		if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to apply migration %d (%s): %w", m.Version, m.Description, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, description) VALUES ($1, $2)`,
			m.Version, m.Description); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.Version, err)
		}
	}
	return nil
}
