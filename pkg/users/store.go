package users

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/stewardhq/steward/pkg/auth"
)

const userColumns = "id, email, name, platform_role, banned, ban_reason, created_at, updated_at"

// PostgresStore implements user persistence over PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgresStore
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Get retrieves a user projection by ID.
func (s *PostgresStore) Get(ctx context.Context, id string) (*auth.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE id = $1", userColumns)
	return scanUser(s.db.QueryRowContext(ctx, query, id))
}

// GetByEmail retrieves a user projection by email.
func (s *PostgresStore) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE email = $1", userColumns)
	return scanUser(s.db.QueryRowContext(ctx, query, email))
}

// List returns one page of users ordered by creation time plus the total
// count.
func (s *PostgresStore) List(ctx context.Context, opts ListOptions) (*UserPage, error) {
	limit := opts.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM users
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, userColumns)
	rows, err := s.db.QueryContext(ctx, query, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	page := &UserPage{Users: []*auth.User{}, Total: total}
	for rows.Next() {
		user, err := scanUserRow(rows)
		if err != nil {
			return nil, err
		}
		page.Users = append(page.Users, user)
	}
	return page, rows.Err()
}

// PlatformRole resolves a user's stored platform role. Unknown stored
// values normalize to member.
func (s *PostgresStore) PlatformRole(ctx context.Context, userID string) (auth.Role, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, "SELECT platform_role FROM users WHERE id = $1", userID).Scan(&raw)
	if err == sql.ErrNoRows {
		return "", auth.NewNotFound("user")
	}
	if err != nil {
		return "", fmt.Errorf("failed to get platform role: %w", err)
	}
	return auth.ParseRole(raw), nil
}

// UpdateProfile applies the non-nil profile fields and returns the updated
// projection.
func (s *PostgresStore) UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (*auth.User, error) {
	sets := []string{}
	args := []interface{}{}
	i := 1
	if update.Email != nil {
		sets = append(sets, fmt.Sprintf("email = $%d", i))
		args = append(args, strings.ToLower(strings.TrimSpace(*update.Email)))
		i++
	}
	if update.Name != nil {
		sets = append(sets, fmt.Sprintf("name = $%d", i))
		args = append(args, *update.Name)
		i++
	}
	if len(sets) == 0 {
		return nil, auth.NewBadRequest("no fields to update")
	}
	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf("UPDATE users SET %s WHERE id = $%d RETURNING %s",
		strings.Join(sets, ", "), i, userColumns)
	user, err := scanUser(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, auth.NewBadRequest("email already in use")
		}
		return nil, err
	}
	return user, nil
}

// SetPasswordHash stores a new password hash.
func (s *PostgresStore) SetPasswordHash(ctx context.Context, id, hash string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2", hash, id)
	if err != nil {
		return fmt.Errorf("failed to set password: %w", err)
	}
	return requireAffected(res, "user")
}

// SetBan sets or clears the ban flag. The reason is stored only while the
// ban is in effect.
func (s *PostgresStore) SetBan(ctx context.Context, id string, banned bool, reason string) error {
	var reasonArg sql.NullString
	if banned && reason != "" {
		reasonArg = sql.NullString{String: reason, Valid: true}
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET banned = $1, ban_reason = $2, updated_at = NOW() WHERE id = $3",
		banned, reasonArg, id)
	if err != nil {
		return fmt.Errorf("failed to update ban state: %w", err)
	}
	return requireAffected(res, "user")
}

// Delete removes a user. Membership and session rows follow by cascade.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return requireAffected(res, "user")
}

// DeleteMany removes the given users in a single statement. If any ID no
// longer resolves the whole delete is rolled back.
func (s *PostgresStore) DeleteMany(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM users WHERE id = ANY($1)", pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to delete users: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected != int64(len(ids)) {
		return auth.NewNotFound("user")
	}
	return tx.Commit()
}

// AssignRole updates a user's platform role and synchronizes their
// membership rows in one transaction.
//
// Promotion to admin clears every membership row, so repeating it is
// idempotent. Any other role is written onto the membership row in orgID,
// inserting one if the user is not yet a member there. A membership that
// currently carries the org admin role may not be stepped down while it is
// the organization's last one; the count is taken inside the transaction.
func (s *PostgresStore) AssignRole(ctx context.Context, targetID string, newRole auth.Role, orgID string) (*auth.User, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if newRole != auth.RoleAdmin {
		if err := guardLastAdmin(ctx, tx, orgID, targetID); err != nil {
			return nil, err
		}
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE users SET platform_role = $1, updated_at = NOW() WHERE id = $2",
		string(newRole), targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to update platform role: %w", err)
	}
	if err := requireAffected(res, "user"); err != nil {
		return nil, err
	}

	if newRole == auth.RoleAdmin {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM organization_members WHERE user_id = $1", targetID); err != nil {
			return nil, fmt.Errorf("failed to clear memberships: %w", err)
		}
	} else {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO organization_members (organization_id, user_id, role)
			VALUES ($1, $2, $3)
			ON CONFLICT (organization_id, user_id)
			DO UPDATE SET role = EXCLUDED.role, updated_at = NOW()
		`, orgID, targetID, string(newRole))
		if err != nil {
			return nil, fmt.Errorf("failed to upsert membership: %w", err)
		}
	}

	query := fmt.Sprintf("SELECT %s FROM users WHERE id = $1", userColumns)
	user, err := scanUser(tx.QueryRowContext(ctx, query, targetID))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return user, nil
}

// guardLastAdmin refuses to step a membership away from the org admin role
// when no other admin membership would remain.
func guardLastAdmin(ctx context.Context, tx *sql.Tx, orgID, targetID string) error {
	var current string
	err := tx.QueryRowContext(ctx, `
		SELECT role FROM organization_members
		WHERE organization_id = $1 AND user_id = $2
		FOR UPDATE
	`, orgID, targetID).Scan(&current)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get membership: %w", err)
	}
	if auth.ParseRole(current) != auth.RoleAdmin {
		return nil
	}

	var admins int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM organization_members
		WHERE organization_id = $1 AND role = 'admin'
	`, orgID).Scan(&admins)
	if err != nil {
		return fmt.Errorf("failed to count org admins: %w", err)
	}
	if admins <= 1 {
		return auth.NewForbidden("cannot demote the last admin of an organization")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row *sql.Row) (*auth.User, error) {
	user, err := scanUserRow(row)
	if err == sql.ErrNoRows {
		return nil, auth.NewNotFound("user")
	}
	return user, err
}

func scanUserRow(row rowScanner) (*auth.User, error) {
	user := &auth.User{}
	var name, banReason sql.NullString
	var role string
	err := row.Scan(&user.ID, &user.Email, &name, &role, &user.Banned,
		&banReason, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	user.Name = name.String
	user.PlatformRole = auth.ParseRole(role)
	user.BanReason = banReason.String
	return user, nil
}

func requireAffected(res sql.Result, resource string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return auth.NewNotFound(resource)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	pqErr, ok := err.(*pq.Error)
	return ok && pqErr.Code == "23505"
}
