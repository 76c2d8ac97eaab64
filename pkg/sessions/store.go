package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stewardhq/steward/pkg/auth"
)

// DefaultTTL is applied when the store is constructed with a non-positive
// lifetime.
const DefaultTTL = 24 * time.Hour

// Session is one row in the session table. ImpersonatedBy is set only on
// sessions issued through impersonation and names the acting admin or
// manager.
type Session struct {
	Token                string     `json:"token"`
	UserID               string     `json:"user_id"`
	ImpersonatedBy       *string    `json:"impersonated_by,omitempty"`
	ActiveOrganizationID *string    `json:"active_organization_id,omitempty"`
	ExpiresAt            time.Time  `json:"expires_at"`
	CreatedAt            time.Time  `json:"created_at"`
}

// Impersonated reports whether the session was issued on someone's behalf.
func (s *Session) Impersonated() bool {
	return s.ImpersonatedBy != nil
}

// Store persists sessions in PostgreSQL.
type Store struct {
	db  *sql.DB
	ttl time.Duration
}

// NewStore creates a session store issuing sessions with the given
// lifetime.
func NewStore(db *sql.DB, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{db: db, ttl: ttl}
}

// Create issues a fresh session for the user.
func (s *Store) Create(ctx context.Context, userID string) (*Session, error) {
	return s.insert(ctx, userID, nil)
}

// CreateImpersonated issues a session for targetID that records actorID as
// the impersonator. The session deliberately starts with no active
// organization.
func (s *Store) CreateImpersonated(ctx context.Context, actorID, targetID string) (string, error) {
	session, err := s.insert(ctx, targetID, &actorID)
	if err != nil {
		return "", err
	}
	return session.Token, nil
}

func (s *Store) insert(ctx context.Context, userID string, impersonatedBy *string) (*Session, error) {
	session := &Session{
		Token:          uuid.NewString(),
		UserID:         userID,
		ImpersonatedBy: impersonatedBy,
		ExpiresAt:      time.Now().Add(s.ttl),
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO sessions (token, user_id, impersonated_by, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, session.Token, session.UserID, session.ImpersonatedBy, session.ExpiresAt).
		Scan(&session.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// GetByToken resolves a live session. Expired sessions resolve as NotFound
// whether or not the sweeper has removed the row yet.
func (s *Store) GetByToken(ctx context.Context, token string) (*Session, error) {
	session := &Session{}
	err := s.db.QueryRowContext(ctx, `
		SELECT token, user_id, impersonated_by, active_organization_id, expires_at, created_at
		FROM sessions
		WHERE token = $1 AND expires_at > NOW()
	`, token).Scan(&session.Token, &session.UserID, &session.ImpersonatedBy,
		&session.ActiveOrganizationID, &session.ExpiresAt, &session.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.NewNotFound("session")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// SetActiveOrganization switches the session's organization context. A nil
// orgID clears it.
func (s *Store) SetActiveOrganization(ctx context.Context, token string, orgID *string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE sessions SET active_organization_id = $1 WHERE token = $2", orgID, token)
	if err != nil {
		return fmt.Errorf("failed to set active organization: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return auth.NewNotFound("session")
	}
	return nil
}

// RevokeByUser deletes every session the user holds and returns how many
// were removed.
func (s *Store) RevokeByUser(ctx context.Context, userID string) (int, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE user_id = $1", userID)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke sessions: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return int(affected), nil
}

// RevokeByToken deletes a single session.
func (s *Store) RevokeByToken(ctx context.Context, token string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE token = $1", token)
	if err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return auth.NewNotFound("session")
	}
	return nil
}

// DeleteExpired removes sessions past their expiry and returns how many
// rows went away.
func (s *Store) DeleteExpired(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= NOW()")
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return int(affected), nil
}
