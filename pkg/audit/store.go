package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stewardhq/steward/pkg/observability"
)

// Entry is one audit row. ActorID is nil for system-initiated actions.
type Entry struct {
	ID         string    `json:"id"`
	ActorID    *string   `json:"actor_id,omitempty"`
	TargetID   string    `json:"target_id"`
	Action     string    `json:"action"`
	Outcome    string    `json:"outcome"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ListOptions filters and pages audit queries.
type ListOptions struct {
	ActorID string
	Action  string
	Limit   int
	Offset  int
}

// Store appends and reads audit rows. Appends never fail the operation
// they describe: write errors are logged and swallowed.
type Store struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewStore creates an audit store
func NewStore(db *sql.DB, logger *observability.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Record appends one audit row for a privileged action.
func (s *Store) Record(ctx context.Context, actorID *string, targetID, action, outcome, reason string) {
	var reasonArg sql.NullString
	if reason != "" {
		reasonArg = sql.NullString{String: reason, Valid: true}
	}
	var targetArg sql.NullString
	if targetID != "" {
		targetArg = sql.NullString{String: targetID, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_id, target_id, action, outcome, reason)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.NewString(), actorID, targetArg, action, outcome, reasonArg)
	if err != nil {
		s.logger.WithError(err).WithField("action", action).Error("failed to append audit row")
	}
}

// List returns audit rows newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]*Entry, error) {
	limit := opts.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := `
		SELECT id, actor_id, target_id, action, outcome, reason, occurred_at
		FROM audit_logs
		WHERE ($1 = '' OR actor_id::text = $1)
		  AND ($2 = '' OR action = $2)
		ORDER BY occurred_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := s.db.QueryContext(ctx, query, opts.ActorID, opts.Action, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit rows: %w", err)
	}
	defer rows.Close()

	entries := []*Entry{}
	for rows.Next() {
		e := &Entry{}
		var target, reason sql.NullString
		if err := rows.Scan(&e.ID, &e.ActorID, &target, &e.Action, &e.Outcome, &reason, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit row: %w", err)
		}
		e.TargetID = target.String
		e.Reason = reason.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
