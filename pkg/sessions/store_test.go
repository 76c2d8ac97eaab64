package sessions

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stewardhq/steward/pkg/auth"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock, *sql.DB) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewStore(db, time.Hour), mock, db
}

func TestCreate(t *testing.T) {
	store, mock, db := newMockStore(t)
	defer db.Close()
	ctx := context.Background()

	t.Run("plain session has no impersonator", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO sessions`).
			WithArgs(sqlmock.AnyArg(), "u-1", nil, sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

		session, err := store.Create(ctx, "u-1")
		require.NoError(t, err)
		assert.NotEmpty(t, session.Token)
		assert.Equal(t, "u-1", session.UserID)
		assert.False(t, session.Impersonated())
		assert.WithinDuration(t, time.Now().Add(time.Hour), session.ExpiresAt, time.Minute)
	})

	t.Run("impersonated session records the actor", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO sessions`).
			WithArgs(sqlmock.AnyArg(), "target-1", "actor-1", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

		token, err := store.CreateImpersonated(ctx, "actor-1", "target-1")
		require.NoError(t, err)
		assert.NotEmpty(t, token)
	})
}

func TestGetByToken(t *testing.T) {
	store, mock, db := newMockStore(t)
	defer db.Close()
	ctx := context.Background()

	t.Run("live session", func(t *testing.T) {
		now := time.Now()
		actor := "actor-1"
		org := "org-1"
		mock.ExpectQuery(`SELECT token, user_id, impersonated_by, active_organization_id, expires_at, created_at`).
			WithArgs("tok-1").
			WillReturnRows(sqlmock.NewRows([]string{
				"token", "user_id", "impersonated_by", "active_organization_id", "expires_at", "created_at",
			}).AddRow("tok-1", "u-1", actor, org, now.Add(time.Hour), now))

		session, err := store.GetByToken(ctx, "tok-1")
		require.NoError(t, err)
		assert.Equal(t, "u-1", session.UserID)
		require.NotNil(t, session.ImpersonatedBy)
		assert.Equal(t, "actor-1", *session.ImpersonatedBy)
		require.NotNil(t, session.ActiveOrganizationID)
		assert.Equal(t, "org-1", *session.ActiveOrganizationID)
	})

	t.Run("expired or missing session is not found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT token, user_id`).
			WithArgs("stale").
			WillReturnError(sql.ErrNoRows)

		_, err := store.GetByToken(ctx, "stale")
		assert.True(t, auth.IsNotFound(err))
	})
}

func TestSetActiveOrganization(t *testing.T) {
	store, mock, db := newMockStore(t)
	defer db.Close()
	ctx := context.Background()

	t.Run("set", func(t *testing.T) {
		org := "org-1"
		mock.ExpectExec(`UPDATE sessions SET active_organization_id = \$1 WHERE token = \$2`).
			WithArgs(&org, "tok-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, store.SetActiveOrganization(ctx, "tok-1", &org))
	})

	t.Run("clear", func(t *testing.T) {
		mock.ExpectExec(`UPDATE sessions SET active_organization_id = \$1`).
			WithArgs(nil, "tok-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, store.SetActiveOrganization(ctx, "tok-1", nil))
	})

	t.Run("missing session", func(t *testing.T) {
		mock.ExpectExec(`UPDATE sessions SET active_organization_id = \$1`).
			WithArgs(nil, "nope").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := store.SetActiveOrganization(ctx, "nope", nil)
		assert.True(t, auth.IsNotFound(err))
	})
}

func TestRevocation(t *testing.T) {
	store, mock, db := newMockStore(t)
	defer db.Close()
	ctx := context.Background()

	t.Run("revoke by user reports count", func(t *testing.T) {
		mock.ExpectExec(`DELETE FROM sessions WHERE user_id = \$1`).
			WithArgs("u-1").
			WillReturnResult(sqlmock.NewResult(0, 3))

		n, err := store.RevokeByUser(ctx, "u-1")
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("revoke by user with nothing to revoke", func(t *testing.T) {
		mock.ExpectExec(`DELETE FROM sessions WHERE user_id = \$1`).
			WithArgs("u-2").
			WillReturnResult(sqlmock.NewResult(0, 0))

		n, err := store.RevokeByUser(ctx, "u-2")
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("revoke missing token", func(t *testing.T) {
		mock.ExpectExec(`DELETE FROM sessions WHERE token = \$1`).
			WithArgs("nope").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := store.RevokeByToken(ctx, "nope")
		assert.True(t, auth.IsNotFound(err))
	})

	t.Run("delete expired", func(t *testing.T) {
		mock.ExpectExec(`DELETE FROM sessions WHERE expires_at <= NOW\(\)`).
			WillReturnResult(sqlmock.NewResult(0, 7))

		n, err := store.DeleteExpired(ctx)
		require.NoError(t, err)
		assert.Equal(t, 7, n)
	})
}
