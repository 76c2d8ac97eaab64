package orgs

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stewardhq/steward/pkg/auth"
)

func newMockService(t *testing.T) (*PostgresService, sqlmock.Sqlmock, *sql.DB) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresService(db), mock, db
}

func orgRows(id, name, slug string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "name", "slug", "created_at", "updated_at"}).
		AddRow(id, name, slug, now, now)
}

func TestValidSlug(t *testing.T) {
	valid := []string{"acme", "acme-corp", "a1-b2-c3", "42"}
	for _, s := range valid {
		assert.True(t, ValidSlug(s), s)
	}
	invalid := []string{"", "Acme", "acme_corp", "-acme", "acme-", "a--b", "a b"}
	for _, s := range invalid {
		assert.False(t, ValidSlug(s), s)
	}
}

func TestCreateOrganization(t *testing.T) {
	svc, mock, db := newMockService(t)
	defer db.Close()
	ctx := context.Background()

	t.Run("creates with trimmed name", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO organizations`).
			WithArgs(sqlmock.AnyArg(), "Acme", "acme").
			WillReturnRows(orgRows("org-1", "Acme", "acme"))

		org, err := svc.CreateOrganization(ctx, CreateOrgRequest{Name: "  Acme  ", Slug: "acme"})
		require.NoError(t, err)
		assert.Equal(t, "org-1", org.ID)
		assert.Equal(t, "Acme", org.Name)
	})

	t.Run("empty name rejected", func(t *testing.T) {
		_, err := svc.CreateOrganization(ctx, CreateOrgRequest{Name: "   ", Slug: "acme"})
		assert.True(t, auth.IsBadRequest(err))
	})

	t.Run("malformed slug rejected", func(t *testing.T) {
		_, err := svc.CreateOrganization(ctx, CreateOrgRequest{Name: "Acme", Slug: "Acme Corp"})
		assert.True(t, auth.IsBadRequest(err))
	})

	t.Run("duplicate slug reports bad request", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO organizations`).
			WithArgs(sqlmock.AnyArg(), "Acme", "acme").
			WillReturnError(&pq.Error{Code: "23505"})

		_, err := svc.CreateOrganization(ctx, CreateOrgRequest{Name: "Acme", Slug: "acme"})
		require.True(t, auth.IsBadRequest(err))
		assert.Contains(t, err.Error(), "already in use")
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrganization(t *testing.T) {
	svc, mock, db := newMockService(t)
	defer db.Close()
	ctx := context.Background()

	t.Run("by id", func(t *testing.T) {
		mock.ExpectQuery(`SELECT id, name, slug, created_at, updated_at FROM organizations WHERE id = \$1`).
			WithArgs("org-1").
			WillReturnRows(orgRows("org-1", "Acme", "acme"))

		org, err := svc.GetOrganization(ctx, "org-1")
		require.NoError(t, err)
		assert.Equal(t, "acme", org.Slug)
	})

	t.Run("by slug", func(t *testing.T) {
		mock.ExpectQuery(`SELECT id, name, slug, created_at, updated_at FROM organizations WHERE slug = \$1`).
			WithArgs("acme").
			WillReturnRows(orgRows("org-1", "Acme", "acme"))

		org, err := svc.GetOrganizationBySlug(ctx, "acme")
		require.NoError(t, err)
		assert.Equal(t, "org-1", org.ID)
	})

	t.Run("missing is not found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT id, name, slug, created_at, updated_at FROM organizations WHERE id = \$1`).
			WithArgs("nope").
			WillReturnError(sql.ErrNoRows)

		_, err := svc.GetOrganization(ctx, "nope")
		assert.True(t, auth.IsNotFound(err))
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListOrganizations(t *testing.T) {
	svc, mock, db := newMockService(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT id, name, slug, created_at, updated_at FROM organizations ORDER BY name ASC`).
		WillReturnRows(orgRows("org-1", "Acme", "acme").
			AddRow("org-2", "Globex", "globex", time.Now(), time.Now()))

	result, err := svc.ListOrganizations(context.Background())
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "Acme", result[0].Name)
	assert.Equal(t, "Globex", result[1].Name)
}

func TestUpdateOrganization(t *testing.T) {
	svc, mock, db := newMockService(t)
	defer db.Close()
	ctx := context.Background()

	t.Run("updates name only", func(t *testing.T) {
		name := "Acme Inc"
		mock.ExpectExec(`UPDATE organizations SET name = \$1, updated_at = NOW\(\) WHERE id = \$2`).
			WithArgs(name, "org-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT id, name, slug, created_at, updated_at FROM organizations WHERE id = \$1`).
			WithArgs("org-1").
			WillReturnRows(orgRows("org-1", name, "acme"))

		org, err := svc.UpdateOrganization(ctx, "org-1", UpdateOrgRequest{Name: &name})
		require.NoError(t, err)
		assert.Equal(t, name, org.Name)
	})

	t.Run("no fields is a bad request", func(t *testing.T) {
		_, err := svc.UpdateOrganization(ctx, "org-1", UpdateOrgRequest{})
		assert.True(t, auth.IsBadRequest(err))
	})

	t.Run("missing organization", func(t *testing.T) {
		slug := "acme-inc"
		mock.ExpectExec(`UPDATE organizations SET slug = \$1, updated_at = NOW\(\) WHERE id = \$2`).
			WithArgs(slug, "nope").
			WillReturnResult(sqlmock.NewResult(0, 0))

		_, err := svc.UpdateOrganization(ctx, "nope", UpdateOrgRequest{Slug: &slug})
		assert.True(t, auth.IsNotFound(err))
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteOrganization(t *testing.T) {
	svc, mock, db := newMockService(t)
	defer db.Close()
	ctx := context.Background()

	t.Run("deletes", func(t *testing.T) {
		mock.ExpectExec(`DELETE FROM organizations WHERE id = \$1`).
			WithArgs("org-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, svc.DeleteOrganization(ctx, "org-1"))
	})

	t.Run("missing organization", func(t *testing.T) {
		mock.ExpectExec(`DELETE FROM organizations WHERE id = \$1`).
			WithArgs("nope").
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.True(t, auth.IsNotFound(svc.DeleteOrganization(ctx, "nope")))
	})

	require.NoError(t, mock.ExpectationsWereMet())
}
