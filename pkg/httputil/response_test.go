package httputil

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stewardhq/steward/pkg/auth"
)

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestWriteDomainError(t *testing.T) {
	t.Run("forbidden maps to 403", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteDomainError(rec, auth.NewForbidden("cannot perform this action on yourself"))
		assert.Equal(t, 403, rec.Code)
		assert.Equal(t, "cannot perform this action on yourself", errorBody(t, rec))
	})

	t.Run("not found maps to 404", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteDomainError(rec, auth.NewNotFound("user"))
		assert.Equal(t, 404, rec.Code)
		assert.Equal(t, "user not found", errorBody(t, rec))
	})

	t.Run("bad request maps to 400", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteDomainError(rec, auth.NewBadRequest("no fields to update"))
		assert.Equal(t, 400, rec.Code)
	})

	t.Run("unknown errors become opaque 500s", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteDomainError(rec, errors.New("pq: connection refused"))
		assert.Equal(t, 500, rec.Code)
		assert.Equal(t, "internal server error", errorBody(t, rec))
	})
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteSuccess(rec, map[string]bool{"ok": true}))
	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}
