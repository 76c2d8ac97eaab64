package auth

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	t.Run("forbidden", func(t *testing.T) {
		err := NewForbidden("cannot perform this action on yourself")
		assert.True(t, IsForbidden(err))
		assert.False(t, IsNotFound(err))
		assert.Equal(t, "cannot perform this action on yourself", err.Error())
	})

	t.Run("not found", func(t *testing.T) {
		err := NewNotFound("user")
		assert.True(t, IsNotFound(err))
		assert.False(t, IsForbidden(err))
		assert.Equal(t, "user not found", err.Error())
	})

	t.Run("bad request", func(t *testing.T) {
		err := NewBadRequest("no fields to update")
		assert.True(t, IsBadRequest(err))
		assert.False(t, IsForbidden(err))
	})

	t.Run("kind survives wrapping", func(t *testing.T) {
		err := fmt.Errorf("set role: %w", NewForbidden("managers may only modify members"))
		assert.True(t, IsForbidden(err))
	})

	t.Run("plain errors match no kind", func(t *testing.T) {
		err := errors.New("connection refused")
		assert.False(t, IsForbidden(err))
		assert.False(t, IsNotFound(err))
		assert.False(t, IsBadRequest(err))
	})
}
