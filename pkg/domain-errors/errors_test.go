package domainerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	t.Run("finds nested code", func(t *testing.T) {
		inner := New(CodeConflict, "domain already registered")
		outer := Wrap(inner, CodeInternal, "register failed")

		assert.True(t, HasCode(outer, CodeConflict))
		assert.True(t, HasCode(outer, CodeInternal))
		assert.False(t, HasCode(outer, CodeNotFound))
	})

	t.Run("plain errors carry no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
		assert.False(t, HasCode(nil, CodeInternal))
	})
}

func TestIsMatchesOutermostOnly(t *testing.T) {
	err := Wrap(New(CodeTimeout, "slow"), CodeUnavailable, "registrar unavailable")

	assert.True(t, Is(err, CodeUnavailable))
	assert.False(t, Is(err, CodeTimeout))
	assert.Equal(t, CodeUnavailable, CodeOf(err))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeUnavailable, "store unreachable")

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}
