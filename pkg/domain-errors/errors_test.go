package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	t.Run("nil error stays nil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, CodeInternal, "ignored"))
	})

	t.Run("wrapped error keeps cause", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := Wrap(cause, CodeUnavailable, "store unavailable")

		require.Error(t, err)
		assert.ErrorIs(t, err, cause)
		assert.True(t, HasCode(err, CodeUnavailable))
		assert.Equal(t, "store unavailable: connection reset", err.Error())
	})
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("list: %w", New(CodeValidation, "invalid paging size: 0"))

	assert.True(t, HasCode(err, CodeValidation))
	assert.True(t, Is(err, CodeValidation))
	assert.False(t, HasCode(err, CodeConflict))
	assert.False(t, HasCode(errors.New("plain"), CodeInternal))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeConflict, CodeOf(Newf(CodeConflict, "external ID is already assigned: %s", "ext-1")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
}
