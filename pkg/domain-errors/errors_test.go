package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("matches outer code", func(t *testing.T) {
		err := New(CodeConflict, "taken")
		assert.True(t, HasCode(err, CodeConflict))
		assert.False(t, HasCode(err, CodeNotFound))
	})

	t.Run("walks wrapped domain errors", func(t *testing.T) {
		inner := New(CodeInsufficientFunds, "balance too low")
		outer := Wrap(inner, CodeInternal, "send failed")
		assert.True(t, HasCode(outer, CodeInsufficientFunds))
		assert.True(t, Is(outer, CodeInternal))
		assert.False(t, Is(outer, CodeInsufficientFunds))
	})

	t.Run("survives fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("context: %w", New(CodeNotFound, "missing"))
		assert.True(t, HasCode(err, CodeNotFound))
		assert.Equal(t, CodeNotFound, CodeOf(err))
	})

	t.Run("plain errors have no code", func(t *testing.T) {
		err := errors.New("boom")
		assert.False(t, HasCode(err, CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(err))
	})
}

func TestValidation(t *testing.T) {
	err := Validation(
		FieldError{Field: "ssn", Message: "is required"},
		FieldError{Field: "dob", Message: "is required"},
	)
	require.True(t, HasCode(err, CodeValidation))
	assert.Equal(t, "invalid fields: ssn, dob", err.Error())

	fields := FieldsOf(fmt.Errorf("submit: %w", err))
	require.Len(t, fields, 2)
	assert.Equal(t, "ssn", fields[0].Field)
}
