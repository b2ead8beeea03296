package status

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{"nil", nil, CodeSuccess},
		{"ignored", ErrIgnored, CodeIgnored},
		{"wrapped not found", fmt.Errorf("property %q: %w", "x", ErrNotFound), CodeNotFound},
		{"double wrapped", fmt.Errorf("outer: %w", fmt.Errorf("inner: %w", ErrFrozen)), CodeFrozen},
		{"joined", errors.Join(errors.New("plain"), ErrValidateFailed), CodeValidateFailed},
		{"foreign", errors.New("disk on fire"), CodeGeneral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Of(tt.err))
		})
	}
}

func TestCodeString(t *testing.T) {
	assert.Equal(t, "Success", CodeSuccess.String())
	assert.Equal(t, "OutOfRange", CodeOutOfRange.String())
	assert.Equal(t, "GeneralError", CodeGeneral.String())
	assert.Equal(t, "Unknown", Code(99).String())
}

func TestFromError(t *testing.T) {
	s := FromError(fmt.Errorf("rate: %w", ErrCoerceFailed))
	assert.Equal(t, CodeCoerceFailed, s.Code)
	assert.Equal(t, "CoerceFailed", s.Name)
	assert.Contains(t, s.Message, "rate")
	assert.False(t, s.OK())

	ok := FromError(nil)
	assert.True(t, ok.OK())
	assert.Empty(t, ok.Message)

	assert.True(t, FromError(ErrIgnored).OK())
}

func TestSuccessHelpers(t *testing.T) {
	assert.True(t, IsSuccess(nil))
	assert.True(t, IsSuccess(fmt.Errorf("same value: %w", ErrIgnored)))
	assert.False(t, IsSuccess(ErrAccessDenied))

	assert.NoError(t, IgnoreIgnored(ErrIgnored))
	assert.ErrorIs(t, IgnoreIgnored(ErrInvalidState), ErrInvalidState)
}
