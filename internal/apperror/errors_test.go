package apperror

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "without field",
			err:      New(CodeNodeNotFound, "node not found"),
			expected: "[NODE_NOT_FOUND] node not found",
		},
		{
			name:     "with field",
			err:      NewWithField(CodeOutOfRange, "index out of range", "axis"),
			expected: "[OUT_OF_RANGE] index out of range (field: axis)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("division by zero")
	wrapped := Wrap(cause, CodeDivisionByZero, "parameter compute failed")

	assert.Equal(t, cause, wrapped.Unwrap())
	assert.True(t, errors.Is(wrapped, cause))
}

func TestIsAndCode(t *testing.T) {
	err := New(CodeCircularReference, "cycle detected")

	assert.True(t, Is(err, CodeCircularReference))
	assert.False(t, Is(err, CodeSolverFailed))
	assert.Equal(t, CodeCircularReference, Code(err))
	assert.Equal(t, CodeInternal, Code(errors.New("plain error")))
}

func TestIsCritical(t *testing.T) {
	critical := NewCritical(CodeInternal, "FIFO underflow")
	warning := New(CodeInternal, "not critical")

	assert.True(t, IsCritical(critical))
	assert.False(t, IsCritical(warning))
}
