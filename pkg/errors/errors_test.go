package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotFound(t *testing.T) {
	err := NotFound("subscription", "sub-123")

	assert.True(t, IsNotFound(err))
	assert.False(t, IsConflict(err))
	assert.Contains(t, err.Error(), "NOT_FOUND")
	assert.Contains(t, err.Error(), "subscription")
	assert.Contains(t, err.Error(), "sub-123")
}

func TestConflict(t *testing.T) {
	err := Conflict("subscription %s is already cancelled", "SUB-1")

	assert.True(t, IsConflict(err))
	assert.Contains(t, err.Error(), "SUB-1")
}

func TestInvalidArgument(t *testing.T) {
	err := InvalidArgument("monthly price must not be negative")

	assert.True(t, IsInvalidArgument(err))
	assert.False(t, IsNotFound(err))
}

func TestInconsistent(t *testing.T) {
	err := Inconsistent("invoice %s has no open item", "INV-1")

	assert.True(t, IsInconsistent(err))
}

// TestIsHelpers_ThroughWrapping verifies classification survives
// fmt.Errorf wrapping
func TestIsHelpers_ThroughWrapping(t *testing.T) {
	inner := Conflict("state transition rejected")
	wrapped := fmt.Errorf("cancel subscription: %w", inner)

	assert.True(t, IsConflict(wrapped))
	assert.False(t, IsConflict(errors.New("plain error")))
	assert.False(t, IsConflict(nil))
}

func TestInternal_UnwrapsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Internal("query failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "INTERNAL")
}
