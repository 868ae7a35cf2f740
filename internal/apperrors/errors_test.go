package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsMatchesKindAndReason(t *testing.T) {
	err := Conflict(ReasonCapacityExceeded, "event %s is full", "e1")

	assert.True(t, errors.Is(err, ErrCapacityExceeded))
	assert.True(t, errors.Is(err, ErrConflict))
	assert.False(t, errors.Is(err, ErrAlreadyMember))
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestKindOfWrappedError(t *testing.T) {
	wrapped := fmt.Errorf("sign up: %w", NotFound("event %s not found", "e1"))

	require.Equal(t, KindNotFound, KindOf(wrapped))
	require.True(t, errors.Is(wrapped, ErrNotFound))
	require.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestReasonOf(t *testing.T) {
	require.Equal(t, ReasonAlreadyResolved, ReasonOf(State(ReasonAlreadyResolved, "done")))
	require.Empty(t, ReasonOf(Validation("bad")))
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "event e1 is full", Conflict(ReasonCapacityExceeded, "event %s is full", "e1").Error())
	assert.Equal(t, "conflict: not_member", ErrNotMember.Error())

	cause := errors.New("disk full")
	err := &Error{Kind: KindValidation, Message: "bad payload", Err: cause}
	assert.Equal(t, "bad payload: disk full", err.Error())
	assert.ErrorIs(t, err, cause)
}
