package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorFormat(t *testing.T) {
	err := New(ErrCodeNotFound, "counterparty not found")
	assert.Equal(t, "[COMMON_003] counterparty not found", err.Error())

	withDetail := err.WithDetail("id=CPY-42")
	assert.Equal(t, "[COMMON_003] counterparty not found: id=CPY-42", withDetail.Error())
	// The original must be unchanged.
	assert.Empty(t, err.Detail)
}

func TestWrapPreservesChain(t *testing.T) {
	root := stderrors.New("connection refused")
	wrapped := Wrap(root, ErrCodeDatabaseError, "failed to load snapshot")

	require.NotNil(t, wrapped)
	assert.True(t, stderrors.Is(wrapped, root))
	assert.Equal(t, ErrCodeDatabaseError, GetCode(wrapped))
}

func TestWrapNilReturnsNil(t *testing.T) {
	var got *AppError = Wrap(nil, ErrCodeInternal, "should not happen")
	assert.Nil(t, got)
}

func TestWrapUnknownKeepsOriginalCode(t *testing.T) {
	inner := New(ErrCodeInvalidTransition, "cannot acknowledge resolved alert")
	outer := Wrap(inner, ErrCodeUnknown, "transition rejected")
	assert.Equal(t, ErrCodeInvalidTransition, outer.Code)
}

func TestIsCodeTraversesChain(t *testing.T) {
	inner := New(ErrCodeAdapterTimeout, "vat registry timed out")
	mid := fmt.Errorf("verify failed: %w", inner)
	outer := Wrap(mid, ErrCodeExternalService, "cycle degraded")

	assert.True(t, IsCode(outer, ErrCodeAdapterTimeout))
	assert.True(t, IsCode(outer, ErrCodeExternalService))
	assert.False(t, IsCode(outer, ErrCodeInvalidTransition))
}

func TestGetCodeOnForeignError(t *testing.T) {
	assert.Equal(t, ErrCodeUnknown, GetCode(stderrors.New("plain")))
	assert.Equal(t, ErrCodeUnknown, GetCode(nil))
}

func TestConvenienceFactories(t *testing.T) {
	assert.Equal(t, ErrCodeValidation, NewValidation("bad %s", "input").Code)
	assert.Equal(t, ErrCodeNotFound, NewNotFound("missing").Code)
	assert.Equal(t, ErrCodeInternal, NewInternal("boom").Code)
	assert.Equal(t, ErrCodeInvalidTransition, NewInvalidTransition("no").Code)
	assert.True(t, IsNotFound(NewNotFound("gone")))
}
