package civicpush_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/coregx/civicpush"
	"github.com/stretchr/testify/assert"
)

func TestError_Format(t *testing.T) {
	assert.Equal(t, "NOT_FOUND: device not registered", civicpush.ErrDeviceNotRegistered.Error())

	err := civicpush.NewErrorWithCause(civicpush.ErrCodeDelivery, "delivery provider unreachable", errUnreachable)
	assert.Equal(t, "DELIVERY_ERROR: delivery provider unreachable: dial tcp: connection refused", err.Error())
	assert.ErrorIs(t, err, errUnreachable)
}

func TestError_IsMatchesCodeAndMessage(t *testing.T) {
	wrapped := fmt.Errorf("failed to update opt-in: %w", civicpush.NewError(civicpush.ErrCodeNotFound, "device not registered"))

	assert.ErrorIs(t, wrapped, civicpush.ErrDeviceNotRegistered)
	assert.NotErrorIs(t, wrapped, civicpush.ErrMessageNotFound)
	assert.ErrorIs(t, wrapped, &civicpush.Error{Code: civicpush.ErrCodeNotFound})
}

func TestError_Classifiers(t *testing.T) {
	tests := []struct {
		err        error
		code       string
		notFound   bool
		validation bool
		delivery   bool
	}{
		{err: civicpush.ErrMessageNotFound, code: civicpush.ErrCodeNotFound, notFound: true},
		{err: fmt.Errorf("wrap: %w", civicpush.NewError(civicpush.ErrCodeValidation, "bad")), code: civicpush.ErrCodeValidation, validation: true},
		{err: civicpush.NewError(civicpush.ErrCodeDelivery, "down"), code: civicpush.ErrCodeDelivery, delivery: true},
		{err: errors.New("plain"), code: ""},
		{err: nil, code: ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.code, civicpush.CodeOf(tt.err))
		assert.Equal(t, tt.notFound, civicpush.IsNotFound(tt.err))
		assert.Equal(t, tt.validation, civicpush.IsValidation(tt.err))
		assert.Equal(t, tt.delivery, civicpush.IsDelivery(tt.err))
	}
}
