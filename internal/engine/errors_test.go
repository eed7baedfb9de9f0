package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	assert.True(t, isTransient(NewTransientFetchError("server error", nil)))
	assert.False(t, isTransient(NewPermanentFetchError("bad key", nil)))

	// Attempt timeouts are retryable even without a FetchError wrapper
	assert.True(t, isTransient(context.DeadlineExceeded))
	assert.True(t, isTransient(fmt.Errorf("request: %w", context.DeadlineExceeded)))

	// Unknown failures are not retried
	assert.False(t, isTransient(errors.New("something broke")))
	assert.False(t, isTransient(context.Canceled))
}

func TestIsTransientWrapped(t *testing.T) {
	inner := NewTransientFetchError("rate limited", nil)
	wrapped := fmt.Errorf("collector: %w", inner)
	assert.True(t, isTransient(wrapped))
}

func TestFetchErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewTransientFetchError("request failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "request failed")
	assert.Contains(t, err.Error(), "connection reset")
}
