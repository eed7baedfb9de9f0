package engine

import (
	"context"
	"errors"
	"fmt"
)

// FetchError is the error contract between the engine and an injected
// fetcher. Transient failures (timeouts, 5xx, rate limits) are retried with
// backoff; non-transient failures (bad unit key, unparseable payload shape)
// are terminal for the unit immediately.
type FetchError struct {
	Message   string
	Transient bool
	Cause     error
}

// Error implements the error interface
func (e *FetchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch failed: %s", e.Message)
}

// Unwrap returns the underlying error for error unwrapping
func (e *FetchError) Unwrap() error {
	return e.Cause
}

// NewTransientFetchError creates a retryable fetch error
func NewTransientFetchError(message string, cause error) *FetchError {
	return &FetchError{Message: message, Transient: true, Cause: cause}
}

// NewPermanentFetchError creates a fetch error that must not be retried
func NewPermanentFetchError(message string, cause error) *FetchError {
	return &FetchError{Message: message, Transient: false, Cause: cause}
}

// isTransient reports whether a fetch attempt failure may succeed on retry.
// Attempt timeouts count as transient; anything not carrying an explicit
// FetchError classification is treated as permanent, since retrying unknown
// failures tends to hammer an already unhappy source.
func isTransient(err error) bool {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Transient
	}
	return errors.Is(err, context.DeadlineExceeded)
}
