// Package sentry provides optional error monitoring. Everything degrades to a
// no-op when monitoring is disabled so call sites never need to check.
package sentry

import (
	"fmt"
	"time"

	sentrygo "github.com/getsentry/sentry-go"

	"github.com/dugoutdata/dugout/internal/config"
)

var enabled bool

// Initialize sets up Sentry error monitoring if enabled in configuration
func Initialize(cfg *config.SentryConfig, version string) error {
	if !cfg.Enabled || cfg.DSN == "" {
		enabled = false
		return nil
	}

	err := sentrygo.Init(sentrygo.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     "dugout@" + version,
		SampleRate:  cfg.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize sentry: %w", err)
	}

	enabled = true
	return nil
}

// IsEnabled reports whether error monitoring is active
func IsEnabled() bool {
	return enabled
}

// CaptureError reports an error with component and operation tags
func CaptureError(err error, component, operation string) {
	if !enabled || err == nil {
		return
	}

	sentrygo.WithScope(func(scope *sentrygo.Scope) {
		scope.SetTag("component", component)
		scope.SetTag("operation", operation)
		sentrygo.CaptureException(err)
	})
}

// CaptureMessage reports a non-error event
func CaptureMessage(message, component string) {
	if !enabled {
		return
	}

	sentrygo.WithScope(func(scope *sentrygo.Scope) {
		scope.SetTag("component", component)
		sentrygo.CaptureMessage(message)
	})
}

// Flush waits for buffered events to be sent, bounded by the timeout
func Flush(timeout time.Duration) {
	if enabled {
		sentrygo.Flush(timeout)
	}
}

// Close flushes and disables monitoring
func Close() {
	if enabled {
		sentrygo.Flush(2 * time.Second)
		enabled = false
	}
}
