package helpers

import (
	"fmt"
	"time"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type RelayError struct {
	Message string
	Cause   error
}

func (e *RelayError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *RelayError) Unwrap() error {
	return e.Cause
}

// Distinct error types for errors.As checks at the boundaries.
type ConfigurationError struct{ RelayError }
type ValidationError struct{ RelayError }
type StaleDataError struct{ RelayError }
type UnknownTimeframeError struct{ RelayError }
type DeliveryFailure struct{ RelayError }
type DatabaseError struct{ RelayError }

// -----------------------------------------------------------------------------

func NewValidationError(format string, args ...interface{}) error {
	return &ValidationError{RelayError{Message: fmt.Sprintf(format, args...)}}
}

func NewStaleDataError(format string, args ...interface{}) error {
	return &StaleDataError{RelayError{Message: fmt.Sprintf(format, args...)}}
}

func NewUnknownTimeframeError(tag string) error {
	return &UnknownTimeframeError{RelayError{Message: fmt.Sprintf("unsupported timeframe %q", tag)}}
}

func NewDeliveryFailure(clientID string, cause error) error {
	return &DeliveryFailure{RelayError{Message: fmt.Sprintf("delivery to %s failed", clientID), Cause: cause}}
}

func NewDatabaseError(op string, cause error) error {
	return &DatabaseError{RelayError{Message: op, Cause: cause}}
}

func NewConfigurationError(format string, args ...interface{}) error {
	return &ConfigurationError{RelayError{Message: fmt.Sprintf(format, args...)}}
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryWithBackoff attempts to execute the operation up to maxRetries times with exponential backoff.
func RetryWithBackoff(operation string, maxRetries int, baseDelay time.Duration, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err
		if attempt == maxRetries-1 {
			break
		}

		time.Sleep(baseDelay * (1 << attempt))
	}

	return &RelayError{Message: fmt.Sprintf("%s failed after %d attempts", operation, maxRetries), Cause: lastErr}
}
