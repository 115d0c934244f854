package helpers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"price-scout/src/logger"
	"price-scout/src/models"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

// ErrNotFound is returned by extractors when a vendor has no listing for the
// requested part.
var ErrNotFound = errors.New("not found")

type PriceScoutError struct {
	Message string
	Cause   error
}

func (e *PriceScoutError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *PriceScoutError) Unwrap() error {
	return e.Cause
}

// Distinct error types for errors.As checks
type ConfigurationError struct{ PriceScoutError }
type NetworkError struct{ PriceScoutError }
type ExtractorError struct{ PriceScoutError }
type DatabaseError struct{ PriceScoutError }
type ValidationError struct{ PriceScoutError }

func NewConfigurationError(msg string, cause error) *ConfigurationError {
	return &ConfigurationError{PriceScoutError{Message: msg, Cause: cause}}
}

func NewNetworkError(msg string, cause error) *NetworkError {
	return &NetworkError{PriceScoutError{Message: msg, Cause: cause}}
}

func NewExtractorError(msg string, cause error) *ExtractorError {
	return &ExtractorError{PriceScoutError{Message: msg, Cause: cause}}
}

func NewDatabaseError(msg string, cause error) *DatabaseError {
	return &DatabaseError{PriceScoutError{Message: msg, Cause: cause}}
}

func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{PriceScoutError{Message: fmt.Sprintf(format, args...)}}
}

// -----------------------------------------------------------------------------
// Classification
// -----------------------------------------------------------------------------

// ClassifyError maps an extractor failure onto the observation error kinds.
// Configuration problems are fatal and must not be retried; everything else
// is assumed to be transient.
func ClassifyError(err error) models.ErrorKind {
	if err == nil {
		return models.ErrorKindNone
	}

	var cfgErr *ConfigurationError
	switch {
	case errors.As(err, &cfgErr):
		return models.ErrorKindFatalConfig
	case errors.Is(err, context.DeadlineExceeded):
		return models.ErrorKindTimeout
	default:
		return models.ErrorKindTransient
	}
}

// -----------------------------------------------------------------------------

// IsRetryable reports whether repeating the operation could succeed.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, ErrNotFound) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var cfgErr *ConfigurationError
	var valErr *ValidationError
	return !errors.As(err, &cfgErr) && !errors.As(err, &valErr)
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryWithBackoff runs fn up to maxRetries+1 times, doubling baseDelay after
// each failure. It stops early on non-retryable errors or when ctx is done.
func RetryWithBackoff[T any](
	ctx context.Context,
	operation string,
	maxRetries int,
	baseDelay time.Duration,
	log *logger.Logger,
	fn func(attempt int) (T, error),
) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		res, err := fn(attempt)
		if err == nil {
			return res, nil
		}

		lastErr = err
		if attempt == maxRetries || !IsRetryable(err) {
			break
		}

		delay := baseDelay * (1 << attempt)
		if log != nil {
			log.Warning("%s failed (attempt %d/%d): %v. Retrying in %v", operation, attempt+1, maxRetries+1, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	return zero, lastErr
}
