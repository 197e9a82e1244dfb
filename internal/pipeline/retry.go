package pipeline

import (
	"errors"
	"time"

	"github.com/dgallion1/dartgest/internal/dart"
	"github.com/dgallion1/dartgest/internal/search"
)

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	if search.IsTransient(err) {
		return true
	}
	var se *dart.StatusError
	return errors.As(err, &se) && se.Temporary()
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	return search.Backoff(attempt)
}

const MaxRetries = 3
