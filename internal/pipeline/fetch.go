package pipeline

import (
	"context"
	"log/slog"
	"time"
)

// DocumentSource downloads a disclosure by receipt number.
type DocumentSource interface {
	Document(ctx context.Context, receiptNo string) (string, []byte, error)
}

// FetchDocument downloads a disclosure, retrying temporary failures up to
// MaxRetries times.
func FetchDocument(ctx context.Context, src DocumentSource, receiptNo string, log *slog.Logger) (string, []byte, error) {
	var (
		name    string
		data    []byte
		lastErr error
	)
	for attempt := range MaxRetries {
		name, data, lastErr = src.Document(ctx, receiptNo)
		if lastErr == nil || !IsRetryable(lastErr) {
			break
		}
		log.Warn("retryable download error", "receipt_no", receiptNo, "attempt", attempt, "error", lastErr)
		select {
		case <-time.After(backoff(attempt)):
		case <-ctx.Done():
			return "", nil, ctx.Err()
		}
	}
	return name, data, lastErr
}

// backoff is swapped out by tests.
var backoff = Backoff
