package connectors

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"
)

// retryBaseDelay is doubled per attempt.
const retryBaseDelay = 500 * time.Millisecond

// transientError marks an error worth retrying (timeouts, 5xx responses).
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// markTransient wraps err so withRetry will retry it.
func markTransient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// isTransient reports whether the error is retryable: explicitly marked,
// a network timeout, or a deadline expiry.
func isTransient(err error) bool {
	var te *transientError
	if errors.As(err, &te) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// withRetry runs op and retries once with backoff on transient errors.
func withRetry(ctx context.Context, name string, op func() error) error {
	err := op()
	if err == nil || !isTransient(err) {
		return err
	}

	slog.Warn("Transient connector failure, retrying", "operation", name, "error", err)
	select {
	case <-time.After(retryBaseDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	return op()
}
