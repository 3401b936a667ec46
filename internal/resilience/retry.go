package resilience

import (
	"context"
	"fmt"
	"time"

	platformerrors "avatar-server-go/internal/platform/errors"
)

// Policy bounds a retried operation: at most MaxAttempts tries with a fixed
// Backoff pause between them.
type Policy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// DefaultPolicy matches the downstream call sites: 3 attempts, 2s apart.
var DefaultPolicy = Policy{MaxAttempts: 3, Backoff: 2 * time.Second}

// ExhaustedError reports that the attempt budget ran out. It carries the
// last underlying cause.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// Retry executes op until it succeeds, fails fatally, or the policy's
// attempt budget is spent. Retryable-vs-fatal classification follows
// platform/errors.Retryable. The backoff sleep is context-aware.
func Retry(ctx context.Context, policy Policy, op func(context.Context) error) error {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !platformerrors.Retryable(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(policy.Backoff):
		}
	}

	return &ExhaustedError{Attempts: attempts, Last: lastErr}
}
