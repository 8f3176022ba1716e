package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// maxDelay caps exponential backoff growth.
const maxDelay = 30 * time.Second

// withRetry runs fn up to maxAttempts times with exponential backoff
// starting at baseDelay. Permanent errors and context cancellation stop
// it immediately. A provider Retry-After raises the floor for the next
// delay. The exhaustion error keeps the last failure in its chain, so
// callers can still match ErrRateLimited, ErrTimeout, and friends.
func (c *Client) withRetry(ctx context.Context, fn func(context.Context) (*Response, error)) (*Response, error) {
	var last error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		resp, err := fn(ctx)
		if err == nil {
			return resp, nil
		}

		var pErr *PermanentError
		if errors.As(err, &pErr) {
			return nil, err
		}
		last = err

		if attempt == c.maxAttempts-1 {
			break
		}

		delay := c.baseDelay * time.Duration(1<<attempt)
		if delay > maxDelay {
			delay = maxDelay
		}
		var rl *rateLimitError
		if errors.As(err, &rl) && rl.retryAfter > delay {
			delay = rl.retryAfter
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, fmt.Errorf("%w: %d attempts failed: %w", ErrServiceUnavailable, c.maxAttempts, last)
}
