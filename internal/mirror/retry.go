package mirror

import (
	"context"
	"time"
)

// retryWithBackoff calls fn until it succeeds or MaxAttempts is reached,
// sleeping InitialBackoff, 2*InitialBackoff, ... capped at MaxBackoff between
// attempts. It returns the number of attempts made and the last error.
func retryWithBackoff(ctx context.Context, opts Options, onRetry func(attempt int, err error), fn func(context.Context) error) (int, error) {
	var err error
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		if err = fn(ctx); err == nil {
			return attempt, nil
		}
		if attempt == opts.MaxAttempts {
			return attempt, err
		}

		if onRetry != nil {
			onRetry(attempt, err)
		}

		backoff := opts.InitialBackoff << uint(attempt-1)
		if backoff > opts.MaxBackoff || backoff <= 0 {
			backoff = opts.MaxBackoff
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt, ctx.Err()
		case <-timer.C:
		}
	}
	return opts.MaxAttempts, err
}
