package model

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultMaxAttempts bounds retries of transient completion failures.
const DefaultMaxAttempts = 3

// retryBaseDelay is doubled on each attempt. Var so tests can shrink it.
var retryBaseDelay = time.Second

// CompleteWithRetry calls the provider, retrying transient failures with
// exponential backoff up to maxAttempts. Fatal failures and context
// cancellation surface immediately.
func CompleteWithRetry(ctx context.Context, p Provider, req Request, maxAttempts int) (*Output, error) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	var lastErr error
	delay := retryBaseDelay
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		out, err := p.Complete(ctx, req)
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !IsTransient(err) {
			return nil, err
		}

		lastErr = err
		if attempt == maxAttempts {
			break
		}
		slog.Warn("Completion failed, retrying", "provider", p.Name(), "attempt", attempt, "delay", delay, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return nil, fmt.Errorf("completion failed after %d attempts: %w", maxAttempts, lastErr)
}
