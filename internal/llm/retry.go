package llm

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/evalgate/evalgate/internal/config"
)

const rateLimitBackoffMultiplier = 3

// baseRetryDelay is a var so tests can shrink it.
var baseRetryDelay = 2 * time.Second

// submitWithRetry runs call with the model's retry budget, exponential
// backoff, and a per-attempt timeout. Rate-limit errors back off harder
// (3^n) than other transient failures (2^(n-1)). wait runs before every
// attempt on the outer context so limiter delays do not count against
// the per-attempt timeout.
func submitWithRetry(
	ctx context.Context,
	logger *slog.Logger,
	cfg config.ModelConfig,
	wait func(context.Context) error,
	call func(context.Context) (string, error),
	retryable func(error) bool,
	rateLimited func(error) bool,
) (string, error) {
	maxRetries := config.DefaultMaxRetries
	switch {
	case cfg.MaxRetries > 0:
		maxRetries = cfg.MaxRetries
	case cfg.MaxRetries < 0:
		maxRetries = 0
	}

	timeout := time.Duration(cfg.HTTPTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = config.DefaultHTTPTimeoutSeconds * time.Second
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * baseRetryDelay
			if rateLimited(lastErr) {
				backoff = time.Duration(math.Pow(rateLimitBackoffMultiplier, float64(attempt))) * baseRetryDelay
			}
			if maxBackoff := time.Duration(cfg.MaxBackoffSeconds) * time.Second; maxBackoff > 0 && backoff > maxBackoff {
				backoff = maxBackoff
			}

			jitter := time.Duration(float64(backoff) * 0.1 * (2*float64(time.Now().UnixNano()%100)/100 - 1))
			sleepDuration := backoff + jitter

			logger.Warn("Retrying API request",
				"attempt", attempt,
				"max_retries", maxRetries,
				"backoff", sleepDuration,
				"model", cfg.ModelName,
				"is_rate_limit", rateLimited(lastErr))

			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(sleepDuration):
			}
		}

		if wait != nil {
			if err := wait(ctx); err != nil {
				return "", fmt.Errorf("rate limiter wait failed: %w", err)
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		text, err := call(attemptCtx)
		cancel()
		if err == nil {
			return text, nil
		}

		lastErr = err
		if !retryable(err) {
			return "", err
		}
	}

	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}
