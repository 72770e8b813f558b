package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	coreerrors "github.com/vistaceo/insight-engine/internal/core/errors"
)

const (
	defaultMaxRetries   = 2
	defaultInitialDelay = 500 * time.Millisecond
	delayMultiplier     = 2
)

// RetryConfig configures retry behavior for completion calls.
type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
}

// DefaultRetryConfig returns the default retry configuration: two retries
// with exponential backoff.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   defaultMaxRetries,
		InitialDelay: defaultInitialDelay,
	}
}

// retryTransient runs fn, retrying only transient failures with exponential
// backoff. Rate-limit, quota and malformed errors return immediately so the
// caller can surface them as distinct outcomes.
func retryTransient(ctx context.Context, cfg RetryConfig, fn func() (Result, error)) (Result, error) {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = defaultMaxRetries
	}

	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = defaultInitialDelay
	}

	var (
		result  Result
		lastErr error
	)

	delay := cfg.InitialDelay

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return Result{}, fmt.Errorf("retry interrupted: %w", ctx.Err())
			case <-time.After(delay):
				delay *= delayMultiplier
			}
		}

		result, lastErr = fn()
		if lastErr == nil {
			return result, nil
		}

		if !errors.Is(lastErr, coreerrors.ErrTransient) {
			return Result{}, lastErr
		}
	}

	return Result{}, lastErr
}
