package oracle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sqlask/sqlask/internal/observability"
)

const (
	DefaultMaxAttempts   = 3
	DefaultRetryMargin   = 5 * time.Second
	DefaultRetryFallback = 65 * time.Second
)

// BackoffPolicy decides how long to wait after a rate-limited attempt.
type BackoffPolicy interface {
	Wait(err *Error) time.Duration
}

// SuggestedDelayPolicy waits the provider's suggested delay, truncated to whole seconds,
// plus Margin. Without a suggestion it waits Fallback.
type SuggestedDelayPolicy struct {
	Margin   time.Duration
	Fallback time.Duration
}

func DefaultBackoffPolicy() SuggestedDelayPolicy {
	return SuggestedDelayPolicy{Margin: DefaultRetryMargin, Fallback: DefaultRetryFallback}
}

func (p SuggestedDelayPolicy) Wait(err *Error) time.Duration {
	if err == nil || !err.HasRetryAfter {
		return p.Fallback
	}
	delay := err.RetryAfter.Truncate(time.Second)
	if delay < 0 {
		delay = 0
	}
	return delay + p.Margin
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Client retries rate-limited oracle calls. It holds no state shared between calls.
type Client struct {
	Oracle      Oracle
	Policy      BackoffPolicy
	MaxAttempts int
	Sleep       SleepFunc
	Logger      *slog.Logger
}

func NewClient(oracle Oracle) *Client {
	return &Client{
		Oracle:      oracle,
		Policy:      DefaultBackoffPolicy(),
		MaxAttempts: DefaultMaxAttempts,
		Sleep:       SleepContext,
	}
}

func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteWithAttempts(ctx, prompt, c.MaxAttempts)
}

func (c *Client) CompleteWithAttempts(ctx context.Context, prompt string, maxAttempts int) (string, error) {
	if c.Oracle == nil {
		return "", fmt.Errorf("oracle is required")
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	policy := c.Policy
	if policy == nil {
		policy = DefaultBackoffPolicy()
	}
	sleep := c.Sleep
	if sleep == nil {
		sleep = SleepContext
	}
	logger := c.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var last *Error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		text, err := c.Oracle.Generate(ctx, prompt)
		if err == nil {
			observability.ObserveOracleCall(observability.OutcomeOK)
			return text, nil
		}

		var oerr *Error
		if !errors.As(err, &oerr) || !oerr.RateLimited() {
			observability.ObserveOracleCall(observability.OutcomeError)
			return "", fmt.Errorf("oracle attempt %d: %w", attempt, err)
		}
		observability.ObserveOracleCall(observability.OutcomeRateLimited)
		last = oerr
		if attempt == maxAttempts {
			break
		}

		wait := policy.Wait(oerr)
		logger.WarnContext(ctx, "oracle_rate_limited",
			slog.String("trace_id", observability.TraceIDFromContext(ctx)),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", maxAttempts),
			slog.Duration("wait", wait),
			slog.Bool("suggested", oerr.HasRetryAfter),
		)
		observability.ObserveOracleBackoff(wait)
		if err := sleep(ctx, wait); err != nil {
			return "", fmt.Errorf("wait before oracle attempt %d: %w", attempt+1, err)
		}
	}

	observability.IncrementOracleRetriesExhausted()
	logger.ErrorContext(ctx, "oracle_retries_exhausted",
		slog.String("trace_id", observability.TraceIDFromContext(ctx)),
		slog.Int("attempts", maxAttempts),
	)
	return "", &ExhaustedError{Attempts: maxAttempts, Last: last}
}
