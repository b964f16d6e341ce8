// Package oracle wraps hosted LLM completion APIs behind a single Oracle interface and
// retries rate-limited calls according to a BackoffPolicy.
package oracle

import (
	"context"
	"fmt"
	"time"
)

// Oracle turns one prompt into one completion. Implementations classify failures as *Error.
type Oracle interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Kind string

const (
	KindRateLimited Kind = "rate_limited"
	KindRejected    Kind = "rejected"
	KindUnavailable Kind = "unavailable"
	KindTransport   Kind = "transport"
	KindEmpty       Kind = "empty"
)

type Error struct {
	Kind          Kind
	StatusCode    int
	Message       string
	RetryAfter    time.Duration
	HasRetryAfter bool
	Err           error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("oracle %s (status %d): %s", e.Kind, e.StatusCode, msg)
	}
	return fmt.Sprintf("oracle %s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) RateLimited() bool {
	return e.Kind == KindRateLimited
}

// ExhaustedError reports that every allowed attempt was rate limited.
type ExhaustedError struct {
	Attempts int
	Last     *Error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("oracle still rate limited after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	if e.Last == nil {
		return nil
	}
	return e.Last
}

// Func adapts a plain function to Oracle.
type Func func(ctx context.Context, prompt string) (string, error)

func (f Func) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
