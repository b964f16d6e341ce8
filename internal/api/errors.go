package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sqlask/sqlask/internal/nl2sql"
	"github.com/sqlask/sqlask/internal/observability"
	"github.com/sqlask/sqlask/internal/oracle"
	"github.com/sqlask/sqlask/internal/store"
)

// writeCoreError maps pipeline failures onto the error envelope.
func writeCoreError(deps Dependencies, w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	if deps.Logger != nil {
		deps.Logger.WarnContext(ctx, "request_failed",
			slog.String("trace_id", observability.TraceIDFromContext(ctx)),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}

	var exhausted *oracle.ExhaustedError
	var oracleErr *oracle.Error
	switch {
	case errors.As(err, &exhausted):
		extra := map[string]any{"attempts": exhausted.Attempts}
		if exhausted.Last != nil && exhausted.Last.HasRetryAfter {
			seconds := int(exhausted.Last.RetryAfter.Seconds()) + 1
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
			extra["retry_after_seconds"] = seconds
		}
		writeError(ctx, w, http.StatusServiceUnavailable, "ORACLE_RETRIES_EXHAUSTED", "language model is rate limited; retries exhausted", true, extra)
	case errors.Is(err, store.ErrUnavailable):
		// Checked before the deadline cases: a connect timeout is still an unreachable store.
		writeError(ctx, w, http.StatusInternalServerError, "STORE_UNAVAILABLE", "database is unavailable", true, map[string]any{
			"details": err.Error(),
		})
	case errors.Is(err, context.DeadlineExceeded):
		writeError(ctx, w, http.StatusGatewayTimeout, "REQUEST_TIMEOUT", "request deadline exceeded", true, nil)
	case errors.Is(err, context.Canceled):
		writeError(ctx, w, http.StatusServiceUnavailable, "REQUEST_CANCELED", "request was canceled", true, nil)
	case errors.As(err, &oracleErr):
		retryable := oracleErr.Kind == oracle.KindUnavailable || oracleErr.Kind == oracle.KindTransport
		writeError(ctx, w, http.StatusBadGateway, "ORACLE_FAILED", "language model call failed", retryable, map[string]any{
			"kind":    string(oracleErr.Kind),
			"details": oracleErr.Error(),
		})
	case errors.Is(err, nl2sql.ErrMalformedCompletion):
		writeError(ctx, w, http.StatusBadGateway, "MALFORMED_COMPLETION", "language model returned an unusable SQL completion", true, map[string]any{
			"details": err.Error(),
		})
	default:
		writeError(ctx, w, http.StatusInternalServerError, "STORE_UNAVAILABLE", "database request failed", true, map[string]any{
			"details": err.Error(),
		})
	}
}
