package observability

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestTraceMiddlewarePreservesIncomingTraceID(t *testing.T) {
	h := TraceMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := TraceIDFromContext(r.Context()); got != "trace-1" {
			t.Fatalf("TraceIDFromContext() = %q", got)
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	req.Header.Set(traceHeader, "trace-1")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get(traceHeader); got != "trace-1" {
		t.Fatalf("trace header = %q", got)
	}
}

func TestTraceMiddlewareGeneratesTraceID(t *testing.T) {
	h := TraceMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if TraceIDFromContext(r.Context()) == "" {
			t.Fatal("expected generated trace id")
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/health", nil))

	if rr.Header().Get(traceHeader) == "" {
		t.Fatal("expected X-Trace-ID header")
	}
}

func TestTraceIDContextHelpers(t *testing.T) {
	ctx := ContextWithTraceID(context.Background(), "abc123")
	if got := TraceIDFromContext(ctx); got != "abc123" {
		t.Fatalf("TraceIDFromContext() = %q", got)
	}
}

func TestLoggingMiddlewareDoesNotPanic(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	h := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
}

func TestTraceMiddlewareReplacesOversizedTraceID(t *testing.T) {
	var seen string
	h := TraceMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = TraceIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	req.Header.Set(traceHeader, strings.Repeat("x", maxTraceIDLength+1))
	h.ServeHTTP(httptest.NewRecorder(), req)

	if _, err := uuid.Parse(seen); err != nil {
		t.Fatalf("trace id = %q, want generated uuid", seen)
	}
}

func TestMetricsMiddlewareCountsRequests(t *testing.T) {
	h := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/metrics-test", "418"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics-test", nil))
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/metrics-test", "418"))
	if after-before != 1 {
		t.Fatalf("sqlask_http_requests_total delta = %v, want 1", after-before)
	}
}

func TestDomainMetricHelpers(t *testing.T) {
	before := testutil.ToFloat64(oracleCallsTotal.WithLabelValues(OutcomeRateLimited))
	ObserveOracleCall(OutcomeRateLimited)
	if got := testutil.ToFloat64(oracleCallsTotal.WithLabelValues(OutcomeRateLimited)) - before; got != 1 {
		t.Fatalf("oracle calls delta = %v", got)
	}

	exhausted := testutil.ToFloat64(oracleRetriesExhaustedTotal)
	IncrementOracleRetriesExhausted()
	if got := testutil.ToFloat64(oracleRetriesExhaustedTotal) - exhausted; got != 1 {
		t.Fatalf("retries exhausted delta = %v", got)
	}

	executions := testutil.ToFloat64(sqlExecutionsTotal.WithLabelValues(OutcomeError))
	ObserveSQLExecution(OutcomeError)
	if got := testutil.ToFloat64(sqlExecutionsTotal.WithLabelValues(OutcomeError)) - executions; got != 1 {
		t.Fatalf("sql executions delta = %v", got)
	}

	ObserveOracleBackoff(12 * time.Second)
	ObserveTranslation(OutcomeOK, time.Second)
}
