package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tidwall/gjson"
)

func TestGeminiGenerateReturnsCandidateText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta/models/gemini-2.5-flash:generateContent" {
			t.Fatalf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("x-goog-api-key"); got != "secret" {
			t.Fatalf("x-goog-api-key = %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if got := gjson.GetBytes(body, "contents.0.parts.0.text").String(); got != "how many defects?" {
			t.Fatalf("prompt = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"parts": []map[string]any{
						{"text": "```sql\nSELECT COUNT(*) "},
						{"text": "FROM defects\n```"},
					},
				},
				"finishReason": "STOP",
			}},
		})
	}))
	defer server.Close()

	gemini, err := NewGemini(GeminiConfig{BaseURL: server.URL, APIKey: "secret"})
	if err != nil {
		t.Fatalf("NewGemini() error = %v", err)
	}
	got, err := gemini.Generate(context.Background(), "how many defects?")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != "```sql\nSELECT COUNT(*) FROM defects\n```" {
		t.Fatalf("Generate() = %q", got)
	}
}

func TestGeminiGenerateClassifiesRateLimitWithRetryInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{
  "error": {
    "code": 429,
    "message": "You exceeded your current quota. Please retry in 41.2s.",
    "status": "RESOURCE_EXHAUSTED",
    "details": [
      {"@type": "type.googleapis.com/google.rpc.QuotaFailure", "violations": []},
      {"@type": "type.googleapis.com/google.rpc.RetryInfo", "retryDelay": "41s"}
    ]
  }
}`)
	}))
	defer server.Close()

	gemini, err := NewGemini(GeminiConfig{BaseURL: server.URL, APIKey: "secret"})
	if err != nil {
		t.Fatalf("NewGemini() error = %v", err)
	}
	_, err = gemini.Generate(context.Background(), "q")
	var oerr *Error
	if !errors.As(err, &oerr) {
		t.Fatalf("Generate() error = %v, want *Error", err)
	}
	if !oerr.RateLimited() || !oerr.HasRetryAfter || oerr.RetryAfter != 41*time.Second {
		t.Fatalf("error = %+v", oerr)
	}
	if oerr.Message != "You exceeded your current quota. Please retry in 41.2s." {
		t.Fatalf("Message = %q", oerr.Message)
	}
}

func TestGeminiGenerateClassifiesServerAndClientErrors(t *testing.T) {
	tests := []struct {
		status int
		want   Kind
	}{
		{status: http.StatusInternalServerError, want: KindUnavailable},
		{status: http.StatusBadRequest, want: KindRejected},
		{status: http.StatusForbidden, want: KindRejected},
	}
	for _, tt := range tests {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			_, _ = io.WriteString(w, `{"error":{"message":"nope"}}`)
		}))
		gemini, err := NewGemini(GeminiConfig{BaseURL: server.URL, APIKey: "secret"})
		if err != nil {
			t.Fatalf("NewGemini() error = %v", err)
		}
		_, err = gemini.Generate(context.Background(), "q")
		server.Close()

		var oerr *Error
		if !errors.As(err, &oerr) || oerr.Kind != tt.want || oerr.StatusCode != tt.status {
			t.Fatalf("status %d: error = %v", tt.status, err)
		}
	}
}

func TestGeminiGenerateReportsBlockedPrompt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"promptFeedback":{"blockReason":"SAFETY"}}`)
	}))
	defer server.Close()

	gemini, err := NewGemini(GeminiConfig{BaseURL: server.URL, APIKey: "secret"})
	if err != nil {
		t.Fatalf("NewGemini() error = %v", err)
	}
	_, err = gemini.Generate(context.Background(), "q")
	var oerr *Error
	if !errors.As(err, &oerr) || oerr.Kind != KindRejected {
		t.Fatalf("Generate() error = %v", err)
	}
}

func TestNewGeminiRequiresAPIKey(t *testing.T) {
	if _, err := NewGemini(GeminiConfig{}); err == nil {
		t.Fatal("expected error without api key")
	}
}
