package oracle

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

var retryInPattern = regexp.MustCompile(`(?i)retry in ([\d.]+)\s*s`)

// classifyStatus maps an HTTP failure to an *Error, pulling any suggested delay from the
// Retry-After header, a google.rpc.RetryInfo detail, or the "Please retry in Ns" text.
func classifyStatus(status int, header http.Header, body, message string) *Error {
	oerr := &Error{StatusCode: status, Message: message}
	switch {
	case status == http.StatusTooManyRequests:
		oerr.Kind = KindRateLimited
		oerr.RetryAfter, oerr.HasRetryAfter = suggestedDelay(header, body, message)
	case status >= http.StatusInternalServerError:
		oerr.Kind = KindUnavailable
	default:
		oerr.Kind = KindRejected
	}
	return oerr
}

func suggestedDelay(header http.Header, body, message string) (time.Duration, bool) {
	if delay, ok := retryAfterHeader(header); ok {
		return delay, true
	}
	if delay, ok := retryInfoDetail(body); ok {
		return delay, true
	}
	for _, text := range []string{message, body} {
		if delay, ok := parseRetryIn(text); ok {
			return delay, true
		}
	}
	return 0, false
}

func retryAfterHeader(header http.Header) (time.Duration, bool) {
	if header == nil {
		return 0, false
	}
	raw := strings.TrimSpace(header.Get("Retry-After"))
	if raw == "" {
		return 0, false
	}
	if seconds, err := strconv.ParseFloat(raw, 64); err == nil && seconds >= 0 {
		return time.Duration(seconds * float64(time.Second)), true
	}
	if at, err := http.ParseTime(raw); err == nil {
		delay := time.Until(at)
		if delay < 0 {
			delay = 0
		}
		return delay, true
	}
	return 0, false
}

func retryInfoDetail(body string) (time.Duration, bool) {
	if !gjson.Valid(body) {
		return 0, false
	}
	var (
		delay time.Duration
		found bool
	)
	gjson.Get(body, "error.details").ForEach(func(_, detail gjson.Result) bool {
		raw := detail.Get("retryDelay")
		if !raw.Exists() {
			return true
		}
		parsed, err := time.ParseDuration(strings.TrimSpace(raw.String()))
		if err != nil || parsed < 0 {
			return true
		}
		delay, found = parsed, true
		return false
	})
	return delay, found
}

func parseRetryIn(text string) (time.Duration, bool) {
	match := retryInPattern.FindStringSubmatch(text)
	if len(match) != 2 {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(strings.TrimSuffix(match[1], "."), 64)
	if err != nil || seconds < 0 {
		return 0, false
	}
	return time.Duration(seconds * float64(time.Second)), true
}

// errorMessage extracts a readable message from a JSON error body.
func errorMessage(body string) string {
	for _, path := range []string{"error.message", "message", "error"} {
		if value := gjson.Get(body, path); value.Type == gjson.String && value.String() != "" {
			return value.String()
		}
	}
	return strings.TrimSpace(body)
}
