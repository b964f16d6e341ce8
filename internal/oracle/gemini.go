package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
	DefaultGeminiModel   = "gemini-2.5-flash"
)

type GeminiConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
	HTTPClient  *http.Client
}

// Gemini calls the generateContent REST method directly.
type Gemini struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	client      *http.Client
}

func NewGemini(cfg GeminiConfig) (*Gemini, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultGeminiBaseURL
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultGeminiModel
	}
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Gemini{
		baseURL:     baseURL,
		apiKey:      strings.TrimSpace(cfg.APIKey),
		model:       model,
		temperature: cfg.Temperature,
		client:      client,
	}, nil
}

func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(buildGeminiPayload(g.temperature, prompt))
	if err != nil {
		return "", fmt.Errorf("marshal generateContent payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseURL, url.PathEscape(g.model))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build generateContent request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &Error{Kind: KindTransport, Message: "request generateContent", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	rawRespBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{Kind: KindTransport, StatusCode: resp.StatusCode, Message: "read generateContent response", Err: err}
	}
	raw := string(rawRespBody)
	if resp.StatusCode >= 400 {
		return "", classifyStatus(resp.StatusCode, resp.Header, raw, errorMessage(raw))
	}

	text, err := geminiText(raw)
	if err != nil {
		return "", err
	}
	return text, nil
}

func buildGeminiPayload(temperature float64, prompt string) map[string]any {
	return map[string]any{
		"contents": []map[string]any{
			{
				"role":  "user",
				"parts": []map[string]string{{"text": prompt}},
			},
		},
		"generationConfig": map[string]any{
			"temperature": temperature,
		},
	}
}

func geminiText(raw string) (string, error) {
	if !gjson.Valid(raw) {
		return "", &Error{Kind: KindUnavailable, Message: "generateContent returned invalid JSON"}
	}
	candidate := gjson.Get(raw, "candidates.0")
	if !candidate.Exists() {
		reason := gjson.Get(raw, "promptFeedback.blockReason").String()
		if reason != "" {
			return "", &Error{Kind: KindRejected, Message: "prompt blocked: " + reason}
		}
		return "", &Error{Kind: KindEmpty, Message: "generateContent returned no candidates"}
	}

	var text strings.Builder
	candidate.Get("content.parts").ForEach(func(_, part gjson.Result) bool {
		if part.Get("thought").Bool() {
			return true
		}
		text.WriteString(part.Get("text").String())
		return true
	})
	if strings.TrimSpace(text.String()) == "" {
		finish := candidate.Get("finishReason").String()
		return "", &Error{Kind: KindEmpty, Message: "generateContent returned empty text (finishReason=" + finish + ")"}
	}
	return text.String(), nil
}
