package oracle

import (
	"fmt"
	"net/http"

	"github.com/sqlask/sqlask/internal/config"
)

// FromConfig builds the adapter selected by cfg.Provider.
func FromConfig(cfg config.LLMConfig, httpClient *http.Client) (Oracle, error) {
	switch cfg.Provider {
	case "", "gemini":
		return NewGemini(GeminiConfig{
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
			HTTPClient:  httpClient,
		})
	case "openai":
		return NewOpenAI(OpenAIConfig{
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
			HTTPClient:  httpClient,
		})
	default:
		return nil, fmt.Errorf("unsupported oracle provider %q", cfg.Provider)
	}
}

// NewClientFromConfig wires the adapter and the retry settings from cfg.
func NewClientFromConfig(cfg config.LLMConfig, httpClient *http.Client) (*Client, error) {
	adapter, err := FromConfig(cfg, httpClient)
	if err != nil {
		return nil, err
	}
	client := NewClient(adapter)
	if cfg.MaxAttempts > 0 {
		client.MaxAttempts = cfg.MaxAttempts
	}
	policy := DefaultBackoffPolicy()
	if cfg.RetryMargin > 0 {
		policy.Margin = cfg.RetryMargin
	}
	if cfg.RetryFallback > 0 {
		policy.Fallback = cfg.RetryFallback
	}
	client.Policy = policy
	return client, nil
}
