package oracle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

type OpenAIConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
	HTTPClient  *http.Client
}

// OpenAI targets any OpenAI-compatible chat completions endpoint. SDK retries are
// disabled so rate limits reach the Client's BackoffPolicy.
type OpenAI struct {
	client      openai.Client
	model       string
	temperature float64
}

func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	client := openai.NewClient(
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithBaseURL(strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")+"/"),
		option.WithMaxRetries(0),
		option.WithHTTPClient(httpClient),
	)
	return &OpenAI{client: client, model: model, temperature: cfg.Temperature}, nil
}

func (o *OpenAI) Generate(ctx context.Context, prompt string) (string, error) {
	completion, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(o.temperature),
	})
	if err != nil {
		return "", classifyOpenAIError(ctx, err)
	}
	if len(completion.Choices) == 0 {
		return "", &Error{Kind: KindEmpty, Message: "chat completion returned no choices"}
	}
	text := completion.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return "", &Error{Kind: KindEmpty, Message: "chat completion returned empty content"}
	}
	return text, nil
}

func classifyOpenAIError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return &Error{Kind: KindTransport, Message: "request chat completion", Err: err}
	}

	body := apiErr.RawJSON()
	message := strings.TrimSpace(apiErr.Message)
	if message == "" {
		message = errorMessage(body)
	}
	var header http.Header
	if apiErr.Response != nil {
		header = apiErr.Response.Header
	}
	oerr := classifyStatus(apiErr.StatusCode, header, body, message)
	oerr.Err = err
	return oerr
}
