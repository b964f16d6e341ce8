package sqlaskctl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
}

// requestError marks failures that happened after the command line was accepted.
type requestError struct {
	err error
}

func (e requestError) Error() string { return e.err.Error() }

func (e requestError) Unwrap() error { return e.err }

// Run executes one command and returns the process exit code:
// 0 on success, 1 when the request or the server fails, 2 on usage errors.
func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	root := newRootCommand(defaults, stdout)
	root.SetArgs(args)
	root.SetOut(stderr)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	_, _ = fmt.Fprintln(stderr, err)
	var reqErr requestError
	if errors.As(err, &reqErr) {
		return 1
	}
	return 2
}

type client struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	http    *http.Client
	stdout  io.Writer
}

func newRootCommand(defaults Options, stdout io.Writer) *cobra.Command {
	c := &client{http: defaults.HTTPClient, stdout: stdout}

	root := &cobra.Command{
		Use:   "sqlaskctl",
		Short: "Ask questions of a sqlask API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = cmd.Usage()
			return errors.New("a command is required")
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&c.baseURL, "base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:8080"), "sqlask API base URL")
	root.PersistentFlags().StringVar(&c.apiKey, "api-key", defaults.APIKey, "API key for authenticated requests")
	// Questions can wait out two oracle backoffs, so the default is generous.
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", durationOr(defaults.Timeout, 5*time.Minute), "HTTP timeout (e.g. 30s)")

	root.AddCommand(
		c.textCommand("ask <question>", "Answer a question in natural language", "/v1/query", "question"),
		c.textCommand("generate-sql <question>", "Show the SQL a question translates to", "/v1/generate-sql", "question"),
		c.textCommand("run-sql <sql>", "Execute a SQL statement and print the rows", "/v1/run-sql", "sql"),
		c.getCommand("schema", "Print the live database schema", "/v1/schema"),
		c.getCommand("health", "GET /v1/health", "/v1/health"),
		c.getCommand("ready", "GET /v1/ready", "/v1/ready"),
	)
	return root
}

// textCommand posts the joined arguments as a single JSON string field.
func (c *client) textCommand(use, short, path, field string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.TrimSpace(strings.Join(args, " "))
			if text == "" {
				return fmt.Errorf("%s must not be empty", field)
			}
			body, err := json.Marshal(map[string]string{field: text})
			if err != nil {
				return err
			}
			return c.call(cmd.Context(), http.MethodPost, path, body)
		},
	}
}

func (c *client) getCommand(use, short, path string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.call(cmd.Context(), http.MethodGet, path, nil)
		},
	}
}

func (c *client) call(ctx context.Context, method, path string, body []byte) error {
	httpClient := c.http
	if httpClient == nil {
		httpClient = &http.Client{Timeout: c.timeout}
	}
	endpoint := strings.TrimRight(c.baseURL, "/") + path
	code, responseBody, err := doRequest(ctx, httpClient, method, endpoint, c.apiKey, body)
	if err != nil {
		return requestError{fmt.Errorf("request failed: %w", err)}
	}
	if code >= 400 {
		return requestError{fmt.Errorf("http %d: %s", code, strings.TrimSpace(string(responseBody)))}
	}

	if pretty, ok := prettyJSON(responseBody); ok {
		_, _ = fmt.Fprintln(c.stdout, pretty)
		return nil
	}
	if len(responseBody) > 0 {
		_, _ = fmt.Fprintln(c.stdout, string(responseBody))
	}
	return nil
}

func doRequest(ctx context.Context, client *http.Client, method, url, apiKey string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(apiKey) != "" {
		req.Header.Set("X-API-Key", strings.TrimSpace(apiKey))
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, responseBody, nil
}

func prettyJSON(raw []byte) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", false
	}
	var anyValue any
	if err := json.Unmarshal(raw, &anyValue); err != nil {
		return "", false
	}
	buf := bytes.NewBuffer(nil)
	encoder := json.NewEncoder(buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(anyValue); err != nil {
		return "", false
	}
	return strings.TrimRight(buf.String(), "\n"), true
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
