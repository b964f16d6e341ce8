package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	HTTP          HTTPConfig
	Store         StoreConfig
	LLM           LLMConfig
	Prompt        PromptConfig
	ObjectStore   ObjectStoreConfig
	Observability ObservabilityConfig
	Auth          AuthConfig
	RateLimit     RateLimitConfig
}

type ServiceConfig struct {
	Name string
}

type HTTPConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type StoreConfig struct {
	Driver         string
	DSN            string
	ConnectTimeout time.Duration
}

type LLMConfig struct {
	Provider      string
	BaseURL       string
	APIKey        string
	Model         string
	Temperature   float64
	Timeout       time.Duration
	MaxAttempts   int
	RetryMargin   time.Duration
	RetryFallback time.Duration
}

// queryOracleCalls is the number of completions one /v1/query makes: SQL synthesis
// and summarization.
const queryOracleCalls = 2

// queryStoreAllowance covers schema reads and statement execution around the oracle calls.
const queryStoreAllowance = 30 * time.Second

// QueryBudget is the longest a /v1/query can take when every attempt times out and every
// wait uses RetryFallback. A server-suggested delay longer than RetryFallback can still
// exceed it.
func (c LLMConfig) QueryBudget() time.Duration {
	attempts := time.Duration(c.MaxAttempts)
	if attempts <= 0 {
		attempts = 1
	}
	perCall := attempts*c.Timeout + (attempts-1)*c.RetryFallback
	return queryOracleCalls*perCall + queryStoreAllowance
}

type PromptConfig struct {
	GlossaryPath   string
	AnswerLanguage string
}

type ObjectStoreConfig struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	Prefix          string
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

type AuthConfig struct {
	Required   bool
	StaticKeys string
}

type RateLimitConfig struct {
	RequestsPerMinute int
	Burst             int
}

func LoadFromEnv(serviceName string) (Config, error) {
	return Load(serviceName, os.LookupEnv)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("SQLASK_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid SQLASK_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	// GEMINI_API_KEY is a fallback; SQLASK_LLM_API_KEY wins when both are set.
	if err := applyString(lookup, "GEMINI_API_KEY", &cfg.LLM.APIKey); err != nil {
		return Config{}, err
	}

	appliers := []func() error{
		func() error { return applyString(lookup, "SQLASK_SERVICE_NAME", &cfg.Service.Name) },
		func() error { return applyString(lookup, "SQLASK_HTTP_ADDR", &cfg.HTTP.Address) },
		func() error { return applyDuration(lookup, "SQLASK_HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout) },
		func() error { return applyDuration(lookup, "SQLASK_HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout) },
		func() error { return applyDuration(lookup, "SQLASK_HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout) },
		func() error { return applyLower(lookup, "SQLASK_STORE_DRIVER", &cfg.Store.Driver) },
		func() error { return applyString(lookup, "SQLASK_STORE_DSN", &cfg.Store.DSN) },
		func() error { return applyDuration(lookup, "SQLASK_STORE_CONNECT_TIMEOUT", &cfg.Store.ConnectTimeout) },
		func() error { return applyLower(lookup, "SQLASK_LLM_PROVIDER", &cfg.LLM.Provider) },
		func() error { return applyString(lookup, "SQLASK_LLM_BASE_URL", &cfg.LLM.BaseURL) },
		func() error { return applyString(lookup, "SQLASK_LLM_API_KEY", &cfg.LLM.APIKey) },
		func() error { return applyString(lookup, "SQLASK_LLM_MODEL", &cfg.LLM.Model) },
		func() error { return applyFloat(lookup, "SQLASK_LLM_TEMPERATURE", &cfg.LLM.Temperature) },
		func() error { return applyDuration(lookup, "SQLASK_LLM_TIMEOUT", &cfg.LLM.Timeout) },
		func() error { return applyInt(lookup, "SQLASK_LLM_MAX_ATTEMPTS", &cfg.LLM.MaxAttempts) },
		func() error { return applyDuration(lookup, "SQLASK_LLM_RETRY_MARGIN", &cfg.LLM.RetryMargin) },
		func() error { return applyDuration(lookup, "SQLASK_LLM_RETRY_FALLBACK", &cfg.LLM.RetryFallback) },
		func() error { return applyString(lookup, "SQLASK_GLOSSARY_PATH", &cfg.Prompt.GlossaryPath) },
		func() error { return applyString(lookup, "SQLASK_ANSWER_LANGUAGE", &cfg.Prompt.AnswerLanguage) },
		func() error { return applyString(lookup, "SQLASK_OBJECTSTORE_ENDPOINT", &cfg.ObjectStore.Endpoint) },
		func() error { return applyString(lookup, "SQLASK_OBJECTSTORE_REGION", &cfg.ObjectStore.Region) },
		func() error { return applyString(lookup, "SQLASK_OBJECTSTORE_BUCKET", &cfg.ObjectStore.Bucket) },
		func() error {
			return applyString(lookup, "SQLASK_OBJECTSTORE_ACCESS_KEY", &cfg.ObjectStore.AccessKeyID)
		},
		func() error {
			return applyString(lookup, "SQLASK_OBJECTSTORE_SECRET_KEY", &cfg.ObjectStore.SecretAccessKey)
		},
		func() error { return applyBool(lookup, "SQLASK_OBJECTSTORE_USE_SSL", &cfg.ObjectStore.UseSSL) },
		func() error { return applyString(lookup, "SQLASK_OBJECTSTORE_PREFIX", &cfg.ObjectStore.Prefix) },
		func() error { return applyBool(lookup, "SQLASK_LOG_JSON", &cfg.Observability.LogJSON) },
		func() error { return applyLogLevel(lookup, "SQLASK_LOG_LEVEL", &cfg.Observability.LogLevel) },
		func() error { return applyBool(lookup, "SQLASK_AUTH_REQUIRED", &cfg.Auth.Required) },
		func() error { return applyString(lookup, "SQLASK_AUTH_STATIC_KEYS", &cfg.Auth.StaticKeys) },
		func() error { return applyInt(lookup, "SQLASK_RATE_LIMIT_RPM", &cfg.RateLimit.RequestsPerMinute) },
		func() error { return applyInt(lookup, "SQLASK_RATE_LIMIT_BURST", &cfg.RateLimit.Burst) },
	}
	for _, apply := range appliers {
		if err := apply(); err != nil {
			return Config{}, err
		}
	}

	if cfg.Service.Name == "" {
		return Config{}, fmt.Errorf("service name is required")
	}
	if cfg.HTTP.Address == "" {
		return Config{}, fmt.Errorf("http address is required")
	}
	if !isValidStoreDriver(cfg.Store.Driver) {
		return Config{}, fmt.Errorf("invalid SQLASK_STORE_DRIVER: %q", cfg.Store.Driver)
	}
	if !isValidProvider(cfg.LLM.Provider) {
		return Config{}, fmt.Errorf("invalid SQLASK_LLM_PROVIDER: %q", cfg.LLM.Provider)
	}
	if cfg.LLM.MaxAttempts <= 0 {
		return Config{}, fmt.Errorf("SQLASK_LLM_MAX_ATTEMPTS must be positive")
	}
	if cfg.HTTP.WriteTimeout <= 0 {
		cfg.HTTP.WriteTimeout = cfg.LLM.QueryBudget()
	}
	return cfg, nil
}

// RequireOracle reports the settings a process needs before it may talk to the oracle.
// Services that translate questions call it at startup so a missing credential stops the
// process instead of failing individual requests.
func (c Config) RequireOracle() error {
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return fmt.Errorf("SQLASK_LLM_API_KEY (or GEMINI_API_KEY) is required")
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		return fmt.Errorf("SQLASK_LLM_MODEL is required")
	}
	if c.LLM.Provider == "openai" && strings.TrimSpace(c.LLM.BaseURL) == "" {
		return fmt.Errorf("SQLASK_LLM_BASE_URL is required for the openai provider")
	}
	return nil
}

func (c Config) RequireStore() error {
	if strings.TrimSpace(c.Store.DSN) == "" {
		return fmt.Errorf("SQLASK_STORE_DSN is required")
	}
	return nil
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "sqlask-api"},
		HTTP: HTTPConfig{
			Address:     ":8080",
			ReadTimeout: 5 * time.Second,
			// Zero means derived from the LLM settings in Load.
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		},
		Store: StoreConfig{
			Driver:         "sqlite",
			DSN:            "data/factory.db",
			ConnectTimeout: 5 * time.Second,
		},
		LLM: LLMConfig{
			Provider:      "gemini",
			BaseURL:       "https://generativelanguage.googleapis.com",
			Model:         "gemini-2.5-flash",
			Temperature:   0,
			Timeout:       60 * time.Second,
			MaxAttempts:   3,
			RetryMargin:   5 * time.Second,
			RetryFallback: 65 * time.Second,
		},
		Prompt: PromptConfig{
			AnswerLanguage: "Traditional Chinese",
		},
		ObjectStore: ObjectStoreConfig{
			Endpoint:        "localhost:9000",
			Region:          "us-east-1",
			Bucket:          "sqlask-seed",
			AccessKeyID:     "minio",
			SecretAccessKey: "miniostorage",
			UseSSL:          false,
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  true,
		},
		Auth: AuthConfig{
			Required:   false,
			StaticKeys: "",
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 0,
			Burst:             5,
		},
	}

	switch profile {
	case ProfileTest:
		cfg.HTTP.Address = ":18080"
		cfg.Observability.LogLevel = slog.LevelWarn
		cfg.Auth.Required = false
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.Auth.Required = true
		cfg.ObjectStore.UseSSL = true
		cfg.RateLimit.RequestsPerMinute = 30
	}

	return cfg
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func isValidStoreDriver(driver string) bool {
	switch driver {
	case "sqlite", "duckdb", "postgres":
		return true
	default:
		return false
	}
}

func isValidProvider(provider string) bool {
	switch provider {
	case "gemini", "openai":
		return true
	default:
		return false
	}
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyLower(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.ToLower(strings.TrimSpace(raw))
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyFloat(lookup LookupFunc, key string, dst *float64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
