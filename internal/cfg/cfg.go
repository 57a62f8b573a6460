// Package cfg holds the application-level configuration for the argus
// server. Framework packages (http, logging, tracing) register their own
// flags; this covers the pipeline and its collaborators.
package cfg

import (
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/linnemanlabs/argus/internal/alert"
)

// Providers argus can drive for explanation generation.
var llmProviders = []string{"claude", "openai", "gemini", "ollama"}

// Config adds app-specific configuration fields to the common
// cfg.Registerable and cfg.Validatable interfaces.
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	APIToken              string

	MinPriority   string
	MaxAgeMinutes int

	DedupEnabled       bool
	DedupWindowSeconds int

	LLMProvider       string
	LLMAPIKey         string
	LLMModel          string
	LLMEndpoint       string
	LLMTimeoutSeconds int
	LLMMaxTokens      int
	LLMTemperature    float64

	WeaviateEndpoint  string
	WeaviateLimit     int
	WeaviateCertainty float64

	SlackWebhookURL string
	DatabaseURL     string
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.APIToken, "api-token", "", "bearer token required on API requests (empty = auth disabled)")
	fs.StringVar(&c.MinPriority, "min-priority", "warning", "lowest alert priority admitted into the pipeline")
	fs.IntVar(&c.MaxAgeMinutes, "max-age-minutes", 60, "reject alerts older than this many minutes (0 = disabled)")
	fs.BoolVar(&c.DedupEnabled, "dedup-enabled", true, "suppress duplicate alerts within the dedup window")
	fs.IntVar(&c.DedupWindowSeconds, "dedup-window-seconds", 60, "deduplication window in seconds (1..3600)")
	fs.StringVar(&c.LLMProvider, "llm-provider", "", "LLM provider: claude, openai, gemini, or ollama (empty = enrichment disabled)")
	fs.StringVar(&c.LLMAPIKey, "llm-api-key", "", "API key for the LLM provider")
	fs.StringVar(&c.LLMModel, "llm-model", "", "model name for the LLM provider")
	fs.StringVar(&c.LLMEndpoint, "llm-endpoint", "", "base URL override for the LLM provider (required for ollama)")
	fs.IntVar(&c.LLMTimeoutSeconds, "llm-timeout-seconds", 30, "per-call LLM timeout in seconds (1..300)")
	fs.IntVar(&c.LLMMaxTokens, "llm-max-tokens", 1024, "max completion tokens per LLM call")
	fs.Float64Var(&c.LLMTemperature, "llm-temperature", 0.2, "LLM sampling temperature (0..2)")
	fs.StringVar(&c.WeaviateEndpoint, "weaviate-endpoint", "", "Weaviate endpoint for similarity search (empty = correlation disabled)")
	fs.IntVar(&c.WeaviateLimit, "weaviate-limit", 5, "max similar alerts per correlation lookup (1..50)")
	fs.Float64Var(&c.WeaviateCertainty, "weaviate-certainty", 0.6, "minimum similarity certainty (0..1)")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for notifications")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL (empty = in-memory store)")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	if _, ok := alert.Rank(c.MinPriority); !ok {
		errs = append(errs, fmt.Errorf("invalid MIN_PRIORITY %q (must be one of %s)",
			c.MinPriority, strings.Join(alert.Priorities(), ", ")))
	}
	if c.MaxAgeMinutes < 0 {
		errs = append(errs, fmt.Errorf("invalid MAX_AGE_MINUTES %d (must be >= 0)", c.MaxAgeMinutes))
	}

	if c.DedupEnabled && (c.DedupWindowSeconds <= 0 || c.DedupWindowSeconds > 3600) {
		errs = append(errs, fmt.Errorf("invalid DEDUP_WINDOW_SECONDS %d (must be 1..3600)", c.DedupWindowSeconds))
	}

	errs = append(errs, c.validateLLM()...)

	if c.WeaviateEndpoint != "" {
		if c.WeaviateLimit <= 0 || c.WeaviateLimit > 50 {
			errs = append(errs, fmt.Errorf("invalid WEAVIATE_LIMIT %d (must be 1..50)", c.WeaviateLimit))
		}
		if c.WeaviateCertainty <= 0 || c.WeaviateCertainty > 1 {
			errs = append(errs, fmt.Errorf("invalid WEAVIATE_CERTAINTY %v (must be in (0..1])", c.WeaviateCertainty))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func (c *Config) validateLLM() []error {
	if c.LLMProvider == "" {
		return nil
	}

	var errs []error

	known := false
	for _, p := range llmProviders {
		if c.LLMProvider == p {
			known = true
			break
		}
	}
	if !known {
		errs = append(errs, fmt.Errorf("invalid LLM_PROVIDER %q (must be one of %s)",
			c.LLMProvider, strings.Join(llmProviders, ", ")))
		return errs
	}

	if c.LLMModel == "" {
		errs = append(errs, errors.New("LLM_MODEL is required when LLM_PROVIDER is set"))
	}
	switch c.LLMProvider {
	case "claude", "openai", "gemini":
		if c.LLMAPIKey == "" {
			errs = append(errs, fmt.Errorf("LLM_API_KEY is required for provider %q", c.LLMProvider))
		}
	case "ollama":
		if c.LLMEndpoint == "" {
			errs = append(errs, errors.New("LLM_ENDPOINT is required for provider \"ollama\""))
		}
	}

	if c.LLMTimeoutSeconds <= 0 || c.LLMTimeoutSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid LLM_TIMEOUT_SECONDS %d (must be 1..300)", c.LLMTimeoutSeconds))
	}
	if c.LLMMaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("invalid LLM_MAX_TOKENS %d (must be > 0)", c.LLMMaxTokens))
	}
	if c.LLMTemperature < 0 || c.LLMTemperature > 2 {
		errs = append(errs, fmt.Errorf("invalid LLM_TEMPERATURE %v (must be 0..2)", c.LLMTemperature))
	}

	return errs
}
