package cfg

import (
	"flag"
	"strings"
	"testing"
)

// validBase returns a Config with all required fields set to valid values.
func validBase() Config {
	return Config{
		DrainSeconds:          60,
		ShutdownBudgetSeconds: 90,
		APIPort:               8080,
		MinPriority:           "warning",
		MaxAgeMinutes:         60,
		DedupEnabled:          true,
		DedupWindowSeconds:    60,
	}
}

func TestRegisterFlags_Defaults(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	if err := fs.Parse(nil); err != nil {
		t.Fatalf("parse empty args: %v", err)
	}

	if c.DrainSeconds != 60 {
		t.Errorf("DrainSeconds = %d, want 60", c.DrainSeconds)
	}
	if c.ShutdownBudgetSeconds != 90 {
		t.Errorf("ShutdownBudgetSeconds = %d, want 90", c.ShutdownBudgetSeconds)
	}
	if c.APIPort != 8080 {
		t.Errorf("APIPort = %d, want 8080", c.APIPort)
	}
	if c.MinPriority != "warning" {
		t.Errorf("MinPriority = %q, want warning", c.MinPriority)
	}
	if !c.DedupEnabled {
		t.Error("DedupEnabled should default to true")
	}
	if c.DedupWindowSeconds != 60 {
		t.Errorf("DedupWindowSeconds = %d, want 60", c.DedupWindowSeconds)
	}
	if c.LLMProvider != "" {
		t.Errorf("LLMProvider = %q, want empty (enrichment disabled)", c.LLMProvider)
	}
	if c.LLMTimeoutSeconds != 30 {
		t.Errorf("LLMTimeoutSeconds = %d, want 30", c.LLMTimeoutSeconds)
	}
	if c.WeaviateLimit != 5 {
		t.Errorf("WeaviateLimit = %d, want 5", c.WeaviateLimit)
	}
	if c.WeaviateCertainty != 0.6 {
		t.Errorf("WeaviateCertainty = %v, want 0.6", c.WeaviateCertainty)
	}

	if err := c.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestRegisterFlags_Override(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	args := []string{
		"-drain-seconds", "30",
		"-shutdown-budget-seconds", "120",
		"-http-port", "9090",
		"-min-priority", "critical",
		"-llm-provider", "openai",
		"-llm-api-key", "sk-override",
		"-llm-model", "gpt-4o-mini",
		"-weaviate-endpoint", "http://weaviate:8090",
		"-database-url", "postgres://localhost/argus",
	}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse args: %v", err)
	}

	if c.DrainSeconds != 30 {
		t.Errorf("DrainSeconds = %d, want 30", c.DrainSeconds)
	}
	if c.MinPriority != "critical" {
		t.Errorf("MinPriority = %q, want critical", c.MinPriority)
	}
	if c.LLMProvider != "openai" || c.LLMAPIKey != "sk-override" || c.LLMModel != "gpt-4o-mini" {
		t.Errorf("llm config = %q/%q/%q", c.LLMProvider, c.LLMAPIKey, c.LLMModel)
	}
	if c.WeaviateEndpoint != "http://weaviate:8090" {
		t.Errorf("WeaviateEndpoint = %q", c.WeaviateEndpoint)
	}
	if c.DatabaseURL != "postgres://localhost/argus" {
		t.Errorf("DatabaseURL = %q", c.DatabaseURL)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantErr   bool
		errSubstr []string // substrings that must appear in error message
	}{
		{
			name:   "base is valid",
			mutate: func(c *Config) {},
		},
		{
			name:      "drain zero",
			mutate:    func(c *Config) { c.DrainSeconds = 0 },
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS"},
		},
		{
			name:      "drain above max",
			mutate:    func(c *Config) { c.DrainSeconds = 301; c.ShutdownBudgetSeconds = 300 },
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS"},
		},
		{
			name:      "budget zero",
			mutate:    func(c *Config) { c.ShutdownBudgetSeconds = 0 },
			wantErr:   true,
			errSubstr: []string{"SHUTDOWN_BUDGET_SECONDS"},
		},
		{
			name:      "budget not greater than drain",
			mutate:    func(c *Config) { c.ShutdownBudgetSeconds = 60 },
			wantErr:   true,
			errSubstr: []string{"must be greater than DRAIN_SECONDS"},
		},
		{
			name:      "port out of range",
			mutate:    func(c *Config) { c.APIPort = 70000 },
			wantErr:   true,
			errSubstr: []string{"HTTP_PORT"},
		},
		{
			name:      "unknown min priority",
			mutate:    func(c *Config) { c.MinPriority = "severe" },
			wantErr:   true,
			errSubstr: []string{"MIN_PRIORITY"},
		},
		{
			name:      "negative max age",
			mutate:    func(c *Config) { c.MaxAgeMinutes = -1 },
			wantErr:   true,
			errSubstr: []string{"MAX_AGE_MINUTES"},
		},
		{
			name:   "max age zero disables",
			mutate: func(c *Config) { c.MaxAgeMinutes = 0 },
		},
		{
			name:      "dedup window zero while enabled",
			mutate:    func(c *Config) { c.DedupWindowSeconds = 0 },
			wantErr:   true,
			errSubstr: []string{"DEDUP_WINDOW_SECONDS"},
		},
		{
			name:   "dedup disabled ignores window",
			mutate: func(c *Config) { c.DedupEnabled = false; c.DedupWindowSeconds = 0 },
		},
		{
			name:      "unknown llm provider",
			mutate:    func(c *Config) { c.LLMProvider = "bard" },
			wantErr:   true,
			errSubstr: []string{"LLM_PROVIDER"},
		},
		{
			name: "claude requires api key",
			mutate: func(c *Config) {
				c.LLMProvider = "claude"
				c.LLMModel = "claude-sonnet-4-20250514"
				c.LLMTimeoutSeconds = 30
				c.LLMMaxTokens = 1024
			},
			wantErr:   true,
			errSubstr: []string{"LLM_API_KEY"},
		},
		{
			name: "ollama requires endpoint",
			mutate: func(c *Config) {
				c.LLMProvider = "ollama"
				c.LLMModel = "llama3"
				c.LLMTimeoutSeconds = 30
				c.LLMMaxTokens = 1024
			},
			wantErr:   true,
			errSubstr: []string{"LLM_ENDPOINT"},
		},
		{
			name: "provider requires model",
			mutate: func(c *Config) {
				c.LLMProvider = "openai"
				c.LLMAPIKey = "sk-x"
				c.LLMTimeoutSeconds = 30
				c.LLMMaxTokens = 1024
			},
			wantErr:   true,
			errSubstr: []string{"LLM_MODEL"},
		},
		{
			name: "valid openai config",
			mutate: func(c *Config) {
				c.LLMProvider = "openai"
				c.LLMAPIKey = "sk-x"
				c.LLMModel = "gpt-4o-mini"
				c.LLMTimeoutSeconds = 30
				c.LLMMaxTokens = 1024
				c.LLMTemperature = 0.2
			},
		},
		{
			name: "temperature out of range",
			mutate: func(c *Config) {
				c.LLMProvider = "openai"
				c.LLMAPIKey = "sk-x"
				c.LLMModel = "gpt-4o-mini"
				c.LLMTimeoutSeconds = 30
				c.LLMMaxTokens = 1024
				c.LLMTemperature = 3
			},
			wantErr:   true,
			errSubstr: []string{"LLM_TEMPERATURE"},
		},
		{
			name: "weaviate limit out of range",
			mutate: func(c *Config) {
				c.WeaviateEndpoint = "http://weaviate:8090"
				c.WeaviateLimit = 0
				c.WeaviateCertainty = 0.6
			},
			wantErr:   true,
			errSubstr: []string{"WEAVIATE_LIMIT"},
		},
		{
			name: "weaviate certainty above one",
			mutate: func(c *Config) {
				c.WeaviateEndpoint = "http://weaviate:8090"
				c.WeaviateLimit = 5
				c.WeaviateCertainty = 1.5
			},
			wantErr:   true,
			errSubstr: []string{"WEAVIATE_CERTAINTY"},
		},
		{
			name: "weaviate disabled ignores tuning",
			mutate: func(c *Config) {
				c.WeaviateLimit = 0
				c.WeaviateCertainty = 0
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := validBase()
			tt.mutate(&c)

			err := c.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				for _, sub := range tt.errSubstr {
					if !strings.Contains(err.Error(), sub) {
						t.Errorf("error %q missing %q", err.Error(), sub)
					}
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidate_JoinsMultipleErrors(t *testing.T) {
	t.Parallel()

	c := validBase()
	c.DrainSeconds = 0
	c.APIPort = 0
	c.MinPriority = "bogus"

	err := c.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, sub := range []string{"DRAIN_SECONDS", "HTTP_PORT", "MIN_PRIORITY"} {
		if !strings.Contains(err.Error(), sub) {
			t.Errorf("error %q missing %q", err.Error(), sub)
		}
	}
}
