package config

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/crmkit/segmint/internal/errs"
	"github.com/crmkit/segmint/internal/rulegen"
)

var allKeys = []string{
	"APP_ENV", "APP_HTTP_ADDR", "METRICS_ADDR", "STORE_TYPE", "DB_DSN",
	"API_KEY", "API_KEY_HASH", "RATE_LIMIT_PER_IP", "LOG_LEVEL", "HISTORY_LIMIT",
	"RULEGEN_PROVIDER", "RULEGEN_MODEL", "RULEGEN_API_KEY", "RULEGEN_BASE_URL",
	"RULEGEN_TIMEOUT", "RULEGEN_STRICT",
}

// clearEnv blanks every key; viper reads an empty variable as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allKeys {
		t.Setenv(key, "")
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.AppEnv != "dev" {
		t.Errorf("Expected AppEnv='dev', got '%s'", cfg.AppEnv)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("Expected HTTPAddr=':8080', got '%s'", cfg.HTTPAddr)
	}
	if cfg.MetricsAddr != ":9090" {
		t.Errorf("Expected MetricsAddr=':9090', got '%s'", cfg.MetricsAddr)
	}
	if cfg.StoreType != "memory" {
		t.Errorf("Expected StoreType='memory', got '%s'", cfg.StoreType)
	}
	if cfg.APIKey != DefaultAPIKey {
		t.Errorf("Expected APIKey=%q, got '%s'", DefaultAPIKey, cfg.APIKey)
	}
	if cfg.RateLimitPerIP != 60 {
		t.Errorf("Expected RateLimitPerIP=60, got %d", cfg.RateLimitPerIP)
	}
	if cfg.HistoryLimit != 500 {
		t.Errorf("Expected HistoryLimit=500, got %d", cfg.HistoryLimit)
	}
	if cfg.RulegenProvider != rulegen.ProviderStatic {
		t.Errorf("Expected RulegenProvider='static', got '%s'", cfg.RulegenProvider)
	}
	if cfg.RulegenTimeout != rulegen.DefaultTimeout {
		t.Errorf("Expected RulegenTimeout=%v, got %v", rulegen.DefaultTimeout, cfg.RulegenTimeout)
	}
	if cfg.RulegenStrict {
		t.Error("Expected RulegenStrict=false by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected defaults to validate, got %v", err)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "staging")
	t.Setenv("APP_HTTP_ADDR", ":9999")
	t.Setenv("STORE_TYPE", "postgres")
	t.Setenv("RATE_LIMIT_PER_IP", "200")
	t.Setenv("RULEGEN_PROVIDER", "OpenAI")
	t.Setenv("RULEGEN_MODEL", "gpt-4o")
	t.Setenv("RULEGEN_TIMEOUT", "45s")
	t.Setenv("RULEGEN_STRICT", "true")
	t.Setenv("HISTORY_LIMIT", "20")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.AppEnv != "staging" {
		t.Errorf("Expected AppEnv='staging', got '%s'", cfg.AppEnv)
	}
	if cfg.HTTPAddr != ":9999" {
		t.Errorf("Expected HTTPAddr=':9999', got '%s'", cfg.HTTPAddr)
	}
	if cfg.StoreType != "postgres" {
		t.Errorf("Expected StoreType='postgres', got '%s'", cfg.StoreType)
	}
	if cfg.RateLimitPerIP != 200 {
		t.Errorf("Expected RateLimitPerIP=200, got %d", cfg.RateLimitPerIP)
	}
	if cfg.RulegenProvider != "openai" {
		t.Errorf("Expected provider to be lowercased, got '%s'", cfg.RulegenProvider)
	}
	if cfg.RulegenTimeout != 45*time.Second {
		t.Errorf("Expected RulegenTimeout=45s, got %v", cfg.RulegenTimeout)
	}
	if !cfg.RulegenStrict {
		t.Error("Expected RulegenStrict=true")
	}
	if cfg.HistoryLimit != 20 {
		t.Errorf("Expected HistoryLimit=20, got %d", cfg.HistoryLimit)
	}
}

func TestConfig_Rulegen(t *testing.T) {
	cfg := validConfig()
	cfg.RulegenProvider = rulegen.ProviderHTTP
	cfg.RulegenBaseURL = "http://crm.local"
	cfg.RulegenAPIKey = "token"
	cfg.RulegenTimeout = 5 * time.Second

	rc := cfg.Rulegen(testLogger())
	if rc.Provider != "http" || rc.BaseURL != "http://crm.local" || rc.APIKey != "token" || rc.Timeout != 5*time.Second {
		t.Errorf("Unexpected rulegen config: %+v", rc)
	}
}

func validConfig() *Config {
	return &Config{
		AppEnv:          "dev",
		HTTPAddr:        ":8080",
		MetricsAddr:     ":9090",
		StoreType:       "memory",
		APIKey:          "secret",
		RateLimitPerIP:  60,
		HistoryLimit:    100,
		RulegenProvider: rulegen.ProviderStatic,
		RulegenTimeout:  time.Second,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad store type", func(c *Config) { c.StoreType = "redis" }, "STORE_TYPE"},
		{"postgres without dsn", func(c *Config) { c.StoreType = "postgres"; c.DatabaseDSN = "" }, "DB_DSN"},
		{"postgres with dsn", func(c *Config) { c.StoreType = "postgres"; c.DatabaseDSN = "postgres://x" }, ""},
		{"empty http addr", func(c *Config) { c.HTTPAddr = "" }, "APP_HTTP_ADDR"},
		{"empty metrics addr", func(c *Config) { c.MetricsAddr = "" }, "METRICS_ADDR"},
		{"no api key", func(c *Config) { c.APIKey = "" }, "API_KEY"},
		{"hash only", func(c *Config) { c.APIKey = ""; c.APIKeyHash = "$2a$12$abc" }, ""},
		{"negative rate limit", func(c *Config) { c.RateLimitPerIP = -1 }, "RATE_LIMIT_PER_IP"},
		{"rate limit disabled", func(c *Config) { c.RateLimitPerIP = 0 }, ""},
		{"zero history", func(c *Config) { c.HistoryLimit = 0 }, "HISTORY_LIMIT"},
		{"zero timeout", func(c *Config) { c.RulegenTimeout = 0 }, "RULEGEN_TIMEOUT"},
		{"unknown provider", func(c *Config) { c.RulegenProvider = "cohere" }, "RULEGEN_PROVIDER"},
		{"http without url", func(c *Config) { c.RulegenProvider = "http" }, "RULEGEN_BASE_URL"},
		{"http with url", func(c *Config) { c.RulegenProvider = "http"; c.RulegenBaseURL = "http://x" }, ""},
		{"openai without key", func(c *Config) { c.RulegenProvider = "openai" }, "RULEGEN_API_KEY"},
		{"gemini with key", func(c *Config) { c.RulegenProvider = "gemini"; c.RulegenAPIKey = "k" }, ""},
		{"prod default key", func(c *Config) {
			c.AppEnv = "prod"
			c.APIKey = DefaultAPIKey
			c.RulegenProvider = "anthropic"
			c.RulegenAPIKey = "k"
		}, "API_KEY"},
		{"prod default key with hash", func(c *Config) {
			c.AppEnv = "production"
			c.APIKey = DefaultAPIKey
			c.APIKeyHash = "$2a$12$abc"
			c.RulegenProvider = "anthropic"
			c.RulegenAPIKey = "k"
		}, ""},
		{"prod static provider", func(c *Config) { c.AppEnv = "prod" }, "RULEGEN_PROVIDER"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Expected valid config, got %v", err)
				}
				return
			}
			var ve errs.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Expected ValidationError, got %v", err)
			}
			if ve.Field != tt.wantField {
				t.Errorf("Expected field %s, got %s (%s)", tt.wantField, ve.Field, ve.Message)
			}
		})
	}
}

func TestIsProduction(t *testing.T) {
	for env, want := range map[string]bool{"prod": true, "production": true, "dev": false, "staging": false} {
		if got := (&Config{AppEnv: env}).IsProduction(); got != want {
			t.Errorf("IsProduction(%q) = %v, want %v", env, got, want)
		}
	}
}

func testLogger() zerolog.Logger { return zerolog.Nop() }
