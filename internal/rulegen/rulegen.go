// Package rulegen turns natural-language audience descriptions into rule
// trees. HTTPGenerator talks to a remote segment-rules service; the LLM
// generators are what that service runs behind its endpoint.
package rulegen

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/crmkit/segmint/internal/rules"
)

// Provider names accepted by NewGenerator.
const (
	ProviderHTTP      = "http"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderStatic    = "static"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultMaxTokens = 1024
)

// Generator produces a rule tree from a free-text description.
// It satisfies editor.Bridge.
type Generator interface {
	Generate(ctx context.Context, prompt string) (rules.Group, error)
	Name() string
}

// Config selects and configures a Generator.
type Config struct {
	Provider   string
	Model      string
	APIKey     string // bearer token for http, provider key otherwise
	BaseURL    string
	Timeout    time.Duration
	MaxTokens  int
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

func (c Config) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultTimeout
}

func (c Config) maxTokens() int {
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	return DefaultMaxTokens
}

func (c Config) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: c.timeout()}
}

// NewGenerator creates a Generator for cfg.Provider. An empty provider
// selects the remote HTTP service.
func NewGenerator(cfg Config) (Generator, error) {
	var (
		gen Generator
		err error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderHTTP, "":
		gen, err = unwrap(NewHTTPGenerator(cfg))
	case ProviderOpenAI:
		gen, err = unwrap(NewOpenAIGenerator(cfg))
	case ProviderAnthropic:
		gen, err = unwrap(NewAnthropicGenerator(cfg))
	case ProviderGemini:
		gen, err = unwrap(NewGeminiGenerator(context.Background(), cfg))
	case ProviderStatic:
		gen = NewStaticGenerator(rules.SelectAll())
	default:
		return nil, fmt.Errorf("unsupported rule generator: %s (supported: http, openai, anthropic, gemini, static)", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return gen, nil
}

// unwrap keeps a failed constructor's typed nil out of the interface.
func unwrap[T Generator](g T, err error) (Generator, error) {
	if err != nil {
		return nil, err
	}
	return g, nil
}
