package rulegen

import (
	"context"
	"regexp"

	"github.com/liushuangls/go-anthropic/v2"
	"github.com/rs/zerolog"

	"github.com/crmkit/segmint/internal/errs"
	"github.com/crmkit/segmint/internal/rules"
)

const DefaultAnthropicModel = "claude-sonnet-4-20250514"

var anthropicKeyPattern = regexp.MustCompile(`^sk-ant-[a-zA-Z0-9_-]{20,}$`)

// AnthropicGenerator asks a Claude model for a rule tree.
type AnthropicGenerator struct {
	client    *anthropic.Client
	model     string
	maxTokens int
	log       zerolog.Logger
}

// NewAnthropicGenerator creates an AnthropicGenerator.
func NewAnthropicGenerator(cfg Config) (*AnthropicGenerator, error) {
	if cfg.APIKey == "" {
		return nil, errs.Invalid("api_key", "Anthropic API key is required")
	}
	if !anthropicKeyPattern.MatchString(cfg.APIKey) {
		return nil, errs.Invalid("api_key", "invalid Anthropic API key format (expected sk-ant-...)")
	}

	opts := []anthropic.ClientOption{anthropic.WithHTTPClient(cfg.httpClient())}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = DefaultAnthropicModel
	}

	return &AnthropicGenerator{
		client:    anthropic.NewClient(cfg.APIKey, opts...),
		model:     model,
		maxTokens: cfg.maxTokens(),
		log:       cfg.Logger.With().Str("component", "rulegen").Str("provider", ProviderAnthropic).Logger(),
	}, nil
}

// Name implements Generator.
func (g *AnthropicGenerator) Name() string { return ProviderAnthropic }

// Generate implements Generator.
func (g *AnthropicGenerator) Generate(ctx context.Context, prompt string) (rules.Group, error) {
	resp, err := g.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(g.model),
		MaxTokens: g.maxTokens,
		System:    SystemPrompt(),
		Messages: []anthropic.Message{
			anthropic.NewUserTextMessage(prompt),
		},
	})
	if err != nil {
		return rules.Group{}, &errs.ServiceError{Op: "generate rules", Message: "Anthropic request failed", Err: err}
	}
	if len(resp.Content) == 0 {
		return rules.Group{}, &errs.ServiceError{Op: "generate rules", Message: "no response from Anthropic model"}
	}

	g.log.Debug().Str("model", g.model).Int("output_tokens", resp.Usage.OutputTokens).Msg("message received")
	return ParseRules(resp.GetFirstContentText())
}
