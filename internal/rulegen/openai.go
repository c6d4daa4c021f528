package rulegen

import (
	"context"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"github.com/crmkit/segmint/internal/errs"
	"github.com/crmkit/segmint/internal/rules"
)

const DefaultOpenAIModel = openai.GPT4oMini

var openaiKeyPattern = regexp.MustCompile(`^sk-(?:proj-)?[a-zA-Z0-9_-]{20,}$`)

// OpenAIGenerator asks an OpenAI chat model for a rule tree in JSON mode.
type OpenAIGenerator struct {
	client    *openai.Client
	model     string
	maxTokens int
	log       zerolog.Logger
}

// NewOpenAIGenerator creates an OpenAIGenerator. cfg.BaseURL points it at any
// OpenAI-compatible endpoint.
func NewOpenAIGenerator(cfg Config) (*OpenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, errs.Invalid("api_key", "OpenAI API key is required")
	}
	if !openaiKeyPattern.MatchString(cfg.APIKey) {
		return nil, errs.Invalid("api_key", "invalid OpenAI API key format")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = cfg.httpClient()

	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}

	return &OpenAIGenerator{
		client:    openai.NewClientWithConfig(clientConfig),
		model:     model,
		maxTokens: cfg.maxTokens(),
		log:       cfg.Logger.With().Str("component", "rulegen").Str("provider", ProviderOpenAI).Logger(),
	}, nil
}

// Name implements Generator.
func (g *OpenAIGenerator) Name() string { return ProviderOpenAI }

// Generate implements Generator.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (rules.Group, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens: g.maxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return rules.Group{}, &errs.ServiceError{Op: "generate rules", Message: "OpenAI request failed", Err: err}
	}
	if len(resp.Choices) == 0 {
		return rules.Group{}, &errs.ServiceError{Op: "generate rules", Message: "no response from OpenAI model"}
	}

	g.log.Debug().Str("model", g.model).Int("tokens", resp.Usage.TotalTokens).Msg("completion received")
	return ParseRules(strings.TrimSpace(resp.Choices[0].Message.Content))
}
