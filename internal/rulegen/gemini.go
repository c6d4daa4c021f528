package rulegen

import (
	"context"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/crmkit/segmint/internal/errs"
	"github.com/crmkit/segmint/internal/rules"
)

const DefaultGeminiModel = "gemini-2.0-flash-exp"

var geminiKeyPattern = regexp.MustCompile(`^AIza[a-zA-Z0-9_-]{35,}$`)

// GeminiGenerator asks a Gemini model for a rule tree with a JSON response type.
type GeminiGenerator struct {
	client    *genai.Client
	model     string
	maxTokens int
	log       zerolog.Logger
}

// NewGeminiGenerator creates a GeminiGenerator.
func NewGeminiGenerator(ctx context.Context, cfg Config) (*GeminiGenerator, error) {
	if cfg.APIKey == "" {
		return nil, errs.Invalid("api_key", "Gemini API key is required")
	}
	if !geminiKeyPattern.MatchString(cfg.APIKey) {
		return nil, errs.Invalid("api_key", "invalid Gemini API key format (expected AIza...)")
	}

	clientConfig := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.httpClient(),
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, errs.Service("create gemini client", err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}

	return &GeminiGenerator{
		client:    client,
		model:     model,
		maxTokens: cfg.maxTokens(),
		log:       cfg.Logger.With().Str("component", "rulegen").Str("provider", ProviderGemini).Logger(),
	}, nil
}

// Name implements Generator.
func (g *GeminiGenerator) Name() string { return ProviderGemini }

// Generate implements Generator.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (rules.Group, error) {
	resp, err := g.client.Models.GenerateContent(
		ctx,
		g.model,
		[]*genai.Content{{Role: genai.RoleUser, Parts: []*genai.Part{{Text: prompt}}}},
		&genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: SystemPrompt()}}},
			ResponseMIMEType:  "application/json",
			MaxOutputTokens:   int32(g.maxTokens),
		},
	)
	if err != nil {
		return rules.Group{}, &errs.ServiceError{Op: "generate rules", Message: "Gemini request failed", Err: err}
	}
	if len(resp.Candidates) == 0 {
		return rules.Group{}, &errs.ServiceError{Op: "generate rules", Message: "no response from Gemini model"}
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return rules.Group{}, &errs.ServiceError{Op: "generate rules", Message: "empty response from Gemini model"}
	}
	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		text.WriteString(part.Text)
	}

	g.log.Debug().Str("model", g.model).Msg("content received")
	return ParseRules(text.String())
}
