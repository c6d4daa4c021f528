package rulegen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/crmkit/segmint/internal/errs"
	"github.com/crmkit/segmint/internal/rules"
)

// SegmentRulesPath is the endpoint of the remote rule-generation service.
const SegmentRulesPath = "/api/ai/segmentrules"

const httpFallbackMessage = "Failed to process natural language query"

// HTTPGenerator calls a remote segment-rules service:
// POST {"prompt": text} and expect {"rules": GROUP}.
type HTTPGenerator struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	log        zerolog.Logger
}

// NewHTTPGenerator creates an HTTPGenerator. cfg.BaseURL is required and
// cfg.APIKey is sent as the bearer token.
func NewHTTPGenerator(cfg Config) (*HTTPGenerator, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errs.Invalid("base_url", "rule service URL is required")
	}
	return &HTTPGenerator{
		BaseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		Token:      cfg.APIKey,
		HTTPClient: cfg.httpClient(),
		log:        cfg.Logger.With().Str("component", "rulegen").Str("provider", ProviderHTTP).Logger(),
	}, nil
}

// Name implements Generator.
func (g *HTTPGenerator) Name() string { return ProviderHTTP }

// Generate implements Generator. One attempt; non-2xx responses and
// transport failures become ServiceErrors.
func (g *HTTPGenerator) Generate(ctx context.Context, prompt string) (rules.Group, error) {
	body, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return rules.Group{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+SegmentRulesPath, bytes.NewReader(body))
	if err != nil {
		return rules.Group{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.Token != "" {
		req.Header.Set("Authorization", "Bearer "+g.Token)
	}

	resp, err := g.HTTPClient.Do(req)
	if err != nil {
		return rules.Group{}, &errs.ServiceError{Op: "generate rules", Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return rules.Group{}, &errs.ServiceError{Op: "generate rules", Status: resp.StatusCode, Message: "failed to read response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		g.log.Warn().Int("status", resp.StatusCode).Msg("rule service returned an error")
		return rules.Group{}, &errs.ServiceError{
			Op:      "generate rules",
			Status:  resp.StatusCode,
			Message: errorMessage(data, httpFallbackMessage),
		}
	}

	var result struct {
		Rules *rules.Group `json:"rules"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return rules.Group{}, &errs.ServiceError{Op: "generate rules", Status: resp.StatusCode, Message: "failed to decode response", Err: err}
	}
	if result.Rules == nil {
		return rules.Group{}, &errs.ServiceError{
			Op:      "generate rules",
			Status:  resp.StatusCode,
			Message: "response has no rules",
			Err:     errors.New("missing rules field"),
		}
	}
	return *result.Rules, nil
}

// errorMessage pulls a human-readable message out of an error body.
func errorMessage(data []byte, fallback string) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return fallback
	}
	if body.Message != "" {
		return body.Message
	}
	if body.Error != "" {
		return body.Error
	}
	return fallback
}
