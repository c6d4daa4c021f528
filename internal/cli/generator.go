package cli

import (
	"github.com/rs/zerolog"

	"github.com/crmkit/segmint/internal/rulegen"
)

// NewGenerator builds the rule generator for s. Without a provider the CRM's
// own segment-rules endpoint at BaseURL is used with the profile token.
func NewGenerator(s *Settings, log zerolog.Logger) (rulegen.Generator, error) {
	cfg := rulegen.Config{
		Provider: s.Provider,
		Model:    s.Model,
		Timeout:  s.Timeout,
		Logger:   log,
	}
	switch s.Provider {
	case "", rulegen.ProviderHTTP:
		if err := s.RequireBaseURL(); err != nil {
			return nil, err
		}
		cfg.BaseURL = s.BaseURL
		cfg.APIKey = s.Token
	default:
		cfg.APIKey = s.ProviderAPIKey
	}
	return rulegen.NewGenerator(cfg)
}
