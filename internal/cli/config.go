package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes the environment variables that override profile values,
// e.g. SEGMINT_TOKEN or SEGMINT_ORG.
const EnvPrefix = "SEGMINT"

// DefaultProfileName is used when neither flags nor the config file pick one.
const DefaultProfileName = "default"

// DefaultTimeout bounds every request the CLI makes.
const DefaultTimeout = 30 * time.Second

// Config represents the CLI configuration
type Config struct {
	DefaultProfile string             `yaml:"default_profile"`
	Profiles       map[string]Profile `yaml:"profiles"`
}

// Profile is one CRM account plus the rule generator used with it.
type Profile struct {
	BaseURL        string `yaml:"base_url"`
	Token          string `yaml:"token"`
	OrganizationID string `yaml:"organization_id"`
	Provider       string `yaml:"provider,omitempty"`
	Model          string `yaml:"model,omitempty"`
	ProviderAPIKey string `yaml:"provider_api_key,omitempty"`
}

// Overrides are the values given on the command line.
type Overrides struct {
	Profile        string
	BaseURL        string
	Token          string
	OrganizationID string
}

// Settings are the effective values for one command.
type Settings struct {
	Name string // profile name
	Profile
	Timeout time.Duration
}

// GetConfigPath returns the path to the config file. SEGMINT_CONFIG
// replaces the default ~/.segmint/config.yaml.
func GetConfigPath() (string, error) {
	if p := os.Getenv(EnvPrefix + "_CONFIG"); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".segmint", "config.yaml"), nil
}

// LoadConfig loads the configuration from file. A missing file yields an
// empty configuration.
func LoadConfig() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{
				DefaultProfile: DefaultProfileName,
				Profiles:       make(map[string]Profile),
			}, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if cfg.Profiles == nil {
		cfg.Profiles = make(map[string]Profile)
	}
	return &cfg, nil
}

// SaveConfig saves the configuration to file
func SaveConfig(cfg *Config) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// tokens live in this file
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ProfileNames returns the configured profile names, sorted.
func (c *Config) ProfileNames() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve computes the settings for one command.
// Priority: command flags > SEGMINT_* environment variables > config file.
//
// A profile named by flag or SEGMINT_PROFILE must exist; the implicit
// default profile may be absent when flags or environment supply the values.
func Resolve(o Overrides) (*Settings, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetDefault("timeout", DefaultTimeout)

	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}

	explicit := firstNonEmpty(o.Profile, v.GetString("profile"))
	name := firstNonEmpty(explicit, cfg.DefaultProfile, DefaultProfileName)
	p, ok := cfg.Profiles[name]
	if !ok && explicit != "" {
		return nil, fmt.Errorf("profile '%s' not found in config", name)
	}

	p.BaseURL = firstNonEmpty(o.BaseURL, v.GetString("base_url"), p.BaseURL)
	p.Token = firstNonEmpty(o.Token, v.GetString("token"), p.Token)
	p.OrganizationID = firstNonEmpty(o.OrganizationID, v.GetString("org"), p.OrganizationID)
	p.Provider = firstNonEmpty(v.GetString("provider"), p.Provider)
	p.Model = firstNonEmpty(v.GetString("model"), p.Model)
	p.ProviderAPIKey = firstNonEmpty(v.GetString("provider_api_key"), p.ProviderAPIKey)

	timeout := v.GetDuration("timeout")
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Settings{Name: name, Profile: p, Timeout: timeout}, nil
}

// RequireBaseURL fails when no CRM URL is configured.
func (s *Settings) RequireBaseURL() error {
	if s.BaseURL == "" {
		return fmt.Errorf("base_url must be configured for profile '%s' (use --base-url or %s_BASE_URL)", s.Name, EnvPrefix)
	}
	return nil
}

// SetProfile stores p under name, creating the file if needed. Empty fields
// of p keep their previous values.
func SetProfile(name string, p Profile, makeDefault bool) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}

	cur := cfg.Profiles[name]
	cur.BaseURL = firstNonEmpty(p.BaseURL, cur.BaseURL)
	cur.Token = firstNonEmpty(p.Token, cur.Token)
	cur.OrganizationID = firstNonEmpty(p.OrganizationID, cur.OrganizationID)
	cur.Provider = firstNonEmpty(p.Provider, cur.Provider)
	cur.Model = firstNonEmpty(p.Model, cur.Model)
	cur.ProviderAPIKey = firstNonEmpty(p.ProviderAPIKey, cur.ProviderAPIKey)
	cfg.Profiles[name] = cur

	if makeDefault || cfg.DefaultProfile == "" {
		cfg.DefaultProfile = name
	}
	return SaveConfig(cfg)
}

// MaskSecret shows the first four characters of a secret.
func MaskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) > 4 {
		return s[:4] + "***"
	}
	return "***"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
