package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crmkit/segmint/internal/auth"
	"github.com/crmkit/segmint/internal/cli"
)

var (
	profileProvider       string
	profileModel          string
	profileProviderAPIKey string
	profileMakeDefault    bool
	hashGenerate          bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Manage segmint CLI profiles in ~/.segmint/config.yaml (or $SEGMINT_CONFIG).`,
}

var configSetProfileCmd = &cobra.Command{
	Use:   "set-profile <name>",
	Short: "Create or update a profile",
	Long: `Create or update a profile from the global --base-url, --token and
--org flags plus the generator flags below. Omitted values are kept.

Examples:
  segmint config set-profile default --base-url https://crm.example.com --token $TOKEN --org 42
  segmint config set-profile openai --provider openai --model gpt-4o-mini --provider-api-key $OPENAI_API_KEY`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		p := cli.Profile{
			BaseURL:        baseURL,
			Token:          token,
			OrganizationID: org,
			Provider:       profileProvider,
			Model:          profileModel,
			ProviderAPIKey: profileProviderAPIKey,
		}
		if err := cli.SetProfile(name, p, profileMakeDefault); err != nil {
			return fmt.Errorf("failed to save profile: %w", err)
		}

		configPath, _ := cli.GetConfigPath()
		printf(cmd, "Profile '%s' saved to %s\n", name, configPath)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show all profiles",
	Long: `Display the configured profiles. Secrets are masked.

Example:
  segmint config show`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Default Profile: %s\n\n", cfg.DefaultProfile)
		fmt.Fprintln(out, "Profiles:")
		for _, name := range cfg.ProfileNames() {
			p := cfg.Profiles[name]
			fmt.Fprintf(out, "  %s:\n", name)
			fmt.Fprintf(out, "    base_url: %s\n", p.BaseURL)
			fmt.Fprintf(out, "    token: %s\n", cli.MaskSecret(p.Token))
			fmt.Fprintf(out, "    organization_id: %s\n", p.OrganizationID)
			if p.Provider != "" {
				fmt.Fprintf(out, "    provider: %s\n", p.Provider)
			}
			if p.Model != "" {
				fmt.Fprintf(out, "    model: %s\n", p.Model)
			}
			if p.ProviderAPIKey != "" {
				fmt.Fprintf(out, "    provider_api_key: %s\n", cli.MaskSecret(p.ProviderAPIKey))
			}
		}
		return nil
	},
}

var configHashKeyCmd = &cobra.Command{
	Use:   "hash-key [key]",
	Short: "Hash an API key for the server's API_KEY_HASH",
	Long: `Print the bcrypt hash of an API key for the segmint server. With
--generate a fresh key is created and printed alongside its hash.

Examples:
  segmint config hash-key --generate
  segmint config hash-key sgk_existingkey`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var key string
		switch {
		case hashGenerate:
			k, err := auth.GenerateAPIKey()
			if err != nil {
				return err
			}
			key = k
			fmt.Fprintf(cmd.OutOrStdout(), "API key (store it now, it is not shown again): %s\n", key)
		case len(args) == 1:
			key = args[0]
		default:
			return errors.New("pass a key or --generate")
		}

		hash, err := auth.HashAPIKey(key)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "API_KEY_HASH=%s\n", hash)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configSetProfileCmd, configShowCmd, configHashKeyCmd)

	configSetProfileCmd.Flags().StringVar(&profileProvider, "provider", "", "Rule generator (http, openai, anthropic, gemini, static)")
	configSetProfileCmd.Flags().StringVar(&profileModel, "model", "", "Model for the rule generator")
	configSetProfileCmd.Flags().StringVar(&profileProviderAPIKey, "provider-api-key", "", "API key for the rule generator")
	configSetProfileCmd.Flags().BoolVar(&profileMakeDefault, "default", false, "Make this the default profile")

	configHashKeyCmd.Flags().BoolVar(&hashGenerate, "generate", false, "Generate a new API key")
}
