package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/crmkit/segmint/internal/cli"
	"github.com/crmkit/segmint/internal/client"
	"github.com/crmkit/segmint/internal/logging"
)

var (
	// Global flags
	baseURL   string
	token     string
	org       string
	profile   string
	format    string
	rulesFile string
	quiet     bool
	verbose   bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "segmint",
	Short: "Build customer segment rules and manage segments",
	Long: `Segmint edits customer segment rule trees stored in a local file,
turns plain-language audience descriptions into rules, and saves the
result as segments in the CRM.

Examples:
  segmint rules init
  segmint rules add --field visit_count --operator greaterThan --value 3
  segmint rules add-group 0 --logic OR
  segmint generate "customers who spent over 500 but have not visited in 60 days"
  segmint segment preview
  segmint segment create --title "Lapsed big spenders"`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Base URL of the CRM API")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "Bearer token for the CRM API")
	rootCmd.PersistentFlags().StringVar(&org, "org", "", "Organization ID")
	rootCmd.PersistentFlags().StringVar(&profile, "profile", "", "Config profile to use")
	rootCmd.PersistentFlags().StringVar(&format, "format", "table", "Output format (table, json, yaml)")
	rootCmd.PersistentFlags().StringVarP(&rulesFile, "file", "f", cli.DefaultRuleFile, "Rule file (.json, otherwise YAML)")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress output")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Verbose output")
}

func settings() (*cli.Settings, error) {
	s, err := cli.Resolve(cli.Overrides{
		Profile:        profile,
		BaseURL:        baseURL,
		Token:          token,
		OrganizationID: org,
	})
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return s, nil
}

func outputFormat() (cli.OutputFormat, error) {
	return cli.ParseFormat(format)
}

func logger() zerolog.Logger {
	level := "warn"
	if verbose {
		level = "debug"
	}
	return logging.New(logging.Options{Level: level, Pretty: true, Output: os.Stderr})
}

func newClient(s *cli.Settings) (*client.Client, error) {
	if err := s.RequireBaseURL(); err != nil {
		return nil, err
	}
	c := client.NewClient(s.BaseURL, s.Token, s.OrganizationID)
	c.HTTPClient.Timeout = s.Timeout
	return c, nil
}

// printf writes to the command's stdout unless --quiet is set.
func printf(cmd *cobra.Command, f string, args ...any) {
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), f, args...)
	}
}

// confirm asks a yes/no question on the command's input. Anything but
// "y" or "yes" (including no input) is a no.
func confirm(cmd *cobra.Command, question string) (bool, error) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s (y/N): ", question)
	reader := bufio.NewReader(cmd.InOrStdin())
	response, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}
	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes", nil
}
