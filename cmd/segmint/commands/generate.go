package commands

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/crmkit/segmint/internal/cli"
	"github.com/crmkit/segmint/internal/editor"
	"github.com/crmkit/segmint/internal/rules"
)

var generateStrict bool

var generateCmd = &cobra.Command{
	Use:   "generate <description>",
	Short: "Turn a plain-language audience description into rules",
	Long: `Send an audience description to the configured rule generator and
replace the rule file with the result. The file is left untouched when
generation fails.

Without a provider in the profile the CRM's own rule endpoint is used.
Set provider to openai, anthropic or gemini to call a model directly.

Examples:
  segmint generate "customers who visited more than 5 times"
  segmint generate "big spenders inactive for 3 months" --strict`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prompt := strings.Join(args, " ")

		s, err := settings()
		if err != nil {
			return err
		}
		log := logger()

		gen, err := cli.NewGenerator(s, log)
		if err != nil {
			return err
		}

		tree, err := cli.LoadRules(rulesFile)
		if errors.Is(err, cli.ErrNoRuleFile) {
			tree = rules.DefaultTree()
		} else if err != nil {
			return err
		}

		ed := editor.New(
			editor.WithInitial(tree),
			editor.WithBridge(gen),
			editor.WithGeneratedValidation(generateStrict),
			editor.WithLogger(log),
		)
		defer ed.Close()

		ctx, cancel := commandContext(cmd, s.Timeout)
		defer cancel()

		printf(cmd, "Generating rules with %s...\n", gen.Name())
		if err := ed.Generate(ctx, prompt); err != nil {
			return err
		}

		if err := cli.SaveRules(rulesFile, ed.Tree()); err != nil {
			return err
		}

		f, err := outputFormat()
		if err != nil {
			return err
		}
		printf(cmd, "Saved %s\n", rulesFile)
		if quiet {
			return nil
		}
		return cli.PrintTree(cmd.OutOrStdout(), ed.Tree(), f)
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().BoolVar(&generateStrict, "strict", false, "Reject generated rules with unknown fields or operators")
}
