package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/crmkit/segmint/internal/cli"
	"github.com/crmkit/segmint/internal/editor"
	"github.com/crmkit/segmint/internal/rules"
	"github.com/crmkit/segmint/internal/validation"
)

var (
	initSelectAll bool
	initForce     bool

	condField    string
	condOperator string
	condValue    int

	groupLogic string

	exportJSONLogic bool
	exportOutput    string
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Edit the local rule tree",
	Long: `Edit the segment rule tree stored in the rule file (--file).

Paths address nodes by child index from the root: "root" is the root group,
"0" its first child, "1.2" the third child of the second child. The long
form "conditions.1.conditions.2" is accepted too.`,
}

var rulesInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a rule file with the default tree",
	Long: `Create the rule file with one default condition, or the
select-all tree with --select-all.

Examples:
  segmint rules init
  segmint rules init --select-all --file all.json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(rulesFile); err == nil && !initForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", rulesFile)
		}

		tree := rules.DefaultTree()
		if initSelectAll {
			tree = rules.SelectAll()
		}
		if err := cli.SaveRules(rulesFile, tree); err != nil {
			return err
		}

		printf(cmd, "Created %s\n", rulesFile)
		return nil
	},
}

var rulesShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the rule tree",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := outputFormat()
		if err != nil {
			return err
		}
		tree, err := cli.LoadRules(rulesFile)
		if err != nil {
			return err
		}
		return cli.PrintTree(cmd.OutOrStdout(), tree, f)
	},
}

var rulesAddCmd = &cobra.Command{
	Use:   "add [group-path]",
	Short: "Append a condition to a group",
	Long: `Append a condition to the group at group-path (default: root).
Unset flags take the default condition's values.

Examples:
  segmint rules add
  segmint rules add 1 --field totalspend --operator greaterThan --value 500`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := pathArg(args)
		if err != nil {
			return err
		}

		c := rules.DefaultCondition()
		if cmd.Flags().Changed("field") {
			c.Field = rules.Field(condField)
		}
		if cmd.Flags().Changed("operator") {
			c.Operator = rules.Operator(condOperator)
		}
		if cmd.Flags().Changed("value") {
			c.Value = condValue
		}

		return editRules(cmd, func(ed *editor.Editor) error {
			return ed.AddCondition(path, c)
		})
	},
}

var rulesAddGroupCmd = &cobra.Command{
	Use:   "add-group [group-path]",
	Short: "Append a nested group to a group",
	Long: `Append a nested group holding the default group condition to the
group at group-path (default: root).

Example:
  segmint rules add-group --logic OR`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := pathArg(args)
		if err != nil {
			return err
		}

		g := rules.DefaultGroup()
		if cmd.Flags().Changed("logic") {
			g.Operator = rules.Logic(strings.ToUpper(strings.TrimSpace(groupLogic)))
			if !g.Operator.IsKnown() {
				return fmt.Errorf("logic must be AND or OR, got %q", groupLogic)
			}
		}

		return editRules(cmd, func(ed *editor.Editor) error {
			return ed.AddGroup(path, g)
		})
	},
}

var rulesRemoveCmd = &cobra.Command{
	Use:   "remove <path>",
	Short: "Remove a condition or group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := rules.ParsePath(args[0])
		if err != nil {
			return err
		}
		if path.IsRoot() {
			printf(cmd, "The root group cannot be removed\n")
			return nil
		}
		return editRules(cmd, func(ed *editor.Editor) error {
			return ed.Remove(path)
		})
	},
}

var rulesSetCmd = &cobra.Command{
	Use:   "set <path>",
	Short: "Change the field, operator or value of a condition",
	Long: `Change a condition in place. Only the given flags are applied.

Example:
  segmint rules set 0 --operator greaterThanOrEqual --value 10`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := rules.ParsePath(args[0])
		if err != nil {
			return err
		}
		changed := cmd.Flags().Changed("field") || cmd.Flags().Changed("operator") || cmd.Flags().Changed("value")
		if !changed {
			return errors.New("nothing to change: pass --field, --operator or --value")
		}

		return editRules(cmd, func(ed *editor.Editor) error {
			node, err := rules.Resolve(ed.Tree(), path)
			if err != nil {
				return err
			}
			if node.IsGroup() {
				return fmt.Errorf("%s is a group; use 'segmint rules logic' to change it", path)
			}
			if cmd.Flags().Changed("field") {
				if err := ed.SetField(path, rules.Field(condField)); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("operator") {
				if err := ed.SetOperator(path, rules.Operator(condOperator)); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("value") {
				return ed.SetValue(path, condValue)
			}
			return nil
		})
	},
}

var rulesLogicCmd = &cobra.Command{
	Use:   "logic [group-path] <AND|OR>",
	Short: "Set how a group combines its children",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := rules.Root()
		if len(args) == 2 {
			p, err := rules.ParsePath(args[0])
			if err != nil {
				return err
			}
			path = p
		}
		logic := rules.Logic(strings.ToUpper(strings.TrimSpace(args[len(args)-1])))
		if !logic.IsKnown() {
			return fmt.Errorf("logic must be AND or OR, got %q", args[len(args)-1])
		}

		return editRules(cmd, func(ed *editor.Editor) error {
			return ed.SetLogic(path, logic)
		})
	},
}

var rulesSelectAllCmd = &cobra.Command{
	Use:   "select-all",
	Short: "Replace the tree with one matching every customer",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return editRules(cmd, func(ed *editor.Editor) error {
			return ed.SelectAllCustomers()
		})
	},
}

var rulesValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the rule tree against the known fields and operators",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tree, err := cli.LoadRules(rulesFile)
		if err != nil {
			return err
		}

		var problems []string
		if tree.Operator.IsKnown() {
			for _, msg := range validation.ValidateRuleShape(tree).Errors {
				problems = append(problems, msg)
			}
		}
		for _, err := range rules.ValidateAll(tree) {
			problems = append(problems, err.Error())
		}

		if len(problems) == 0 {
			printf(cmd, "%s is valid (%d conditions, depth %d)\n", rulesFile, rules.Count(tree), rules.Depth(tree))
			return nil
		}
		for _, p := range problems {
			fmt.Fprintf(cmd.ErrOrStderr(), "  - %s\n", p)
		}
		return fmt.Errorf("%s: %d problem(s) found", rulesFile, len(problems))
	},
}

var rulesExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the rule tree as JSON, YAML or JSON Logic",
	Long: `Export the rule tree. --format json or yaml selects the encoding;
--jsonlogic compiles the tree to a JSON Logic expression instead.

Examples:
  segmint rules export --format json -o rules.json
  segmint rules export --jsonlogic`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tree, err := cli.LoadRules(rulesFile)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if exportOutput != "" && exportOutput != "-" {
			file, err := os.Create(exportOutput)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer file.Close()
			out = file
		}

		if exportJSONLogic {
			expr, err := rules.CompileJSONLogic(tree)
			if err != nil {
				return fmt.Errorf("failed to compile JSON Logic: %w", err)
			}
			_, err = fmt.Fprintln(out, expr)
			return err
		}

		f, err := outputFormat()
		if err != nil {
			return err
		}
		if f == cli.FormatTable {
			// Default to YAML for export
			f = cli.FormatYAML
		}
		return cli.PrintTree(out, tree, f)
	},
}

// pathArg parses an optional group path argument, defaulting to the root.
func pathArg(args []string) (rules.Path, error) {
	if len(args) == 0 {
		return rules.Root(), nil
	}
	return rules.ParsePath(args[0])
}

// editRules loads the rule file into an editor, runs edit, and writes the
// resulting tree back. Nothing is written when edit fails.
func editRules(cmd *cobra.Command, edit func(*editor.Editor) error) error {
	tree, err := cli.LoadRules(rulesFile)
	if err != nil {
		return err
	}

	ed := editor.New(editor.WithInitial(tree), editor.WithLogger(logger()))
	defer ed.Close()

	if err := edit(ed); err != nil {
		return err
	}
	if err := cli.SaveRules(rulesFile, ed.Tree()); err != nil {
		return err
	}

	if !quiet {
		return cli.PrintTree(cmd.OutOrStdout(), ed.Tree(), cli.FormatTable)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesInitCmd, rulesShowCmd, rulesAddCmd, rulesAddGroupCmd, rulesRemoveCmd,
		rulesSetCmd, rulesLogicCmd, rulesSelectAllCmd, rulesValidateCmd, rulesExportCmd)

	rulesInitCmd.Flags().BoolVar(&initSelectAll, "select-all", false, "Start from the select-all tree")
	rulesInitCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing file")

	for _, c := range []*cobra.Command{rulesAddCmd, rulesSetCmd} {
		c.Flags().StringVar(&condField, "field", string(rules.FieldLastPurchaseDay), "Customer field")
		c.Flags().StringVar(&condOperator, "operator", string(rules.OpLessThan), "Comparison operator")
		c.Flags().IntVar(&condValue, "value", 90, "Value to compare against")
	}

	rulesAddGroupCmd.Flags().StringVar(&groupLogic, "logic", string(rules.And), "How the new group combines its children (AND, OR)")

	rulesExportCmd.Flags().BoolVar(&exportJSONLogic, "jsonlogic", false, "Compile to a JSON Logic expression")
	rulesExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default: stdout)")
}
