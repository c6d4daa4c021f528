package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/crmkit/segmint/internal/cli"
	"github.com/crmkit/segmint/internal/client"
)

var (
	segmentTitle       string
	segmentDescription string
	segmentSaveRules   bool
	segmentKeepRules   bool
	segmentForce       bool
)

var segmentCmd = &cobra.Command{
	Use:   "segment",
	Short: "Manage segments in the CRM",
	Long: `Create, preview, list, update and delete segments in the active
organization. Rules are read from the rule file (--file).`,
}

var segmentCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Save the rule file as a new segment",
	Long: `Save the current rule tree as a new segment.

Example:
  segmint segment create --title "Lapsed big spenders" --description "Spent 500+, gone 60 days"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := clientFromSettings()
		if err != nil {
			return err
		}
		tree, err := cli.LoadRules(rulesFile)
		if err != nil {
			return err
		}

		ctx, cancel := commandContext(cmd, c.HTTPClient.Timeout)
		defer cancel()

		seg, err := c.CreateSegment(ctx, client.SegmentInput{
			Title:       segmentTitle,
			Description: segmentDescription,
			Rules:       tree,
		})
		if err != nil {
			return fmt.Errorf("failed to create segment: %w", err)
		}

		printf(cmd, "Successfully created segment '%s' (%s)\n", seg.Title, seg.ID)
		return nil
	},
}

var segmentPreviewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Count the customers the rule file matches",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := clientFromSettings()
		if err != nil {
			return err
		}
		tree, err := cli.LoadRules(rulesFile)
		if err != nil {
			return err
		}

		ctx, cancel := commandContext(cmd, c.HTTPClient.Timeout)
		defer cancel()

		n, err := c.PreviewSegment(ctx, client.SegmentInput{Rules: tree})
		if err != nil {
			return fmt.Errorf("failed to preview segment: %w", err)
		}

		f, err := outputFormat()
		if err != nil {
			return err
		}
		if f != cli.FormatTable {
			return cli.PrintJSON(cmd.OutOrStdout(), map[string]int{"customers": n})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d customers match\n", n)
		return nil
	},
}

var segmentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List segments",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := outputFormat()
		if err != nil {
			return err
		}
		c, err := clientFromSettings()
		if err != nil {
			return err
		}

		ctx, cancel := commandContext(cmd, c.HTTPClient.Timeout)
		defer cancel()

		segments, err := c.ListSegments(ctx)
		if err != nil {
			return fmt.Errorf("failed to list segments: %w", err)
		}
		return cli.PrintSegments(cmd.OutOrStdout(), segments, f)
	},
}

var segmentGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a segment",
	Long: `Show a segment. --save-rules also writes its rules to the rule file
so they can be edited locally.

Example:
  segmint segment get 65f1c0d2a1 --save-rules`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := outputFormat()
		if err != nil {
			return err
		}
		c, err := clientFromSettings()
		if err != nil {
			return err
		}

		ctx, cancel := commandContext(cmd, c.HTTPClient.Timeout)
		defer cancel()

		seg, err := c.GetSegment(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to get segment: %w", err)
		}

		if segmentSaveRules {
			if err := cli.SaveRules(rulesFile, seg.Rules); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Saved rules to %s\n", rulesFile)
		}
		return cli.PrintSegment(cmd.OutOrStdout(), seg, f)
	},
}

var segmentUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update a segment",
	Long: `Update a segment. Title and description keep their current values
unless given; rules come from the rule file unless --keep-rules is set.

Examples:
  segmint segment update 65f1c0d2a1
  segmint segment update 65f1c0d2a1 --title "VIP" --keep-rules`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		c, err := clientFromSettings()
		if err != nil {
			return err
		}

		ctx, cancel := commandContext(cmd, c.HTTPClient.Timeout)
		defer cancel()

		current, err := c.GetSegment(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to get segment: %w", err)
		}

		in := client.SegmentInput{
			Title:       current.Title,
			Description: current.Description,
			Rules:       current.Rules,
		}
		if cmd.Flags().Changed("title") {
			in.Title = segmentTitle
		}
		if cmd.Flags().Changed("description") {
			in.Description = segmentDescription
		}
		if !segmentKeepRules {
			tree, err := cli.LoadRules(rulesFile)
			if err != nil {
				return err
			}
			in.Rules = tree
		}

		seg, err := c.UpdateSegment(ctx, id, in)
		if err != nil {
			return fmt.Errorf("failed to update segment: %w", err)
		}

		printf(cmd, "Successfully updated segment '%s'\n", seg.Title)
		return nil
	},
}

var segmentDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a segment",
	Long: `Delete a segment from the active organization.

Examples:
  segmint segment delete 65f1c0d2a1
  segmint segment delete 65f1c0d2a1 --force`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]

		c, err := clientFromSettings()
		if err != nil {
			return err
		}

		// Confirm deletion unless --force
		if !segmentForce && !quiet {
			ok, err := confirm(cmd, fmt.Sprintf("Are you sure you want to delete segment '%s'?", id))
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Deletion cancelled")
				return nil
			}
		}

		ctx, cancel := commandContext(cmd, c.HTTPClient.Timeout)
		defer cancel()

		if err := c.DeleteSegment(ctx, id); err != nil {
			return fmt.Errorf("failed to delete segment: %w", err)
		}

		printf(cmd, "Successfully deleted segment '%s'\n", id)
		return nil
	},
}

func clientFromSettings() (*client.Client, error) {
	s, err := settings()
	if err != nil {
		return nil, err
	}
	return newClient(s)
}

// commandContext bounds a command by timeout.
func commandContext(cmd *cobra.Command, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, timeout)
}

func init() {
	rootCmd.AddCommand(segmentCmd)
	segmentCmd.AddCommand(segmentCreateCmd, segmentPreviewCmd, segmentListCmd, segmentGetCmd, segmentUpdateCmd, segmentDeleteCmd)

	for _, c := range []*cobra.Command{segmentCreateCmd, segmentUpdateCmd} {
		c.Flags().StringVar(&segmentTitle, "title", "", "Segment title")
		c.Flags().StringVar(&segmentDescription, "description", "", "Segment description")
	}
	_ = segmentCreateCmd.MarkFlagRequired("title")

	segmentGetCmd.Flags().BoolVar(&segmentSaveRules, "save-rules", false, "Write the segment's rules to the rule file")
	segmentUpdateCmd.Flags().BoolVar(&segmentKeepRules, "keep-rules", false, "Keep the segment's current rules")
	segmentDeleteCmd.Flags().BoolVar(&segmentForce, "force", false, "Skip confirmation prompt")
}
