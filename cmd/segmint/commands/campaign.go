package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/crmkit/segmint/internal/cli"
	"github.com/crmkit/segmint/internal/client"
)

var (
	campaignName    string
	campaignContent string
	campaignSegment string
	campaignForce   bool
)

var campaignCmd = &cobra.Command{
	Use:   "campaign",
	Short: "Manage campaigns in the CRM",
	Long: `Create, list, update and delete campaigns that message the customers
of a segment, and ask the CRM for message drafts.

Messages may use the ${name} placeholder for the customer's name.`,
}

var campaignCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a campaign for a segment",
	Long: `Create a campaign sending --content to the customers of --segment.

Example:
  segmint campaign create --name "Winback" --segment 65f1c0d2a1 --content 'Hi ${name}, 10% off this week'`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := clientFromSettings()
		if err != nil {
			return err
		}

		ctx, cancel := commandContext(cmd, c.HTTPClient.Timeout)
		defer cancel()

		campaign, err := c.CreateCampaign(ctx, client.CampaignInput{
			Name:      campaignName,
			Content:   campaignContent,
			SegmentID: campaignSegment,
		})
		if err != nil {
			return fmt.Errorf("failed to create campaign: %w", err)
		}

		printf(cmd, "Successfully created campaign '%s' (%s)\n", campaign.Name, campaign.ID)
		return nil
	},
}

var campaignSuggestCmd = &cobra.Command{
	Use:   "suggest <objective>",
	Short: "Draft campaign messages from a goal",
	Long: `Ask the CRM's message generator for drafts that serve an objective.
Pick one and pass it to 'segmint campaign create --content'.

Example:
  segmint campaign suggest "bring back customers inactive for 90 days"`,
	Args: cobra.MinimumNArgs(1),
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

		messages, err := c.SuggestCampaignMessages(ctx, strings.Join(args, " "))
		if err != nil {
			return fmt.Errorf("failed to generate suggestions: %w", err)
		}

		if f != cli.FormatTable {
			return cli.PrintJSON(cmd.OutOrStdout(), map[string][]string{"messages": messages})
		}
		for i, m := range messages {
			fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", i+1, m)
		}
		return nil
	},
}

var campaignListCmd = &cobra.Command{
	Use:   "list",
	Short: "List campaigns",
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

		campaigns, err := c.ListCampaigns(ctx)
		if err != nil {
			return fmt.Errorf("failed to list campaigns: %w", err)
		}
		return cli.PrintCampaigns(cmd.OutOrStdout(), campaigns, f)
	},
}

var campaignGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a campaign",
	Args:  cobra.ExactArgs(1),
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

		campaign, err := c.GetCampaign(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to get campaign: %w", err)
		}
		return cli.PrintCampaign(cmd.OutOrStdout(), campaign, f)
	},
}

var campaignUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update a campaign",
	Long: `Update a campaign. Fields keep their current values unless given.

Example:
  segmint campaign update 66aa01 --content 'Hi ${name}, last chance'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		c, err := clientFromSettings()
		if err != nil {
			return err
		}

		ctx, cancel := commandContext(cmd, c.HTTPClient.Timeout)
		defer cancel()

		current, err := c.GetCampaign(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to get campaign: %w", err)
		}

		in := client.CampaignInput{Name: current.Name, Content: current.Content, SegmentID: current.SegmentID}
		if cmd.Flags().Changed("name") {
			in.Name = campaignName
		}
		if cmd.Flags().Changed("content") {
			in.Content = campaignContent
		}
		if cmd.Flags().Changed("segment") {
			in.SegmentID = campaignSegment
		}

		campaign, err := c.UpdateCampaign(ctx, id, in)
		if err != nil {
			return fmt.Errorf("failed to update campaign: %w", err)
		}

		printf(cmd, "Successfully updated campaign '%s'\n", campaign.Name)
		return nil
	},
}

var campaignDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a campaign",
	Long: `Delete a campaign from the active organization.

Examples:
  segmint campaign delete 66aa01
  segmint campaign delete 66aa01 --force`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]

		c, err := clientFromSettings()
		if err != nil {
			return err
		}

		// Confirm deletion unless --force
		if !campaignForce && !quiet {
			ok, err := confirm(cmd, fmt.Sprintf("Are you sure you want to delete campaign '%s'?", id))
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

		if err := c.DeleteCampaign(ctx, id); err != nil {
			return fmt.Errorf("failed to delete campaign: %w", err)
		}

		printf(cmd, "Successfully deleted campaign '%s'\n", id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(campaignCmd)
	campaignCmd.AddCommand(campaignCreateCmd, campaignSuggestCmd, campaignListCmd, campaignGetCmd, campaignUpdateCmd, campaignDeleteCmd)

	for _, c := range []*cobra.Command{campaignCreateCmd, campaignUpdateCmd} {
		c.Flags().StringVar(&campaignName, "name", "", "Campaign name")
		c.Flags().StringVar(&campaignContent, "content", "", "Message, may use ${name}")
		c.Flags().StringVar(&campaignSegment, "segment", "", "Target segment ID")
	}
	_ = campaignCreateCmd.MarkFlagRequired("name")
	_ = campaignCreateCmd.MarkFlagRequired("content")
	_ = campaignCreateCmd.MarkFlagRequired("segment")

	campaignDeleteCmd.Flags().BoolVar(&campaignForce, "force", false, "Skip confirmation prompt")
}
