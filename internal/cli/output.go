package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/crmkit/segmint/internal/client"
	"github.com/crmkit/segmint/internal/rules"
)

// OutputFormat specifies the output format for CLI commands
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
)

// ParseFormat validates a --format value.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// PrintTree outputs a rule tree; the table form lists every node with its path.
func PrintTree(w io.Writer, tree rules.Group, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, tree)
	case FormatYAML:
		return printYAML(w, tree)
	case FormatTable:
		return printTreeTable(w, tree)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintSegments outputs a list of segments in the specified format
func PrintSegments(w io.Writer, segments []client.Segment, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, map[string][]client.Segment{"segments": segments})
	case FormatYAML:
		return printYAML(w, map[string][]client.Segment{"segments": segments})
	case FormatTable:
		return printSegmentTable(w, segments)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintSegment outputs a single segment; the table form is followed by its rules.
func PrintSegment(w io.Writer, segment *client.Segment, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, segment)
	case FormatYAML:
		return printYAML(w, segment)
	case FormatTable:
		if err := printSegmentTable(w, []client.Segment{*segment}); err != nil {
			return err
		}
		return printTreeTable(w, segment.Rules)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintJSON writes v as indented JSON.
func PrintJSON(w io.Writer, v any) error { return printJSON(w, v) }

func printJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(data)
}

func printYAML(w io.Writer, data any) error {
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	encoder.SetIndent(2)
	return encoder.Encode(data)
}

func printTreeTable(w io.Writer, tree rules.Group) error {
	table := tablewriter.NewWriter(w)
	table.Header("Path", "Type", "Field", "Operator", "Value")

	rootType := "group"
	if tree.SelectAll {
		rootType = "group (all customers)"
	}
	appendErr := table.Append("root", rootType, "", string(tree.Operator), "")

	rules.Walk(tree, func(path rules.Path, n rules.Node) {
		if appendErr != nil {
			return
		}
		display := shortPath(path)
		if n.IsGroup() {
			appendErr = table.Append(display, "group", "", string(n.Group.Operator), "")
			return
		}
		c := n.Condition
		appendErr = table.Append(display, "condition", c.Field.Label(), c.Operator.Label(), strconv.Itoa(c.Value))
	})
	if appendErr != nil {
		return appendErr
	}
	return table.Render()
}

// shortPath renders the index-only form accepted back by ParsePath, e.g. "0.1".
func shortPath(p rules.Path) string {
	indices, _, err := p.Indices()
	if err != nil {
		return p.String()
	}
	parts := make([]string, len(indices))
	for i, idx := range indices {
		parts[i] = strconv.Itoa(idx)
	}
	return strings.Join(parts, ".")
}

func printSegmentTable(w io.Writer, segments []client.Segment) error {
	table := tablewriter.NewWriter(w)
	table.Header("ID", "Title", "Conditions", "Customers", "Description", "Updated At")

	for _, s := range segments {
		description := s.Description
		if len(description) > 40 {
			description = description[:37] + "..."
		}
		updated := ""
		if !s.UpdatedAt.IsZero() {
			updated = s.UpdatedAt.Format("2006-01-02 15:04")
		}
		conditions := strconv.Itoa(rules.Count(s.Rules))
		if s.Rules.SelectAll {
			conditions = "all"
		}

		if err := table.Append(
			s.ID,
			s.Title,
			conditions,
			strconv.Itoa(s.Customers),
			description,
			updated,
		); err != nil {
			return err
		}
	}

	return table.Render()
}

// PrintCampaigns outputs a list of campaigns in the specified format
func PrintCampaigns(w io.Writer, campaigns []client.Campaign, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, map[string][]client.Campaign{"campaigns": campaigns})
	case FormatYAML:
		return printYAML(w, map[string][]client.Campaign{"campaigns": campaigns})
	case FormatTable:
		return printCampaignTable(w, campaigns)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintCampaign outputs a single campaign; the table form is followed by its message.
func PrintCampaign(w io.Writer, campaign *client.Campaign, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, campaign)
	case FormatYAML:
		return printYAML(w, campaign)
	case FormatTable:
		if err := printCampaignTable(w, []client.Campaign{*campaign}); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, "\nMessage:\n  %s\n", campaign.Content)
		return err
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func printCampaignTable(w io.Writer, campaigns []client.Campaign) error {
	table := tablewriter.NewWriter(w)
	table.Header("ID", "Name", "Segment", "Status", "Sent", "Failed", "Created At")

	for _, c := range campaigns {
		created := ""
		if !c.CreatedAt.IsZero() {
			created = c.CreatedAt.Format("2006-01-02 15:04")
		}
		if err := table.Append(
			c.ID,
			c.Name,
			c.SegmentID,
			c.Status,
			strconv.Itoa(c.Sent),
			strconv.Itoa(c.Failed),
			created,
		); err != nil {
			return err
		}
	}

	return table.Render()
}
