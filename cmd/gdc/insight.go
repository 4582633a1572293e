package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/stackless-analytics/gooddata-cli/internal/gooddata"
)

var flagInsightData bool

var insightCmd = &cobra.Command{
	Use:   "insight <insight-id>",
	Short: "Show full metadata for an insight",
	Long: `Show an insight's title, tags, lifecycle information, and the
metrics, attributes, and filters it references. With --data the
insight is executed instead and its result rows are printed.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		if flagInsightData {
			runInsightData(ctx, args[0])
			return
		}
		meta, err := newClient().InsightMetadata(ctx, resolveWorkspaceID(), args[0])
		if err != nil {
			fatal("%v", err)
		}
		if flagJSON {
			printJSON(meta)
			return
		}

		yellow := color.New(color.FgYellow).SprintFunc()
		printHeading(fmt.Sprintf("%s (%s)", meta.Title, meta.ID))
		if meta.Description != "" {
			fmt.Printf("  %s\n\n", meta.Description)
		}
		if meta.VisualizationType != "" {
			fmt.Printf("  Type:     %s\n", meta.VisualizationType)
		}
		if len(meta.Tags) > 0 {
			fmt.Printf("  Tags:     %s\n", strings.Join(meta.Tags, ", "))
		}
		if meta.CreatedAt != "" {
			fmt.Printf("  Created:  %s%s\n", meta.CreatedAt, identitySuffix(meta.CreatedBy))
		}
		if meta.ModifiedAt != "" {
			fmt.Printf("  Modified: %s%s\n", meta.ModifiedAt, identitySuffix(meta.ModifiedBy))
		}

		fmt.Printf("\n%s\n", yellow(fmt.Sprintf("Metrics (%d):", len(meta.Metrics))))
		for _, metric := range meta.Metrics {
			fmt.Printf("  %-40s %s\n", metric.ID, metric.Title)
		}

		fmt.Printf("\n%s\n", yellow(fmt.Sprintf("Attributes (%d):", len(meta.Attributes))))
		for _, attribute := range meta.Attributes {
			fmt.Printf("  %s\n", attribute)
		}

		fmt.Printf("\n%s\n", yellow(fmt.Sprintf("Filters (%d):", len(meta.Filters))))
		for _, filter := range meta.Filters {
			fmt.Printf("  %-9s %-40s %s\n", filter.Type, filter.Attribute, strings.Join(filter.Values, ", "))
		}
	},
}

// runInsightData executes the insight and prints its rows.
func runInsightData(ctx context.Context, insightID string) {
	data, err := newClient().InsightData(ctx, resolveWorkspaceID(), insightID)
	if err != nil {
		fatal("%v", err)
	}
	if flagJSON {
		printJSON(data)
		return
	}

	printHeading(fmt.Sprintf("%s (%s, %d rows)", data.Title, data.ID, data.RowCount))
	for _, column := range data.Columns {
		fmt.Printf("  %-30s", column)
	}
	fmt.Println()
	for _, row := range data.Data {
		for _, column := range data.Columns {
			fmt.Printf("  %-30v", row[column])
		}
		fmt.Println()
	}
}

// identitySuffix formats a " by First Last" suffix for lifecycle
// lines, or "" when the identity is unknown.
func identitySuffix(identity *gooddata.UserIdentity) string {
	if identity == nil {
		return ""
	}
	name := strings.TrimSpace(identity.Firstname + " " + identity.Lastname)
	if name == "" {
		name = identity.Email
	}
	if name == "" {
		name = identity.ID
	}
	return " by " + name
}

func init() {
	insightCmd.Flags().BoolVar(&flagInsightData, "data", false, "execute the insight and print its data")
	rootCmd.AddCommand(insightCmd)
}
