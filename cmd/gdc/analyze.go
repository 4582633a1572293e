package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/stackless-analytics/gooddata-cli/internal/analyzer"
)

var flagAnalyzeOutput string

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze permissions and group memberships for anomalies",
	Long: `Fetch users, groups, memberships, and permissions across the
organization, print an access report, and flag anomalies: direct user
permissions, over-privileged users, workspaces without explicit
permissions, orphaned groups, and users with identical memberships.

The full snapshot is written to permissions_data.json for offline
inspection (--output to override). Steps that fail with access errors
are skipped and reported, not fatal.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		snapshot := analyzer.New(newClient(), slog.Default()).Build(ctx)

		snapshot.Report(os.Stdout)

		if err := snapshot.WriteJSON(flagAnalyzeOutput); err != nil {
			fatal("writing snapshot: %v", err)
		}
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("\n%s %s\n", green("Snapshot written:"), flagAnalyzeOutput)
	},
}

func init() {
	analyzeCmd.Flags().StringVarP(&flagAnalyzeOutput, "output", "o", "permissions_data.json", "snapshot output path")
	rootCmd.AddCommand(analyzeCmd)
}
