package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/stackless-analytics/gooddata-cli/internal/audit"
	"github.com/stackless-analytics/gooddata-cli/internal/backup"
	"github.com/stackless-analytics/gooddata-cli/internal/dedupe"
)

var dedupeCmd = &cobra.Command{
	Use:   "dedupe",
	Short: "Find and remove duplicate metrics from insights",
	Long: `Find duplicate metric references in an insight's measures bucket and
remove them safely: preview shows what would change and issues a
confirmation token, apply verifies the token against live state and
backs the insight up before writing, restore undoes an apply from its
backup file.`,
}

// newCoordinator wires a dedupe coordinator for the resolved customer.
func newCoordinator() *dedupe.Coordinator {
	customer := resolveCustomer()
	workspaceID := resolveWorkspaceID()
	store, err := backup.NewStore(stateDir(), customer)
	if err != nil {
		fatal("%v", err)
	}
	auditLog, err := audit.NewLogger(stateDir(), customer)
	if err != nil {
		fatal("%v", err)
	}
	return dedupe.New(newClient(), store, auditLog, workspaceID)
}

var dedupePreviewCmd = &cobra.Command{
	Use:   "preview <insight-id>",
	Short: "Preview duplicate-metric removal (read-only)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		result, err := newCoordinator().Preview(ctx, args[0])
		if err != nil {
			fatal("%v", err)
		}
		if flagJSON {
			printJSON(result)
			return
		}

		yellow := color.New(color.FgYellow).SprintFunc()
		printHeading(fmt.Sprintf("%s (%s)", result.Title, result.ObjectID))
		fmt.Printf("  Metrics: %d now, %d after removal\n", result.CurrentMetricCount, result.MetricsAfterCount)

		if result.DuplicatesCount == 0 {
			fmt.Printf("\n%s\n", result.Message)
			return
		}

		fmt.Printf("\n%s\n", yellow(fmt.Sprintf("Duplicates (%d):", result.DuplicatesCount)))
		for _, duplicate := range result.DuplicatesFound {
			fmt.Printf("  %-40s %-40s duplicate of %s\n",
				duplicate.LocalIdentifier, duplicate.MetricID, duplicate.DuplicateOf)
		}
		fmt.Printf("\nConfirmation token: %s\n", result.ConfirmationToken)
		fmt.Printf("%s\n", result.NextStep)
	},
}

var dedupeApplyCmd = &cobra.Command{
	Use:   "apply <insight-id> <confirmation-token>",
	Short: "Apply duplicate-metric removal (writes to GoodData)",
	Long: `Remove the duplicate metrics previewed for an insight. The token from
"dedupe preview" is verified against the insight's live state; the
insight is backed up before any change is written.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		result, err := newCoordinator().Apply(ctx, args[0], args[1])
		if err != nil {
			fatal("%v", err)
		}
		if flagJSON {
			printJSON(result)
			return
		}

		if !result.Success {
			red := color.New(color.FgRed).SprintFunc()
			fmt.Printf("%s %s\n", red("Rejected:"), result.Error)
			if result.Message != "" {
				fmt.Println(result.Message)
			}
			if result.BackupPath != "" {
				fmt.Printf("Backup: %s\n", result.BackupPath)
			}
			return
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s removed %d duplicates from %s\n", green("Success:"), result.RemovedCount, result.ObjectID)
		for _, removed := range result.RemovedDuplicates {
			fmt.Printf("  %-40s %s\n", removed.LocalIdentifier, removed.MetricID)
		}
		fmt.Printf("Metrics remaining: %d\n", result.NewMetricCount)
		fmt.Printf("Backup: %s\n", result.BackupPath)
	},
}

var dedupeRestoreCmd = &cobra.Command{
	Use:   "restore <backup-path>",
	Short: "Restore an insight from a backup file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		result, err := newCoordinator().Restore(ctx, args[0])
		if err != nil {
			fatal("%v", err)
		}
		if flagJSON {
			printJSON(result)
			return
		}

		if !result.Success {
			red := color.New(color.FgRed).SprintFunc()
			fmt.Printf("%s %s\n", red("Failed:"), result.Error)
			return
		}
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s restored %s from %s\n", green("Success:"), result.ObjectID, result.RestoredFrom)
		if result.BackupTime != "" {
			fmt.Printf("Backup taken: %s\n", result.BackupTime)
		}
	},
}

func init() {
	dedupeCmd.AddCommand(dedupePreviewCmd)
	dedupeCmd.AddCommand(dedupeApplyCmd)
	dedupeCmd.AddCommand(dedupeRestoreCmd)
	rootCmd.AddCommand(dedupeCmd)
}
