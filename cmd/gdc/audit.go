package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/stackless-analytics/gooddata-cli/internal/audit"
)

var flagAuditCount int

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the write-operation audit log",
}

var auditTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Show recent audit entries for a customer",
	Run: func(cmd *cobra.Command, args []string) {
		customer := resolveCustomer()
		logger, err := audit.NewLogger(stateDir(), customer)
		if err != nil {
			fatal("%v", err)
		}
		entries, err := logger.Tail(flagAuditCount)
		if err != nil {
			fatal("%v", err)
		}
		if flagJSON {
			printJSON(entries)
			return
		}

		printHeading(fmt.Sprintf("Audit log for %s (%d entries)", customer, len(entries)))
		for _, entry := range entries {
			fmt.Printf("  %s  %-10s %-35s %s\n",
				entry.Timestamp.Format("2006-01-02 15:04:05"),
				colorStatus(entry.Status),
				entry.Operation,
				entry.ObjectID)
		}
	},
}

func colorStatus(status string) string {
	switch status {
	case audit.StatusSuccess:
		return color.New(color.FgGreen).Sprint(status)
	case audit.StatusError:
		return color.New(color.FgRed).Sprint(status)
	default:
		return status
	}
}

func init() {
	auditTailCmd.Flags().IntVarP(&flagAuditCount, "count", "n", 20, "number of entries to show")
	auditCmd.AddCommand(auditTailCmd)
	rootCmd.AddCommand(auditCmd)
}
