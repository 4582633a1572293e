package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stackless-analytics/gooddata-cli/internal/backup"
)

var backupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "Inspect insight backups",
}

var backupsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List backup files for a customer, newest first",
	Run: func(cmd *cobra.Command, args []string) {
		customer := resolveCustomer()
		store, err := backup.NewStore(stateDir(), customer)
		if err != nil {
			fatal("%v", err)
		}
		paths, err := store.List()
		if err != nil {
			fatal("%v", err)
		}
		if flagJSON {
			printJSON(paths)
			return
		}

		printHeading(fmt.Sprintf("Backups for %s (%d)", customer, len(paths)))
		for _, path := range paths {
			fmt.Printf("  %s\n", path)
		}
	},
}

func init() {
	backupsCmd.AddCommand(backupsListCmd)
	rootCmd.AddCommand(backupsCmd)
}
