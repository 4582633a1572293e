package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is stamped by the release build via -ldflags.
var version = "0.4.0-dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the gdc version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("gdc %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
