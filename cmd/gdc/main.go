// gdc is a thin command-line client for the GoodData Cloud API:
// catalog listings, dashboard and visualization exports, a
// permission-anomaly analyzer, and a guarded duplicate-metric cleanup
// with preview, backup, and restore. The same operations are exposed
// to agent clients through "gdc mcp".
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
