package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/stackless-analytics/gooddata-cli/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve GoodData tools over the Model Context Protocol",
	Long: `Serve the GoodData toolset over MCP (JSON-RPC 2.0 on stdio) for agent
clients. Read tools are annotated read-only; the write tools
(apply_remove_duplicate_metrics, restore_insight_from_backup) carry
destructive hints and are guarded by the preview confirmation token.`,
	Run: func(cmd *cobra.Command, args []string) {
		toolset := mcpserver.NewToolset(newClient(), registryPath(), stateDir(), slog.Default())
		server := mcpserver.New("gdc", version, toolset.Tools(), slog.Default())
		if err := server.Serve(context.Background()); err != nil {
			fatal("%v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
