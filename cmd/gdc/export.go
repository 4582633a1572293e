package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/stackless-analytics/gooddata-cli/internal/gooddata"
)

var (
	flagExportOutput string
	flagExportDir    string
	flagExportLimit  int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export dashboards and visualization data",
}

var exportPDFCmd = &cobra.Command{
	Use:   "pdf <dashboard-id>",
	Short: "Export a dashboard to PDF",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		dashboardID := args[0]
		outputPath := flagExportOutput
		if outputPath == "" {
			outputPath = filepath.Join("exports", dashboardID+".pdf")
		}
		if err := newClient().ExportDashboardPDF(ctx, resolveWorkspaceID(), dashboardID, outputPath); err != nil {
			fatal("%v", err)
		}
		printExported(outputPath)
	},
}

var exportCSVCmd = &cobra.Command{
	Use:   "csv <visualization-id>",
	Short: "Export a visualization's data to CSV",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runTabularExport(args[0], gooddata.FormatCSV, ".csv")
	},
}

var exportXLSXCmd = &cobra.Command{
	Use:   "xlsx <visualization-id>",
	Short: "Export a visualization's data to Excel",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runTabularExport(args[0], gooddata.FormatXLSX, ".xlsx")
	},
}

var exportAllCmd = &cobra.Command{
	Use:   "all",
	Short: "Export every dashboard in the workspace to PDF",
	Long: `Export every dashboard in the target workspace to PDF, a bounded
number at a time. Failed exports are reported per dashboard; the
command exits non-zero if any export failed.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		client := newClient()
		workspaceID := resolveWorkspaceID()

		dashboards, err := client.ListDashboards(ctx, workspaceID)
		if err != nil {
			fatal("%v", err)
		}
		if len(dashboards) == 0 {
			fmt.Println("No dashboards to export.")
			return
		}

		group, groupCtx := errgroup.WithContext(ctx)
		group.SetLimit(flagExportLimit)
		for _, dashboard := range dashboards {
			dashboard := dashboard
			group.Go(func() error {
				outputPath := filepath.Join(flagExportDir, dashboard.ID+".pdf")
				if err := client.ExportDashboardPDF(groupCtx, workspaceID, dashboard.ID, outputPath); err != nil {
					return fmt.Errorf("dashboard %s: %w", dashboard.ID, err)
				}
				printExported(outputPath)
				return nil
			})
		}
		if err := group.Wait(); err != nil {
			fatal("%v", err)
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("\n%s\n", green(fmt.Sprintf("Exported %d dashboards to %s", len(dashboards), flagExportDir)))
	},
}

func runTabularExport(visualizationID, format, extension string) {
	ctx := context.Background()
	outputPath := flagExportOutput
	if outputPath == "" {
		outputPath = filepath.Join("exports", visualizationID+extension)
	}
	if err := newClient().ExportVisualizationTabular(ctx, resolveWorkspaceID(), visualizationID, format, outputPath); err != nil {
		fatal("%v", err)
	}
	printExported(outputPath)
}

func printExported(outputPath string) {
	absolute, err := filepath.Abs(outputPath)
	if err != nil {
		absolute = outputPath
	}
	green := color.New(color.FgGreen).SprintFunc()
	fmt.Printf("%s %s\n", green("Exported:"), absolute)
}

func init() {
	exportPDFCmd.Flags().StringVarP(&flagExportOutput, "output", "o", "", "output file path")
	exportCSVCmd.Flags().StringVarP(&flagExportOutput, "output", "o", "", "output file path")
	exportXLSXCmd.Flags().StringVarP(&flagExportOutput, "output", "o", "", "output file path")
	exportAllCmd.Flags().StringVar(&flagExportDir, "dir", "exports", "output directory")
	exportAllCmd.Flags().IntVar(&flagExportLimit, "limit", 4, "maximum concurrent exports")

	exportCmd.AddCommand(exportPDFCmd)
	exportCmd.AddCommand(exportCSVCmd)
	exportCmd.AddCommand(exportXLSXCmd)
	exportCmd.AddCommand(exportAllCmd)
	rootCmd.AddCommand(exportCmd)
}
