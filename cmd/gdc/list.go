package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/stackless-analytics/gooddata-cli/internal/catalog"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog objects",
	Long:  `List workspaces, insights, dashboards, metrics, datasets, users, or user groups.`,
}

var listWorkspacesCmd = &cobra.Command{
	Use:   "workspaces",
	Short: "List all workspaces in the organization",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		workspaces, err := newClient().ListWorkspaces(ctx)
		if err != nil {
			fatal("%v", err)
		}
		if flagJSON {
			printJSON(workspaces)
			return
		}
		printHeading(fmt.Sprintf("Workspaces (%d)", len(workspaces)))
		for _, ws := range workspaces {
			if ws.ParentID != "" {
				fmt.Printf("  %-40s %s (parent: %s)\n", ws.ID, ws.Name, ws.ParentID)
			} else {
				fmt.Printf("  %-40s %s\n", ws.ID, ws.Name)
			}
		}
	},
}

var listInsightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "List insights in the target workspace",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		insights, err := newClient().ListInsights(ctx, resolveWorkspaceID())
		if err != nil {
			fatal("%v", err)
		}
		if flagJSON {
			printJSON(insights)
			return
		}
		printHeading(fmt.Sprintf("Insights (%d)", len(insights)))
		for _, insight := range insights {
			fmt.Printf("  %-40s %s\n", insight.ID, insight.Title)
		}
	},
}

var listDashboardsCmd = &cobra.Command{
	Use:   "dashboards",
	Short: "List dashboards in the target workspace",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		dashboards, err := newClient().ListDashboards(ctx, resolveWorkspaceID())
		if err != nil {
			fatal("%v", err)
		}
		if flagJSON {
			printJSON(dashboards)
			return
		}
		printHeading(fmt.Sprintf("Dashboards (%d)", len(dashboards)))
		for _, dashboard := range dashboards {
			fmt.Printf("  %-40s %s\n", dashboard.ID, dashboard.Title)
		}
	},
}

var listMetricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "List metrics in the target workspace",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		metrics, err := newClient().ListMetrics(ctx, resolveWorkspaceID())
		if err != nil {
			fatal("%v", err)
		}
		if flagJSON {
			printJSON(metrics)
			return
		}
		printHeading(fmt.Sprintf("Metrics (%d)", len(metrics)))
		for _, metric := range metrics {
			if metric.Format != "" {
				fmt.Printf("  %-40s %-40s %s\n", metric.ID, metric.Title, metric.Format)
			} else {
				fmt.Printf("  %-40s %s\n", metric.ID, metric.Title)
			}
		}
	},
}

var listDatasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "List datasets in the target workspace",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		datasets, err := newClient().ListDatasets(ctx, resolveWorkspaceID())
		if err != nil {
			fatal("%v", err)
		}
		if flagJSON {
			printJSON(datasets)
			return
		}
		printHeading(fmt.Sprintf("Datasets (%d)", len(datasets)))
		for _, dataset := range datasets {
			fmt.Printf("  %-40s %s\n", dataset.ID, dataset.Title)
		}
	},
}

var listUsersCmd = &cobra.Command{
	Use:   "users",
	Short: "List all users in the organization",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		users, err := newClient().ListUsers(ctx)
		if err != nil {
			fatal("%v", err)
		}
		if flagJSON {
			printJSON(users)
			return
		}
		printHeading(fmt.Sprintf("Users (%d)", len(users)))
		for _, user := range users {
			printUser(user)
		}
	},
}

var listGroupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "List all user groups in the organization",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		groups, err := newClient().ListGroups(ctx)
		if err != nil {
			fatal("%v", err)
		}
		if flagJSON {
			printJSON(groups)
			return
		}
		printHeading(fmt.Sprintf("User Groups (%d)", len(groups)))
		for _, group := range groups {
			fmt.Printf("  %-40s %s\n", group.ID, group.Name)
		}
	},
}

func printHeading(text string) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	fmt.Printf("\n%s\n\n", cyan(text))
}

func printUser(user catalog.User) {
	switch {
	case user.Name != "" && user.Email != "":
		fmt.Printf("  %-40s %-30s %s\n", user.ID, user.Name, user.Email)
	case user.Name != "":
		fmt.Printf("  %-40s %s\n", user.ID, user.Name)
	default:
		fmt.Printf("  %s\n", user.ID)
	}
}

func init() {
	listCmd.AddCommand(listWorkspacesCmd)
	listCmd.AddCommand(listInsightsCmd)
	listCmd.AddCommand(listDashboardsCmd)
	listCmd.AddCommand(listMetricsCmd)
	listCmd.AddCommand(listDatasetsCmd)
	listCmd.AddCommand(listUsersCmd)
	listCmd.AddCommand(listGroupsCmd)
	rootCmd.AddCommand(listCmd)
}
