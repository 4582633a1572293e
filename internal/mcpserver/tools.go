package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/stackless-analytics/gooddata-cli/internal/audit"
	"github.com/stackless-analytics/gooddata-cli/internal/backup"
	"github.com/stackless-analytics/gooddata-cli/internal/catalog"
	"github.com/stackless-analytics/gooddata-cli/internal/config"
	"github.com/stackless-analytics/gooddata-cli/internal/dedupe"
	"github.com/stackless-analytics/gooddata-cli/internal/gooddata"
)

// Toolset binds the tool handlers to a GoodData client, the customer
// registry, and the local state directory for backups and audit logs.
type Toolset struct {
	client       *gooddata.Client
	registryPath string
	stateDir     string
	log          *slog.Logger
}

// NewToolset creates a toolset.
func NewToolset(client *gooddata.Client, registryPath, stateDir string, log *slog.Logger) *Toolset {
	if log == nil {
		log = slog.Default()
	}
	return &Toolset{
		client:       client,
		registryPath: registryPath,
		stateDir:     stateDir,
		log:          log,
	}
}

const customerDescription = "Customer name from the registry. Auto-detected from the current directory when omitted."

// objectSchema builds a JSON Schema object with the given properties.
func objectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func stringProperty(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

// decodeArgs unmarshals tool arguments into a typed struct. Empty or
// null arguments decode to the zero value.
func decodeArgs[T any](args json.RawMessage) (T, error) {
	var v T
	if len(args) == 0 || string(args) == "null" {
		return v, nil
	}
	if err := json.Unmarshal(args, &v); err != nil {
		return v, fmt.Errorf("invalid arguments: %w", err)
	}
	return v, nil
}

// resolve maps an optional customer name to (customer, workspaceID)
// using the registry, falling back to current-directory auto-detect.
func (t *Toolset) resolve(customer string) (string, string, error) {
	registry, err := config.LoadRegistry(t.registryPath)
	if err != nil {
		return "", "", err
	}
	cwd, err := os.Getwd()
	if err != nil {
		cwd = ""
	}
	name, entry, err := registry.Resolve(customer, cwd)
	if err != nil {
		return "", "", err
	}
	return name, entry.WorkspaceID, nil
}

// coordinator builds a dedupe coordinator scoped to one customer's
// workspace, backup store, and audit log.
func (t *Toolset) coordinator(customer, workspaceID string) (*dedupe.Coordinator, error) {
	store, err := backup.NewStore(t.stateDir, customer)
	if err != nil {
		return nil, err
	}
	auditLog, err := audit.NewLogger(t.stateDir, customer)
	if err != nil {
		return nil, err
	}
	return dedupe.New(t.client, store, auditLog, workspaceID), nil
}

type customerArgs struct {
	Customer string `json:"customer"`
}

type groupArgs struct {
	GroupID string `json:"group_id"`
}

type dashboardArgs struct {
	DashboardID string `json:"dashboard_id"`
	Customer    string `json:"customer"`
}

type insightArgs struct {
	InsightID string `json:"insight_id"`
	Customer  string `json:"customer"`
}

type exportDashboardArgs struct {
	DashboardID string `json:"dashboard_id"`
	Customer    string `json:"customer"`
	OutputPath  string `json:"output_path"`
}

type exportVisualizationArgs struct {
	VisualizationID string `json:"visualization_id"`
	Customer        string `json:"customer"`
	OutputPath      string `json:"output_path"`
}

type logicalModelArgs struct {
	Customer   string `json:"customer"`
	OutputPath string `json:"output_path"`
}

type applyArgs struct {
	InsightID         string `json:"insight_id"`
	ConfirmationToken string `json:"confirmation_token"`
	Customer          string `json:"customer"`
}

type restoreArgs struct {
	BackupPath string `json:"backup_path"`
	Customer   string `json:"customer"`
}

// groupMembers is the get_user_group_members result.
type groupMembers struct {
	GroupID     string         `json:"group_id"`
	MemberCount int            `json:"member_count"`
	Members     []catalog.User `json:"members"`
}

// exportOutcome is the result of the export tools.
type exportOutcome struct {
	Success bool   `json:"success"`
	Path    string `json:"path"`
}

// logicalModelResult is the get_logical_data_model result when the
// model is returned inline.
type logicalModelResult struct {
	Summary gooddata.LogicalModelSummary `json:"summary"`
	LDM     json.RawMessage              `json:"ldm"`
}

// logicalModelSaved is the get_logical_data_model result when the
// model was written to a file.
type logicalModelSaved struct {
	Success bool                         `json:"success"`
	Path    string                       `json:"path"`
	Summary gooddata.LogicalModelSummary `json:"summary"`
}

// dashboardInsights is the get_dashboard_insights result.
type dashboardInsights struct {
	DashboardID    string                      `json:"dashboard_id"`
	DashboardTitle string                      `json:"dashboard_title"`
	InsightCount   int                         `json:"insight_count"`
	Insights       []gooddata.DashboardInsight `json:"insights"`
}

// Tools returns the server's tool table.
func (t *Toolset) Tools() []Tool {
	readOnly := func(tool Tool) Tool {
		tool.ReadOnly = true
		tool.Idempotent = true
		return tool
	}

	return []Tool{
		readOnly(Tool{
			Name:        "list_workspaces",
			Description: "List all workspaces in the GoodData organization.",
			InputSchema: objectSchema(map[string]any{}),
			Handler:     t.listWorkspaces,
		}),
		readOnly(Tool{
			Name:        "list_insights",
			Description: "List all insights (visualizations) in a customer's workspace.",
			InputSchema: objectSchema(map[string]any{"customer": stringProperty(customerDescription)}),
			Handler:     t.listInsights,
		}),
		readOnly(Tool{
			Name:        "list_dashboards",
			Description: "List all dashboards in a customer's workspace.",
			InputSchema: objectSchema(map[string]any{"customer": stringProperty(customerDescription)}),
			Handler:     t.listDashboards,
		}),
		readOnly(Tool{
			Name:        "list_metrics",
			Description: "List all metrics in a customer's workspace.",
			InputSchema: objectSchema(map[string]any{"customer": stringProperty(customerDescription)}),
			Handler:     t.listMetrics,
		}),
		readOnly(Tool{
			Name:        "list_datasets",
			Description: "List all datasets in a customer's workspace.",
			InputSchema: objectSchema(map[string]any{"customer": stringProperty(customerDescription)}),
			Handler:     t.listDatasets,
		}),
		readOnly(Tool{
			Name: "get_logical_data_model",
			Description: "Get the logical data model (LDM) of a customer's workspace: datasets, " +
				"attributes, facts, and their relationships. Returns a per-dataset summary with " +
				"the full model, or saves the model to a file when output_path is given.",
			InputSchema: objectSchema(map[string]any{
				"customer":    stringProperty(customerDescription),
				"output_path": stringProperty("Optional file path to save the full model as JSON."),
			}),
			Handler: t.getLogicalDataModel,
		}),
		readOnly(Tool{
			Name:        "list_users",
			Description: "List all users in the GoodData organization.",
			InputSchema: objectSchema(map[string]any{}),
			Handler:     t.listUsers,
		}),
		readOnly(Tool{
			Name:        "list_user_groups",
			Description: "List all user groups in the GoodData organization.",
			InputSchema: objectSchema(map[string]any{}),
			Handler:     t.listUserGroups,
		}),
		readOnly(Tool{
			Name:        "get_user_group_members",
			Description: "List the members of a user group.",
			InputSchema: objectSchema(map[string]any{
				"group_id": stringProperty("The user group ID."),
			}, "group_id"),
			Handler: t.getUserGroupMembers,
		}),
		readOnly(Tool{
			Name:        "get_dashboard_insights",
			Description: "List the insights placed on a dashboard, in layout order.",
			InputSchema: objectSchema(map[string]any{
				"dashboard_id": stringProperty("The dashboard ID."),
				"customer":     stringProperty(customerDescription),
			}, "dashboard_id"),
			Handler: t.getDashboardInsights,
		}),
		readOnly(Tool{
			Name:        "get_dashboard_filters",
			Description: "Show the attribute and date filters configured on a dashboard.",
			InputSchema: objectSchema(map[string]any{
				"dashboard_id": stringProperty("The dashboard ID."),
				"customer":     stringProperty(customerDescription),
			}, "dashboard_id"),
			Handler: t.getDashboardFilters,
		}),
		readOnly(Tool{
			Name:        "get_insight_metadata",
			Description: "Get full metadata for an insight: title, tags, lifecycle, referenced metrics, attributes, and filters.",
			InputSchema: objectSchema(map[string]any{
				"insight_id": stringProperty("The insight ID."),
				"customer":   stringProperty(customerDescription),
			}, "insight_id"),
			Handler: t.getInsightMetadata,
		}),
		readOnly(Tool{
			Name: "get_insight_data",
			Description: "Execute an insight and return its data: column names and rows in " +
				"record orientation, along with the insight's title and description.",
			InputSchema: objectSchema(map[string]any{
				"insight_id": stringProperty("The insight ID to execute."),
				"customer":   stringProperty(customerDescription),
			}, "insight_id"),
			Handler: t.getInsightData,
		}),
		readOnly(Tool{
			Name:        "export_dashboard_pdf",
			Description: "Export a dashboard to PDF. Returns the path to the exported file.",
			InputSchema: objectSchema(map[string]any{
				"dashboard_id": stringProperty("The dashboard ID to export."),
				"customer":     stringProperty(customerDescription),
				"output_path":  stringProperty("Output file path. Defaults to ./exports/<dashboard_id>.pdf."),
			}, "dashboard_id"),
			Handler: t.exportDashboardPDF,
		}),
		readOnly(Tool{
			Name:        "export_visualization_csv",
			Description: "Export a visualization's data to CSV. Returns the path to the exported file.",
			InputSchema: objectSchema(map[string]any{
				"visualization_id": stringProperty("The visualization ID to export."),
				"customer":         stringProperty(customerDescription),
				"output_path":      stringProperty("Output file path. Defaults to ./exports/<visualization_id>.csv."),
			}, "visualization_id"),
			Handler: t.exportVisualizationCSV,
		}),
		readOnly(Tool{
			Name:        "export_visualization_xlsx",
			Description: "Export a visualization's data to Excel. Returns the path to the exported file.",
			InputSchema: objectSchema(map[string]any{
				"visualization_id": stringProperty("The visualization ID to export."),
				"customer":         stringProperty(customerDescription),
				"output_path":      stringProperty("Output file path. Defaults to ./exports/<visualization_id>.xlsx."),
			}, "visualization_id"),
			Handler: t.exportVisualizationXLSX,
		}),
		readOnly(Tool{
			Name: "preview_remove_duplicate_metrics",
			Description: "Preview removing duplicate metrics from an insight (read-only). " +
				"Shows which duplicates would be removed and returns the confirmation token " +
				"required by apply_remove_duplicate_metrics. No changes are made.",
			InputSchema: objectSchema(map[string]any{
				"insight_id": stringProperty("The insight ID to check for duplicate metrics."),
				"customer":   stringProperty(customerDescription),
			}, "insight_id"),
			Handler: t.previewRemoveDuplicateMetrics,
		}),
		{
			Name: "apply_remove_duplicate_metrics",
			Description: "Remove duplicate metrics from an insight (write operation). " +
				"Requires the confirmation token from preview_remove_duplicate_metrics; " +
				"a backup is created before any change is written.",
			InputSchema: objectSchema(map[string]any{
				"insight_id":         stringProperty("The insight ID to modify."),
				"confirmation_token": stringProperty("Token from preview_remove_duplicate_metrics."),
				"customer":           stringProperty(customerDescription),
			}, "insight_id", "confirmation_token"),
			Destructive: true,
			Handler:     t.applyRemoveDuplicateMetrics,
		},
		{
			Name: "restore_insight_from_backup",
			Description: "Restore an insight from a backup file (write operation). " +
				"Use the backup_path returned by a previous apply operation.",
			InputSchema: objectSchema(map[string]any{
				"backup_path": stringProperty("Path to the backup file."),
				"customer":    stringProperty(customerDescription),
			}, "backup_path"),
			Destructive: true,
			Idempotent:  true,
			Handler:     t.restoreInsightFromBackup,
		},
	}
}

func (t *Toolset) listWorkspaces(ctx context.Context, _ json.RawMessage) (any, error) {
	return t.client.ListWorkspaces(ctx)
}

func (t *Toolset) listInsights(ctx context.Context, args json.RawMessage) (any, error) {
	a, err := decodeArgs[customerArgs](args)
	if err != nil {
		return nil, err
	}
	_, workspaceID, err := t.resolve(a.Customer)
	if err != nil {
		return nil, err
	}
	return t.client.ListInsights(ctx, workspaceID)
}

func (t *Toolset) listDashboards(ctx context.Context, args json.RawMessage) (any, error) {
	a, err := decodeArgs[customerArgs](args)
	if err != nil {
		return nil, err
	}
	_, workspaceID, err := t.resolve(a.Customer)
	if err != nil {
		return nil, err
	}
	return t.client.ListDashboards(ctx, workspaceID)
}

func (t *Toolset) listMetrics(ctx context.Context, args json.RawMessage) (any, error) {
	a, err := decodeArgs[customerArgs](args)
	if err != nil {
		return nil, err
	}
	_, workspaceID, err := t.resolve(a.Customer)
	if err != nil {
		return nil, err
	}
	return t.client.ListMetrics(ctx, workspaceID)
}

func (t *Toolset) listDatasets(ctx context.Context, args json.RawMessage) (any, error) {
	a, err := decodeArgs[customerArgs](args)
	if err != nil {
		return nil, err
	}
	_, workspaceID, err := t.resolve(a.Customer)
	if err != nil {
		return nil, err
	}
	return t.client.ListDatasets(ctx, workspaceID)
}

func (t *Toolset) listUsers(ctx context.Context, _ json.RawMessage) (any, error) {
	return t.client.ListUsers(ctx)
}

func (t *Toolset) listUserGroups(ctx context.Context, _ json.RawMessage) (any, error) {
	return t.client.ListGroups(ctx)
}

func (t *Toolset) getUserGroupMembers(ctx context.Context, args json.RawMessage) (any, error) {
	a, err := decodeArgs[groupArgs](args)
	if err != nil {
		return nil, err
	}
	if a.GroupID == "" {
		return nil, fmt.Errorf("group_id is required")
	}

	declarative, err := t.client.DeclarativeUsers(ctx)
	if err != nil {
		return nil, err
	}
	users, err := t.client.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]catalog.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	result := groupMembers{GroupID: a.GroupID, Members: []catalog.User{}}
	for _, du := range declarative {
		if !slices.Contains(du.GroupIDs, a.GroupID) {
			continue
		}
		if u, ok := byID[du.ID]; ok {
			result.Members = append(result.Members, u)
		} else {
			result.Members = append(result.Members, catalog.User{ID: du.ID})
		}
	}
	result.MemberCount = len(result.Members)
	return result, nil
}

func (t *Toolset) getLogicalDataModel(ctx context.Context, args json.RawMessage) (any, error) {
	a, err := decodeArgs[logicalModelArgs](args)
	if err != nil {
		return nil, err
	}
	_, workspaceID, err := t.resolve(a.Customer)
	if err != nil {
		return nil, err
	}
	model, err := t.client.LogicalDataModel(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	summary := model.Summary(workspaceID)

	if a.OutputPath == "" {
		return logicalModelResult{Summary: summary, LDM: model.Raw}, nil
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, model.Raw, "", "  "); err != nil {
		pretty.Reset()
		pretty.Write(model.Raw)
	}
	if dir := filepath.Dir(a.OutputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating output directory: %w", err)
		}
	}
	if err := os.WriteFile(a.OutputPath, pretty.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("writing logical data model: %w", err)
	}
	absolute, err := filepath.Abs(a.OutputPath)
	if err != nil {
		absolute = a.OutputPath
	}
	return logicalModelSaved{Success: true, Path: absolute, Summary: summary}, nil
}

func (t *Toolset) getInsightData(ctx context.Context, args json.RawMessage) (any, error) {
	a, err := decodeArgs[insightArgs](args)
	if err != nil {
		return nil, err
	}
	if a.InsightID == "" {
		return nil, fmt.Errorf("insight_id is required")
	}
	_, workspaceID, err := t.resolve(a.Customer)
	if err != nil {
		return nil, err
	}
	return t.client.InsightData(ctx, workspaceID, a.InsightID)
}

func (t *Toolset) getDashboardInsights(ctx context.Context, args json.RawMessage) (any, error) {
	a, err := decodeArgs[dashboardArgs](args)
	if err != nil {
		return nil, err
	}
	if a.DashboardID == "" {
		return nil, fmt.Errorf("dashboard_id is required")
	}
	_, workspaceID, err := t.resolve(a.Customer)
	if err != nil {
		return nil, err
	}
	model, err := t.client.FetchAnalyticsModel(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	title, insights, err := model.DashboardInsights(a.DashboardID)
	if err != nil {
		return nil, err
	}
	return dashboardInsights{
		DashboardID:    a.DashboardID,
		DashboardTitle: title,
		InsightCount:   len(insights),
		Insights:       insights,
	}, nil
}

func (t *Toolset) getDashboardFilters(ctx context.Context, args json.RawMessage) (any, error) {
	a, err := decodeArgs[dashboardArgs](args)
	if err != nil {
		return nil, err
	}
	if a.DashboardID == "" {
		return nil, fmt.Errorf("dashboard_id is required")
	}
	_, workspaceID, err := t.resolve(a.Customer)
	if err != nil {
		return nil, err
	}
	model, err := t.client.FetchAnalyticsModel(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	return model.FiltersForDashboard(a.DashboardID)
}

func (t *Toolset) getInsightMetadata(ctx context.Context, args json.RawMessage) (any, error) {
	a, err := decodeArgs[insightArgs](args)
	if err != nil {
		return nil, err
	}
	if a.InsightID == "" {
		return nil, fmt.Errorf("insight_id is required")
	}
	_, workspaceID, err := t.resolve(a.Customer)
	if err != nil {
		return nil, err
	}
	return t.client.InsightMetadata(ctx, workspaceID, a.InsightID)
}

func (t *Toolset) exportDashboardPDF(ctx context.Context, args json.RawMessage) (any, error) {
	a, err := decodeArgs[exportDashboardArgs](args)
	if err != nil {
		return nil, err
	}
	if a.DashboardID == "" {
		return nil, fmt.Errorf("dashboard_id is required")
	}
	_, workspaceID, err := t.resolve(a.Customer)
	if err != nil {
		return nil, err
	}
	outputPath := a.OutputPath
	if outputPath == "" {
		outputPath = filepath.Join("exports", a.DashboardID+".pdf")
	}
	if err := t.client.ExportDashboardPDF(ctx, workspaceID, a.DashboardID, outputPath); err != nil {
		return nil, err
	}
	return exportResult(outputPath)
}

func (t *Toolset) exportVisualizationCSV(ctx context.Context, args json.RawMessage) (any, error) {
	return t.exportVisualizationTabular(ctx, args, gooddata.FormatCSV, ".csv")
}

func (t *Toolset) exportVisualizationXLSX(ctx context.Context, args json.RawMessage) (any, error) {
	return t.exportVisualizationTabular(ctx, args, gooddata.FormatXLSX, ".xlsx")
}

func (t *Toolset) exportVisualizationTabular(ctx context.Context, args json.RawMessage, format, extension string) (any, error) {
	a, err := decodeArgs[exportVisualizationArgs](args)
	if err != nil {
		return nil, err
	}
	if a.VisualizationID == "" {
		return nil, fmt.Errorf("visualization_id is required")
	}
	_, workspaceID, err := t.resolve(a.Customer)
	if err != nil {
		return nil, err
	}
	outputPath := a.OutputPath
	if outputPath == "" {
		outputPath = filepath.Join("exports", a.VisualizationID+extension)
	}
	if err := t.client.ExportVisualizationTabular(ctx, workspaceID, a.VisualizationID, format, outputPath); err != nil {
		return nil, err
	}
	return exportResult(outputPath)
}

func exportResult(outputPath string) (any, error) {
	absolute, err := filepath.Abs(outputPath)
	if err != nil {
		absolute = outputPath
	}
	return exportOutcome{Success: true, Path: absolute}, nil
}

func (t *Toolset) previewRemoveDuplicateMetrics(ctx context.Context, args json.RawMessage) (any, error) {
	a, err := decodeArgs[insightArgs](args)
	if err != nil {
		return nil, err
	}
	if a.InsightID == "" {
		return nil, fmt.Errorf("insight_id is required")
	}
	customer, workspaceID, err := t.resolve(a.Customer)
	if err != nil {
		return nil, err
	}
	coordinator, err := t.coordinator(customer, workspaceID)
	if err != nil {
		return nil, err
	}
	return coordinator.Preview(ctx, a.InsightID)
}

func (t *Toolset) applyRemoveDuplicateMetrics(ctx context.Context, args json.RawMessage) (any, error) {
	a, err := decodeArgs[applyArgs](args)
	if err != nil {
		return nil, err
	}
	if a.InsightID == "" {
		return nil, fmt.Errorf("insight_id is required")
	}
	if a.ConfirmationToken == "" {
		return nil, fmt.Errorf("confirmation_token is required")
	}
	customer, workspaceID, err := t.resolve(a.Customer)
	if err != nil {
		return nil, err
	}
	coordinator, err := t.coordinator(customer, workspaceID)
	if err != nil {
		return nil, err
	}
	return coordinator.Apply(ctx, a.InsightID, a.ConfirmationToken)
}

func (t *Toolset) restoreInsightFromBackup(ctx context.Context, args json.RawMessage) (any, error) {
	a, err := decodeArgs[restoreArgs](args)
	if err != nil {
		return nil, err
	}
	if a.BackupPath == "" {
		return nil, fmt.Errorf("backup_path is required")
	}
	customer, workspaceID, err := t.resolve(a.Customer)
	if err != nil {
		return nil, err
	}
	coordinator, err := t.coordinator(customer, workspaceID)
	if err != nil {
		return nil, err
	}
	return coordinator.Restore(ctx, a.BackupPath)
}
