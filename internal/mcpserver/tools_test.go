package mcpserver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolsetTable(t *testing.T) {
	toolset := NewToolset(nil, "/tmp/workspaces.yaml", t.TempDir(), nil)
	tools := toolset.Tools()

	names := make([]string, 0, len(tools))
	byName := make(map[string]Tool, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Name)
		byName[tool.Name] = tool
	}

	assert.Equal(t, []string{
		"list_workspaces",
		"list_insights",
		"list_dashboards",
		"list_metrics",
		"list_datasets",
		"get_logical_data_model",
		"list_users",
		"list_user_groups",
		"get_user_group_members",
		"get_dashboard_insights",
		"get_dashboard_filters",
		"get_insight_metadata",
		"get_insight_data",
		"export_dashboard_pdf",
		"export_visualization_csv",
		"export_visualization_xlsx",
		"preview_remove_duplicate_metrics",
		"apply_remove_duplicate_metrics",
		"restore_insight_from_backup",
	}, names)

	for _, tool := range tools {
		require.NotNil(t, tool.Handler, tool.Name)
		require.NotNil(t, tool.InputSchema, tool.Name)
		assert.NotEmpty(t, tool.Description, tool.Name)
	}

	// Only the two write tools may mutate.
	for name, tool := range byName {
		switch name {
		case "apply_remove_duplicate_metrics":
			assert.True(t, tool.Destructive, name)
			assert.False(t, tool.ReadOnly, name)
		case "restore_insight_from_backup":
			assert.True(t, tool.Destructive, name)
			assert.True(t, tool.Idempotent, name)
		default:
			assert.True(t, tool.ReadOnly, name)
			assert.False(t, tool.Destructive, name)
			assert.True(t, tool.Idempotent, name)
		}
	}
}
