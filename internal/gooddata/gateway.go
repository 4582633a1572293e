package gooddata

import (
	"context"
	"fmt"

	"github.com/stackless-analytics/gooddata-cli/internal/catalog"
)

// FetchVisualization retrieves the full JSON:API document of one
// visualization object.
func (c *Client) FetchVisualization(ctx context.Context, workspaceID, objectID string) (*catalog.VisualizationDocument, error) {
	path := fmt.Sprintf("/api/v1/entities/workspaces/%s/visualizationObjects/%s", workspaceID, objectID)
	var doc catalog.VisualizationDocument
	if err := c.getJSON(ctx, path, &doc); err != nil {
		return nil, fmt.Errorf("fetching visualization %s: %w", objectID, err)
	}
	if doc.Data.ID == "" {
		return nil, fmt.Errorf("visualization %s: response has no object id", objectID)
	}
	return &doc, nil
}

// PutVisualization overwrites one visualization object with doc.
func (c *Client) PutVisualization(ctx context.Context, workspaceID, objectID string, doc *catalog.VisualizationDocument) error {
	path := fmt.Sprintf("/api/v1/entities/workspaces/%s/visualizationObjects/%s", workspaceID, objectID)
	if err := c.putJSON(ctx, path, doc); err != nil {
		return fmt.Errorf("updating visualization %s: %w", objectID, err)
	}
	return nil
}

var _ catalog.Gateway = (*Client)(nil)

// ListInsights returns the visualization objects of a workspace.
func (c *Client) ListInsights(ctx context.Context, workspaceID string) ([]catalog.Insight, error) {
	records, err := c.listEntities(ctx, fmt.Sprintf("/api/v1/entities/workspaces/%s/visualizationObjects", workspaceID))
	if err != nil {
		return nil, fmt.Errorf("listing insights: %w", err)
	}
	insights := make([]catalog.Insight, 0, len(records))
	for _, r := range records {
		insights = append(insights, catalog.Insight{ID: r.ID, Title: r.Attributes.Title})
	}
	return insights, nil
}

// ListDashboards returns the analytical dashboards of a workspace.
func (c *Client) ListDashboards(ctx context.Context, workspaceID string) ([]catalog.Dashboard, error) {
	records, err := c.listEntities(ctx, fmt.Sprintf("/api/v1/entities/workspaces/%s/analyticalDashboards", workspaceID))
	if err != nil {
		return nil, fmt.Errorf("listing dashboards: %w", err)
	}
	dashboards := make([]catalog.Dashboard, 0, len(records))
	for _, r := range records {
		dashboards = append(dashboards, catalog.Dashboard{ID: r.ID, Title: r.Attributes.Title})
	}
	return dashboards, nil
}

// ListMetrics returns the metrics of a workspace.
func (c *Client) ListMetrics(ctx context.Context, workspaceID string) ([]catalog.Metric, error) {
	records, err := c.listEntities(ctx, fmt.Sprintf("/api/v1/entities/workspaces/%s/metrics", workspaceID))
	if err != nil {
		return nil, fmt.Errorf("listing metrics: %w", err)
	}
	metrics := make([]catalog.Metric, 0, len(records))
	for _, r := range records {
		metrics = append(metrics, catalog.Metric{ID: r.ID, Title: r.Attributes.Title, Format: r.Attributes.Content.Format})
	}
	return metrics, nil
}

// ListDatasets returns the logical data model datasets of a workspace.
func (c *Client) ListDatasets(ctx context.Context, workspaceID string) ([]catalog.Dataset, error) {
	records, err := c.listEntities(ctx, fmt.Sprintf("/api/v1/entities/workspaces/%s/datasets", workspaceID))
	if err != nil {
		return nil, fmt.Errorf("listing datasets: %w", err)
	}
	datasets := make([]catalog.Dataset, 0, len(records))
	for _, r := range records {
		datasets = append(datasets, catalog.Dataset{ID: r.ID, Title: r.Attributes.Title})
	}
	return datasets, nil
}
