package gooddata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// LogicalModel is the declarative logical data model of a workspace:
// datasets with their attributes, facts, and references, plus date
// instances. Raw holds the complete document for saving to file; the
// parsed view covers what the summary needs.
type LogicalModel struct {
	LDM struct {
		Datasets      []LogicalDataset  `json:"datasets"`
		DateInstances []json.RawMessage `json:"dateInstances"`
	} `json:"ldm"`

	Raw json.RawMessage `json:"-"`
}

// LogicalDataset is one dataset in the logical data model.
type LogicalDataset struct {
	ID         string            `json:"id"`
	Title      string            `json:"title"`
	Attributes []json.RawMessage `json:"attributes"`
	Facts      []json.RawMessage `json:"facts"`
	References []json.RawMessage `json:"references"`
}

// LogicalModelSummary condenses the model to per-dataset counts.
type LogicalModelSummary struct {
	WorkspaceID       string           `json:"workspace_id"`
	DatasetCount      int              `json:"dataset_count"`
	DateInstanceCount int              `json:"date_instance_count"`
	Datasets          []DatasetSummary `json:"datasets"`
}

// DatasetSummary is the condensed view of one dataset.
type DatasetSummary struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	AttributeCount int    `json:"attribute_count"`
	FactCount      int    `json:"fact_count"`
	ReferenceCount int    `json:"reference_count"`
}

// LogicalDataModel fetches the declarative logical data model of a
// workspace.
func (c *Client) LogicalDataModel(ctx context.Context, workspaceID string) (*LogicalModel, error) {
	path := fmt.Sprintf("/api/v1/layout/workspaces/%s/logicalModel", workspaceID)
	data, err := c.do(ctx, http.MethodGet, path, nil, apiContentType)
	if err != nil {
		return nil, fmt.Errorf("fetching logical data model: %w", err)
	}
	var model LogicalModel
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("decoding logical data model: %w", err)
	}
	model.Raw = data
	return &model, nil
}

// Summary builds the condensed dataset view of the model.
func (m *LogicalModel) Summary(workspaceID string) LogicalModelSummary {
	summary := LogicalModelSummary{
		WorkspaceID:       workspaceID,
		DatasetCount:      len(m.LDM.Datasets),
		DateInstanceCount: len(m.LDM.DateInstances),
		Datasets:          make([]DatasetSummary, 0, len(m.LDM.Datasets)),
	}
	for _, ds := range m.LDM.Datasets {
		summary.Datasets = append(summary.Datasets, DatasetSummary{
			ID:             ds.ID,
			Title:          ds.Title,
			AttributeCount: len(ds.Attributes),
			FactCount:      len(ds.Facts),
			ReferenceCount: len(ds.References),
		})
	}
	return summary
}
