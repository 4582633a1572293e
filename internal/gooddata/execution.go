package gooddata

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stackless-analytics/gooddata-cli/internal/catalog"
)

// Result page bounds for insight executions. The first dimension holds
// attribute value rows, the second the measure group.
const (
	executionRowLimit     = 1000
	executionMeasureLimit = 256
)

// InsightData is an executed insight: its metadata, column names, and
// result rows in record orientation.
type InsightData struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Columns     []string         `json:"columns"`
	RowCount    int              `json:"row_count"`
	Data        []map[string]any `json:"data"`
}

type afmAttribute struct {
	LocalIdentifier string                   `json:"localIdentifier"`
	Label           catalog.ObjectIdentifier `json:"label"`
}

type afmMeasure struct {
	LocalIdentifier string          `json:"localIdentifier"`
	Definition      json.RawMessage `json:"definition"`
}

type afmDimension struct {
	LocalIdentifier string   `json:"localIdentifier"`
	ItemIdentifiers []string `json:"itemIdentifiers"`
}

type afmExecuteRequest struct {
	Execution struct {
		Attributes []afmAttribute    `json:"attributes"`
		Filters    []json.RawMessage `json:"filters"`
		Measures   []afmMeasure      `json:"measures"`
	} `json:"execution"`
	ResultSpec struct {
		Dimensions []afmDimension `json:"dimensions"`
	} `json:"resultSpec"`
}

type afmExecuteResponse struct {
	ExecutionResponse struct {
		Links struct {
			ExecutionResult string `json:"executionResult"`
		} `json:"links"`
	} `json:"executionResponse"`
}

type executionResult struct {
	Data             [][]any `json:"data"`
	DimensionHeaders []struct {
		HeaderGroups []struct {
			Headers []struct {
				AttributeHeader *struct {
					LabelValue string `json:"labelValue"`
				} `json:"attributeHeader"`
			} `json:"headers"`
		} `json:"headerGroups"`
	} `json:"dimensionHeaders"`
}

// vizAttributeItem is the attribute shape inside a visualization
// bucket item.
type vizAttributeItem struct {
	LocalIdentifier string                   `json:"localIdentifier"`
	DisplayForm     catalog.ObjectIdentifier `json:"displayForm"`
}

// InsightData executes an insight through the AFM execution API and
// returns its metadata with the computed rows. Attribute columns come
// first, then one column per measure, matching the bucket order.
func (c *Client) InsightData(ctx context.Context, workspaceID, insightID string) (*InsightData, error) {
	doc, err := c.FetchVisualization(ctx, workspaceID, insightID)
	if err != nil {
		return nil, err
	}

	attributes, measures, columns, err := planExecution(doc)
	if err != nil {
		return nil, fmt.Errorf("insight %s: %w", insightID, err)
	}

	req := afmExecuteRequest{}
	req.Execution.Attributes = attributes
	req.Execution.Filters = []json.RawMessage{}
	req.Execution.Measures = measures
	attributeIDs := make([]string, 0, len(attributes))
	for _, a := range attributes {
		attributeIDs = append(attributeIDs, a.LocalIdentifier)
	}
	measureGroup := []string{}
	if len(measures) > 0 {
		measureGroup = []string{"measureGroup"}
	}
	req.ResultSpec.Dimensions = []afmDimension{
		{LocalIdentifier: "dim_0", ItemIdentifiers: attributeIDs},
		{LocalIdentifier: "dim_1", ItemIdentifiers: measureGroup},
	}

	var created afmExecuteResponse
	executePath := fmt.Sprintf("/api/v1/actions/workspaces/%s/execution/afm/execute", workspaceID)
	if err := c.postJSON(ctx, executePath, req, &created); err != nil {
		return nil, fmt.Errorf("executing insight %s: %w", insightID, err)
	}
	resultID := created.ExecutionResponse.Links.ExecutionResult
	if resultID == "" {
		return nil, fmt.Errorf("executing insight %s: empty execution result link", insightID)
	}

	var result executionResult
	resultPath := fmt.Sprintf("/api/v1/actions/workspaces/%s/execution/afm/execute/result/%s?offset=0,0&limit=%d,%d",
		workspaceID, resultID, executionRowLimit, executionMeasureLimit)
	if err := c.getJSON(ctx, resultPath, &result); err != nil {
		return nil, fmt.Errorf("reading execution result for insight %s: %w", insightID, err)
	}

	data := &InsightData{
		ID:          doc.Data.ID,
		Title:       doc.Data.Attributes.Title,
		Description: doc.Data.Attributes.Description,
		Columns:     columns,
		Data:        []map[string]any{},
	}
	assembleRows(data, &result, len(attributes))
	data.RowCount = len(data.Data)
	return data, nil
}

// planExecution derives the AFM attributes, measures, and column names
// from the visualization's buckets.
func planExecution(doc *catalog.VisualizationDocument) ([]afmAttribute, []afmMeasure, []string, error) {
	var attributes []afmAttribute
	var measures []afmMeasure
	var attributeColumns, measureColumns []string

	for _, bucket := range doc.Data.Attributes.Content.Buckets {
		for _, item := range bucket.Items {
			if item.Measure != nil {
				measures = append(measures, afmMeasure{
					LocalIdentifier: item.Measure.LocalIdentifier,
					Definition:      afmDefinition(item.Measure),
				})
				measureColumns = append(measureColumns, measureColumn(item.Measure))
			}
			if len(item.Attribute) > 0 {
				var attr vizAttributeItem
				if err := json.Unmarshal(item.Attribute, &attr); err != nil {
					return nil, nil, nil, fmt.Errorf("parsing attribute item: %w", err)
				}
				attributes = append(attributes, afmAttribute{
					LocalIdentifier: attr.LocalIdentifier,
					Label:           attr.DisplayForm,
				})
				attributeColumns = append(attributeColumns, attr.DisplayForm.Identifier.ID)
			}
		}
	}

	if len(attributes) == 0 && len(measures) == 0 {
		return nil, nil, nil, fmt.Errorf("no measures or attributes to execute")
	}
	return attributes, measures, append(attributeColumns, measureColumns...), nil
}

// afmDefinition converts a visualization measure definition to its AFM
// form. Simple metric references are rewrapped under the AFM "measure"
// key; every other variant (arithmetic, inline) already uses the same
// shape in both models and passes through verbatim.
func afmDefinition(m *catalog.Measure) json.RawMessage {
	if m.Definition.MeasureDefinition == nil {
		return m.Definition.Raw
	}
	wrapped, err := json.Marshal(map[string]*catalog.SimpleMeasureDefinition{
		"measure": m.Definition.MeasureDefinition,
	})
	if err != nil {
		return m.Definition.Raw
	}
	return wrapped
}

func measureColumn(m *catalog.Measure) string {
	if m.Title != "" {
		return m.Title
	}
	if id := m.MetricID(); id != "" {
		return id
	}
	return m.LocalIdentifier
}

// assembleRows joins attribute header values with measure values into
// record-oriented rows.
func assembleRows(data *InsightData, result *executionResult, attributeCount int) {
	for i, values := range result.Data {
		row := make(map[string]any, len(data.Columns))
		for a := 0; a < attributeCount; a++ {
			row[data.Columns[a]] = attributeValue(result, a, i)
		}
		for v, value := range values {
			column := attributeCount + v
			if column >= len(data.Columns) {
				break
			}
			row[data.Columns[column]] = value
		}
		data.Data = append(data.Data, row)
	}
}

// attributeValue reads the label value of attribute group a at row i
// from the first dimension's headers.
func attributeValue(result *executionResult, a, i int) any {
	if len(result.DimensionHeaders) == 0 {
		return nil
	}
	groups := result.DimensionHeaders[0].HeaderGroups
	if a >= len(groups) || i >= len(groups[a].Headers) {
		return nil
	}
	header := groups[a].Headers[i]
	if header.AttributeHeader == nil {
		return nil
	}
	return header.AttributeHeader.LabelValue
}
