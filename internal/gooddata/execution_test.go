package gooddata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackless-analytics/gooddata-cli/internal/catalog"
)

const executableInsight = `{
	"data": {
		"id": "revenue-by-region",
		"type": "visualizationObject",
		"attributes": {
			"title": "Revenue by Region",
			"description": "Quarterly split",
			"content": {
				"buckets": [
					{"localIdentifier": "measures", "items": [
						{"measure": {"localIdentifier": "m1", "title": "Revenue",
							"definition": {"measureDefinition": {"item": {"identifier": {"id": "metric.revenue", "type": "metric"}}}}}}
					]},
					{"localIdentifier": "view", "items": [
						{"attribute": {"localIdentifier": "a1",
							"displayForm": {"identifier": {"id": "label.region", "type": "label"}}}}
					]}
				],
				"visualizationUrl": "local:table"
			}
		}
	}
}`

func TestInsightData(t *testing.T) {
	var executeBody afmExecuteRequest
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/entities/workspaces/ws-1/visualizationObjects/revenue-by-region":
			fmt.Fprint(w, executableInsight)
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/actions/workspaces/ws-1/execution/afm/execute":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&executeBody))
			fmt.Fprint(w, `{"executionResponse":{"links":{"executionResult":"res-1"}}}`)
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/actions/workspaces/ws-1/execution/afm/execute/result/res-1":
			assert.Equal(t, "0,0", r.URL.Query().Get("offset"))
			fmt.Fprint(w, `{
				"data": [["1200.5"], ["800"]],
				"dimensionHeaders": [
					{"headerGroups": [{"headers": [
						{"attributeHeader": {"labelValue": "EMEA"}},
						{"attributeHeader": {"labelValue": "APAC"}}
					]}]},
					{"headerGroups": [{"headers": [{"measureHeader": {"measureIndex": 0}}]}]}
				]
			}`)
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	}))

	data, err := client.InsightData(context.Background(), "ws-1", "revenue-by-region")
	require.NoError(t, err)

	assert.Equal(t, "revenue-by-region", data.ID)
	assert.Equal(t, "Revenue by Region", data.Title)
	assert.Equal(t, []string{"label.region", "Revenue"}, data.Columns)
	assert.Equal(t, 2, data.RowCount)
	require.Len(t, data.Data, 2)
	assert.Equal(t, map[string]any{"label.region": "EMEA", "Revenue": "1200.5"}, data.Data[0])
	assert.Equal(t, map[string]any{"label.region": "APAC", "Revenue": "800"}, data.Data[1])

	// The simple metric reference is rewrapped for the AFM model.
	require.Len(t, executeBody.Execution.Measures, 1)
	assert.JSONEq(t,
		`{"measure":{"item":{"identifier":{"id":"metric.revenue","type":"metric"}}}}`,
		string(executeBody.Execution.Measures[0].Definition))
	require.Len(t, executeBody.Execution.Attributes, 1)
	assert.Equal(t, "label.region", executeBody.Execution.Attributes[0].Label.Identifier.ID)
	require.Len(t, executeBody.ResultSpec.Dimensions, 2)
	assert.Equal(t, []string{"a1"}, executeBody.ResultSpec.Dimensions[0].ItemIdentifiers)
	assert.Equal(t, []string{"measureGroup"}, executeBody.ResultSpec.Dimensions[1].ItemIdentifiers)
}

func TestInsightDataRejectsEmptyInsight(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"id":"bare","attributes":{"title":"Bare","content":{"buckets":[]}}}}`)
	}))

	_, err := client.InsightData(context.Background(), "ws-1", "bare")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no measures or attributes")
}

func TestPlanExecutionPassesArithmeticDefinitionThrough(t *testing.T) {
	raw := `{
		"data": {
			"id": "combo",
			"attributes": {
				"title": "Combo",
				"content": {"buckets": [
					{"localIdentifier": "measures", "items": [
						{"measure": {"localIdentifier": "m1",
							"definition": {"arithmeticMeasure": {"measureIdentifiers": ["x", "y"], "operator": "sum"}}}}
					]}
				]}
			}
		}
	}`
	var doc catalog.VisualizationDocument
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))

	_, measures, columns, err := planExecution(&doc)
	require.NoError(t, err)
	require.Len(t, measures, 1)
	assert.JSONEq(t,
		`{"arithmeticMeasure":{"measureIdentifiers":["x","y"],"operator":"sum"}}`,
		string(measures[0].Definition))
	assert.Equal(t, []string{"m1"}, columns)
}
