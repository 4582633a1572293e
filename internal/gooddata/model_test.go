package gooddata

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleLDM = `{
	"ldm": {
		"datasets": [
			{
				"id": "orders",
				"title": "Orders",
				"attributes": [{"id": "order_status"}, {"id": "order_region"}],
				"facts": [{"id": "order_amount"}],
				"references": [{"identifier": {"id": "customers"}}]
			},
			{"id": "customers", "title": "Customers", "attributes": [{"id": "customer_name"}]}
		],
		"dateInstances": [{"id": "date"}]
	}
}`

func TestLogicalDataModel(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/layout/workspaces/ws-1/logicalModel", r.URL.Path)
		fmt.Fprint(w, sampleLDM)
	}))

	model, err := client.LogicalDataModel(context.Background(), "ws-1")
	require.NoError(t, err)

	require.Len(t, model.LDM.Datasets, 2)
	assert.Equal(t, "orders", model.LDM.Datasets[0].ID)
	assert.JSONEq(t, sampleLDM, string(model.Raw))

	summary := model.Summary("ws-1")
	assert.Equal(t, "ws-1", summary.WorkspaceID)
	assert.Equal(t, 2, summary.DatasetCount)
	assert.Equal(t, 1, summary.DateInstanceCount)
	require.Len(t, summary.Datasets, 2)
	assert.Equal(t, DatasetSummary{
		ID:             "orders",
		Title:          "Orders",
		AttributeCount: 2,
		FactCount:      1,
		ReferenceCount: 1,
	}, summary.Datasets[0])
	assert.Zero(t, summary.Datasets[1].FactCount)
}

func TestLogicalDataModelEmpty(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ldm":{}}`)
	}))

	model, err := client.LogicalDataModel(context.Background(), "ws-1")
	require.NoError(t, err)

	summary := model.Summary("ws-1")
	assert.Zero(t, summary.DatasetCount)
	assert.NotNil(t, summary.Datasets)
	assert.Empty(t, summary.Datasets)
}
