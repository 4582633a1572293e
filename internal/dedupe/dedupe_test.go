package dedupe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackless-analytics/gooddata-cli/internal/audit"
	"github.com/stackless-analytics/gooddata-cli/internal/backup"
	"github.com/stackless-analytics/gooddata-cli/internal/catalog"
)

// fakeGateway stores raw visualization documents and replays them
// through the real JSON model, so bucket items carry their original
// bytes exactly as they would after a wire fetch.
type fakeGateway struct {
	docs    map[string][]byte
	putErr  error
	putDocs []string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{docs: map[string][]byte{}}
}

func (g *fakeGateway) FetchVisualization(ctx context.Context, workspaceID, objectID string) (*catalog.VisualizationDocument, error) {
	raw, ok := g.docs[objectID]
	if !ok {
		return nil, fmt.Errorf("visualization %s not found", objectID)
	}
	var doc catalog.VisualizationDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (g *fakeGateway) PutVisualization(ctx context.Context, workspaceID, objectID string, doc *catalog.VisualizationDocument) error {
	if g.putErr != nil {
		return g.putErr
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	g.docs[objectID] = raw
	g.putDocs = append(g.putDocs, objectID)
	return nil
}

func measureItem(localID, metricID string) string {
	return fmt.Sprintf(`{"measure":{"localIdentifier":%q,"title":%q,"definition":{"measureDefinition":{"item":{"identifier":{"id":%q,"type":"metric"}}}}}}`,
		localID, "Title "+localID, metricID)
}

func visualizationJSON(measureItems ...string) []byte {
	doc := fmt.Sprintf(`{
		"data": {
			"id": "insight-1",
			"type": "visualizationObject",
			"attributes": {
				"title": "Revenue Overview",
				"content": {
					"buckets": [
						{"localIdentifier": "view", "items": [
							{"attribute": {"displayForm": {"identifier": {"id": "attr.date", "type": "label"}}, "localIdentifier": "a1"}}
						]},
						{"localIdentifier": "measures", "items": [%s]}
					],
					"visualizationUrl": "local:table",
					"version": "2"
				}
			}
		}
	}`, strings.Join(measureItems, ","))
	return []byte(doc)
}

type fixture struct {
	coordinator *Coordinator
	gateway     *fakeGateway
	store       *backup.Store
	auditLog    *audit.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	stateDir := t.TempDir()
	store, err := backup.NewStore(stateDir, "acme")
	require.NoError(t, err)
	auditLog, err := audit.NewLogger(stateDir, "acme")
	require.NoError(t, err)
	gateway := newFakeGateway()
	return &fixture{
		coordinator: New(gateway, store, auditLog, "ws-1"),
		gateway:     gateway,
		store:       store,
		auditLog:    auditLog,
	}
}

func TestPreviewFindsDuplicates(t *testing.T) {
	f := newFixture(t)
	f.gateway.docs["insight-1"] = visualizationJSON(
		measureItem("m1", "rev"),
		measureItem("m2", "rev"),
		measureItem("m3", "cost"),
	)

	result, err := f.coordinator.Preview(context.Background(), "insight-1")
	require.NoError(t, err)

	assert.Equal(t, "insight-1", result.ObjectID)
	assert.Equal(t, "Revenue Overview", result.Title)
	assert.Equal(t, 3, result.CurrentMetricCount)
	assert.Equal(t, 1, result.DuplicatesCount)
	assert.Equal(t, 2, result.MetricsAfterCount)
	require.Len(t, result.DuplicatesFound, 1)
	assert.Equal(t, "m2", result.DuplicatesFound[0].LocalIdentifier)
	assert.Equal(t, "m1", result.DuplicatesFound[0].DuplicateOf)
	assert.NotEmpty(t, result.ConfirmationToken)
	assert.Len(t, result.ConfirmationToken, 16)
	assert.Contains(t, result.NextStep, result.ConfirmationToken)

	entries, err := f.auditLog.Tail(10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "preview_remove_duplicate_metrics", entries[0].Operation)
	assert.Equal(t, audit.StatusPreview, entries[0].Status)
}

func TestPreviewNoDuplicates(t *testing.T) {
	f := newFixture(t)
	f.gateway.docs["insight-1"] = visualizationJSON(
		measureItem("m1", "rev"),
		measureItem("m3", "cost"),
	)

	result, err := f.coordinator.Preview(context.Background(), "insight-1")
	require.NoError(t, err)

	assert.Zero(t, result.DuplicatesCount)
	assert.Empty(t, result.NextStep)
	assert.Equal(t, "No duplicate metrics found. No action needed.", result.Message)
	// The token is still issued so a no-op apply can be rejected
	// deterministically.
	assert.NotEmpty(t, result.ConfirmationToken)
}

func arithmeticMeasureItem(localID string) string {
	return fmt.Sprintf(`{"measure":{"localIdentifier":%q,"title":%q,"definition":{"arithmeticMeasure":{"measureIdentifiers":["m1","m2"],"operator":"sum"}}}}`,
		localID, "Title "+localID)
}

func TestPreviewIgnoresNonMetricMeasures(t *testing.T) {
	f := newFixture(t)
	f.gateway.docs["insight-1"] = visualizationJSON(
		measureItem("m1", "rev"),
		arithmeticMeasureItem("m2"),
		arithmeticMeasureItem("m3"),
	)

	result, err := f.coordinator.Preview(context.Background(), "insight-1")
	require.NoError(t, err)

	// Two arithmetic measures share no metric reference; neither is a
	// duplicate of the other.
	assert.Zero(t, result.DuplicatesCount)
	assert.Equal(t, 3, result.CurrentMetricCount)
}

func TestTokenDeterminism(t *testing.T) {
	f := newFixture(t)
	f.gateway.docs["insight-1"] = visualizationJSON(
		measureItem("m1", "rev"),
		measureItem("m2", "rev"),
	)

	first, err := f.coordinator.Preview(context.Background(), "insight-1")
	require.NoError(t, err)
	second, err := f.coordinator.Preview(context.Background(), "insight-1")
	require.NoError(t, err)
	assert.Equal(t, first.ConfirmationToken, second.ConfirmationToken,
		"unchanged remote state must yield the same token")

	// A new duplicate changes the change set, so the token changes.
	f.gateway.docs["insight-1"] = visualizationJSON(
		measureItem("m1", "rev"),
		measureItem("m2", "rev"),
		measureItem("m3", "rev"),
	)
	third, err := f.coordinator.Preview(context.Background(), "insight-1")
	require.NoError(t, err)
	assert.NotEqual(t, first.ConfirmationToken, third.ConfirmationToken)
}

func TestApplyRemovesDuplicatesOnly(t *testing.T) {
	f := newFixture(t)
	f.gateway.docs["insight-1"] = visualizationJSON(
		measureItem("m1", "rev"),
		measureItem("m2", "rev"),
		measureItem("m3", "cost"),
	)

	preview, err := f.coordinator.Preview(context.Background(), "insight-1")
	require.NoError(t, err)

	result, err := f.coordinator.Apply(context.Background(), "insight-1", preview.ConfirmationToken)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.RemovedCount)
	assert.Equal(t, 2, result.NewMetricCount)
	require.Len(t, result.RemovedDuplicates, 1)
	assert.Equal(t, "m2", result.RemovedDuplicates[0].LocalIdentifier)
	assert.NotEmpty(t, result.BackupPath)

	// The persisted document keeps m1 and m3 byte-identically.
	after, err := f.gateway.FetchVisualization(context.Background(), "ws-1", "insight-1")
	require.NoError(t, err)
	_, remaining := scan(after)
	assert.Empty(t, remaining)

	var locals []string
	for _, bucket := range after.Data.Attributes.Content.Buckets {
		if bucket.LocalIdentifier != "measures" {
			continue
		}
		for _, item := range bucket.Items {
			require.NotNil(t, item.Measure)
			locals = append(locals, item.Measure.LocalIdentifier)
		}
	}
	assert.Equal(t, []string{"m1", "m3"}, locals)

	// Kept items round-trip with their original bytes.
	persisted := f.gateway.docs["insight-1"]
	assert.Contains(t, string(persisted), measureItem("m1", "rev"))
	assert.Contains(t, string(persisted), measureItem("m3", "cost"))
	assert.NotContains(t, string(persisted), `"m2"`)

	// The backup holds the pre-mutation document.
	record, err := backup.Load(result.BackupPath)
	require.NoError(t, err)
	assert.Equal(t, "insight-1", record.ObjectID)
	assert.Equal(t, ObjectType, record.ObjectType)
	assert.Contains(t, string(record.Data), `"m2"`)

	entries, err := f.auditLog.Tail(10)
	require.NoError(t, err)
	last := entries[len(entries)-1]
	assert.Equal(t, "apply_remove_duplicate_metrics", last.Operation)
	assert.Equal(t, audit.StatusSuccess, last.Status)
}

func TestApplyRejectsStaleToken(t *testing.T) {
	f := newFixture(t)
	f.gateway.docs["insight-1"] = visualizationJSON(
		measureItem("m1", "rev"),
		measureItem("m2", "rev"),
	)

	preview, err := f.coordinator.Preview(context.Background(), "insight-1")
	require.NoError(t, err)

	// External edit between preview and apply.
	f.gateway.docs["insight-1"] = visualizationJSON(
		measureItem("m1", "rev"),
		measureItem("m2", "rev"),
		measureItem("m3", "rev"),
	)

	result, err := f.coordinator.Apply(context.Background(), "insight-1", preview.ConfirmationToken)
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "confirmation token does not match")
	assert.Empty(t, result.BackupPath)
	assert.Empty(t, f.gateway.putDocs, "a stale token must not mutate the object")

	paths, err := f.store.List()
	require.NoError(t, err)
	assert.Empty(t, paths, "a stale token must not write a backup")

	entries, err := f.auditLog.Tail(10)
	require.NoError(t, err)
	last := entries[len(entries)-1]
	assert.Equal(t, audit.StatusError, last.Status)
	assert.Equal(t, "token_mismatch", last.Details["reason"])
}

func TestApplyRejectsWhenNothingToRemove(t *testing.T) {
	f := newFixture(t)
	f.gateway.docs["insight-1"] = visualizationJSON(
		measureItem("m1", "rev"),
	)

	preview, err := f.coordinator.Preview(context.Background(), "insight-1")
	require.NoError(t, err)

	result, err := f.coordinator.Apply(context.Background(), "insight-1", preview.ConfirmationToken)
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "no duplicate metrics")
	assert.Empty(t, f.gateway.putDocs)

	paths, err := f.store.List()
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestApplyPersistFailureKeepsBackup(t *testing.T) {
	f := newFixture(t)
	f.gateway.docs["insight-1"] = visualizationJSON(
		measureItem("m1", "rev"),
		measureItem("m2", "rev"),
	)

	preview, err := f.coordinator.Preview(context.Background(), "insight-1")
	require.NoError(t, err)

	f.gateway.putErr = errors.New("503 service unavailable")

	result, err := f.coordinator.Apply(context.Background(), "insight-1", preview.ConfirmationToken)
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "failed to update insight")
	require.NotEmpty(t, result.BackupPath, "persist failure must surface the backup path")

	_, statErr := os.Stat(result.BackupPath)
	assert.NoError(t, statErr, "the backup must survive a persist failure")

	entries, err := f.auditLog.Tail(10)
	require.NoError(t, err)
	last := entries[len(entries)-1]
	assert.Equal(t, audit.StatusError, last.Status)
	assert.Equal(t, result.BackupPath, last.Details["backup_path"])
}

func TestRestoreFromBackupIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.gateway.docs["insight-1"] = visualizationJSON(
		measureItem("m1", "rev"),
		measureItem("m2", "rev"),
	)

	preview, err := f.coordinator.Preview(context.Background(), "insight-1")
	require.NoError(t, err)
	applied, err := f.coordinator.Apply(context.Background(), "insight-1", preview.ConfirmationToken)
	require.NoError(t, err)
	require.True(t, applied.Success)

	restored, err := f.coordinator.Restore(context.Background(), applied.BackupPath)
	require.NoError(t, err)
	assert.True(t, restored.Success)
	assert.Equal(t, "insight-1", restored.ObjectID)
	firstState := string(f.gateway.docs["insight-1"])

	again, err := f.coordinator.Restore(context.Background(), applied.BackupPath)
	require.NoError(t, err)
	assert.True(t, again.Success)
	assert.Equal(t, firstState, string(f.gateway.docs["insight-1"]),
		"restoring the same backup twice must produce the same state")

	// The duplicate is back after restore.
	doc, err := f.gateway.FetchVisualization(context.Background(), "ws-1", "insight-1")
	require.NoError(t, err)
	_, duplicates := scan(doc)
	assert.Len(t, duplicates, 1)
}

func TestRestoreMissingBackup(t *testing.T) {
	f := newFixture(t)

	result, err := f.coordinator.Restore(context.Background(), "/nonexistent/backup.json")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "backup file not found")
	assert.Empty(t, f.gateway.putDocs)
}

func TestRestoreUnsupportedObjectType(t *testing.T) {
	f := newFixture(t)
	path, err := f.store.Save("analyticalDashboard", "dash-1", json.RawMessage(`{"data":{}}`))
	require.NoError(t, err)

	result, err := f.coordinator.Restore(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "unsupported object type")
	assert.Empty(t, f.gateway.putDocs)
}

func TestScanIgnoresOtherBuckets(t *testing.T) {
	raw := visualizationJSON(measureItem("m1", "rev"), measureItem("m2", "rev"))
	var doc catalog.VisualizationDocument
	require.NoError(t, json.Unmarshal(raw, &doc))

	current, duplicates := scan(&doc)
	assert.Len(t, current, 2)
	require.Len(t, duplicates, 1)
	assert.Equal(t, "m2", duplicates[0].LocalIdentifier)
}

func TestConfirmationTokenCanonicalization(t *testing.T) {
	a := []Duplicate{
		{MetricRef: MetricRef{LocalIdentifier: "m2", MetricID: "rev"}, DuplicateOf: "m1"},
		{MetricRef: MetricRef{LocalIdentifier: "m4", MetricID: "cost"}, DuplicateOf: "m3"},
	}
	b := []Duplicate{a[1], a[0]}

	assert.Equal(t, confirmationToken("insight-1", a), confirmationToken("insight-1", b),
		"token must not depend on discovery order")
	assert.NotEqual(t, confirmationToken("insight-1", a), confirmationToken("insight-2", a),
		"token must bind the object id")
	assert.NotEqual(t, confirmationToken("insight-1", a), confirmationToken("insight-1", a[:1]),
		"token must bind the duplicate set")
}
