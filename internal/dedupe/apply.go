package dedupe

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stackless-analytics/gooddata-cli/internal/audit"
	"github.com/stackless-analytics/gooddata-cli/internal/catalog"
)

// ApplyResult is the outcome of an apply call. Success is false for
// both rejections (token mismatch, nothing to remove) and persistence
// failures; BackupPath is set whenever a backup was written, including
// on persistence failure, so the caller can recover manually.
type ApplyResult struct {
	Success           bool        `json:"success"`
	ObjectID          string      `json:"insight_id"`
	Error             string      `json:"error,omitempty"`
	Message           string      `json:"message,omitempty"`
	BackupPath        string      `json:"backup_path,omitempty"`
	RemovedDuplicates []Duplicate `json:"removed_duplicates,omitempty"`
	RemovedCount      int         `json:"removed_count"`
	NewMetricCount    int         `json:"new_metric_count"`
}

// Apply executes the mutation phase. It re-fetches the object, never
// trusting any cached preview, recomputes the duplicate set, and
// verifies the caller's token against the live state. Only a matching
// token proceeds, and only after the backup write has been confirmed
// durable. On persistence failure the object is not rolled back; the
// backup path is surfaced for manual recovery.
func (c *Coordinator) Apply(ctx context.Context, objectID, token string) (*ApplyResult, error) {
	doc, err := c.gateway.FetchVisualization(ctx, c.workspaceID, objectID)
	if err != nil {
		return nil, fmt.Errorf("fetching visualization %s: %w", objectID, err)
	}

	current, duplicates := scan(doc)
	expected := confirmationToken(objectID, duplicates)

	if token != expected {
		if err := c.audit.Append(opApply, objectID, audit.StatusError, map[string]any{
			"reason": "token_mismatch",
		}); err != nil {
			return nil, fmt.Errorf("recording token-mismatch audit entry: %w", err)
		}
		return &ApplyResult{
			Success:  false,
			ObjectID: objectID,
			Error:    "confirmation token does not match: the insight may have changed since preview",
			Message:  "Run preview again to get a fresh token.",
		}, nil
	}

	if len(duplicates) == 0 {
		return &ApplyResult{
			Success:  false,
			ObjectID: objectID,
			Error:    "no duplicate metrics found to remove",
		}, nil
	}

	// Backup before the first mutating call. Save syncs the file;
	// nothing is written remotely until this has returned.
	snapshot, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshaling backup snapshot: %w", err)
	}
	backupPath, err := c.backups.Save(ObjectType, objectID, snapshot)
	if err != nil {
		return nil, fmt.Errorf("writing backup: %w", err)
	}

	removeDuplicates(doc, duplicates)

	if err := c.gateway.PutVisualization(ctx, c.workspaceID, objectID, doc); err != nil {
		if auditErr := c.audit.Append(opApply, objectID, audit.StatusError, map[string]any{
			"error":       err.Error(),
			"backup_path": backupPath,
		}); auditErr != nil {
			return nil, fmt.Errorf("recording persist-failure audit entry: %w (persist error: %v)", auditErr, err)
		}
		return &ApplyResult{
			Success:    false,
			ObjectID:   objectID,
			Error:      fmt.Sprintf("failed to update insight: %v", err),
			BackupPath: backupPath,
			Message:    "Backup was saved. Restore from the backup path if needed.",
		}, nil
	}

	if err := c.audit.Append(opApply, objectID, audit.StatusSuccess, map[string]any{
		"removed_count": len(duplicates),
		"removed":       duplicates,
		"backup_path":   backupPath,
	}); err != nil {
		return nil, fmt.Errorf("recording apply audit entry: %w", err)
	}

	return &ApplyResult{
		Success:           true,
		ObjectID:          objectID,
		BackupPath:        backupPath,
		RemovedDuplicates: duplicates,
		RemovedCount:      len(duplicates),
		NewMetricCount:    len(current) - len(duplicates),
		Message:           fmt.Sprintf("Removed %d duplicate metric(s). Backup saved.", len(duplicates)),
	}, nil
}

// removeDuplicates deletes every duplicate item from the measures
// bucket by its local identifier, preserving the order and identity of
// all other items.
func removeDuplicates(doc *catalog.VisualizationDocument, duplicates []Duplicate) {
	doomed := make(map[string]bool, len(duplicates))
	for _, d := range duplicates {
		doomed[d.LocalIdentifier] = true
	}

	buckets := doc.Data.Attributes.Content.Buckets
	for i := range buckets {
		if buckets[i].LocalIdentifier != measuresBucket {
			continue
		}
		kept := buckets[i].Items[:0]
		for _, item := range buckets[i].Items {
			if item.Measure != nil && doomed[item.Measure.LocalIdentifier] {
				continue
			}
			kept = append(kept, item)
		}
		buckets[i].Items = kept
	}
}
