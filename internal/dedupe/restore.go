package dedupe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stackless-analytics/gooddata-cli/internal/audit"
	"github.com/stackless-analytics/gooddata-cli/internal/backup"
	"github.com/stackless-analytics/gooddata-cli/internal/catalog"
)

// ErrUnsupportedType is returned when a backup holds an object type
// this coordinator cannot restore.
var ErrUnsupportedType = errors.New("unsupported object type for restore")

// RestoreResult is the outcome of a restore call.
type RestoreResult struct {
	Success      bool   `json:"success"`
	ObjectID     string `json:"object_id,omitempty"`
	ObjectType   string `json:"object_type,omitempty"`
	RestoredFrom string `json:"restored_from,omitempty"`
	BackupTime   string `json:"original_backup_time,omitempty"`
	Error        string `json:"error,omitempty"`
	Message      string `json:"message,omitempty"`
}

// Restore overwrites the remote object with a backup's snapshot,
// verbatim. A missing backup or an unsupported object type fails
// before any remote call; persistence failures are audited and
// surfaced as structured results.
func (c *Coordinator) Restore(ctx context.Context, backupPath string) (*RestoreResult, error) {
	record, err := backup.Load(backupPath)
	if err != nil {
		if errors.Is(err, backup.ErrNotFound) {
			return &RestoreResult{
				Success: false,
				Error:   fmt.Sprintf("backup file not found: %s", backupPath),
			}, nil
		}
		return nil, err
	}

	if record.ObjectType != ObjectType {
		return &RestoreResult{
			Success: false,
			Error:   fmt.Sprintf("%v: %s", ErrUnsupportedType, record.ObjectType),
			Message: fmt.Sprintf("Only %s restores are supported.", ObjectType),
		}, nil
	}

	var doc catalog.VisualizationDocument
	if err := json.Unmarshal(record.Data, &doc); err != nil {
		return nil, fmt.Errorf("parsing backup snapshot %s: %w", backupPath, err)
	}

	if err := c.gateway.PutVisualization(ctx, c.workspaceID, record.ObjectID, &doc); err != nil {
		if auditErr := c.audit.Append(opRestore, record.ObjectID, audit.StatusError, map[string]any{
			"error":       err.Error(),
			"backup_path": backupPath,
		}); auditErr != nil {
			return nil, fmt.Errorf("recording restore-failure audit entry: %w (restore error: %v)", auditErr, err)
		}
		return &RestoreResult{
			Success: false,
			Error:   fmt.Sprintf("failed to restore insight: %v", err),
		}, nil
	}

	if err := c.audit.Append(opRestore, record.ObjectID, audit.StatusSuccess, map[string]any{
		"restored_from":        backupPath,
		"original_backup_time": record.BackedUpAt,
	}); err != nil {
		return nil, fmt.Errorf("recording restore audit entry: %w", err)
	}

	return &RestoreResult{
		Success:      true,
		ObjectID:     record.ObjectID,
		ObjectType:   record.ObjectType,
		RestoredFrom: backupPath,
		BackupTime:   record.BackedUpAt.Format("2006-01-02T15:04:05Z07:00"),
		Message:      fmt.Sprintf("Restored %s from backup.", record.ObjectType),
	}, nil
}
