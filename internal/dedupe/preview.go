package dedupe

import (
	"context"
	"fmt"

	"github.com/stackless-analytics/gooddata-cli/internal/audit"
)

// PreviewResult is the outcome of a preview call. It carries
// everything a caller needs to review the proposed change and the
// token required to apply it.
type PreviewResult struct {
	ObjectID           string      `json:"insight_id"`
	Title              string      `json:"insight_title"`
	CurrentMetricCount int         `json:"current_metric_count"`
	CurrentMetrics     []MetricRef `json:"current_metrics"`
	DuplicatesFound    []Duplicate `json:"duplicates_found"`
	DuplicatesCount    int         `json:"duplicates_count"`
	MetricsAfterCount  int         `json:"metrics_after_count"`
	ConfirmationToken  string      `json:"confirmation_token"`
	NextStep           string      `json:"next_step,omitempty"`
	Message            string      `json:"message,omitempty"`
}

// Preview fetches the object's live state, computes the duplicate set
// and its confirmation token, and records an audit entry. It never
// mutates remote state and is safely re-callable: each call recomputes
// from scratch.
func (c *Coordinator) Preview(ctx context.Context, objectID string) (*PreviewResult, error) {
	doc, err := c.gateway.FetchVisualization(ctx, c.workspaceID, objectID)
	if err != nil {
		return nil, fmt.Errorf("fetching visualization %s: %w", objectID, err)
	}

	current, duplicates := scan(doc)
	token := confirmationToken(objectID, duplicates)

	if err := c.audit.Append(opPreview, objectID, audit.StatusPreview, map[string]any{
		"duplicates_count": len(duplicates),
	}); err != nil {
		return nil, fmt.Errorf("recording preview audit entry: %w", err)
	}

	result := &PreviewResult{
		ObjectID:           objectID,
		Title:              doc.Data.Attributes.Title,
		CurrentMetricCount: len(current),
		CurrentMetrics:     current,
		DuplicatesFound:    duplicates,
		DuplicatesCount:    len(duplicates),
		MetricsAfterCount:  len(current) - len(duplicates),
		ConfirmationToken:  token,
	}
	if len(duplicates) > 0 {
		result.NextStep = fmt.Sprintf(
			"To apply this change, run apply with insight_id=%s and confirmation_token=%s",
			objectID, token)
	} else {
		result.Message = "No duplicate metrics found. No action needed."
	}
	return result, nil
}
