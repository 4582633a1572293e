// Package dedupe implements the two-phase preview/apply protocol for
// removing duplicate metric references from a visualization. Preview
// never mutates and issues a confirmation token bound to the exact
// change set it computed; apply recomputes the token from the live
// object and proceeds only on a match, writing a durable backup before
// the first mutating call. The protocol is stateless between calls:
// the only state is the caller's token and the remote object itself.
package dedupe

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/stackless-analytics/gooddata-cli/internal/audit"
	"github.com/stackless-analytics/gooddata-cli/internal/backup"
	"github.com/stackless-analytics/gooddata-cli/internal/catalog"
)

// ObjectType is the only object type this coordinator mutates and
// restores.
const ObjectType = "visualizationObject"

// measuresBucket is the local identifier of the bucket that holds
// measure items.
const measuresBucket = "measures"

// Audit operation names.
const (
	opPreview = "preview_remove_duplicate_metrics"
	opApply   = "apply_remove_duplicate_metrics"
	opRestore = "restore_insight_from_backup"
)

// MetricRef identifies one measure item and the metric it references.
type MetricRef struct {
	LocalIdentifier string `json:"local_identifier"`
	MetricID        string `json:"metric_id"`
	Title           string `json:"title,omitempty"`
}

// Duplicate is a measure item referencing a metric that an earlier
// item in the same bucket already references.
type Duplicate struct {
	MetricRef
	DuplicateOf string `json:"duplicate_of"`
}

// Coordinator drives the two-phase protocol for one customer
// namespace and workspace. All collaborators are injected.
type Coordinator struct {
	gateway     catalog.Gateway
	backups     *backup.Store
	audit       *audit.Logger
	workspaceID string
}

// New constructs a coordinator.
func New(gateway catalog.Gateway, backups *backup.Store, auditLog *audit.Logger, workspaceID string) *Coordinator {
	return &Coordinator{
		gateway:     gateway,
		backups:     backups,
		audit:       auditLog,
		workspaceID: workspaceID,
	}
}

// scan walks the measures bucket and splits its items into the full
// ordered metric list and the duplicate candidates. The first
// occurrence of each metric id is canonical; every later occurrence is
// a duplicate, recorded in first-seen order.
func scan(doc *catalog.VisualizationDocument) (current []MetricRef, duplicates []Duplicate) {
	for _, bucket := range doc.Data.Attributes.Content.Buckets {
		if bucket.LocalIdentifier != measuresBucket {
			continue
		}
		seen := map[string]string{}
		for _, item := range bucket.Items {
			if item.Measure == nil {
				continue
			}
			ref := MetricRef{
				LocalIdentifier: item.Measure.LocalIdentifier,
				MetricID:        item.Measure.MetricID(),
				Title:           item.Measure.Title,
			}
			current = append(current, ref)

			// Arithmetic and other non-simple measures have no metric
			// id; two of them are not duplicates of each other.
			if ref.MetricID == "" {
				continue
			}
			if first, ok := seen[ref.MetricID]; ok {
				duplicates = append(duplicates, Duplicate{MetricRef: ref, DuplicateOf: first})
			} else {
				seen[ref.MetricID] = ref.LocalIdentifier
			}
		}
	}
	return current, duplicates
}

// confirmationToken computes the stable hash binding an object id to a
// duplicate set. The duplicate list is canonicalized by sorting on
// (local identifier, metric id) before hashing, so two previews
// against unchanged remote state always agree regardless of internal
// discovery order.
func confirmationToken(objectID string, duplicates []Duplicate) string {
	canonical := append([]Duplicate(nil), duplicates...)
	sort.SliceStable(canonical, func(i, j int) bool {
		if canonical[i].LocalIdentifier != canonical[j].LocalIdentifier {
			return canonical[i].LocalIdentifier < canonical[j].LocalIdentifier
		}
		return canonical[i].MetricID < canonical[j].MetricID
	})

	// Marshal of a nil slice would hash differently from an empty one.
	if canonical == nil {
		canonical = []Duplicate{}
	}
	payload, err := json.Marshal(canonical)
	if err != nil {
		// Duplicate contains only strings; Marshal cannot fail.
		panic(fmt.Sprintf("dedupe: marshaling canonical duplicates: %v", err))
	}

	sum := sha256.Sum256([]byte(objectID + ":" + string(payload)))
	return hex.EncodeToString(sum[:])[:16]
}
