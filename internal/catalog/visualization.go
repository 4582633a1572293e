package catalog

import (
	"context"
	"encoding/json"
)

// VisualizationDocument is the full JSON:API representation of a
// visualization object as returned by the entity API. The envelope is
// kept intact (Data wraps attributes) because apply and restore must
// round-trip the document byte-compatibly except for the edits they
// make.
type VisualizationDocument struct {
	Data VisualizationData `json:"data"`
}

// VisualizationData is the data member of the JSON:API envelope.
type VisualizationData struct {
	ID         string                  `json:"id"`
	Type       string                  `json:"type"`
	Attributes VisualizationAttributes `json:"attributes"`

	// Meta and Links are opaque vendor payload, preserved verbatim.
	Meta  json.RawMessage `json:"meta,omitempty"`
	Links json.RawMessage `json:"links,omitempty"`
}

// VisualizationAttributes holds the title and the visualization
// content. Content is parsed one level deep (buckets); everything else
// inside it is preserved as raw JSON.
type VisualizationAttributes struct {
	Title             string               `json:"title"`
	Description       string               `json:"description,omitempty"`
	Tags              []string             `json:"tags,omitempty"`
	AreRelationsValid *bool                `json:"areRelationsValid,omitempty"`
	Content           VisualizationContent `json:"content"`
}

// VisualizationContent is the visualization definition. Buckets carry
// the measures and attributes; the remaining fields (visualizationUrl,
// filters, properties, sorts, version) pass through untouched.
type VisualizationContent struct {
	Buckets          []Bucket        `json:"buckets"`
	VisualizationURL string          `json:"visualizationUrl,omitempty"`
	Filters          json.RawMessage `json:"filters,omitempty"`
	Properties       json.RawMessage `json:"properties,omitempty"`
	Sorts            json.RawMessage `json:"sorts,omitempty"`
	Version          string          `json:"version,omitempty"`
}

// Bucket is one logical section of a visualization (measures, view,
// stack, ...), identified by its local identifier.
type Bucket struct {
	LocalIdentifier string       `json:"localIdentifier"`
	Items           []BucketItem `json:"items"`
}

// BucketItem is either a measure or an attribute. The original bytes
// are retained on unmarshal and re-emitted on marshal, so items that
// survive an edit round-trip byte-identically; the parsed Measure view
// exists only for inspection.
type BucketItem struct {
	Measure   *Measure        `json:"measure,omitempty"`
	Attribute json.RawMessage `json:"attribute,omitempty"`

	raw json.RawMessage
}

// UnmarshalJSON parses the item and keeps the raw bytes for
// identity-preserving re-marshal.
func (it *BucketItem) UnmarshalJSON(data []byte) error {
	it.raw = append(it.raw[:0], data...)
	type alias struct {
		Measure   *Measure        `json:"measure,omitempty"`
		Attribute json.RawMessage `json:"attribute,omitempty"`
	}
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	it.Measure = a.Measure
	it.Attribute = a.Attribute
	return nil
}

// MarshalJSON re-emits the original bytes when known.
func (it BucketItem) MarshalJSON() ([]byte, error) {
	if len(it.raw) > 0 {
		return it.raw, nil
	}
	type alias struct {
		Measure   *Measure        `json:"measure,omitempty"`
		Attribute json.RawMessage `json:"attribute,omitempty"`
	}
	return json.Marshal(alias{Measure: it.Measure, Attribute: it.Attribute})
}

// Measure is a measure item within a bucket. Definition is parsed far
// enough to reach the underlying metric identifier; the rest of the
// definition is preserved verbatim through (re)marshaling.
type Measure struct {
	LocalIdentifier string            `json:"localIdentifier"`
	Title           string            `json:"title,omitempty"`
	Format          string            `json:"format,omitempty"`
	Definition      MeasureDefinition `json:"definition"`
}

// MeasureDefinition wraps the measure definition variants. Only the
// simple measureDefinition variant is inspected; arithmetic and other
// variants ride along as raw JSON.
type MeasureDefinition struct {
	MeasureDefinition *SimpleMeasureDefinition `json:"measureDefinition,omitempty"`
	Raw               json.RawMessage          `json:"-"`
}

// SimpleMeasureDefinition references a metric by identifier.
type SimpleMeasureDefinition struct {
	Item          ObjectIdentifier `json:"item"`
	Filters       json.RawMessage  `json:"filters,omitempty"`
	ComputeRatio  *bool            `json:"computeRatio,omitempty"`
	AggregationFn string           `json:"aggregation,omitempty"`
}

// ObjectIdentifier is a typed reference to a catalog object.
type ObjectIdentifier struct {
	Identifier Identifier `json:"identifier"`
}

// Identifier is an (id, type) pair.
type Identifier struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// MarshalJSON emits the original raw bytes whenever they are known.
// The coordinator never edits a definition in place (it only removes
// whole bucket items), so round-tripping the raw form preserves
// arithmetic measures and any vendor fields this model doesn't parse.
func (d MeasureDefinition) MarshalJSON() ([]byte, error) {
	if len(d.Raw) > 0 {
		return d.Raw, nil
	}
	type alias struct {
		MeasureDefinition *SimpleMeasureDefinition `json:"measureDefinition,omitempty"`
	}
	return json.Marshal(alias{MeasureDefinition: d.MeasureDefinition})
}

// UnmarshalJSON retains the raw bytes alongside the parsed simple
// variant so MarshalJSON can round-trip unknown shapes.
func (d *MeasureDefinition) UnmarshalJSON(data []byte) error {
	d.Raw = append(d.Raw[:0], data...)
	type alias struct {
		MeasureDefinition *SimpleMeasureDefinition `json:"measureDefinition,omitempty"`
	}
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	d.MeasureDefinition = a.MeasureDefinition
	return nil
}

// MetricID returns the referenced metric identifier, or "" when the
// measure is not a simple metric reference.
func (m *Measure) MetricID() string {
	if m.Definition.MeasureDefinition == nil {
		return ""
	}
	return m.Definition.MeasureDefinition.Item.Identifier.ID
}

// Gateway fetches and persists individual catalog objects. The
// safe-mutation coordinator is its only mutating caller.
type Gateway interface {
	FetchVisualization(ctx context.Context, workspaceID, objectID string) (*VisualizationDocument, error)
	PutVisualization(ctx context.Context, workspaceID, objectID string, doc *VisualizationDocument) error
}
