package gooddata

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stackless-analytics/gooddata-cli/internal/catalog"
)

// UserIdentity identifies the creator or last modifier of an object.
type UserIdentity struct {
	ID        string `json:"id"`
	Firstname string `json:"firstname,omitempty"`
	Lastname  string `json:"lastname,omitempty"`
	Email     string `json:"email,omitempty"`
}

// MetadataFilter is a filter applied inside an insight definition.
type MetadataFilter struct {
	Type      string   `json:"type"`
	Attribute string   `json:"attribute"`
	Values    []string `json:"values"`
}

// InsightMetadata is the full metadata view of one insight: lifecycle
// info, origin, and the metrics, attributes, and filters it
// references.
type InsightMetadata struct {
	ID                string           `json:"id"`
	Title             string           `json:"title"`
	Description       string           `json:"description,omitempty"`
	Tags              []string         `json:"tags"`
	CreatedAt         string           `json:"createdAt,omitempty"`
	ModifiedAt        string           `json:"modifiedAt,omitempty"`
	CreatedBy         *UserIdentity    `json:"createdBy,omitempty"`
	ModifiedBy        *UserIdentity    `json:"modifiedBy,omitempty"`
	Origin            json.RawMessage  `json:"origin,omitempty"`
	VisualizationType string           `json:"visualizationType,omitempty"`
	Metrics           []catalog.Metric `json:"metrics"`
	Attributes        []string         `json:"attributes"`
	Filters           []MetadataFilter `json:"filters"`
	AreRelationsValid *bool            `json:"areRelationsValid,omitempty"`
}

// insightEntityResponse is the entity API response with included
// user identifiers.
type insightEntityResponse struct {
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			Title             string          `json:"title"`
			Description       string          `json:"description"`
			Tags              []string        `json:"tags"`
			CreatedAt         string          `json:"createdAt"`
			ModifiedAt        string          `json:"modifiedAt"`
			AreRelationsValid *bool           `json:"areRelationsValid"`
			Content           json.RawMessage `json:"content"`
		} `json:"attributes"`
		Relationships struct {
			CreatedBy struct {
				Data struct {
					ID string `json:"id"`
				} `json:"data"`
			} `json:"createdBy"`
			ModifiedBy struct {
				Data struct {
					ID string `json:"id"`
				} `json:"data"`
			} `json:"modifiedBy"`
		} `json:"relationships"`
		Meta struct {
			Origin json.RawMessage `json:"origin"`
		} `json:"meta"`
	} `json:"data"`
	Included []struct {
		ID         string `json:"id"`
		Type       string `json:"type"`
		Attributes struct {
			Firstname string `json:"firstname"`
			Lastname  string `json:"lastname"`
			Email     string `json:"email"`
		} `json:"attributes"`
	} `json:"included"`
}

// InsightMetadata fetches an insight's metadata, resolving creator and
// modifier identities from the included side-loads.
func (c *Client) InsightMetadata(ctx context.Context, workspaceID, insightID string) (*InsightMetadata, error) {
	path := fmt.Sprintf("/api/v1/entities/workspaces/%s/visualizationObjects/%s?include=createdBy,modifiedBy",
		workspaceID, insightID)
	var resp insightEntityResponse
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("fetching insight metadata for %s: %w", insightID, err)
	}

	users := map[string]*UserIdentity{}
	for _, inc := range resp.Included {
		if inc.Type != "userIdentifier" {
			continue
		}
		users[inc.ID] = &UserIdentity{
			ID:        inc.ID,
			Firstname: inc.Attributes.Firstname,
			Lastname:  inc.Attributes.Lastname,
			Email:     inc.Attributes.Email,
		}
	}

	meta := &InsightMetadata{
		ID:                resp.Data.ID,
		Title:             resp.Data.Attributes.Title,
		Description:       resp.Data.Attributes.Description,
		Tags:              resp.Data.Attributes.Tags,
		CreatedAt:         resp.Data.Attributes.CreatedAt,
		ModifiedAt:        resp.Data.Attributes.ModifiedAt,
		CreatedBy:         users[resp.Data.Relationships.CreatedBy.Data.ID],
		ModifiedBy:        users[resp.Data.Relationships.ModifiedBy.Data.ID],
		Origin:            resp.Data.Meta.Origin,
		AreRelationsValid: resp.Data.Attributes.AreRelationsValid,
		Metrics:           []catalog.Metric{},
		Attributes:        []string{},
		Filters:           []MetadataFilter{},
	}
	if meta.Tags == nil {
		meta.Tags = []string{}
	}

	if len(resp.Data.Attributes.Content) > 0 {
		if err := parseInsightContent(resp.Data.Attributes.Content, meta); err != nil {
			return nil, fmt.Errorf("parsing insight content for %s: %w", insightID, err)
		}
	}
	return meta, nil
}

// insightContent is the subset of the visualization content that
// metadata extraction needs.
type insightContent struct {
	VisualizationURL string           `json:"visualizationUrl"`
	Buckets          []catalog.Bucket `json:"buckets"`
	Filters          []struct {
		PositiveAttributeFilter *struct {
			DisplayForm catalog.ObjectIdentifier `json:"displayForm"`
			In          struct {
				Values []string `json:"values"`
			} `json:"in"`
		} `json:"positiveAttributeFilter"`
		NegativeAttributeFilter *struct {
			DisplayForm catalog.ObjectIdentifier `json:"displayForm"`
			NotIn       struct {
				Values []string `json:"values"`
				URIs   []string `json:"uris"`
			} `json:"notIn"`
		} `json:"negativeAttributeFilter"`
	} `json:"filters"`
}

// attributeBucketItem is the attribute shape inside a bucket item.
type attributeBucketItem struct {
	DisplayForm catalog.ObjectIdentifier `json:"displayForm"`
}

func parseInsightContent(raw json.RawMessage, meta *InsightMetadata) error {
	var content insightContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return err
	}

	meta.VisualizationType = strings.TrimPrefix(content.VisualizationURL, "local:")

	for _, bucket := range content.Buckets {
		for _, item := range bucket.Items {
			if item.Measure != nil {
				if id := item.Measure.MetricID(); id != "" {
					meta.Metrics = append(meta.Metrics, catalog.Metric{ID: id, Title: item.Measure.Title})
				}
			}
			if len(item.Attribute) > 0 {
				var attr attributeBucketItem
				if err := json.Unmarshal(item.Attribute, &attr); err == nil {
					if id := attr.DisplayForm.Identifier.ID; id != "" {
						meta.Attributes = append(meta.Attributes, id)
					}
				}
			}
		}
	}

	for _, f := range content.Filters {
		if f.PositiveAttributeFilter != nil {
			meta.Filters = append(meta.Filters, MetadataFilter{
				Type:      "positive",
				Attribute: f.PositiveAttributeFilter.DisplayForm.Identifier.ID,
				Values:    f.PositiveAttributeFilter.In.Values,
			})
		}
		if f.NegativeAttributeFilter != nil {
			values := f.NegativeAttributeFilter.NotIn.Values
			if len(values) == 0 {
				values = f.NegativeAttributeFilter.NotIn.URIs
			}
			meta.Filters = append(meta.Filters, MetadataFilter{
				Type:      "negative",
				Attribute: f.NegativeAttributeFilter.DisplayForm.Identifier.ID,
				Values:    values,
			})
		}
	}
	return nil
}
