package gooddata

import (
	"context"
	"fmt"
)

// AnalyticsModel is the declarative analytics layout of a workspace:
// dashboards, visualizations, and filter contexts with their content
// documents. Fetched once per inspection call; the dashboard helpers
// below operate on it without further API traffic.
type AnalyticsModel struct {
	Analytics struct {
		AnalyticalDashboards []DashboardLayout     `json:"analyticalDashboards"`
		VisualizationObjects []VisualizationLayout `json:"visualizationObjects"`
		FilterContexts       []FilterContextLayout `json:"filterContexts"`
	} `json:"analytics"`
}

// DashboardLayout is a dashboard with its content document.
type DashboardLayout struct {
	ID      string           `json:"id"`
	Title   string           `json:"title"`
	Content dashboardContent `json:"content"`
}

// VisualizationLayout is a visualization summary in the layout.
type VisualizationLayout struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// FilterContextLayout is a filter context with its content document.
type FilterContextLayout struct {
	ID      string               `json:"id"`
	Content filterContextContent `json:"content"`
}

type dashboardContent struct {
	FilterContextRef struct {
		Identifier struct {
			ID string `json:"id"`
		} `json:"identifier"`
	} `json:"filterContextRef"`
	Layout struct {
		Sections []struct {
			Items []struct {
				Widget struct {
					Type    string `json:"type"`
					Title   string `json:"title"`
					Insight struct {
						Identifier struct {
							ID   string `json:"id"`
							Type string `json:"type"`
						} `json:"identifier"`
					} `json:"insight"`
				} `json:"widget"`
			} `json:"items"`
		} `json:"sections"`
	} `json:"layout"`
}

type filterContextContent struct {
	Filters []struct {
		AttributeFilter *struct {
			DisplayForm struct {
				Identifier struct {
					ID string `json:"id"`
				} `json:"identifier"`
			} `json:"displayForm"`
			LocalIdentifier   string `json:"localIdentifier"`
			NegativeSelection bool   `json:"negativeSelection"`
			SelectionMode     string `json:"selectionMode"`
			AttributeElements struct {
				URIs []string `json:"uris"`
			} `json:"attributeElements"`
		} `json:"attributeFilter"`
		DateFilter *struct {
			Type            string `json:"type"`
			Granularity     string `json:"granularity"`
			From            string `json:"from"`
			To              string `json:"to"`
			LocalIdentifier string `json:"localIdentifier"`
		} `json:"dateFilter"`
	} `json:"filters"`
}

// FetchAnalyticsModel retrieves the declarative analytics model of a
// workspace.
func (c *Client) FetchAnalyticsModel(ctx context.Context, workspaceID string) (*AnalyticsModel, error) {
	path := fmt.Sprintf("/api/v1/layout/workspaces/%s/analyticsModel", workspaceID)
	var model AnalyticsModel
	if err := c.getJSON(ctx, path, &model); err != nil {
		return nil, fmt.Errorf("fetching analytics model: %w", err)
	}
	return &model, nil
}

// DashboardInsight is one insight widget on a dashboard.
type DashboardInsight struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	WidgetTitle string `json:"widget_title"`
}

// DashboardInsights lists the insight widgets of one dashboard in
// layout order. Widget titles fall back to the catalog title of the
// referenced visualization.
func (m *AnalyticsModel) DashboardInsights(dashboardID string) (title string, insights []DashboardInsight, err error) {
	dashboard := m.findDashboard(dashboardID)
	if dashboard == nil {
		return "", nil, fmt.Errorf("dashboard %q not found", dashboardID)
	}

	titles := make(map[string]string, len(m.Analytics.VisualizationObjects))
	for _, viz := range m.Analytics.VisualizationObjects {
		titles[viz.ID] = viz.Title
	}

	for _, section := range dashboard.Content.Layout.Sections {
		for _, item := range section.Items {
			widget := item.Widget
			if widget.Type != "insight" || widget.Insight.Identifier.Type != "visualizationObject" {
				continue
			}
			id := widget.Insight.Identifier.ID
			if id == "" {
				continue
			}
			insightTitle := titles[id]
			if insightTitle == "" {
				insightTitle = widget.Title
			}
			insights = append(insights, DashboardInsight{
				ID:          id,
				Title:       insightTitle,
				WidgetTitle: widget.Title,
			})
		}
	}
	return dashboard.Title, insights, nil
}

// AttributeFilter describes one dropdown filter on a dashboard.
type AttributeFilter struct {
	DisplayForm       string   `json:"displayForm"`
	LocalIdentifier   string   `json:"localIdentifier"`
	NegativeSelection bool     `json:"negativeSelection"`
	SelectionMode     string   `json:"selectionMode"`
	SelectedValues    []string `json:"selectedValues"`
}

// DateFilter describes one date filter on a dashboard.
type DateFilter struct {
	Type            string `json:"type"`
	Granularity     string `json:"granularity"`
	From            string `json:"from"`
	To              string `json:"to"`
	LocalIdentifier string `json:"localIdentifier"`
}

// DashboardFilters is the filter configuration of one dashboard.
type DashboardFilters struct {
	DashboardID     string            `json:"dashboard_id"`
	DashboardTitle  string            `json:"dashboard_title"`
	FilterContextID string            `json:"filter_context_id,omitempty"`
	Attribute       []AttributeFilter `json:"attribute_filters"`
	Date            []DateFilter      `json:"date_filters"`
}

// FiltersForDashboard resolves a dashboard's filter context and
// returns its attribute and date filters.
func (m *AnalyticsModel) FiltersForDashboard(dashboardID string) (*DashboardFilters, error) {
	dashboard := m.findDashboard(dashboardID)
	if dashboard == nil {
		return nil, fmt.Errorf("dashboard %q not found", dashboardID)
	}

	result := &DashboardFilters{
		DashboardID:     dashboardID,
		DashboardTitle:  dashboard.Title,
		FilterContextID: dashboard.Content.FilterContextRef.Identifier.ID,
		Attribute:       []AttributeFilter{},
		Date:            []DateFilter{},
	}
	if result.FilterContextID == "" {
		return result, nil
	}

	for _, fc := range m.Analytics.FilterContexts {
		if fc.ID != result.FilterContextID {
			continue
		}
		for _, f := range fc.Content.Filters {
			if f.AttributeFilter != nil {
				af := f.AttributeFilter
				mode := af.SelectionMode
				if mode == "" {
					mode = "multi"
				}
				result.Attribute = append(result.Attribute, AttributeFilter{
					DisplayForm:       af.DisplayForm.Identifier.ID,
					LocalIdentifier:   af.LocalIdentifier,
					NegativeSelection: af.NegativeSelection,
					SelectionMode:     mode,
					SelectedValues:    af.AttributeElements.URIs,
				})
			}
			if f.DateFilter != nil {
				df := f.DateFilter
				result.Date = append(result.Date, DateFilter{
					Type:            df.Type,
					Granularity:     df.Granularity,
					From:            df.From,
					To:              df.To,
					LocalIdentifier: df.LocalIdentifier,
				})
			}
		}
		break
	}
	return result, nil
}

func (m *AnalyticsModel) findDashboard(id string) *DashboardLayout {
	for i := range m.Analytics.AnalyticalDashboards {
		if m.Analytics.AnalyticalDashboards[i].ID == id {
			return &m.Analytics.AnalyticalDashboards[i]
		}
	}
	return nil
}
