package gooddata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Tabular export formats accepted by the actions API.
const (
	FormatCSV  = "CSV"
	FormatXLSX = "XLSX"
)

const (
	// exportPollInterval is the delay between readiness checks while
	// the server renders an export.
	exportPollInterval = 2 * time.Second

	// exportPollTimeout bounds the total wait for one export. Large
	// dashboards render in tens of seconds; five minutes is generous.
	exportPollTimeout = 5 * time.Minute
)

// exportResultResponse carries the server-assigned export identifier.
type exportResultResponse struct {
	ExportResult string `json:"exportResult"`
}

// visualExportRequest asks for a PDF rendering of a dashboard.
type visualExportRequest struct {
	FileName    string `json:"fileName"`
	DashboardID string `json:"dashboardId"`
}

// tabularExportRequest asks for a CSV or XLSX rendering of a
// visualization's data.
type tabularExportRequest struct {
	FileName            string `json:"fileName"`
	Format              string `json:"format"`
	VisualizationObject string `json:"visualizationObject"`
}

// ExportDashboardPDF renders a dashboard to PDF and writes it to
// outputPath, creating parent directories as needed. It blocks until
// the server finishes rendering or the context is cancelled.
func (c *Client) ExportDashboardPDF(ctx context.Context, workspaceID, dashboardID, outputPath string) error {
	base := strings.TrimSuffix(filepath.Base(outputPath), filepath.Ext(outputPath))
	var created exportResultResponse
	path := fmt.Sprintf("/api/v1/actions/workspaces/%s/export/visual", workspaceID)
	req := visualExportRequest{FileName: base, DashboardID: dashboardID}
	if err := c.postJSON(ctx, path, req, &created); err != nil {
		return fmt.Errorf("creating PDF export for dashboard %s: %w", dashboardID, err)
	}
	if created.ExportResult == "" {
		return fmt.Errorf("creating PDF export for dashboard %s: empty export result", dashboardID)
	}

	resultPath := fmt.Sprintf("/api/v1/actions/workspaces/%s/export/visual/%s", workspaceID, created.ExportResult)
	data, err := c.pollExport(ctx, resultPath)
	if err != nil {
		return fmt.Errorf("downloading PDF export for dashboard %s: %w", dashboardID, err)
	}
	return writeExportFile(outputPath, data)
}

// ExportVisualizationTabular renders a visualization's data to CSV or
// XLSX and writes it to outputPath.
func (c *Client) ExportVisualizationTabular(ctx context.Context, workspaceID, visualizationID, format, outputPath string) error {
	switch format {
	case FormatCSV, FormatXLSX:
	default:
		return fmt.Errorf("unsupported tabular format %q", format)
	}

	base := strings.TrimSuffix(filepath.Base(outputPath), filepath.Ext(outputPath))
	var created exportResultResponse
	path := fmt.Sprintf("/api/v1/actions/workspaces/%s/export/tabular", workspaceID)
	req := tabularExportRequest{FileName: base, Format: format, VisualizationObject: visualizationID}
	if err := c.postJSON(ctx, path, req, &created); err != nil {
		return fmt.Errorf("creating %s export for visualization %s: %w", format, visualizationID, err)
	}
	if created.ExportResult == "" {
		return fmt.Errorf("creating %s export for visualization %s: empty export result", format, visualizationID)
	}

	resultPath := fmt.Sprintf("/api/v1/actions/workspaces/%s/export/tabular/%s", workspaceID, created.ExportResult)
	data, err := c.pollExport(ctx, resultPath)
	if err != nil {
		return fmt.Errorf("downloading %s export for visualization %s: %w", format, visualizationID, err)
	}
	return writeExportFile(outputPath, data)
}

// pollExport fetches an export result, retrying while the server
// answers 202 Accepted, until the payload is ready or the deadline
// passes.
func (c *Client) pollExport(ctx context.Context, path string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, exportPollTimeout)
	defer cancel()

	for {
		data, ready, err := c.fetchExport(ctx, path)
		if err != nil {
			return nil, err
		}
		if ready {
			return data, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for export: %w", ctx.Err())
		case <-time.After(exportPollInterval):
		}
	}
}

// fetchExport performs one readiness check. A 202 means the export is
// still rendering.
func (c *Client) fetchExport(ctx context.Context, path string) ([]byte, bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, false, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+path, nil)
	if err != nil {
		return nil, false, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, false, fmt.Errorf("reading export payload: %w", err)
		}
		return data, true, nil
	case http.StatusAccepted:
		io.Copy(io.Discard, resp.Body)
		return nil, false, nil
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 300))
		return nil, false, &APIError{
			StatusCode: resp.StatusCode,
			Method:     http.MethodGet,
			Path:       path,
			Body:       strings.TrimSpace(string(body)),
		}
	}
}

// writeExportFile writes the export payload, creating the parent
// directory if missing.
func writeExportFile(outputPath string, data []byte) error {
	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating export directory: %w", err)
		}
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("writing export file: %w", err)
	}
	return nil
}
