// Package gooddata is the REST client for the GoodData Cloud API. It
// implements the catalog.Service and catalog.Gateway interfaces over
// the entity (/api/v1/entities), declarative (/api/v1/layout), and
// actions (/api/v1/actions) endpoint families. The client is
// deliberately thin: authentication is a bearer token, responses are
// decoded into validated structs at this boundary, and all calls pass
// through a shared rate limiter.
package gooddata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/stackless-analytics/gooddata-cli/internal/config"
)

const (
	// apiContentType is the vendor media type for entity API writes.
	apiContentType = "application/vnd.gooddata.api+json"

	// pageSize is the page size used for paginated entity listings.
	pageSize = 250
)

// DefaultRequestsPerSecond limits outbound API calls. GoodData Cloud
// throttles aggressively above ~10 rps per token.
const DefaultRequestsPerSecond = 8

// Client talks to one GoodData deployment.
type Client struct {
	host    string
	token   string
	http    *http.Client
	limiter *rate.Limiter
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient substitutes the underlying HTTP client. Tests use
// this with httptest servers.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRateLimit overrides the outbound request rate.
func WithRateLimit(rps float64) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), 1) }
}

// New creates a client from credentials.
func New(creds config.Credentials, opts ...Option) *Client {
	c := &Client{
		host:    strings.TrimRight(creds.Host, "/"),
		token:   creds.Token,
		http:    &http.Client{Timeout: 60 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(DefaultRequestsPerSecond), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Body       string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("gooddata: %s %s: HTTP %d", e.Method, e.Path, e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// IsAccessDenied reports whether the error is a 401/403/404 API
// response. The analyzer uses this to decide that a per-workspace or
// per-entity fetch is skippable rather than fatal.
func IsAccessDenied(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return true
	}
	return false
}

// do performs one API call. The response body is returned for 2xx
// statuses; anything else becomes an *APIError with a truncated body
// excerpt.
func (c *Client) do(ctx context.Context, method, path string, body []byte, accept string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.host+path, reader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if body != nil {
		req.Header.Set("Content-Type", apiContentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response for %s %s: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt := string(data)
		if len(excerpt) > 300 {
			excerpt = excerpt[:300]
		}
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Method:     method,
			Path:       path,
			Body:       strings.TrimSpace(excerpt),
		}
	}
	return data, nil
}

// getJSON fetches path and decodes the response into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	data, err := c.do(ctx, http.MethodGet, path, nil, apiContentType)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

// putJSON sends body to path via PUT.
func (c *Client) putJSON(ctx context.Context, path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding %s request: %w", path, err)
	}
	_, err = c.do(ctx, http.MethodPut, path, payload, apiContentType)
	return err
}

// postJSON sends body to path via POST and decodes the response into
// out when out is non-nil.
func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding %s request: %w", path, err)
	}
	data, err := c.do(ctx, http.MethodPost, path, payload, "application/json")
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
