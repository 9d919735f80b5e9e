// Package source loads dashboard snapshots from a PostgREST-compatible backend.
package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	dashboard "github.com/goliatone/go-property-dashboard/components/dashboard"
	"github.com/goliatone/go-property-dashboard/pkg/auth"
)

// Collection selects, matching the nesting the metrics expect.
const (
	propertiesSelect  = "*"
	tenantsSelect     = "*,tenant_payments(*),tenant_communications(*)"
	maintenanceSelect = "*"
)

// HTTPConfig configures the REST snapshot client. APIKey is sent only as the
// apikey header; Authorization carries the viewer's token when the request
// context holds one (see auth.WithToken).
type HTTPConfig struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	// ForwardViewer sends the viewer id as the X-User-ID header so row-level
	// policies can scope the rows.
	ForwardViewer bool
}

// HTTPClient fetches properties, tenants and maintenance requests.
type HTTPClient struct {
	baseURL       string
	apiKey        string
	client        *http.Client
	forwardViewer bool
}

// NewHTTPClient builds a client for the REST backend.
func NewHTTPClient(cfg HTTPConfig) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("source: base url is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPClient{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:        cfg.APIKey,
		client:        httpClient,
		forwardViewer: cfg.ForwardViewer,
	}, nil
}

var _ dashboard.SnapshotSource = (*HTTPClient)(nil)

// Snapshot implements dashboard.SnapshotSource. Any collection failure fails
// the snapshot.
func (c *HTTPClient) Snapshot(ctx context.Context, viewer dashboard.ViewerContext) (dashboard.Snapshot, error) {
	var snapshot dashboard.Snapshot
	if err := c.get(ctx, viewer, "properties", propertiesSelect, &snapshot.Properties); err != nil {
		return dashboard.Snapshot{}, err
	}
	if err := c.get(ctx, viewer, "tenants", tenantsSelect, &snapshot.Tenants); err != nil {
		return dashboard.Snapshot{}, err
	}
	if err := c.get(ctx, viewer, "maintenance_requests", maintenanceSelect, &snapshot.Maintenance); err != nil {
		return dashboard.Snapshot{}, err
	}
	return snapshot, nil
}

func (c *HTTPClient) get(ctx context.Context, viewer dashboard.ViewerContext, table, selectExpr string, target any) error {
	query := url.Values{}
	query.Set("select", selectExpr)
	endpoint := fmt.Sprintf("%s/rest/v1/%s?%s", c.baseURL, table, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("source: build %s request: %w", table, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}
	// Row-level policies evaluate the viewer's token, never the project key.
	if token := auth.TokenFromContext(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if c.forwardViewer && viewer.UserID != "" {
		req.Header.Set("X-User-ID", viewer.UserID)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("source: fetch %s: %w", table, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(resp.Body)
		return fmt.Errorf("source: remote error %d for %s: %s", resp.StatusCode, table, buf.String())
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("source: decode %s: %w", table, err)
	}
	return nil
}
