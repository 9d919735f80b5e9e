package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	dashboard "github.com/goliatone/go-property-dashboard/components/dashboard"
	"github.com/goliatone/go-property-dashboard/pkg/auth"
)

func TestHTTPClientSnapshot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("apikey"); got != "secret" {
			t.Errorf("expected apikey header, got %q", got)
		}
		if got := r.Header.Get("X-User-ID"); got != "user-1" {
			t.Errorf("expected forwarded viewer, got %q", got)
		}
		switch r.URL.Path {
		case "/rest/v1/properties":
			_, _ = w.Write([]byte(`[{"id":"p1","name":"Elm","units":4,"created_at":"2026-06-01T00:00:00Z"}]`))
		case "/rest/v1/tenants":
			if sel := r.URL.Query().Get("select"); !strings.Contains(sel, "tenant_payments(*)") {
				t.Errorf("expected nested payments select, got %q", sel)
			}
			_, _ = w.Write([]byte(`[{"id":"t1","name":"Ada","rent_amount":1200,"created_at":"2026-06-02T00:00:00Z",
				"tenant_payments":[{"id":"pay1","amount":1200,"status":"paid","created_at":"2026-06-03T00:00:00Z"}],
				"tenant_communications":[{"id":"c1","status":"unread","is_from_tenant":true,"created_at":"2026-06-04T00:00:00Z"}]}]`))
		case "/rest/v1/maintenance_requests":
			_, _ = w.Write([]byte(`[{"id":"m1","status":"Pending","created_at":"2026-06-05T00:00:00Z"}]`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)

	client, err := NewHTTPClient(HTTPConfig{BaseURL: server.URL + "/", APIKey: "secret", ForwardViewer: true})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	snapshot, err := client.Snapshot(context.Background(), dashboard.ViewerContext{UserID: "user-1"})
	if err != nil {
		t.Fatalf("Snapshot returned error: %v", err)
	}
	if len(snapshot.Properties) != 1 || snapshot.Properties[0].Units != 4 {
		t.Fatalf("unexpected properties %#v", snapshot.Properties)
	}
	if len(snapshot.Tenants) != 1 || len(snapshot.Tenants[0].Payments) != 1 || len(snapshot.Tenants[0].Communications) != 1 {
		t.Fatalf("unexpected tenants %#v", snapshot.Tenants)
	}
	if dashboard.UnreadMessages(snapshot.Tenants) != 1 {
		t.Fatalf("expected nested communications to decode")
	}
	if len(snapshot.Maintenance) != 1 || snapshot.Maintenance[0].Status != "Pending" {
		t.Fatalf("unexpected maintenance %#v", snapshot.Maintenance)
	}
}

func TestHTTPClientForwardsViewerToken(t *testing.T) {
	var authHeaders, keyHeaders []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeaders = append(authHeaders, r.Header.Get("Authorization"))
		keyHeaders = append(keyHeaders, r.Header.Get("apikey"))
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(server.Close)

	client, err := NewHTTPClient(HTTPConfig{BaseURL: server.URL, APIKey: "project-key"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	ctx := auth.WithToken(context.Background(), "viewer-jwt")
	if _, err := client.Snapshot(ctx, dashboard.ViewerContext{UserID: "user-1"}); err != nil {
		t.Fatalf("Snapshot returned error: %v", err)
	}
	if len(authHeaders) != 3 {
		t.Fatalf("expected three collection requests, got %d", len(authHeaders))
	}
	for i := range authHeaders {
		if authHeaders[i] != "Bearer viewer-jwt" {
			t.Fatalf("expected viewer token, got %q", authHeaders[i])
		}
		if keyHeaders[i] != "project-key" {
			t.Fatalf("expected project key in apikey, got %q", keyHeaders[i])
		}
	}

	authHeaders = nil
	if _, err := client.Snapshot(context.Background(), dashboard.ViewerContext{UserID: "user-1"}); err != nil {
		t.Fatalf("Snapshot returned error: %v", err)
	}
	for _, h := range authHeaders {
		if h != "" {
			t.Fatalf("project key must not be sent as bearer token, got %q", h)
		}
	}
}

func TestHTTPClientRemoteError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "permission denied", http.StatusForbidden)
	}))
	t.Cleanup(server.Close)

	client, _ := NewHTTPClient(HTTPConfig{BaseURL: server.URL})
	_, err := client.Snapshot(context.Background(), dashboard.ViewerContext{UserID: "user-1"})
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected remote error, got %v", err)
	}
}

func TestNewHTTPClientRequiresBaseURL(t *testing.T) {
	if _, err := NewHTTPClient(HTTPConfig{}); err == nil {
		t.Fatalf("expected error without base url")
	}
}

func TestStaticReturnsCopies(t *testing.T) {
	src := NewStatic(dashboard.Snapshot{Tenants: []dashboard.Tenant{{ID: "t1", Payments: []dashboard.Payment{{ID: "p"}}}}})
	first, _ := src.Snapshot(context.Background(), dashboard.ViewerContext{})
	first.Tenants[0].Payments[0].ID = "mutated"
	second, _ := src.Snapshot(context.Background(), dashboard.ViewerContext{})
	if second.Tenants[0].Payments[0].ID != "p" {
		t.Fatalf("static source leaked internal state")
	}
}

func TestLoadFixture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.json")
	body := `{"properties":[{"id":"p1","units":3}],"tenants":[{"id":"t1","tenant_payments":[{"id":"pay1","amount":10}]}]}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	static, err := LoadFixture(path)
	if err != nil {
		t.Fatalf("LoadFixture returned error: %v", err)
	}
	snapshot, _ := static.Snapshot(context.Background(), dashboard.ViewerContext{})
	if len(snapshot.Properties) != 1 || snapshot.Properties[0].Units != 3 {
		t.Fatalf("unexpected properties: %+v", snapshot.Properties)
	}
	if len(snapshot.Tenants) != 1 || len(snapshot.Tenants[0].Payments) != 1 {
		t.Fatalf("unexpected tenants: %+v", snapshot.Tenants)
	}

	empty, err := LoadFixture("")
	if err != nil {
		t.Fatalf("LoadFixture(\"\") returned error: %v", err)
	}
	if snap, _ := empty.Snapshot(context.Background(), dashboard.ViewerContext{}); len(snap.Properties) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}

	if _, err := LoadFixture(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing fixture")
	}
}
