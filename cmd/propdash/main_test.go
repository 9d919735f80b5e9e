package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goliatone/go-property-dashboard/components/dashboard"
)

const fixture = `{
  "properties": [
    {"id": "p1", "name": "Elm Court", "units": 4, "created_at": "2026-01-05T00:00:00Z"},
    {"id": "p2", "name": "Oak Row", "units": 6, "created_at": "2025-11-02T00:00:00Z"}
  ],
  "tenants": [
    {"id": "t1", "name": "Ada", "rent_amount": 1200, "created_at": "2026-01-10T00:00:00Z"},
    {"id": "t2", "name": "Lin", "rent_amount": 950.5, "created_at": "2026-01-12T00:00:00Z"}
  ],
  "maintenance_requests": [
    {"id": "m1", "status": "Pending", "created_at": "2026-01-15T00:00:00Z"},
    {"id": "m2", "status": "Completed", "created_at": "2026-01-16T00:00:00Z"}
  ]
}`

func writeFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snapshot.json")
	if err := os.WriteFile(path, []byte(fixture), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestMetricsCommandPrintsCards(t *testing.T) {
	var out bytes.Buffer
	args := []string{"metrics", "--fixture", writeFixture(t), "--now", "2026-01-20T00:00:00Z", "--cards"}
	if err := run(context.Background(), args, &out); err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	var cards []dashboard.DerivedMetric
	if err := json.Unmarshal(out.Bytes(), &cards); err != nil {
		t.Fatalf("decode cards: %v\n%s", err, out.String())
	}
	if len(cards) != 4 {
		t.Fatalf("expected 4 cards, got %d", len(cards))
	}
	want := []string{"2", "2", "1", "$2,150.5"}
	for i, card := range cards {
		if card.Value != want[i] {
			t.Fatalf("card %s: expected %q, got %q", card.Title, want[i], card.Value)
		}
	}
	if cards[1].Description != "20% occupancy rate" {
		t.Fatalf("unexpected tenant description %q", cards[1].Description)
	}
}

func TestMetricsCommandRejectsUnknownPreset(t *testing.T) {
	var out bytes.Buffer
	args := []string{"metrics", "--fixture", writeFixture(t), "--range", "forever"}
	if err := run(context.Background(), args, &out); err == nil {
		t.Fatal("expected error for unknown preset")
	}
}

func TestExportCommandWritesWorkbook(t *testing.T) {
	var out bytes.Buffer
	dest := filepath.Join(t.TempDir(), "reports", "metrics.xlsx")
	args := []string{"export", "--fixture", writeFixture(t), "--now", "2026-01-20T00:00:00Z", "--out", dest}
	if err := run(context.Background(), args, &out); err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	info, err := os.Stat(dest)
	if err != nil {
		t.Fatalf("stat workbook: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("expected non-empty workbook")
	}
	if !strings.Contains(out.String(), dest) {
		t.Fatalf("expected output to mention %s, got %q", dest, out.String())
	}
}

func TestLayoutCommandResolvesOrder(t *testing.T) {
	var out bytes.Buffer
	args := []string{"layout", "--order", "activity,metrics,ghost", "--hidden", "priority"}
	if err := run(context.Background(), args, &out); err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	want := "1\tactivity\tRecent Activity\n2\tmetrics\tOverview\n3\trevenue\tRevenue\n"
	if out.String() != want {
		t.Fatalf("unexpected layout:\n%s", out.String())
	}
}

func TestScaffoldSectionCommand(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "sections.yaml")
	provider := filepath.Join(dir, "providers", "open_tickets_provider.go")
	args := []string{
		"scaffold-section",
		"--id", "Open Tickets",
		"--title", "Open Tickets",
		"--position", "50",
		"--manifest-path", manifest,
		"--provider-out", provider,
	}
	var out bytes.Buffer
	if err := run(context.Background(), args, &out); err != nil {
		t.Fatalf("run returned error: %v", err)
	}

	doc, err := dashboard.ReadManifest(manifest)
	if err != nil {
		t.Fatalf("ReadManifest returned error: %v", err)
	}
	if len(doc.Sections) != 1 || doc.Sections[0].ID != "open_tickets" || doc.Sections[0].Position != 50 {
		t.Fatalf("unexpected manifest sections: %+v", doc.Sections)
	}
	stub, err := os.ReadFile(provider)
	if err != nil {
		t.Fatalf("read provider stub: %v", err)
	}
	if !strings.Contains(string(stub), "func NewOpenTicketsProvider() dashboard.Provider") {
		t.Fatalf("unexpected provider stub:\n%s", stub)
	}

	out.Reset()
	if err := run(context.Background(), args, &out); err == nil {
		t.Fatal("expected duplicate section error without --overwrite")
	}
}
