package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	dashboard "github.com/goliatone/go-property-dashboard/components/dashboard"
)

// Static serves a fixed snapshot. Useful for demos and tests.
type Static struct {
	mu       sync.RWMutex
	snapshot dashboard.Snapshot
}

// NewStatic builds a static source.
func NewStatic(snapshot dashboard.Snapshot) *Static {
	return &Static{snapshot: snapshot}
}

// LoadFixture reads a JSON snapshot from path. An empty path yields an empty
// snapshot.
func LoadFixture(path string) (*Static, error) {
	if path == "" {
		return NewStatic(dashboard.Snapshot{}), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("source: read fixture %s: %w", path, err)
	}
	var snapshot dashboard.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("source: decode fixture %s: %w", path, err)
	}
	return NewStatic(snapshot), nil
}

// Set replaces the snapshot.
func (s *Static) Set(snapshot dashboard.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snapshot
}

// Snapshot returns a copy of the configured snapshot ignoring the viewer.
func (s *Static) Snapshot(context.Context, dashboard.ViewerContext) (dashboard.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSnapshot(s.snapshot), nil
}

func cloneSnapshot(in dashboard.Snapshot) dashboard.Snapshot {
	out := dashboard.Snapshot{
		Properties:  append([]dashboard.Property(nil), in.Properties...),
		Maintenance: append([]dashboard.MaintenanceRequest(nil), in.Maintenance...),
		Tenants:     make([]dashboard.Tenant, len(in.Tenants)),
	}
	for i, tenant := range in.Tenants {
		tenant.Payments = append([]dashboard.Payment(nil), tenant.Payments...)
		tenant.Communications = append([]dashboard.Communication(nil), tenant.Communications...)
		out.Tenants[i] = tenant
	}
	return out
}
