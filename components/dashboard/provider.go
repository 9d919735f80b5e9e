package dashboard

import (
	"context"
	"time"
)

// Provider fetches data required to render a dashboard section.
type Provider interface {
	Fetch(ctx context.Context, meta SectionContext) (SectionData, error)
}

// ProviderFunc adapts a function into a Provider.
type ProviderFunc func(ctx context.Context, meta SectionContext) (SectionData, error)

// Fetch calls f(ctx, meta).
func (f ProviderFunc) Fetch(ctx context.Context, meta SectionContext) (SectionData, error) {
	return f(ctx, meta)
}

// SectionContext contains the metadata needed by providers. Snapshot and
// Report are shared across all sections of a single layout resolution.
type SectionContext struct {
	Section  SectionDefinition
	Viewer   ViewerContext
	Range    DateRange
	Snapshot Snapshot
	Report   MetricsReport
	Now      time.Time
}

// SectionData is an opaque payload passed to templates.
type SectionData map[string]any
