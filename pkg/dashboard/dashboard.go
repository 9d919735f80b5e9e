// Package dashboard is the embedding surface for host applications that
// mount the property dashboard next to their own routes.
package dashboard

import (
	core "github.com/goliatone/go-property-dashboard/components/dashboard"
	"github.com/goliatone/go-property-dashboard/pkg/source"
)

type (
	Service         = core.Service
	Options         = core.Options
	Session         = core.Session
	ViewerContext   = core.ViewerContext
	Preferences     = core.Preferences
	Layout          = core.Layout
	DateRange       = core.DateRange
	MetricsReport   = core.MetricsReport
	Snapshot        = core.Snapshot
	SnapshotSource  = core.SnapshotSource
	PreferenceStore = core.PreferenceStore
	RefreshHook     = core.RefreshHook
	DashboardEvent  = core.DashboardEvent
)

// NewService proxies to the internal constructor.
func NewService(opts Options) *Service {
	return core.NewService(opts)
}

// NewDemoService serves a fixed snapshot with in-memory preferences.
func NewDemoService(snapshot Snapshot) *Service {
	return core.NewService(core.Options{
		PreferenceStore: core.NewInMemoryPreferenceStore(),
		Source:          source.NewStatic(snapshot),
	})
}
