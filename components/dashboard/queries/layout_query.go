package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-property-dashboard/components/dashboard"
)

// LayoutInput identifies a layout request.
type LayoutInput struct {
	Viewer dashboard.ViewerContext
	Range  dashboard.DateRange
}

type layoutService interface {
	Layout(ctx context.Context, viewer dashboard.ViewerContext, input dashboard.LayoutInput) (dashboard.Layout, error)
}

// LayoutQuery executes read-only layout resolution.
type LayoutQuery struct {
	service layoutService
}

// NewLayoutQuery builds the query.
func NewLayoutQuery(service layoutService) *LayoutQuery {
	return &LayoutQuery{service: service}
}

var _ gocommand.Querier[LayoutInput, dashboard.Layout] = (*LayoutQuery)(nil)

// Query resolves the layout for the viewer.
func (q *LayoutQuery) Query(ctx context.Context, input LayoutInput) (dashboard.Layout, error) {
	return q.service.Layout(ctx, input.Viewer, dashboard.LayoutInput{Range: input.Range})
}
