package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-property-dashboard/components/dashboard"
)

// MetricsInput scopes a metrics request. A zero Range means the current month.
type MetricsInput struct {
	Viewer dashboard.ViewerContext
	Range  dashboard.DateRange
}

type metricsService interface {
	Metrics(ctx context.Context, viewer dashboard.ViewerContext, rng dashboard.DateRange) (dashboard.MetricsReport, error)
}

// MetricsQuery derives the metrics report without resolving sections.
type MetricsQuery struct {
	service metricsService
}

// NewMetricsQuery builds the query.
func NewMetricsQuery(service metricsService) *MetricsQuery {
	return &MetricsQuery{service: service}
}

var _ gocommand.Querier[MetricsInput, dashboard.MetricsReport] = (*MetricsQuery)(nil)

// Query derives the report.
func (q *MetricsQuery) Query(ctx context.Context, input MetricsInput) (dashboard.MetricsReport, error) {
	return q.service.Metrics(ctx, input.Viewer, input.Range)
}
