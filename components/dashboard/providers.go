package dashboard

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	defaultActivityLimit  = 5
	defaultPriorityLimit  = 5
	leaseExpiryWindowDays = 30
)

var overduePaymentStatuses = map[string]struct{}{
	"late":    {},
	"overdue": {},
	"failed":  {},
}

func defaultProviders() map[string]Provider {
	charts := NewChartRenderer()
	return map[string]Provider{
		SectionMetrics:  NewMetricsProvider(charts),
		SectionPriority: NewPriorityProvider(defaultPriorityLimit),
		SectionRevenue:  NewRevenueProvider(charts),
		SectionActivity: NewActivityProvider(defaultActivityLimit),
	}
}

// UseChartRenderer swaps the chart renderer of the built-in chart sections.
func (r *SectionRegistry) UseChartRenderer(charts *ChartRenderer) error {
	if charts == nil {
		return nil
	}
	if err := r.RegisterProvider(SectionMetrics, NewMetricsProvider(charts)); err != nil {
		return err
	}
	return r.RegisterProvider(SectionRevenue, NewRevenueProvider(charts))
}

// NewMetricsProvider exposes the four metric cards with a sparkline each.
// Sparkline failures leave the card without chart markup.
func NewMetricsProvider(charts *ChartRenderer) Provider {
	return ProviderFunc(func(ctx context.Context, meta SectionContext) (SectionData, error) {
		report := meta.Report
		cards := make([]map[string]any, 0, len(report.Cards))
		for _, card := range report.Cards {
			entry := map[string]any{
				"title":        card.Title,
				"value":        card.Value,
				"trend":        card.Trend,
				"description":  card.Description,
				"chart_series": card.ChartSeries,
			}
			if charts != nil {
				key := ChartKey{Viewer: meta.Viewer.UserID, Section: meta.Section.ID, Name: card.Title, Range: meta.Range}
				if html, err := charts.Sparkline(key, ChartSeries{Name: card.Title, Points: card.ChartSeries}); err == nil {
					entry["chart_html"] = html
				}
			}
			cards = append(cards, entry)
		}
		return SectionData{
			"cards":           cards,
			"unread_messages": report.UnreadMessages,
			"occupancy_rate":  report.OccupancyRate,
			"range":           meta.Range,
		}, nil
	})
}

// NewPriorityProvider lists items needing attention: pending maintenance in
// range, overdue payments and leases ending within thirty days.
func NewPriorityProvider(limit int) Provider {
	if limit <= 0 {
		limit = defaultPriorityLimit
	}
	return ProviderFunc(func(ctx context.Context, meta SectionContext) (SectionData, error) {
		now := meta.Now
		if now.IsZero() {
			now = time.Now()
		}
		var pending []map[string]any
		for _, req := range meta.Snapshot.Maintenance {
			if req.Status != statusPending || !meta.Range.Contains(req.CreatedAt) {
				continue
			}
			pending = append(pending, map[string]any{
				"id":         req.ID,
				"title":      firstNonEmpty(req.Title, req.Issue),
				"priority":   req.Priority,
				"created_at": req.CreatedAt,
			})
		}
		sort.SliceStable(pending, func(i, j int) bool {
			return pending[i]["created_at"].(time.Time).After(pending[j]["created_at"].(time.Time))
		})

		tenantNames := make(map[string]string, len(meta.Snapshot.Tenants))
		for _, tenant := range meta.Snapshot.Tenants {
			tenantNames[tenant.ID] = tenant.Name
		}
		var overdue []map[string]any
		for _, payment := range FlattenPayments(meta.Snapshot.Tenants) {
			if _, ok := overduePaymentStatuses[strings.ToLower(payment.Status)]; !ok {
				continue
			}
			overdue = append(overdue, map[string]any{
				"id":      payment.ID,
				"tenant":  tenantNames[payment.TenantID],
				"amount":  FormatCurrency(payment.Amount),
				"status":  payment.Status,
				"created": payment.CreatedAt,
			})
		}

		horizon := now.AddDate(0, 0, leaseExpiryWindowDays)
		var expiring []map[string]any
		for _, tenant := range meta.Snapshot.Tenants {
			if tenant.LeaseEnd == nil || tenant.LeaseEnd.Before(now) || tenant.LeaseEnd.After(horizon) {
				continue
			}
			expiring = append(expiring, map[string]any{
				"tenant":    tenant.Name,
				"unit":      tenant.UnitNumber,
				"lease_end": *tenant.LeaseEnd,
			})
		}

		return SectionData{
			"pending_maintenance": truncate(pending, limit),
			"overdue_payments":    truncate(overdue, limit),
			"expiring_leases":     truncate(expiring, limit),
			"pending_count":       len(pending),
			"overdue_count":       len(overdue),
		}, nil
	})
}

// NewRevenueProvider renders the six-month revenue and payments chart.
func NewRevenueProvider(charts *ChartRenderer) Provider {
	return ProviderFunc(func(ctx context.Context, meta SectionContext) (SectionData, error) {
		if charts == nil {
			return nil, fmt.Errorf("dashboard: revenue chart renderer not configured")
		}
		series := []ChartSeries{
			SeriesFromBuckets("Revenue", meta.Report.RevenueSeries),
			SeriesFromBuckets("Payments", meta.Report.PaymentSeries),
		}
		key := ChartKey{Viewer: meta.Viewer.UserID, Section: meta.Section.ID, Name: "revenue", Range: meta.Range}
		html, err := charts.Line(key, meta.Section.Title, series)
		if err != nil {
			return nil, err
		}
		total := 0.0
		for _, bucket := range meta.Report.RevenueSeries {
			total += bucket.Value
		}
		return SectionData{
			"chart_html":      html,
			"chart_type":      "line",
			"theme":           charts.Theme(),
			"series":          series,
			"monthly_revenue": FormatCurrency(meta.Report.MonthlyRevenue),
			"six_month_total": FormatCurrency(total),
		}, nil
	})
}

// ActivityItem is one entry of the recent activity feed.
type ActivityItem struct {
	Kind    string    `json:"kind"`
	Title   string    `json:"title"`
	Details string    `json:"details,omitempty"`
	At      time.Time `json:"at"`
}

// RecentActivity merges the newest tenants, maintenance requests and
// properties, newest first.
func RecentActivity(snapshot Snapshot, limit int) []ActivityItem {
	var items []ActivityItem
	for _, tenant := range snapshot.Tenants {
		items = append(items, ActivityItem{
			Kind:    "tenant",
			Title:   "New tenant " + tenant.Name,
			Details: tenant.UnitNumber,
			At:      tenant.CreatedAt,
		})
	}
	for _, req := range snapshot.Maintenance {
		items = append(items, ActivityItem{
			Kind:    "maintenance",
			Title:   "Maintenance request: " + firstNonEmpty(req.Title, req.Issue),
			Details: req.Status,
			At:      req.CreatedAt,
		})
	}
	for _, property := range snapshot.Properties {
		items = append(items, ActivityItem{
			Kind:    "property",
			Title:   "Property added: " + property.Name,
			Details: property.Address,
			At:      property.CreatedAt,
		})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].At.After(items[j].At) })
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

// NewActivityProvider exposes the recent activity feed.
func NewActivityProvider(limit int) Provider {
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	return ProviderFunc(func(ctx context.Context, meta SectionContext) (SectionData, error) {
		return SectionData{"items": RecentActivity(meta.Snapshot, limit)}, nil
	})
}

func truncate(items []map[string]any, limit int) []map[string]any {
	if items == nil {
		return []map[string]any{}
	}
	if len(items) > limit {
		return items[:limit]
	}
	return items
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
