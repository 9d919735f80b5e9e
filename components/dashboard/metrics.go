package dashboard

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const (
	seriesMonths          = 6
	statusPending         = "Pending"
	communicationUnread   = "unread"
	defaultSeriesField    = "amount"
	revenueSeriesField    = "rent_amount"
	metricTrendUp         = "up"
	metricTrendDown       = "down"
	metricTitleProperties = "Properties"
	metricTitleTenants    = "Tenants"
	metricTitleMaint      = "Maintenance"
	metricTitleRevenue    = "Monthly Revenue"
)

// DerivedMetric is a single dashboard card. It is recomputed on every change
// to its inputs and never persisted.
type DerivedMetric struct {
	Title       string       `json:"title"`
	Value       string       `json:"value"`
	Trend       string       `json:"trend,omitempty"`
	Description string       `json:"description,omitempty"`
	ChartSeries []ChartPoint `json:"chart_series"`
}

// ChartPoint represents an individual value (optionally labeled).
type ChartPoint struct {
	Label string  `json:"label,omitempty"`
	Value float64 `json:"value"`
}

// MonthlyBucket is one calendar month of an aggregated series.
type MonthlyBucket struct {
	Month time.Month `json:"month"`
	Year  int        `json:"year"`
	Value float64    `json:"value"`
}

// Label renders the bucket as "Jan 2026".
func (b MonthlyBucket) Label() string {
	return fmt.Sprintf("%s %d", b.Month.String()[:3], b.Year)
}

// MetricsInput is everything derivation reads. Payments default to the
// tenants' nested payments when nil.
type MetricsInput struct {
	Properties  []Property
	Tenants     []Tenant
	Maintenance []MaintenanceRequest
	Payments    []Payment
	Range       DateRange
	Now         time.Time
}

// MetricsReport aggregates the derived dashboard figures.
type MetricsReport struct {
	Range              DateRange       `json:"range"`
	TotalProperties    int             `json:"total_properties"`
	NewProperties      int             `json:"new_properties"`
	TotalTenants       int             `json:"total_tenants"`
	PendingMaintenance int             `json:"pending_maintenance"`
	MonthlyRevenue     float64         `json:"monthly_revenue"`
	TotalUnits         int             `json:"total_units"`
	OccupancyRate      int             `json:"occupancy_rate"`
	UnreadMessages     int             `json:"unread_messages"`
	RevenueSeries      []MonthlyBucket `json:"revenue_series"`
	PaymentSeries      []MonthlyBucket `json:"payment_series"`
	MaintenanceSeries  []MonthlyBucket `json:"maintenance_series"`
	TenantSeries       []MonthlyBucket `json:"tenant_series"`
	PropertySeries     []MonthlyBucket `json:"property_series"`
	Cards              []DerivedMetric `json:"cards"`
}

// MetricsInput adapts a snapshot for derivation.
func (s Snapshot) MetricsInput(r DateRange, now time.Time) MetricsInput {
	return MetricsInput{
		Properties:  s.Properties,
		Tenants:     s.Tenants,
		Maintenance: s.Maintenance,
		Range:       r,
		Now:         now,
	}
}

// Derive computes the dashboard metrics. It performs no I/O; an inverted
// range is an empty interval and yields an all-zero report.
func Derive(in MetricsInput) MetricsReport {
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	if in.Range.IsEmpty() {
		return zeroReport(in.Range, now)
	}
	payments := in.Payments
	if payments == nil {
		payments = FlattenPayments(in.Tenants)
	}

	tenants := filterByRange(in.Tenants, in.Range)
	maintenance := filterByRange(in.Maintenance, in.Range)

	report := MetricsReport{
		Range:              in.Range,
		TotalProperties:    len(in.Properties),
		NewProperties:      len(filterByRange(in.Properties, in.Range)),
		TotalTenants:       len(tenants),
		PendingMaintenance: countPending(maintenance),
		MonthlyRevenue:     sumField(tenants, revenueSeriesField),
		TotalUnits:         totalUnits(in.Properties),
		UnreadMessages:     UnreadMessages(in.Tenants),
		RevenueSeries:      MonthlySeries(in.Tenants, revenueSeriesField, now),
		PaymentSeries:      MonthlySeries(payments, defaultSeriesField, now),
		MaintenanceSeries:  MonthlySeries(in.Maintenance, defaultSeriesField, now),
		TenantSeries:       MonthlySeries(in.Tenants, FieldCount, now),
		PropertySeries:     presenceSeries(MonthlySeries(in.Properties, FieldCount, now)),
	}
	report.OccupancyRate = OccupancyRate(report.TotalTenants, report.TotalUnits)
	report.Cards = buildCards(report)
	return report
}

// OccupancyRate is round(tenants/units*100); 0 when there are no units.
func OccupancyRate(tenants, units int) int {
	if units <= 0 {
		return 0
	}
	return int(math.Round(float64(tenants) / float64(units) * 100))
}

// UnreadMessages counts unread communications sent by tenants.
func UnreadMessages(tenants []Tenant) int {
	count := 0
	for _, tenant := range tenants {
		for _, comm := range tenant.Communications {
			if comm.Status == communicationUnread && comm.IsFromTenant {
				count++
			}
		}
	}
	return count
}

// MonthlySeries buckets records by the calendar month of their creation time
// over the six months ending with now's month, summing field. Months with no
// records stay at 0; buckets run oldest to newest.
func MonthlySeries[R Record](records []R, field string, now time.Time) []MonthlyBucket {
	if field == "" {
		field = defaultSeriesField
	}
	buckets := emptySeries(now)
	for _, rec := range records {
		created := rec.Created().In(now.Location())
		for i := range buckets {
			if buckets[i].Month == created.Month() && buckets[i].Year == created.Year() {
				buckets[i].Value += rec.Number(field)
				break
			}
		}
	}
	return buckets
}

func emptySeries(now time.Time) []MonthlyBucket {
	buckets := make([]MonthlyBucket, seriesMonths)
	for i := range buckets {
		month := time.Date(now.Year(), now.Month()-time.Month(seriesMonths-1-i), 1, 0, 0, 0, 0, now.Location())
		buckets[i] = MonthlyBucket{Month: month.Month(), Year: month.Year()}
	}
	return buckets
}

// presenceSeries flattens a count series to 1 for months with any record.
func presenceSeries(counts []MonthlyBucket) []MonthlyBucket {
	for i := range counts {
		if counts[i].Value > 0 {
			counts[i].Value = 1
		}
	}
	return counts
}

func filterByRange[R Record](records []R, r DateRange) []R {
	out := make([]R, 0, len(records))
	for _, rec := range records {
		if r.Contains(rec.Created()) {
			out = append(out, rec)
		}
	}
	return out
}

func sumField[R Record](records []R, field string) float64 {
	total := 0.0
	for _, rec := range records {
		total += rec.Number(field)
	}
	return total
}

func countPending(requests []MaintenanceRequest) int {
	count := 0
	for _, req := range requests {
		if req.Status == statusPending {
			count++
		}
	}
	return count
}

func totalUnits(properties []Property) int {
	total := 0
	for _, p := range properties {
		total += p.Units
	}
	return total
}

func zeroReport(r DateRange, now time.Time) MetricsReport {
	report := MetricsReport{
		Range:             r,
		RevenueSeries:     emptySeries(now),
		PaymentSeries:     emptySeries(now),
		MaintenanceSeries: emptySeries(now),
		TenantSeries:      emptySeries(now),
		PropertySeries:    emptySeries(now),
	}
	report.Cards = buildCards(report)
	return report
}

func buildCards(r MetricsReport) []DerivedMetric {
	return []DerivedMetric{
		{
			Title:       metricTitleProperties,
			Value:       strconv.Itoa(r.TotalProperties),
			Trend:       metricTrendUp,
			Description: fmt.Sprintf("%d new this month", r.NewProperties),
			ChartSeries: chartPoints(r.PropertySeries),
		},
		{
			Title:       metricTitleTenants,
			Value:       strconv.Itoa(r.TotalTenants),
			Trend:       metricTrendUp,
			Description: fmt.Sprintf("%d%% occupancy rate", r.OccupancyRate),
			ChartSeries: chartPoints(r.TenantSeries),
		},
		{
			Title:       metricTitleMaint,
			Value:       strconv.Itoa(r.PendingMaintenance),
			Trend:       metricTrendDown,
			Description: fmt.Sprintf("%d pending requests", r.PendingMaintenance),
			ChartSeries: chartPoints(r.MaintenanceSeries),
		},
		{
			Title:       metricTitleRevenue,
			Value:       FormatCurrency(r.MonthlyRevenue),
			Trend:       metricTrendUp,
			Description: "Based on current leases",
			ChartSeries: chartPoints(r.RevenueSeries),
		},
	}
}

func chartPoints(buckets []MonthlyBucket) []ChartPoint {
	points := make([]ChartPoint, len(buckets))
	for i, b := range buckets {
		points[i] = ChartPoint{Label: b.Label(), Value: b.Value}
	}
	return points
}

// FormatCurrency renders an amount as "$1,234.5".
func FormatCurrency(amount float64) string {
	printer := message.NewPrinter(language.English)
	return "$" + printer.Sprint(number.Decimal(amount, number.MaxFractionDigits(2)))
}
