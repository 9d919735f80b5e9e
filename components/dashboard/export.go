package dashboard

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	exportSummarySheet = "summary"
	exportSeriesSheet  = "series"
)

// BuildMetricsXLSX renders the metric cards and six-month series as a workbook.
func BuildMetricsXLSX(report MetricsReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", exportSummarySheet); err != nil {
		return nil, fmt.Errorf("dashboard: prepare summary sheet: %w", err)
	}
	if _, err := f.NewSheet(exportSeriesSheet); err != nil {
		return nil, fmt.Errorf("dashboard: prepare series sheet: %w", err)
	}

	_ = f.SetCellValue(exportSummarySheet, "A1", "Dashboard Metrics")
	_ = f.SetCellValue(exportSummarySheet, "A2", "From")
	_ = f.SetCellValue(exportSummarySheet, "B2", report.Range.Start.Format(time.DateOnly))
	_ = f.SetCellValue(exportSummarySheet, "A3", "To")
	_ = f.SetCellValue(exportSummarySheet, "B3", report.Range.End.Format(time.DateOnly))
	_ = f.SetCellValue(exportSummarySheet, "A5", "Metric")
	_ = f.SetCellValue(exportSummarySheet, "B5", "Value")
	_ = f.SetCellValue(exportSummarySheet, "C5", "Description")
	for i, card := range report.Cards {
		row := i + 6
		_ = f.SetCellValue(exportSummarySheet, fmt.Sprintf("A%d", row), card.Title)
		_ = f.SetCellValue(exportSummarySheet, fmt.Sprintf("B%d", row), card.Value)
		_ = f.SetCellValue(exportSummarySheet, fmt.Sprintf("C%d", row), card.Description)
	}
	row := len(report.Cards) + 7
	_ = f.SetCellValue(exportSummarySheet, fmt.Sprintf("A%d", row), "Unread messages")
	_ = f.SetCellValue(exportSummarySheet, fmt.Sprintf("B%d", row), report.UnreadMessages)

	headers := []string{"Month", "Revenue", "Payments", "Maintenance", "Tenants", "Properties"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(exportSeriesSheet, cell, header)
	}
	columns := [][]MonthlyBucket{
		report.RevenueSeries,
		report.PaymentSeries,
		report.MaintenanceSeries,
		report.TenantSeries,
		report.PropertySeries,
	}
	for i, bucket := range report.RevenueSeries {
		r := i + 2
		_ = f.SetCellValue(exportSeriesSheet, fmt.Sprintf("A%d", r), bucket.Label())
		for c, series := range columns {
			if i >= len(series) {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+2, r)
			_ = f.SetCellValue(exportSeriesSheet, cell, series[i].Value)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("dashboard: write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
