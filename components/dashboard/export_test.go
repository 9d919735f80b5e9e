package dashboard

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestBuildMetricsXLSX(t *testing.T) {
	now := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)
	report := Derive(MetricsInput{
		Properties: []Property{{ID: "p1", Name: "Elm", Units: 4, CreatedAt: now}},
		Tenants:    []Tenant{{ID: "t1", Name: "Ada", RentAmount: 1500, CreatedAt: now}},
		Range:      CurrentMonth(now),
		Now:        now,
	})

	data, err := BuildMetricsXLSX(report)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	title, err := f.GetCellValue(exportSummarySheet, "A6")
	require.NoError(t, err)
	assert.Equal(t, "Properties", title)
	revenue, err := f.GetCellValue(exportSummarySheet, "B9")
	require.NoError(t, err)
	assert.Equal(t, "$1,500", revenue)

	month, err := f.GetCellValue(exportSeriesSheet, "A7")
	require.NoError(t, err)
	assert.Equal(t, "Mar 2026", month)
	value, err := f.GetCellValue(exportSeriesSheet, "B7")
	require.NoError(t, err)
	assert.Equal(t, "1500", value)
}
