package dashboard

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

const (
	defaultChartHeight     = "360px"
	defaultSparklineHeight = "80px"
	// DefaultEChartsAssetsHost serves the ECharts runtime from the public CDN.
	DefaultEChartsAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"
)

var sharedChartCache = NewChartCache(5 * time.Minute)

// ChartSeries is a named list of points plotted as one line.
type ChartSeries struct {
	Name   string       `json:"name"`
	Points []ChartPoint `json:"points"`
}

// SeriesFromBuckets converts a monthly series into chart points.
func SeriesFromBuckets(name string, buckets []MonthlyBucket) ChartSeries {
	return ChartSeries{Name: name, Points: chartPoints(buckets)}
}

// ChartRenderer renders server-side ECharts markup.
type ChartRenderer struct {
	cache      RenderCache
	theme      string
	assetsHost string
}

// ChartRendererOption customizes renderer behavior.
type ChartRendererOption func(*ChartRenderer)

// WithChartCache injects a render cache. A nil cache disables caching.
func WithChartCache(cache RenderCache) ChartRendererOption {
	return func(r *ChartRenderer) {
		r.cache = cache
	}
}

// WithChartTheme sets the ECharts theme (defaults to Westeros).
func WithChartTheme(theme string) ChartRendererOption {
	return func(r *ChartRenderer) {
		if theme = strings.TrimSpace(theme); theme != "" {
			r.theme = theme
		}
	}
}

// WithChartAssetsHost rewrites the assets host so ECharts JS loads from a CDN.
func WithChartAssetsHost(host string) ChartRendererOption {
	return func(r *ChartRenderer) {
		r.assetsHost = ensureTrailingSlash(host)
	}
}

// NewChartRenderer builds a renderer.
func NewChartRenderer(opts ...ChartRendererOption) *ChartRenderer {
	r := &ChartRenderer{
		cache:      sharedChartCache,
		theme:      types.ThemeWesteros,
		assetsHost: DefaultEChartsAssetsHost,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Theme reports the configured theme.
func (r *ChartRenderer) Theme() string { return r.theme }

// Line renders a smooth line chart. Axis labels come from the first series.
func (r *ChartRenderer) Line(key ChartKey, title string, series []ChartSeries) (string, error) {
	return r.cached("line", key, title, series, func() (string, error) {
		return r.renderLine(title, series, defaultChartHeight, true)
	})
}

// Sparkline renders a compact line chart without title or legend.
func (r *ChartRenderer) Sparkline(key ChartKey, series ChartSeries) (string, error) {
	list := []ChartSeries{series}
	return r.cached("sparkline", key, "", list, func() (string, error) {
		return r.renderLine("", list, defaultSparklineHeight, false)
	})
}

func (r *ChartRenderer) cached(kind string, key ChartKey, title string, series []ChartSeries, render func() (string, error)) (string, error) {
	if len(series) == 0 {
		return "", fmt.Errorf("dashboard: chart series is required")
	}
	if r.cache == nil {
		return render()
	}
	key.Kind = kind + ":" + r.theme
	return r.cache.GetOrRender(key, seriesDigest(title, series), render)
}

func (r *ChartRenderer) renderLine(title string, series []ChartSeries, height string, decorated bool) (string, error) {
	line := charts.NewLine()
	line.SetGlobalOptions(r.globalChartOptions(title, height, decorated)...)
	line.SetXAxis(axisLabels(series))
	for _, s := range series {
		line.AddSeries(s.Name, toLineData(s.Points))
	}
	line.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
	return renderChart(line)
}

func (r *ChartRenderer) globalChartOptions(title, height string, decorated bool) []charts.GlobalOpts {
	initOpts := opts.Initialization{
		Theme:  r.theme,
		Width:  "100%",
		Height: height,
	}
	if r.assetsHost != "" {
		initOpts.AssetsHost = r.assetsHost
	}
	return []charts.GlobalOpts{
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithInitializationOpts(initOpts),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(decorated)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	}
}

func renderChart(renderable interface{ Render(io.Writer) error }) (string, error) {
	var buf bytes.Buffer
	if err := renderable.Render(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func toLineData(points []ChartPoint) []opts.LineData {
	data := make([]opts.LineData, len(points))
	for i, point := range points {
		data[i] = opts.LineData{
			Name:  point.Label,
			Value: point.Value,
		}
	}
	return data
}

func axisLabels(series []ChartSeries) []string {
	if len(series) == 0 {
		return nil
	}
	labels := make([]string, len(series[0].Points))
	for i, point := range series[0].Points {
		labels[i] = point.Label
	}
	return labels
}

func ensureTrailingSlash(value string) string {
	if value == "" || strings.HasSuffix(value, "/") {
		return value
	}
	return value + "/"
}
