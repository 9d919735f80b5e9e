package telemetry

import (
	"context"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricPrefix = "propdash_"

// Metrics counts telemetry events and observes preference commit latency.
type Metrics struct {
	events   *prometheus.CounterVec
	commits  *prometheus.HistogramVec
	gatherer prometheus.Gatherer
}

// NewMetrics registers the collectors on reg. A nil reg uses a fresh registry.
func NewMetrics(reg *prometheus.Registry) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "events_total",
				Help: "Dashboard telemetry events by name",
			},
			[]string{"event"},
		),
		commits: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "preference_commit_seconds",
				Help:    "Preference store commit latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"reason"},
		),
		gatherer: reg,
	}
	for _, c := range []prometheus.Collector{m.events, m.commits} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Record implements dashboard.Telemetry.
func (m *Metrics) Record(_ context.Context, event string, payload map[string]any) {
	m.events.WithLabelValues(event).Inc()
	ms, ok := payload["duration_ms"].(float64)
	if !ok {
		return
	}
	m.commits.WithLabelValues(strings.TrimPrefix(event, "dashboard.")).Observe(ms / 1000)
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
