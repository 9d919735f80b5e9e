// Package telemetry provides dashboard.Telemetry sinks backed by zap and
// Prometheus.
package telemetry

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	dashboard "github.com/goliatone/go-property-dashboard/components/dashboard"
)

// Multi fans events out to every non-nil sink.
func Multi(sinks ...dashboard.Telemetry) dashboard.Telemetry {
	out := make(multi, 0, len(sinks))
	for _, sink := range sinks {
		if sink != nil {
			out = append(out, sink)
		}
	}
	return out
}

type multi []dashboard.Telemetry

func (m multi) Record(ctx context.Context, event string, payload map[string]any) {
	for _, sink := range m {
		sink.Record(ctx, event, payload)
	}
}

// Logger writes each event as a structured log line. Failure events log at
// warn level.
type Logger struct {
	log *zap.Logger
}

// NewLogger wraps log; nil uses a no-op logger.
func NewLogger(log *zap.Logger) *Logger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Logger{log: log}
}

// Record implements dashboard.Telemetry.
func (l *Logger) Record(_ context.Context, event string, payload map[string]any) {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fields := make([]zap.Field, 0, len(keys)+1)
	fields = append(fields, zap.String("event", event))
	for _, k := range keys {
		fields = append(fields, zap.Any(k, payload[k]))
	}
	if isFailure(event) {
		l.log.Warn("dashboard telemetry", fields...)
		return
	}
	l.log.Info("dashboard telemetry", fields...)
}

func isFailure(event string) bool {
	return strings.HasSuffix(event, "_failed") || strings.HasSuffix(event, "error")
}
