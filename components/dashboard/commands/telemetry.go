package commands

import (
	"context"

	dashboard "github.com/goliatone/go-property-dashboard/components/dashboard"
)

// Telemetry allows commands to emit structured events.
type Telemetry interface {
	Record(ctx context.Context, event string, payload map[string]any)
}

type noopTelemetry struct{}

func (noopTelemetry) Record(context.Context, string, map[string]any) {}

func normalizeTelemetry(t Telemetry) Telemetry {
	if t == nil {
		return noopTelemetry{}
	}
	return t
}

// recordViewerEvent stamps the viewer's id and, when known, locale onto a
// command event so dashboards can be sliced per landlord.
func recordViewerEvent(ctx context.Context, t Telemetry, event string, viewer dashboard.ViewerContext, fields map[string]any) {
	payload := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		payload[k] = v
	}
	payload["user_id"] = viewer.UserID
	if viewer.Locale != "" {
		payload["locale"] = viewer.Locale
	}
	t.Record(ctx, event, payload)
}
