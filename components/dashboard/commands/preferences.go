package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-property-dashboard/components/dashboard"
)

// UpdatePreferencesInput carries a partial preferences update. A nil slice
// leaves that field untouched.
type UpdatePreferencesInput struct {
	Viewer         dashboard.ViewerContext `json:"viewer"`
	WidgetOrder    []string                `json:"widget_order"`
	HiddenSections []string                `json:"hidden_sections"`
	ActorID        string                  `json:"actor_id"`
	OrgID          string                  `json:"org_id"`
}

type preferenceService interface {
	UpdatePreferences(ctx context.Context, viewer dashboard.ViewerContext, patch dashboard.PreferencesPatch) (dashboard.Preferences, error)
}

// UpdatePreferencesCommand merges a preferences patch for a viewer.
type UpdatePreferencesCommand struct {
	service   preferenceService
	telemetry Telemetry
}

// NewUpdatePreferencesCommand creates the command.
func NewUpdatePreferencesCommand(service preferenceService, telemetry Telemetry) *UpdatePreferencesCommand {
	return &UpdatePreferencesCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[UpdatePreferencesInput] = (*UpdatePreferencesCommand)(nil)

// Execute applies the patch.
func (c *UpdatePreferencesCommand) Execute(ctx context.Context, msg UpdatePreferencesInput) error {
	if c.service == nil {
		return errors.New("preferences command requires service")
	}
	if msg.Viewer.UserID == "" {
		return errors.New("preferences command requires viewer user id")
	}
	ctx = withActivity(ctx, msg.Viewer, msg.ActorID, msg.OrgID)
	prefs, err := c.service.UpdatePreferences(ctx, msg.Viewer, dashboard.PreferencesPatch{
		WidgetOrder:    msg.WidgetOrder,
		HiddenSections: msg.HiddenSections,
	})
	if err != nil {
		return err
	}
	recordViewerEvent(ctx, c.telemetry, "dashboard.preferences.save", msg.Viewer, map[string]any{
		"order_cnt":  len(prefs.WidgetOrder),
		"hidden_cnt": len(prefs.HiddenSections),
	})
	return nil
}

// withActivity records who acted on the viewer's dashboard. Empty command
// fields keep what the auth layer stored on ctx.
func withActivity(ctx context.Context, viewer dashboard.ViewerContext, actorID, orgID string) context.Context {
	if actorID == "" && orgID == "" {
		return ctx
	}
	return dashboard.ContextWithActivity(ctx, dashboard.ActivityContext{
		ActorID: actorID,
		UserID:  viewer.UserID,
		OrgID:   orgID,
	})
}
