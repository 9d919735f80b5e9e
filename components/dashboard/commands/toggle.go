package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-property-dashboard/components/dashboard"
)

// ToggleSectionInput hides or shows a section.
type ToggleSectionInput struct {
	Viewer    dashboard.ViewerContext `json:"viewer"`
	SectionID string                  `json:"section_id"`
	Hidden    bool                    `json:"hidden"`
	ActorID   string                  `json:"actor_id"`
	OrgID     string                  `json:"org_id"`
}

type visibilityService interface {
	SetHidden(ctx context.Context, viewer dashboard.ViewerContext, sectionID string, hidden bool) (dashboard.Preferences, error)
}

// ToggleSectionCommand wraps Service.SetHidden.
type ToggleSectionCommand struct {
	service   visibilityService
	telemetry Telemetry
}

// NewToggleSectionCommand builds the command.
func NewToggleSectionCommand(service visibilityService, telemetry Telemetry) *ToggleSectionCommand {
	return &ToggleSectionCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[ToggleSectionInput] = (*ToggleSectionCommand)(nil)

// Execute updates the section visibility.
func (c *ToggleSectionCommand) Execute(ctx context.Context, msg ToggleSectionInput) error {
	if c.service == nil {
		return errors.New("toggle command requires service")
	}
	if msg.SectionID == "" {
		return errors.New("toggle command requires section id")
	}
	ctx = withActivity(ctx, msg.Viewer, msg.ActorID, msg.OrgID)
	if _, err := c.service.SetHidden(ctx, msg.Viewer, msg.SectionID, msg.Hidden); err != nil {
		return err
	}
	recordViewerEvent(ctx, c.telemetry, "dashboard.section.toggle", msg.Viewer, map[string]any{
		"section": msg.SectionID,
		"hidden":  msg.Hidden,
	})
	return nil
}
