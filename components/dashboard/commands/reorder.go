package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-property-dashboard/components/dashboard"
)

// ReorderSectionsInput drops Dragged onto Target's slot.
type ReorderSectionsInput struct {
	Viewer  dashboard.ViewerContext `json:"viewer"`
	Dragged string                  `json:"dragged"`
	Target  string                  `json:"target"`
	ActorID string                  `json:"actor_id"`
	OrgID   string                  `json:"org_id"`
}

type reorderService interface {
	Reorder(ctx context.Context, viewer dashboard.ViewerContext, dragged, target string) (dashboard.DropResult, error)
}

// ReorderSectionsCommand wraps Service.Reorder.
type ReorderSectionsCommand struct {
	service   reorderService
	telemetry Telemetry
}

// NewReorderSectionsCommand builds the command.
func NewReorderSectionsCommand(service reorderService, telemetry Telemetry) *ReorderSectionsCommand {
	return &ReorderSectionsCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[ReorderSectionsInput] = (*ReorderSectionsCommand)(nil)

// Execute applies the move.
func (c *ReorderSectionsCommand) Execute(ctx context.Context, msg ReorderSectionsInput) error {
	if c.service == nil {
		return errors.New("reorder command requires service")
	}
	if msg.Dragged == "" || msg.Target == "" {
		return errors.New("reorder command requires dragged and target section ids")
	}
	ctx = withActivity(ctx, msg.Viewer, msg.ActorID, msg.OrgID)
	res, err := c.service.Reorder(ctx, msg.Viewer, msg.Dragged, msg.Target)
	if err != nil {
		return err
	}
	recordViewerEvent(ctx, c.telemetry, "dashboard.section.reorder.command", msg.Viewer, map[string]any{
		"dragged": msg.Dragged,
		"target":  msg.Target,
		"changed": res.Changed,
	})
	return nil
}
