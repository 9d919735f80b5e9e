package dashboard

import (
	"context"
	"errors"
	"io"
	"time"
)

const defaultDashboardTemplate = "dashboard.html"

// LayoutResolver is the slice of Service the controller needs.
type LayoutResolver interface {
	Layout(ctx context.Context, viewer ViewerContext, input LayoutInput) (Layout, error)
}

// ControllerOptions wires the controller.
type ControllerOptions struct {
	Service  LayoutResolver
	Renderer Renderer
	Template string
	Title    string
}

// Controller orchestrates HTML and JSON rendering of the dashboard.
type Controller struct {
	opts ControllerOptions
}

// NewController wires the service into a controller.
func NewController(opts ControllerOptions) *Controller {
	if opts.Template == "" {
		opts.Template = defaultDashboardTemplate
	}
	if opts.Title == "" {
		opts.Title = "Dashboard"
	}
	return &Controller{opts: opts}
}

// Layout resolves the layout for a viewer.
func (c *Controller) Layout(ctx context.Context, viewer ViewerContext, input LayoutInput) (Layout, error) {
	if c.opts.Service == nil {
		return Layout{}, errors.New("dashboard: controller has no service")
	}
	return c.opts.Service.Layout(ctx, viewer, input)
}

// LayoutPayload resolves the layout and shapes it for templates and JSON
// clients.
func (c *Controller) LayoutPayload(ctx context.Context, viewer ViewerContext, input LayoutInput) (map[string]any, error) {
	layout, err := c.Layout(ctx, viewer, input)
	if err != nil {
		return nil, err
	}
	sections := make([]map[string]any, 0, len(layout.Sections))
	for _, section := range layout.Sections {
		sections = append(sections, map[string]any{
			"id":          section.ID,
			"title":       section.Title,
			"description": section.Description,
			"data":        section.Data,
			"error":       section.Error,
		})
	}
	return map[string]any{
		"title":       c.opts.Title,
		"session_id":  layout.SessionID,
		"preferences": layout.Preferences,
		"range": map[string]any{
			"start": layout.Range.Start.Format(time.DateOnly),
			"end":   layout.Range.End.Format(time.DateOnly),
		},
		"sections": sections,
	}, nil
}

// RenderTemplate renders the dashboard HTML into out.
func (c *Controller) RenderTemplate(ctx context.Context, viewer ViewerContext, input LayoutInput, out io.Writer) error {
	if c.opts.Renderer == nil {
		return errors.New("dashboard: controller has no renderer")
	}
	payload, err := c.LayoutPayload(ctx, viewer, input)
	if err != nil {
		return err
	}
	_, err = c.opts.Renderer.Render(c.opts.Template, payload, out)
	return err
}
