// Package gorouter mounts the dashboard on a go-router router.
package gorouter

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	gocommand "github.com/goliatone/go-command"
	router "github.com/goliatone/go-router"

	"github.com/goliatone/go-property-dashboard/components/dashboard"
	"github.com/goliatone/go-property-dashboard/components/dashboard/commands"
	"github.com/goliatone/go-property-dashboard/components/dashboard/httpapi"
	"github.com/goliatone/go-property-dashboard/components/dashboard/queries"
	"github.com/goliatone/go-property-dashboard/pkg/auth"
)

// ViewerResolver converts a router.Context into a dashboard.ViewerContext.
type ViewerResolver func(router.Context) dashboard.ViewerContext

// Config wires go-router with the dashboard controller, commands and hooks.
type Config[T any] struct {
	Router         router.Router[T]
	Controller     *dashboard.Controller
	Metrics        gocommand.Querier[queries.MetricsInput, dashboard.MetricsReport]
	Preferences    gocommand.Commander[commands.UpdatePreferencesInput]
	Reorder        gocommand.Commander[commands.ReorderSectionsInput]
	Toggle         gocommand.Commander[commands.ToggleSectionInput]
	Refresh        gocommand.Commander[commands.RefreshDashboardInput]
	Broadcast      *dashboard.BroadcastHook
	ViewerResolver ViewerResolver
	BasePath       string
	Routes         RouteConfig
	Now            func() time.Time
}

// RouteConfig customizes the relative paths used for dashboard endpoints.
type RouteConfig struct {
	HTML        string
	Layout      string
	Metrics     string
	Export      string
	Preferences string
	Reorder     string
	Visibility  string
	Refresh     string
	WebSocket   string
}

// Register mounts dashboard routes (HTML, JSON, REST, WebSocket) on a go-router router.
func Register[T any](cfg Config[T]) error {
	if cfg.Router == nil {
		return errors.New("gorouter: router is required")
	}
	if cfg.Controller == nil {
		return errors.New("gorouter: controller is required")
	}
	routes := defaultRouteConfig(cfg.Routes)
	base := cfg.BasePath
	if base == "" {
		base = "/admin"
	}
	resolver := cfg.ViewerResolver
	if resolver == nil {
		resolver = DefaultViewerResolver
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	group := cfg.Router.Group(base)

	group.Get(routes.HTML, router.WrapHandler(func(ctx router.Context) error {
		rng, err := rangeFromQuery(ctx, now())
		if err != nil {
			return respondError(ctx, http.StatusBadRequest, err)
		}
		var buf bytes.Buffer
		if err := cfg.Controller.RenderTemplate(ctx.Context(), resolver(ctx), dashboard.LayoutInput{Range: rng}, &buf); err != nil {
			return respondError(ctx, httpapi.StatusFor(err), err)
		}
		ctx.SetHeader("Content-Type", "text/html; charset=utf-8")
		return ctx.Send(buf.Bytes())
	}))

	group.Get(routes.Layout, router.WrapHandler(func(ctx router.Context) error {
		rng, err := rangeFromQuery(ctx, now())
		if err != nil {
			return respondError(ctx, http.StatusBadRequest, err)
		}
		payload, err := cfg.Controller.LayoutPayload(ctx.Context(), resolver(ctx), dashboard.LayoutInput{Range: rng})
		if err != nil {
			return respondError(ctx, httpapi.StatusFor(err), err)
		}
		return ctx.JSON(http.StatusOK, payload)
	}))

	if cfg.Metrics != nil {
		registerMetrics(group, cfg.Metrics, resolver, routes, now)
	}
	registerPreferences(group, cfg, resolver, routes, now)

	if cfg.Broadcast != nil {
		registerWebSocket(group, cfg.Broadcast, resolver, routes.WebSocket)
	}
	return nil
}

func registerMetrics[T any](r router.Router[T], query gocommand.Querier[queries.MetricsInput, dashboard.MetricsReport], resolver ViewerResolver, routes RouteConfig, now func() time.Time) {
	fetch := func(ctx router.Context) (dashboard.MetricsReport, int, error) {
		rng, err := rangeFromQuery(ctx, now())
		if err != nil {
			return dashboard.MetricsReport{}, http.StatusBadRequest, err
		}
		report, err := query.Query(ctx.Context(), queries.MetricsInput{Viewer: resolver(ctx), Range: rng})
		if err != nil {
			return dashboard.MetricsReport{}, httpapi.StatusFor(err), err
		}
		return report, http.StatusOK, nil
	}

	r.Get(routes.Metrics, router.WrapHandler(func(ctx router.Context) error {
		report, status, err := fetch(ctx)
		if err != nil {
			return respondError(ctx, status, err)
		}
		return ctx.JSON(http.StatusOK, report)
	}))

	r.Get(routes.Export, router.WrapHandler(func(ctx router.Context) error {
		report, status, err := fetch(ctx)
		if err != nil {
			return respondError(ctx, status, err)
		}
		data, err := dashboard.BuildMetricsXLSX(report)
		if err != nil {
			return respondError(ctx, http.StatusInternalServerError, err)
		}
		ctx.SetHeader("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		ctx.SetHeader("Content-Disposition", `attachment; filename="dashboard-metrics.xlsx"`)
		return ctx.Send(data)
	}))
}

func registerPreferences[T any](r router.Router[T], cfg Config[T], resolver ViewerResolver, routes RouteConfig, now func() time.Time) {
	if cfg.Preferences != nil {
		r.Patch(routes.Preferences, router.WrapHandler(func(ctx router.Context) error {
			var payload commands.UpdatePreferencesInput
			if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
				return respondError(ctx, http.StatusBadRequest, err)
			}
			payload.Viewer = resolver(ctx)
			if err := cfg.Preferences.Execute(ctx.Context(), payload); err != nil {
				return respondError(ctx, httpapi.StatusFor(err), err)
			}
			return ctx.JSON(http.StatusOK, map[string]string{"status": "saved"})
		}))
	}

	if cfg.Reorder != nil {
		r.Post(routes.Reorder, router.WrapHandler(func(ctx router.Context) error {
			var payload commands.ReorderSectionsInput
			if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
				return respondError(ctx, http.StatusBadRequest, err)
			}
			payload.Viewer = resolver(ctx)
			if err := cfg.Reorder.Execute(ctx.Context(), payload); err != nil {
				return respondError(ctx, httpapi.StatusFor(err), err)
			}
			return ctx.JSON(http.StatusOK, map[string]string{"status": "reordered"})
		}))
	}

	if cfg.Toggle != nil {
		r.Post(routes.Visibility, router.WrapHandler(func(ctx router.Context) error {
			var payload struct {
				Hidden bool `json:"hidden"`
			}
			if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
				return respondError(ctx, http.StatusBadRequest, err)
			}
			input := commands.ToggleSectionInput{
				Viewer:    resolver(ctx),
				SectionID: ctx.Param("id"),
				Hidden:    payload.Hidden,
			}
			if err := cfg.Toggle.Execute(ctx.Context(), input); err != nil {
				return respondError(ctx, httpapi.StatusFor(err), err)
			}
			return ctx.JSON(http.StatusOK, map[string]string{"status": "updated"})
		}))
	}

	if cfg.Refresh != nil {
		r.Post(routes.Refresh, router.WrapHandler(func(ctx router.Context) error {
			var payload struct {
				Reason string `json:"reason"`
			}
			if body := ctx.Body(); len(body) > 0 {
				if err := json.Unmarshal(body, &payload); err != nil {
					return respondError(ctx, http.StatusBadRequest, err)
				}
			}
			input := commands.RefreshDashboardInput{Event: dashboard.DashboardEvent{
				UserID:     resolver(ctx).UserID,
				Reason:     payload.Reason,
				OccurredAt: now(),
			}}
			if err := cfg.Refresh.Execute(ctx.Context(), input); err != nil {
				return respondError(ctx, http.StatusBadRequest, err)
			}
			return ctx.JSON(http.StatusAccepted, map[string]string{"status": "queued"})
		}))
	}
}

// registerWebSocket streams the connected viewer's events. Anonymous
// connections are closed before subscribing.
func registerWebSocket[T any](r router.Router[T], hook *dashboard.BroadcastHook, resolver ViewerResolver, path string) {
	cfg := router.DefaultWebSocketConfig()
	r.WebSocket(path, cfg, func(ws router.WebSocketContext) error {
		viewer := resolver(ws)
		if viewer.UserID == "" {
			return ws.Close()
		}
		events, cancel := hook.SubscribeUser(viewer.UserID)
		defer cancel()
		for {
			select {
			case event, ok := <-events:
				if !ok {
					return ws.Close()
				}
				if err := ws.WriteJSON(event); err != nil {
					return err
				}
			case <-ws.Context().Done():
				return ws.Close()
			}
		}
	})
}

// DefaultViewerResolver reads the viewer from validated claims on the request
// context, falling back to the user_id local set by development middleware.
func DefaultViewerResolver(ctx router.Context) dashboard.ViewerContext {
	var viewer dashboard.ViewerContext
	if claims, ok := auth.ClaimsFromContext(ctx.Context()); ok {
		viewer = claims.Viewer()
	} else {
		if v, ok := ctx.Locals("user_id").(string); ok {
			viewer.UserID = v
		}
		if roles, ok := ctx.Locals("roles").([]string); ok {
			viewer.Roles = roles
		}
	}
	if viewer.Locale == "" {
		viewer.Locale = inferLocale(ctx)
	}
	return viewer
}

func inferLocale(ctx router.Context) string {
	if locale, ok := ctx.Locals("locale").(string); ok && locale != "" {
		return locale
	}
	if locale := strings.TrimSpace(ctx.Query("locale")); locale != "" {
		return strings.ToLower(locale)
	}
	if header := ctx.Header("Accept-Language"); header != "" {
		return parseAcceptLanguage(header)
	}
	return ""
}

func parseAcceptLanguage(header string) string {
	for _, token := range strings.Split(header, ",") {
		token = strings.TrimSpace(token)
		if idx := strings.Index(token, ";"); idx >= 0 {
			token = token[:idx]
		}
		if token != "" {
			return strings.ToLower(token)
		}
	}
	return ""
}

func rangeFromQuery(ctx router.Context, now time.Time) (dashboard.DateRange, error) {
	return dashboard.ParseDateRange(ctx.Query("range"), ctx.Query("start"), ctx.Query("end"), now)
}

func respondError(ctx router.Context, status int, err error) error {
	return ctx.JSON(status, map[string]string{"error": err.Error()})
}

func defaultRouteConfig(routes RouteConfig) RouteConfig {
	if routes.HTML == "" {
		routes.HTML = "/dashboard"
	}
	if routes.Layout == "" {
		routes.Layout = "/dashboard/_layout"
	}
	if routes.Metrics == "" {
		routes.Metrics = "/dashboard/metrics"
	}
	if routes.Export == "" {
		routes.Export = "/dashboard/metrics.xlsx"
	}
	if routes.Preferences == "" {
		routes.Preferences = "/dashboard/preferences"
	}
	if routes.Reorder == "" {
		routes.Reorder = "/dashboard/sections/reorder"
	}
	if routes.Visibility == "" {
		routes.Visibility = "/dashboard/sections/:id/visibility"
	}
	if routes.Refresh == "" {
		routes.Refresh = "/dashboard/refresh"
	}
	if routes.WebSocket == "" {
		routes.WebSocket = "/dashboard/ws"
	}
	return routes
}
