// Package fiberroutes holds the Fiber-native parts of the dashboard surface:
// authentication middleware and the Server-Sent Events stream, which needs
// Fiber's body stream writer. The JSON and HTML routes are mounted through
// the gorouter package.
package fiberroutes

import (
	"bufio"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/goliatone/go-property-dashboard/components/dashboard"
)

// ViewerResolver converts a fiber.Ctx into a dashboard.ViewerContext.
type ViewerResolver func(*fiber.Ctx) dashboard.ViewerContext

// EventsConfig mounts the viewer's refresh event stream.
type EventsConfig struct {
	Router         fiber.Router
	Broadcast      *dashboard.BroadcastHook
	ViewerResolver ViewerResolver
	BasePath       string
	// Path is relative to BasePath; defaults to /dashboard/events.
	Path string
	// Heartbeat is the idle interval between keep-alive comments.
	Heartbeat time.Duration
}

// RegisterEvents mounts the SSE endpoint.
func RegisterEvents(cfg EventsConfig) error {
	if cfg.Router == nil {
		return errors.New("fiberroutes: router is required")
	}
	if cfg.Broadcast == nil {
		return errors.New("fiberroutes: broadcast hook is required")
	}
	base := cfg.BasePath
	if base == "" {
		base = "/admin"
	}
	path := cfg.Path
	if path == "" {
		path = "/dashboard/events"
	}
	resolver := cfg.ViewerResolver
	if resolver == nil {
		resolver = defaultViewerResolver
	}
	cfg.Router.Group(base).Get(path, streamEvents(cfg.Broadcast, resolver, cfg.Heartbeat))
	return nil
}

// streamEvents serves the viewer's refresh events as Server-Sent Events. The
// stream ends when the client goes away, which the heartbeat detects on idle
// connections, or when the hook is closed at shutdown.
func streamEvents(hook *dashboard.BroadcastHook, resolver ViewerResolver, heartbeat time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		viewer := resolver(c)
		if viewer.UserID == "" {
			return respondError(c, http.StatusUnauthorized, errors.New("viewer is required"))
		}
		c.Set(fiber.HeaderContentType, "text/event-stream")
		c.Set(fiber.HeaderCacheControl, "no-cache")
		c.Set(fiber.HeaderConnection, "keep-alive")
		events, cancel := hook.SubscribeUser(viewer.UserID)
		c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
			defer cancel()
			_ = dashboard.PumpSSE(w, w.Flush, events, heartbeat, nil)
		})
		return nil
	}
}

func defaultViewerResolver(c *fiber.Ctx) dashboard.ViewerContext {
	var viewer dashboard.ViewerContext
	if v, ok := c.Locals(localUserID).(string); ok {
		viewer.UserID = v
	}
	if roles, ok := c.Locals(localRoles).([]string); ok {
		viewer.Roles = roles
	}
	viewer.Locale = inferLocale(c)
	return viewer
}

func inferLocale(c *fiber.Ctx) string {
	if locale, ok := c.Locals(localLocale).(string); ok && locale != "" {
		return locale
	}
	if locale := strings.TrimSpace(c.Query("locale")); locale != "" {
		return strings.ToLower(locale)
	}
	if header := c.Get(fiber.HeaderAcceptLanguage); header != "" {
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

func respondError(c *fiber.Ctx, status int, err error) error {
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
