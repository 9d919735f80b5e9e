// Package app assembles the propdash server from a loaded configuration.
package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	gfirestore "cloud.google.com/go/firestore"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	router "github.com/goliatone/go-router"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/goliatone/go-property-dashboard/components/dashboard"
	"github.com/goliatone/go-property-dashboard/components/dashboard/commands"
	"github.com/goliatone/go-property-dashboard/components/dashboard/fiberroutes"
	"github.com/goliatone/go-property-dashboard/components/dashboard/gorouter"
	"github.com/goliatone/go-property-dashboard/components/dashboard/queries"
	"github.com/goliatone/go-property-dashboard/internal/config"
	"github.com/goliatone/go-property-dashboard/pkg/activity"
	"github.com/goliatone/go-property-dashboard/pkg/source"
	fsstore "github.com/goliatone/go-property-dashboard/pkg/store/firestore"
	pgstore "github.com/goliatone/go-property-dashboard/pkg/store/postgres"
	"github.com/goliatone/go-property-dashboard/pkg/telemetry"
)

// App is a fully wired dashboard server.
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Fiber     *fiber.App
	Service   *dashboard.Service
	Broadcast *dashboard.BroadcastHook
	Metrics   *telemetry.Metrics

	closers []func()
}

// NewLogger builds a zap logger from the logging config.
func NewLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if strings.EqualFold(cfg.Format, "console") {
		zcfg = zap.NewDevelopmentConfig()
	}
	if cfg.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("app: log level: %w", err)
		}
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}
	return zcfg.Build()
}

// Build wires stores, sources, telemetry and routes. Call Close when done.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}

	store, err := a.openStore(ctx, cfg.Store)
	if err != nil {
		a.Close()
		return nil, err
	}
	src, err := openSource(cfg.Source)
	if err != nil {
		a.Close()
		return nil, err
	}
	registry, charts, err := buildRegistry(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	sinks := []dashboard.Telemetry{telemetry.NewLogger(logger)}
	if cfg.Metrics.Enabled {
		metrics, err := telemetry.NewMetrics(nil)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("app: metrics: %w", err)
		}
		a.Metrics = metrics
		sinks = append(sinks, metrics)
	}
	tel := telemetry.Multi(sinks...)

	idle, err := parseDuration(cfg.Server.SessionIdleTimeout)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("app: session idle timeout: %w", err)
	}

	a.Broadcast = dashboard.NewBroadcastHook()
	a.Service = dashboard.NewService(dashboard.Options{
		PreferenceStore: store,
		Registry:        registry,
		Source:          src,
		RefreshHook: dashboard.RefreshHooks{
			charts,
			a.Broadcast,
			&dashboard.NotificationsHook{Client: logNotifier{log: logger}},
		},
		Telemetry:          tel,
		ActivityHooks:      activity.Hooks{activity.HookFunc(logActivity(logger))},
		ActivityConfig:     cfg.Activity,
		SessionIdleTimeout: idle,
	})

	renderer, err := dashboard.NewTemplateRenderer(cfg.Server.TemplatesDir)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("app: templates: %w", err)
	}
	controller := dashboard.NewController(dashboard.ControllerOptions{
		Service:  a.Service,
		Renderer: renderer,
		Title:    cfg.Server.Title,
	})

	server := router.NewFiberAdapter()
	a.Fiber = server.WrappedRouter()
	metricsPath := cfg.Metrics.Path
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	if a.Metrics != nil {
		a.Fiber.Get(metricsPath, adaptor.HTTPHandler(a.Metrics.Handler()))
	}
	a.Fiber.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	if cfg.Auth.JWTSecret != "" {
		a.Fiber.Use(fiberroutes.RequireJWT(fiberroutes.AuthConfig{
			Secret:         []byte(cfg.Auth.JWTSecret),
			ExemptPrefixes: []string{metricsPath, "/healthz"},
		}))
	} else {
		logger.Warn("jwt secret not configured; trusting X-User-ID header")
		a.Fiber.Use(fiberroutes.HeaderViewer())
	}

	// The SSE stream is mounted on Fiber directly; it needs the body stream
	// writer, which go-router does not expose.
	err = fiberroutes.RegisterEvents(fiberroutes.EventsConfig{
		Router:    a.Fiber,
		Broadcast: a.Broadcast,
		BasePath:  cfg.Server.BasePath,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	err = gorouter.Register(gorouter.Config[*fiber.App]{
		Router:      server.Router(),
		Controller:  controller,
		Metrics:     queries.NewMetricsQuery(a.Service),
		Preferences: commands.NewUpdatePreferencesCommand(a.Service, tel),
		Reorder:     commands.NewReorderSectionsCommand(a.Service, tel),
		Toggle:      commands.NewToggleSectionCommand(a.Service, tel),
		Refresh:     commands.NewRefreshDashboardCommand(a.Service, tel),
		Broadcast:   a.Broadcast,
		BasePath:    cfg.Server.BasePath,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Listen serves until the listener fails or Shutdown is called.
func (a *App) Listen() error {
	a.Logger.Info("dashboard listening",
		zap.String("addr", a.Config.Server.Addr),
		zap.String("base_path", a.Config.Server.BasePath),
	)
	return a.Fiber.Listen(a.Config.Server.Addr)
}

// Shutdown ends open event streams, stops the HTTP server and releases
// backing clients.
func (a *App) Shutdown(ctx context.Context) error {
	var err error
	if a.Broadcast != nil {
		a.Broadcast.Close()
	}
	if a.Fiber != nil {
		err = a.Fiber.ShutdownWithContext(ctx)
	}
	a.Close()
	return err
}

// Close releases store clients and pools.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) openStore(ctx context.Context, cfg config.StoreConfig) (dashboard.PreferenceStore, error) {
	switch cfg.Driver {
	case config.StorePostgres:
		store, pool, err := pgstore.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
		if cfg.Migrate {
			if err := store.Migrate(ctx); err != nil {
				return nil, err
			}
		}
		return store, nil
	case config.StoreFirestore:
		client, err := gfirestore.NewClient(ctx, cfg.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("app: firestore client: %w", err)
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		return fsstore.New(client, cfg.Collection), nil
	case config.StoreMemory, "":
		return dashboard.NewInMemoryPreferenceStore(), nil
	default:
		return nil, fmt.Errorf("app: unknown store driver %q", cfg.Driver)
	}
}

func openSource(cfg config.SourceConfig) (dashboard.SnapshotSource, error) {
	switch cfg.Driver {
	case config.SourceHTTP:
		timeout := 10 * time.Second
		if cfg.Timeout != "" {
			parsed, err := parseDuration(cfg.Timeout)
			if err != nil {
				return nil, fmt.Errorf("app: source timeout: %w", err)
			}
			timeout = parsed
		}
		return source.NewHTTPClient(source.HTTPConfig{
			BaseURL:       cfg.BaseURL,
			APIKey:        cfg.APIKey,
			HTTPClient:    &http.Client{Timeout: timeout},
			ForwardViewer: cfg.ForwardViewer,
		})
	case config.SourceStatic, "":
		return source.LoadFixture(cfg.Fixture)
	default:
		return nil, fmt.Errorf("app: unknown source driver %q", cfg.Driver)
	}
}

// buildRegistry registers the sections and a chart renderer whose cache is
// returned so data refreshes can drop the viewer's stale charts.
func buildRegistry(cfg *config.Config) (*dashboard.SectionRegistry, *dashboard.ChartCache, error) {
	registry := dashboard.NewSectionRegistry()
	if cfg.Manifest != "" {
		if _, err := registry.LoadManifestFile(cfg.Manifest); err != nil {
			return nil, nil, err
		}
	}
	ttl := defaultChartCacheTTL
	if cfg.Charts.CacheTTL != "" {
		parsed, err := parseDuration(cfg.Charts.CacheTTL)
		if err != nil {
			return nil, nil, fmt.Errorf("app: chart cache ttl: %w", err)
		}
		ttl = parsed
	}
	cache := dashboard.NewChartCache(ttl)
	opts := []dashboard.ChartRendererOption{dashboard.WithChartCache(cache)}
	if cfg.Charts.Theme != "" {
		opts = append(opts, dashboard.WithChartTheme(cfg.Charts.Theme))
	}
	if cfg.Charts.AssetsHost != "" {
		opts = append(opts, dashboard.WithChartAssetsHost(cfg.Charts.AssetsHost))
	}
	if err := registry.UseChartRenderer(dashboard.NewChartRenderer(opts...)); err != nil {
		return nil, nil, err
	}
	return registry, cache, nil
}

const defaultChartCacheTTL = 5 * time.Minute

// parseDuration treats an empty value as zero.
func parseDuration(value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	return time.ParseDuration(value)
}

// logNotifier surfaces user notifications in the server log. The browser
// receives them through the broadcast stream.
type logNotifier struct {
	log *zap.Logger
}

func (n logNotifier) Notify(_ context.Context, userID string, note dashboard.Notification) error {
	n.log.Info("dashboard notification",
		zap.String("user_id", userID),
		zap.String("level", note.Level),
		zap.String("title", note.Title),
		zap.String("message", note.Message),
	)
	return nil
}

func logActivity(log *zap.Logger) func(context.Context, activity.Event) error {
	return func(_ context.Context, evt activity.Event) error {
		log.Info("dashboard activity",
			zap.String("verb", evt.Verb),
			zap.String("actor_id", evt.ActorID),
			zap.String("user_id", evt.UserID),
			zap.String("object_type", evt.ObjectType),
			zap.String("object_id", evt.ObjectID),
			zap.String("channel", evt.Channel),
			zap.Any("metadata", evt.Metadata),
		)
		return nil
	}
}
