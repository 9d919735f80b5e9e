// Package config loads the propdash runtime configuration from YAML with
// PROPDASH_* environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-property-dashboard/pkg/activity"
)

// Store drivers.
const (
	StoreMemory    = "memory"
	StorePostgres  = "postgres"
	StoreFirestore = "firestore"
)

// Source drivers.
const (
	SourceStatic = "static"
	SourceHTTP   = "http"
)

type Config struct {
	Server   ServerConfig    `yaml:"server"`
	Store    StoreConfig     `yaml:"store"`
	Source   SourceConfig    `yaml:"source"`
	Auth     AuthConfig      `yaml:"auth"`
	Activity activity.Config `yaml:"activity"`
	Logging  LoggingConfig   `yaml:"logging"`
	Metrics  MetricsConfig   `yaml:"metrics"`
	Charts   ChartsConfig    `yaml:"charts"`
	// Manifest optionally points at a section manifest loaded at startup.
	Manifest string `yaml:"manifest"`
}

type ServerConfig struct {
	Addr     string `yaml:"addr"`
	BasePath string `yaml:"base_path"`
	Title    string `yaml:"title"`
	// TemplatesDir holds files that replace embedded templates of the same name.
	TemplatesDir string `yaml:"templates_dir"`
	// SessionIdleTimeout evicts unused viewer sessions, e.g. "30m".
	SessionIdleTimeout string `yaml:"session_idle_timeout"`
}

type StoreConfig struct {
	Driver     string `yaml:"driver"`
	DSN        string `yaml:"dsn"`
	ProjectID  string `yaml:"project_id"`
	Collection string `yaml:"collection"`
	Migrate    bool   `yaml:"migrate"`
}

type SourceConfig struct {
	Driver        string `yaml:"driver"`
	BaseURL       string `yaml:"base_url"`
	APIKey        string `yaml:"api_key"`
	Fixture       string `yaml:"fixture"`
	ForwardViewer bool   `yaml:"forward_viewer"`
	Timeout       string `yaml:"timeout"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	// DevHeader trusts X-User-ID when no secret is configured.
	DevHeader bool `yaml:"dev_header"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type ChartsConfig struct {
	Theme      string `yaml:"theme"`
	AssetsHost string `yaml:"assets_host"`
	// CacheTTL is a Go duration; empty keeps the shared default cache.
	CacheTTL string `yaml:"cache_ttl"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:     ":8080",
			BasePath: "/admin",
			Title:    "Dashboard",
		},
		Store:  StoreConfig{Driver: StoreMemory},
		Source: SourceConfig{Driver: SourceStatic, Timeout: "10s"},
		Activity: activity.Config{
			Enabled: true,
			Channel: activity.DefaultChannel,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Metrics: MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

// Load reads path over the defaults. A missing file yields the defaults;
// environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		default:
			decoder := yaml.NewDecoder(bytes.NewReader(data))
			decoder.KnownFields(true)
			if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}
	cfg.applyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup("PROPDASH_" + key); ok {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup("PROPDASH_" + key); ok {
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "1", "true", "yes", "on":
				*dst = true
			case "0", "false", "no", "off":
				*dst = false
			}
		}
	}
	str("ADDR", &c.Server.Addr)
	str("BASE_PATH", &c.Server.BasePath)
	str("TEMPLATES_DIR", &c.Server.TemplatesDir)
	str("SESSION_IDLE_TIMEOUT", &c.Server.SessionIdleTimeout)
	str("STORE_DRIVER", &c.Store.Driver)
	str("STORE_DSN", &c.Store.DSN)
	str("STORE_PROJECT_ID", &c.Store.ProjectID)
	str("STORE_COLLECTION", &c.Store.Collection)
	boolean("STORE_MIGRATE", &c.Store.Migrate)
	str("SOURCE_DRIVER", &c.Source.Driver)
	str("SOURCE_BASE_URL", &c.Source.BaseURL)
	str("SOURCE_API_KEY", &c.Source.APIKey)
	str("SOURCE_FIXTURE", &c.Source.Fixture)
	str("JWT_SECRET", &c.Auth.JWTSecret)
	boolean("DEV_HEADER", &c.Auth.DevHeader)
	boolean("ACTIVITY_ENABLED", &c.Activity.Enabled)
	str("LOG_LEVEL", &c.Logging.Level)
	str("LOG_FORMAT", &c.Logging.Format)
	boolean("METRICS_ENABLED", &c.Metrics.Enabled)
	str("MANIFEST", &c.Manifest)
	str("CHART_THEME", &c.Charts.Theme)
	str("CHART_CACHE_TTL", &c.Charts.CacheTTL)
}

// Validate checks driver names and their required settings.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreMemory:
	case StorePostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("config: store.dsn is required for the postgres driver")
		}
	case StoreFirestore:
		if c.Store.ProjectID == "" {
			return fmt.Errorf("config: store.project_id is required for the firestore driver")
		}
	default:
		return fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	switch c.Source.Driver {
	case SourceStatic:
	case SourceHTTP:
		if c.Source.BaseURL == "" {
			return fmt.Errorf("config: source.base_url is required for the http driver")
		}
	default:
		return fmt.Errorf("config: unknown source driver %q", c.Source.Driver)
	}
	if c.Server.SessionIdleTimeout != "" {
		if _, err := time.ParseDuration(c.Server.SessionIdleTimeout); err != nil {
			return fmt.Errorf("config: server.session_idle_timeout: %w", err)
		}
	}
	if c.Charts.CacheTTL != "" {
		if _, err := time.ParseDuration(c.Charts.CacheTTL); err != nil {
			return fmt.Errorf("config: charts.cache_ttl: %w", err)
		}
	}
	if c.Auth.JWTSecret == "" && !c.Auth.DevHeader {
		return fmt.Errorf("config: auth.jwt_secret is required unless auth.dev_header is enabled")
	}
	return nil
}
