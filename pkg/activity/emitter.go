package activity

import (
	"context"
	"strings"
)

// Config toggles emission and sets the default channel.
type Config struct {
	Enabled bool   `yaml:"enabled"`
	Channel string `yaml:"channel"`
}

// Emitter stamps the configured channel on events and forwards them to hooks.
type Emitter struct {
	hooks   Hooks
	channel string
	enabled bool
}

// NewEmitter builds an emitter. It is disabled when cfg.Enabled is false or
// no hooks are provided.
func NewEmitter(hooks Hooks, cfg Config) *Emitter {
	channel := strings.TrimSpace(cfg.Channel)
	if channel == "" {
		channel = DefaultChannel
	}
	return &Emitter{
		hooks:   hooks,
		channel: channel,
		enabled: cfg.Enabled && len(hooks) > 0,
	}
}

// Enabled reports whether Emit delivers events.
func (e *Emitter) Enabled() bool {
	return e != nil && e.enabled
}

// Emit delivers evt to the hooks, defaulting its channel.
func (e *Emitter) Emit(ctx context.Context, evt Event) error {
	if !e.Enabled() {
		return nil
	}
	if strings.TrimSpace(evt.Channel) == "" {
		evt.Channel = e.channel
	}
	return e.hooks.Notify(ctx, evt)
}
