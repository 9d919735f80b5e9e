package dashboard

import (
	"context"
	"time"
)

// Built-in section identifiers.
const (
	SectionMetrics  = "metrics"
	SectionPriority = "priority"
	SectionRevenue  = "revenue"
	SectionActivity = "activity"
)

var defaultWidgetOrder = []string{
	SectionMetrics,
	SectionPriority,
	SectionRevenue,
	SectionActivity,
}

// DefaultWidgetOrder returns a copy of the built-in section order.
func DefaultWidgetOrder() []string {
	return append([]string(nil), defaultWidgetOrder...)
}

// PreferenceStore persists per-viewer dashboard preferences.
// Load fails soft: callers treat an error the same as an absent record.
// Update merges only the non-nil fields of the patch and returns the merged record.
type PreferenceStore interface {
	Load(ctx context.Context, viewer ViewerContext) (Preferences, error)
	Update(ctx context.Context, viewer ViewerContext, patch PreferencesPatch) (Preferences, error)
}

// SnapshotSource fetches the entity collections the dashboard derives metrics from.
type SnapshotSource interface {
	Snapshot(ctx context.Context, viewer ViewerContext) (Snapshot, error)
}

// RefreshHook notifies transports (SSE/WebSocket/notifications) about dashboard changes.
type RefreshHook interface {
	DashboardUpdated(ctx context.Context, event DashboardEvent) error
}

// ViewerContext captures the active user/locale information needed to render dashboards.
type ViewerContext struct {
	UserID string   `json:"user_id"`
	Roles  []string `json:"roles,omitempty"`
	Locale string   `json:"locale,omitempty"`
}

// Preferences is the persisted per-user layout record.
type Preferences struct {
	WidgetOrder    []string `json:"widget_order"`
	HiddenSections []string `json:"hidden_sections"`
}

// PreferencesPatch is a partial update. A nil slice leaves the stored field
// untouched; an empty non-nil slice clears it.
type PreferencesPatch struct {
	WidgetOrder    []string `json:"widget_order"`
	HiddenSections []string `json:"hidden_sections"`
}

// IsZero reports whether the patch carries no fields.
func (p PreferencesPatch) IsZero() bool {
	return p.WidgetOrder == nil && p.HiddenSections == nil
}

// IsHidden reports whether the section is in the hidden set.
func (p Preferences) IsHidden(id string) bool {
	for _, hidden := range p.HiddenSections {
		if hidden == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (p Preferences) Clone() Preferences {
	return Preferences{
		WidgetOrder:    cloneIDs(p.WidgetOrder),
		HiddenSections: cloneIDs(p.HiddenSections),
	}
}

// Merge applies a patch on top of the receiver.
func (p Preferences) Merge(patch PreferencesPatch) Preferences {
	out := p.Clone()
	if patch.WidgetOrder != nil {
		out.WidgetOrder = uniqueIDs(patch.WidgetOrder)
	}
	if patch.HiddenSections != nil {
		out.HiddenSections = uniqueIDs(patch.HiddenSections)
	}
	return out
}

// SectionDefinition describes an orderable, hideable dashboard region.
type SectionDefinition struct {
	ID            string `json:"id" yaml:"id"`
	Title         string `json:"title" yaml:"title"`
	Description   string `json:"description,omitempty" yaml:"description,omitempty"`
	DefaultHidden bool   `json:"default_hidden,omitempty" yaml:"default_hidden,omitempty"`
	Position      int    `json:"position,omitempty" yaml:"position,omitempty"`
}

// RenderedSection is a visible section with its provider payload attached.
type RenderedSection struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Data        SectionData `json:"data,omitempty"`
	Error       string      `json:"error,omitempty"`
}

// Layout is the resolved dashboard for a viewer.
type Layout struct {
	SessionID   string            `json:"session_id,omitempty"`
	Preferences Preferences       `json:"preferences"`
	Range       DateRange         `json:"range"`
	Sections    []RenderedSection `json:"sections"`
}

// DashboardEvent describes changes that transports might care about.
type DashboardEvent struct {
	UserID       string        `json:"user_id"`
	Reason       string        `json:"reason"`
	Preferences  Preferences   `json:"preferences"`
	Notification *Notification `json:"notification,omitempty"`
	OccurredAt   time.Time     `json:"occurred_at"`
}

// Notification is a user-visible, non-blocking message.
type Notification struct {
	Level   string `json:"level"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

func cloneIDs(ids []string) []string {
	if ids == nil {
		return nil
	}
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

func uniqueIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
