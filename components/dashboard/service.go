package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goliatone/go-property-dashboard/pkg/activity"
	"github.com/google/uuid"
)

const (
	reasonPreferencesUpdate = "preferences.update"
	reasonSectionReorder    = "section.reorder"
	reasonSectionHide       = "section.hide"
	reasonSectionShow       = "section.show"
	reasonUpdateFailed      = "update_failed"

	activityObjectType = "dashboard_preferences"
)

var (
	// ErrPreferencesUpdate wraps store failures on Update.
	ErrPreferencesUpdate = errors.New("dashboard: failed to update preferences")
	// ErrSnapshotUnavailable wraps snapshot source failures.
	ErrSnapshotUnavailable = errors.New("dashboard: snapshot unavailable")
)

// UpdateFailedNotification is shown to the viewer when a commit fails.
var UpdateFailedNotification = Notification{
	Level:   "error",
	Title:   "Error",
	Message: "Failed to update dashboard layout",
}

// Options configures the dashboard Service. Every collaborator is provided via
// interface so applications can swap implementations.
type Options struct {
	PreferenceStore PreferenceStore
	Registry        *SectionRegistry
	Source          SnapshotSource
	Validator       PreferencesValidator
	RefreshHook     RefreshHook
	Telemetry       Telemetry
	ActivityHooks   activity.Hooks
	ActivityConfig  activity.Config
	// SessionIdleTimeout evicts sessions unused for longer. Zero uses
	// DefaultSessionIdleTimeout; a negative value keeps sessions until
	// CloseSession.
	SessionIdleTimeout time.Duration
	Now                func() time.Time
}

// DefaultSessionIdleTimeout bounds how long an unused session is kept.
const DefaultSessionIdleTimeout = 30 * time.Minute

// Service owns viewer sessions and resolves dashboard layouts.
type Service struct {
	opts     Options
	activity *activity.Emitter

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewService builds a Service instance with safe defaults.
func NewService(opts Options) *Service {
	if opts.RefreshHook == nil {
		opts.RefreshHook = noopRefreshHook{}
	}
	if opts.Registry == nil {
		opts.Registry = NewSectionRegistry()
	}
	if opts.Validator == nil {
		opts.Validator = NewJSONSchemaValidator()
	}
	if opts.PreferenceStore == nil {
		opts.PreferenceStore = NewInMemoryPreferenceStore()
	}
	if opts.Source == nil {
		opts.Source = emptySource{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.SessionIdleTimeout == 0 {
		opts.SessionIdleTimeout = DefaultSessionIdleTimeout
	}
	opts.Telemetry = normalizeTelemetry(opts.Telemetry)
	return &Service{
		opts:     opts,
		activity: activity.NewEmitter(opts.ActivityHooks, opts.ActivityConfig),
		sessions: make(map[string]*Session),
	}
}

// Registry exposes the section registry.
func (s *Service) Registry() *SectionRegistry {
	return s.opts.Registry
}

// OpenSession loads the viewer's preferences and starts a fresh session,
// replacing any previous one. A load failure falls back to defaults.
func (s *Service) OpenSession(ctx context.Context, viewer ViewerContext) (*Session, error) {
	if viewer.UserID == "" {
		return nil, errMissingViewer
	}
	sess := newSession(uuid.NewString(), viewer, s.loadPreferences(ctx, viewer), s)
	now := s.opts.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	sess.lastUsed = now
	s.sessions[viewer.UserID] = sess
	return sess, nil
}

// Session returns the viewer's current session, opening one if needed.
// Concurrent first calls for one viewer share a single session.
func (s *Service) Session(ctx context.Context, viewer ViewerContext) (*Session, error) {
	if viewer.UserID == "" {
		return nil, errMissingViewer
	}
	if sess, ok := s.lookupSession(viewer.UserID); ok {
		return sess, nil
	}
	fresh := newSession(uuid.NewString(), viewer, s.loadPreferences(ctx, viewer), s)

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.opts.Now()
	if sess, ok := s.sessions[viewer.UserID]; ok {
		sess.lastUsed = now
		return sess, nil
	}
	fresh.lastUsed = now
	s.sessions[viewer.UserID] = fresh
	return fresh, nil
}

func (s *Service) lookupSession(userID string) (*Session, bool) {
	now := s.opts.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictIdleLocked(now)
	sess, ok := s.sessions[userID]
	if ok {
		sess.lastUsed = now
	}
	return sess, ok
}

func (s *Service) evictIdleLocked(now time.Time) {
	if s.opts.SessionIdleTimeout < 0 {
		return
	}
	for userID, sess := range s.sessions {
		if now.Sub(sess.lastUsed) > s.opts.SessionIdleTimeout {
			delete(s.sessions, userID)
		}
	}
}

// CloseSession drops the viewer's session.
func (s *Service) CloseSession(userID string) {
	s.mu.Lock()
	delete(s.sessions, userID)
	s.mu.Unlock()
}

// SessionCount reports how many sessions are held.
func (s *Service) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// LayoutInput scopes a layout resolution. A zero Range means the current month.
type LayoutInput struct {
	Range DateRange
}

// Layout resolves the visible sections for the viewer and attaches provider
// data. Provider failures are recorded and reported per section.
func (s *Service) Layout(ctx context.Context, viewer ViewerContext, input LayoutInput) (Layout, error) {
	sess, err := s.Session(ctx, viewer)
	if err != nil {
		return Layout{}, err
	}
	now := s.opts.Now()
	rng := s.resolveRange(input.Range, now)
	snapshot, err := s.opts.Source.Snapshot(ctx, viewer)
	if err != nil {
		s.recordTelemetry(ctx, "dashboard.snapshot.error", map[string]any{
			"viewer": viewer.UserID,
			"error":  err.Error(),
		})
		return Layout{}, fmt.Errorf("%w: %w", ErrSnapshotUnavailable, err)
	}
	prefs := sess.Preferences()
	report := Derive(snapshot.MetricsInput(rng, now))
	defs := ResolveSections(prefs.WidgetOrder, prefs.HiddenSections, s.opts.Registry)
	layout := Layout{
		SessionID:   sess.ID(),
		Preferences: prefs,
		Range:       rng,
		Sections:    s.attachProviderData(ctx, defs, SectionContext{
			Viewer:   viewer,
			Range:    rng,
			Snapshot: snapshot,
			Report:   report,
			Now:      now,
		}),
	}
	s.recordTelemetry(ctx, "dashboard.layout.resolve", map[string]any{
		"viewer":   viewer.UserID,
		"sections": len(layout.Sections),
	})
	return layout, nil
}

// Metrics derives the metrics report for the viewer's snapshot.
func (s *Service) Metrics(ctx context.Context, viewer ViewerContext, rng DateRange) (MetricsReport, error) {
	snapshot, err := s.opts.Source.Snapshot(ctx, viewer)
	if err != nil {
		return MetricsReport{}, fmt.Errorf("%w: %w", ErrSnapshotUnavailable, err)
	}
	now := s.opts.Now()
	return Derive(snapshot.MetricsInput(s.resolveRange(rng, now), now)), nil
}

// UpdatePreferences merges a partial update into the viewer's preferences.
func (s *Service) UpdatePreferences(ctx context.Context, viewer ViewerContext, patch PreferencesPatch) (Preferences, error) {
	sess, err := s.Session(ctx, viewer)
	if err != nil {
		return Preferences{}, err
	}
	return sess.Apply(ctx, patch)
}

// Reorder moves dragged onto target's slot and commits the new order.
func (s *Service) Reorder(ctx context.Context, viewer ViewerContext, dragged, target string) (DropResult, error) {
	sess, err := s.Session(ctx, viewer)
	if err != nil {
		return DropResult{}, err
	}
	return sess.Move(ctx, dragged, target)
}

// SetHidden hides or shows a section.
func (s *Service) SetHidden(ctx context.Context, viewer ViewerContext, sectionID string, hidden bool) (Preferences, error) {
	sess, err := s.Session(ctx, viewer)
	if err != nil {
		return Preferences{}, err
	}
	if hidden {
		return sess.Hide(ctx, sectionID)
	}
	return sess.Show(ctx, sectionID)
}

// NotifyDashboardUpdated exposes refresh hook invocation for commands/transports.
func (s *Service) NotifyDashboardUpdated(ctx context.Context, event DashboardEvent) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.opts.Now()
	}
	if err := s.opts.RefreshHook.DashboardUpdated(ctx, event); err != nil {
		return err
	}
	s.recordTelemetry(ctx, "dashboard.event", map[string]any{
		"viewer": event.UserID,
		"reason": event.Reason,
	})
	return nil
}

func (s *Service) loadPreferences(ctx context.Context, viewer ViewerContext) Preferences {
	prefs, err := s.opts.PreferenceStore.Load(ctx, viewer)
	if err != nil {
		if !errors.Is(err, ErrPreferencesNotFound) {
			s.recordTelemetry(ctx, "dashboard.preferences.load_failed", map[string]any{
				"viewer": viewer.UserID,
				"error":  err.Error(),
			})
		}
		return s.opts.Registry.DefaultPreferences()
	}
	if len(prefs.WidgetOrder) == 0 {
		prefs.WidgetOrder = s.opts.Registry.DefaultOrder()
	}
	return prefs
}

func (s *Service) validate(patch PreferencesPatch) error {
	if s.opts.Validator == nil {
		return nil
	}
	return s.opts.Validator.Validate(patch)
}

// persist commits a patch for a session and publishes the outcome.
func (s *Service) persist(ctx context.Context, sess *Session, patch PreferencesPatch, reason string, meta map[string]any) (Preferences, error) {
	viewer := sess.Viewer()
	started := s.opts.Now()
	saved, err := s.opts.PreferenceStore.Update(ctx, viewer, patch)
	if err != nil {
		s.recordTelemetry(ctx, "dashboard.preferences.update_failed", map[string]any{
			"viewer": viewer.UserID,
			"reason": reason,
			"error":  err.Error(),
		})
		notification := UpdateFailedNotification
		_ = s.NotifyDashboardUpdated(ctx, DashboardEvent{
			UserID:       viewer.UserID,
			Reason:       reasonUpdateFailed,
			Preferences:  sess.prefs.Clone(),
			Notification: &notification,
		})
		return Preferences{}, fmt.Errorf("%w: %w", ErrPreferencesUpdate, err)
	}

	payload := map[string]any{
		"viewer":      viewer.UserID,
		"duration_ms": float64(s.opts.Now().Sub(started)) / float64(time.Millisecond),
	}
	for k, v := range meta {
		payload[k] = v
	}
	s.recordTelemetry(ctx, "dashboard."+reason, payload)
	if err := s.NotifyDashboardUpdated(ctx, DashboardEvent{
		UserID:      viewer.UserID,
		Reason:      reason,
		Preferences: saved.Clone(),
	}); err != nil {
		s.recordTelemetry(ctx, "dashboard.refresh.error", map[string]any{
			"viewer": viewer.UserID,
			"error":  err.Error(),
		})
	}
	s.emitActivity(ctx, viewer, "dashboard."+reason, meta)
	return saved, nil
}

func (s *Service) emitActivity(ctx context.Context, viewer ViewerContext, verb string, meta map[string]any) {
	if !s.activity.Enabled() {
		return
	}
	actx := activityContextFrom(ctx).forViewer(viewer)
	metadata := map[string]any{}
	for k, v := range meta {
		metadata[k] = v
	}
	if viewer.Locale != "" {
		metadata["locale"] = viewer.Locale
	}
	if err := s.activity.Emit(ctx, activity.Event{
		Verb:       verb,
		ActorID:    actx.ActorID,
		UserID:     actx.UserID,
		OrgID:      actx.OrgID,
		ObjectType: activityObjectType,
		ObjectID:   viewer.UserID,
		Metadata:   metadata,
		OccurredAt: s.opts.Now(),
	}); err != nil {
		s.recordTelemetry(ctx, "dashboard.activity.error", map[string]any{"error": err.Error()})
	}
}

func (s *Service) attachProviderData(ctx context.Context, defs []SectionDefinition, base SectionContext) []RenderedSection {
	sections := make([]RenderedSection, 0, len(defs))
	for _, def := range defs {
		rendered := RenderedSection{
			ID:          def.ID,
			Title:       def.Title,
			Description: def.Description,
		}
		provider, ok := s.opts.Registry.Provider(def.ID)
		if ok && provider != nil {
			meta := base
			meta.Section = def
			data, err := provider.Fetch(ctx, meta)
			if err != nil {
				s.recordTelemetry(ctx, "dashboard.section.provider_error", map[string]any{
					"section": def.ID,
					"error":   err.Error(),
				})
				rendered.Error = err.Error()
			} else {
				rendered.Data = data
			}
		}
		sections = append(sections, rendered)
	}
	return sections
}

func (s *Service) resolveRange(r DateRange, now time.Time) DateRange {
	if r.Start.IsZero() && r.End.IsZero() {
		return CurrentMonth(now)
	}
	return r
}

func (s *Service) recordTelemetry(ctx context.Context, event string, payload map[string]any) {
	s.opts.Telemetry.Record(ctx, event, payload)
}

type noopRefreshHook struct{}

func (noopRefreshHook) DashboardUpdated(context.Context, DashboardEvent) error {
	return nil
}

type emptySource struct{}

func (emptySource) Snapshot(context.Context, ViewerContext) (Snapshot, error) {
	return Snapshot{}, nil
}
