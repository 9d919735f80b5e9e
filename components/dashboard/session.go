package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrUnknownSection reports an id the registry does not know.
var ErrUnknownSection = errors.New("dashboard: unknown section")

// Session holds one viewer's dashboard state: the loaded preferences, the
// displayed order and the drag controller. Mutations are applied in memory
// first and then committed to the preference store; a failed commit keeps the
// in-memory state, notifies the viewer and returns the error.
type Session struct {
	id      string
	viewer  ViewerContext
	service *Service

	mu    sync.Mutex
	prefs Preferences
	drag  *DragController

	// lastUsed is guarded by the owning Service's mutex.
	lastUsed time.Time
}

func newSession(id string, viewer ViewerContext, prefs Preferences, service *Service) *Session {
	prefs = prefs.Clone()
	prefs.WidgetOrder = completeOrder(prefs.WidgetOrder, service.opts.Registry)
	normalizePreferences(&prefs)
	sess := &Session{
		id:      id,
		viewer:  viewer,
		service: service,
		prefs:   prefs,
	}
	sess.drag = NewDragController(sess.visibleLocked())
	return sess
}

// ID identifies the session.
func (s *Session) ID() string { return s.id }

// Viewer returns the session owner.
func (s *Session) Viewer() ViewerContext { return s.viewer }

// Preferences returns the in-memory preferences.
func (s *Session) Preferences() Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs.Clone()
}

// VisibleOrder returns the ids of the sections currently displayed.
func (s *Session) VisibleOrder() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visibleLocked()
}

// DragState reports the drag controller state.
func (s *Session) DragState() DragState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drag.State()
}

// StartDrag begins a pointer drag.
func (s *Session) StartDrag(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drag.Start(id)
}

// DragOver records the section under the pointer.
func (s *Session) DragOver(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drag.Over(id)
}

// Drop ends a pointer drag over target and commits a changed order.
func (s *Session) Drop(ctx context.Context, target string) (DropResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.drag.Drop(target)
	if err != nil {
		return DropResult{}, err
	}
	return s.commitDropLocked(ctx, res)
}

// CancelDrag abandons the drag.
func (s *Session) CancelDrag() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drag.Cancel()
}

// Pickup begins a keyboard drag.
func (s *Session) Pickup(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drag.Pickup(id)
}

// MoveUp moves the keyboard target one slot up.
func (s *Session) MoveUp() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drag.MoveUp()
}

// MoveDown moves the keyboard target one slot down.
func (s *Session) MoveDown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drag.MoveDown()
}

// Commit drops on the keyboard target and commits a changed order.
func (s *Session) Commit(ctx context.Context) (DropResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.drag.Commit()
	if err != nil {
		return DropResult{}, err
	}
	return s.commitDropLocked(ctx, res)
}

// Move performs a whole drag of dragged onto target in one call. Ids that are
// not displayed make it a no-op.
func (s *Session) Move(ctx context.Context, dragged, target string) (DropResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drag.State() == DragDragging {
		return DropResult{}, errDragInProgress
	}
	if indexOf(s.drag.order, dragged) < 0 {
		return DropResult{Dragged: dragged, Target: target, Order: s.visibleLocked()}, nil
	}
	if err := s.drag.Start(dragged); err != nil {
		return DropResult{}, err
	}
	s.drag.Over(target)
	res, err := s.drag.Drop(target)
	if err != nil {
		return DropResult{}, err
	}
	return s.commitDropLocked(ctx, res)
}

// Hide removes a section from display, keeping its slot in the stored order.
func (s *Session) Hide(ctx context.Context, id string) (Preferences, error) {
	return s.setHidden(ctx, id, true)
}

// Show returns a hidden section to display at its stored position.
func (s *Session) Show(ctx context.Context, id string) (Preferences, error) {
	return s.setHidden(ctx, id, false)
}

// Apply merges an arbitrary patch.
func (s *Session) Apply(ctx context.Context, patch PreferencesPatch) (Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if patch.IsZero() {
		return s.prefs.Clone(), nil
	}
	if err := s.service.validate(patch); err != nil {
		return Preferences{}, err
	}
	s.applyLocked(patch)
	return s.commitLocked(ctx, patch, reasonPreferencesUpdate, nil)
}

func (s *Session) setHidden(ctx context.Context, id string, hidden bool) (Preferences, error) {
	if _, ok := s.service.opts.Registry.Section(id); !ok {
		return Preferences{}, fmt.Errorf("%w: %s", ErrUnknownSection, id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.prefs.IsHidden(id) == hidden {
		return s.prefs.Clone(), nil
	}
	next := make([]string, 0, len(s.prefs.HiddenSections)+1)
	for _, existing := range s.prefs.HiddenSections {
		if existing != id {
			next = append(next, existing)
		}
	}
	reason := reasonSectionShow
	if hidden {
		next = append(next, id)
		reason = reasonSectionHide
	}
	patch := PreferencesPatch{HiddenSections: next}
	s.applyLocked(patch)
	return s.commitLocked(ctx, patch, reason, map[string]any{"section": id})
}

func (s *Session) commitDropLocked(ctx context.Context, res DropResult) (DropResult, error) {
	if !res.Changed {
		res.Order = s.visibleLocked()
		return res, nil
	}
	order, changed := MoveSection(s.prefs.WidgetOrder, res.Dragged, res.Target)
	if !changed {
		res.Order = s.visibleLocked()
		res.Changed = false
		return res, nil
	}
	patch := PreferencesPatch{WidgetOrder: order}
	s.applyLocked(patch)
	res.Order = s.visibleLocked()
	_, err := s.commitLocked(ctx, patch, reasonSectionReorder, map[string]any{
		"dragged": res.Dragged,
		"target":  res.Target,
	})
	if err != nil {
		return res, err
	}
	res.Order = s.visibleLocked()
	return res, nil
}

// applyLocked is the optimistic half of a mutation.
func (s *Session) applyLocked(patch PreferencesPatch) {
	s.prefs = s.prefs.Merge(patch)
	normalizePreferences(&s.prefs)
	s.drag.SetOrder(s.visibleLocked())
}

// commitLocked persists patch. On success only the patched fields are taken
// from the store's record, so earlier unpersisted changes stay in memory; on
// failure the optimistic state stays.
func (s *Session) commitLocked(ctx context.Context, patch PreferencesPatch, reason string, meta map[string]any) (Preferences, error) {
	saved, err := s.service.persist(ctx, s, patch, reason, meta)
	if err != nil {
		return s.prefs.Clone(), err
	}
	if patch.WidgetOrder != nil {
		s.prefs.WidgetOrder = completeOrder(saved.WidgetOrder, s.service.opts.Registry)
	}
	if patch.HiddenSections != nil {
		s.prefs.HiddenSections = cloneIDs(saved.HiddenSections)
	}
	normalizePreferences(&s.prefs)
	s.drag.SetOrder(s.visibleLocked())
	return s.prefs.Clone(), nil
}

func (s *Session) visibleLocked() []string {
	return visibleOrder(s.prefs.WidgetOrder, s.prefs.HiddenSections, s.service.opts.Registry)
}
