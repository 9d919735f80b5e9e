package dashboard

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-property-dashboard/pkg/activity"
)

var serviceNow = time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)

type recordingTelemetry struct {
	mu     sync.Mutex
	events []string
	last   map[string]map[string]any
}

func (r *recordingTelemetry) Record(_ context.Context, event string, payload map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	if r.last == nil {
		r.last = map[string]map[string]any{}
	}
	r.last[event] = payload
}

func (r *recordingTelemetry) has(event string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.last[event]
	return ok
}

type recordingRefreshHook struct {
	mu     sync.Mutex
	events []DashboardEvent
}

func (h *recordingRefreshHook) DashboardUpdated(_ context.Context, event DashboardEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return nil
}

// flakyStore wraps the in-memory store and fails on demand.
type flakyStore struct {
	*InMemoryPreferenceStore
	loadErr   error
	updateErr error
	updates   int
}

func (s *flakyStore) Load(ctx context.Context, viewer ViewerContext) (Preferences, error) {
	if s.loadErr != nil {
		return Preferences{}, s.loadErr
	}
	return s.InMemoryPreferenceStore.Load(ctx, viewer)
}

func (s *flakyStore) Update(ctx context.Context, viewer ViewerContext, patch PreferencesPatch) (Preferences, error) {
	s.updates++
	if s.updateErr != nil {
		return Preferences{}, s.updateErr
	}
	return s.InMemoryPreferenceStore.Update(ctx, viewer, patch)
}

type staticSource struct {
	snapshot Snapshot
	err      error
}

func (s staticSource) Snapshot(context.Context, ViewerContext) (Snapshot, error) {
	return s.snapshot, s.err
}

func newTestService(store PreferenceStore, opts ...func(*Options)) *Service {
	o := Options{
		PreferenceStore: store,
		Now:             func() time.Time { return serviceNow },
	}
	for _, fn := range opts {
		fn(&o)
	}
	return NewService(o)
}

func TestOpenSessionFallsBackToDefaultsOnLoadFailure(t *testing.T) {
	telemetry := &recordingTelemetry{}
	store := &flakyStore{InMemoryPreferenceStore: NewInMemoryPreferenceStore(), loadErr: errors.New("network down")}
	service := newTestService(store, func(o *Options) { o.Telemetry = telemetry })

	sess, err := service.OpenSession(context.Background(), ViewerContext{UserID: "user-1"})
	if err != nil {
		t.Fatalf("OpenSession returned error: %v", err)
	}
	prefs := sess.Preferences()
	if !reflect.DeepEqual(prefs.WidgetOrder, DefaultWidgetOrder()) {
		t.Fatalf("expected default order, got %v", prefs.WidgetOrder)
	}
	if len(prefs.HiddenSections) != 0 {
		t.Fatalf("expected empty hidden set, got %v", prefs.HiddenSections)
	}
	if !telemetry.has("dashboard.preferences.load_failed") {
		t.Fatalf("expected load failure telemetry, got %v", telemetry.events)
	}
}

func TestOpenSessionMissingRecordIsSilent(t *testing.T) {
	telemetry := &recordingTelemetry{}
	service := newTestService(NewInMemoryPreferenceStore(), func(o *Options) { o.Telemetry = telemetry })
	if _, err := service.OpenSession(context.Background(), ViewerContext{UserID: "user-1"}); err != nil {
		t.Fatalf("OpenSession returned error: %v", err)
	}
	if telemetry.has("dashboard.preferences.load_failed") {
		t.Fatalf("absent record must not be reported as a failure")
	}
	if _, err := service.OpenSession(context.Background(), ViewerContext{}); err == nil {
		t.Fatalf("expected error without user id")
	}
}

func TestReorderCommitsWidgetOrderOnly(t *testing.T) {
	store := NewInMemoryPreferenceStore()
	viewer := ViewerContext{UserID: "user-1"}
	if _, err := store.Update(context.Background(), viewer, PreferencesPatch{HiddenSections: []string{"activity"}}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	refresh := &recordingRefreshHook{}
	telemetry := &recordingTelemetry{}
	service := newTestService(store, func(o *Options) {
		o.RefreshHook = refresh
		o.Telemetry = telemetry
	})

	res, err := service.Reorder(context.Background(), viewer, "metrics", "revenue")
	if err != nil {
		t.Fatalf("Reorder returned error: %v", err)
	}
	if !res.Changed || !reflect.DeepEqual(res.Order, []string{"priority", "revenue", "metrics"}) {
		t.Fatalf("unexpected drop result %+v", res)
	}
	saved, _ := store.Load(context.Background(), viewer)
	if !reflect.DeepEqual(saved.WidgetOrder, []string{"priority", "revenue", "metrics", "activity"}) {
		t.Fatalf("unexpected stored order %v", saved.WidgetOrder)
	}
	if !reflect.DeepEqual(saved.HiddenSections, []string{"activity"}) {
		t.Fatalf("hidden sections must be untouched, got %v", saved.HiddenSections)
	}
	if len(refresh.events) != 1 || refresh.events[0].Reason != reasonSectionReorder {
		t.Fatalf("expected reorder refresh event, got %+v", refresh.events)
	}
	if !telemetry.has("dashboard.section.reorder") {
		t.Fatalf("expected reorder telemetry, got %v", telemetry.events)
	}
}

func TestReorderNoopSkipsStore(t *testing.T) {
	store := &flakyStore{InMemoryPreferenceStore: NewInMemoryPreferenceStore()}
	service := newTestService(store)
	viewer := ViewerContext{UserID: "user-1"}

	for _, pair := range [][2]string{{"metrics", "metrics"}, {"ghost", "metrics"}, {"metrics", "ghost"}} {
		res, err := service.Reorder(context.Background(), viewer, pair[0], pair[1])
		if err != nil {
			t.Fatalf("Reorder(%v) returned error: %v", pair, err)
		}
		if res.Changed {
			t.Fatalf("Reorder(%v) should be a no-op", pair)
		}
	}
	if store.updates != 0 {
		t.Fatalf("expected no store writes, got %d", store.updates)
	}
}

func TestReorderFailureKeepsOptimisticOrderAndNotifies(t *testing.T) {
	store := &flakyStore{InMemoryPreferenceStore: NewInMemoryPreferenceStore(), updateErr: errors.New("timeout")}
	refresh := &recordingRefreshHook{}
	telemetry := &recordingTelemetry{}
	service := newTestService(store, func(o *Options) {
		o.RefreshHook = refresh
		o.Telemetry = telemetry
	})
	viewer := ViewerContext{UserID: "user-1"}

	res, err := service.Reorder(context.Background(), viewer, "activity", "metrics")
	if !errors.Is(err, ErrPreferencesUpdate) {
		t.Fatalf("expected ErrPreferencesUpdate, got %v", err)
	}
	want := []string{"activity", "metrics", "priority", "revenue"}
	if !reflect.DeepEqual(res.Order, want) {
		t.Fatalf("expected optimistic order in result, got %v", res.Order)
	}
	sess, _ := service.Session(context.Background(), viewer)
	if !reflect.DeepEqual(sess.VisibleOrder(), want) {
		t.Fatalf("expected in-memory order retained, got %v", sess.VisibleOrder())
	}
	if store.updates != 1 {
		t.Fatalf("expected a single attempt without retry, got %d", store.updates)
	}
	if len(refresh.events) != 1 || refresh.events[0].Notification == nil {
		t.Fatalf("expected a failure notification, got %+v", refresh.events)
	}
	if refresh.events[0].Reason != reasonUpdateFailed || refresh.events[0].Notification.Level != "error" {
		t.Fatalf("unexpected failure event %+v", refresh.events[0])
	}
	if !telemetry.has("dashboard.preferences.update_failed") {
		t.Fatalf("expected failure telemetry, got %v", telemetry.events)
	}
}

func TestReorderThereAndBackRestoresStoredOrder(t *testing.T) {
	store := NewInMemoryPreferenceStore()
	service := newTestService(store)
	viewer := ViewerContext{UserID: "user-1"}
	ctx := context.Background()

	if _, err := service.Reorder(ctx, viewer, "priority", "activity"); err != nil {
		t.Fatalf("first reorder: %v", err)
	}
	// Dropping priority on the section now in its old slot moves it back.
	sess, _ := service.Session(ctx, viewer)
	if _, err := service.Reorder(ctx, viewer, "priority", sess.VisibleOrder()[1]); err != nil {
		t.Fatalf("second reorder: %v", err)
	}
	saved, _ := store.Load(ctx, viewer)
	if !reflect.DeepEqual(saved.WidgetOrder, DefaultWidgetOrder()) {
		t.Fatalf("expected original order, got %v", saved.WidgetOrder)
	}
}

func TestSessionPointerAndKeyboardCommitSameOrder(t *testing.T) {
	ctx := context.Background()
	pointerStore := NewInMemoryPreferenceStore()
	keyboardStore := NewInMemoryPreferenceStore()
	viewer := ViewerContext{UserID: "user-1"}

	pointer, _ := newTestService(pointerStore).OpenSession(ctx, viewer)
	if err := pointer.StartDrag("revenue"); err != nil {
		t.Fatalf("StartDrag: %v", err)
	}
	pointer.DragOver("priority")
	pointer.DragOver("metrics")
	if _, err := pointer.Drop(ctx, ""); err != nil {
		t.Fatalf("Drop: %v", err)
	}

	keyboard, _ := newTestService(keyboardStore).OpenSession(ctx, viewer)
	if err := keyboard.Pickup("revenue"); err != nil {
		t.Fatalf("Pickup: %v", err)
	}
	keyboard.MoveUp()
	keyboard.MoveUp()
	if keyboard.DragState() != DragDragging {
		t.Fatalf("expected dragging state")
	}
	if _, err := keyboard.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	a, _ := pointerStore.Load(ctx, viewer)
	b, _ := keyboardStore.Load(ctx, viewer)
	if !reflect.DeepEqual(a.WidgetOrder, b.WidgetOrder) {
		t.Fatalf("pointer %v != keyboard %v", a.WidgetOrder, b.WidgetOrder)
	}
	if !reflect.DeepEqual(a.WidgetOrder, []string{"revenue", "metrics", "priority", "activity"}) {
		t.Fatalf("unexpected order %v", a.WidgetOrder)
	}
}

func TestSessionCancelDragLeavesOrder(t *testing.T) {
	store := &flakyStore{InMemoryPreferenceStore: NewInMemoryPreferenceStore()}
	sess, _ := newTestService(store).OpenSession(context.Background(), ViewerContext{UserID: "user-1"})
	if err := sess.StartDrag("metrics"); err != nil {
		t.Fatalf("StartDrag: %v", err)
	}
	sess.DragOver("activity")
	sess.CancelDrag()
	if sess.DragState() != DragIdle {
		t.Fatalf("expected idle after cancel")
	}
	if !reflect.DeepEqual(sess.VisibleOrder(), DefaultWidgetOrder()) || store.updates != 0 {
		t.Fatalf("cancel must not change or persist order")
	}
}

func TestHidePreservesStoredOrder(t *testing.T) {
	store := NewInMemoryPreferenceStore()
	service := newTestService(store)
	viewer := ViewerContext{UserID: "user-1"}
	ctx := context.Background()

	prefs, err := service.SetHidden(ctx, viewer, "priority", true)
	if err != nil {
		t.Fatalf("SetHidden returned error: %v", err)
	}
	if !reflect.DeepEqual(prefs.WidgetOrder, DefaultWidgetOrder()) {
		t.Fatalf("hiding must keep stored order, got %v", prefs.WidgetOrder)
	}
	layout, err := service.Layout(ctx, viewer, LayoutInput{})
	if err != nil {
		t.Fatalf("Layout returned error: %v", err)
	}
	for _, section := range layout.Sections {
		if section.ID == "priority" {
			t.Fatalf("hidden section rendered")
		}
	}
	if len(layout.Sections) != 3 {
		t.Fatalf("expected 3 visible sections, got %d", len(layout.Sections))
	}

	prefs, err = service.SetHidden(ctx, viewer, "priority", false)
	if err != nil {
		t.Fatalf("show returned error: %v", err)
	}
	if len(prefs.HiddenSections) != 0 {
		t.Fatalf("expected no hidden sections, got %v", prefs.HiddenSections)
	}
	sess, _ := service.Session(ctx, viewer)
	if !reflect.DeepEqual(sess.VisibleOrder(), DefaultWidgetOrder()) {
		t.Fatalf("shown section must return to its slot, got %v", sess.VisibleOrder())
	}

	if _, err := service.SetHidden(ctx, viewer, "weather", true); !errors.Is(err, ErrUnknownSection) {
		t.Fatalf("expected ErrUnknownSection, got %v", err)
	}
}

func TestUpdatePreferencesValidatesBeforeApplying(t *testing.T) {
	store := &flakyStore{InMemoryPreferenceStore: NewInMemoryPreferenceStore()}
	service := newTestService(store)
	viewer := ViewerContext{UserID: "user-1"}

	_, err := service.UpdatePreferences(context.Background(), viewer, PreferencesPatch{WidgetOrder: []string{"metrics", "metrics"}})
	if !errors.Is(err, ErrInvalidPreferences) {
		t.Fatalf("expected ErrInvalidPreferences, got %v", err)
	}
	if store.updates != 0 {
		t.Fatalf("invalid patch must not reach the store")
	}

	prefs, err := service.UpdatePreferences(context.Background(), viewer, PreferencesPatch{WidgetOrder: []string{"revenue", "metrics"}})
	if err != nil {
		t.Fatalf("UpdatePreferences returned error: %v", err)
	}
	if !reflect.DeepEqual(prefs.WidgetOrder, []string{"revenue", "metrics", "priority", "activity"}) {
		t.Fatalf("unexpected order %v", prefs.WidgetOrder)
	}
}

func TestLayoutAttachesProviderDataAndSkipsUnknown(t *testing.T) {
	store := NewInMemoryPreferenceStore()
	viewer := ViewerContext{UserID: "user-1"}
	if _, err := store.Update(context.Background(), viewer, PreferencesPatch{WidgetOrder: []string{"activity", "weather", "metrics"}}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	telemetry := &recordingTelemetry{}
	reg := NewSectionRegistry()
	_ = reg.RegisterProvider(SectionPriority, ProviderFunc(func(context.Context, SectionContext) (SectionData, error) {
		return nil, errors.New("priority backend down")
	}))
	service := newTestService(store, func(o *Options) {
		o.Registry = reg
		o.Telemetry = telemetry
		o.Source = staticSource{snapshot: sampleSnapshot()}
	})

	layout, err := service.Layout(context.Background(), viewer, LayoutInput{})
	if err != nil {
		t.Fatalf("Layout returned error: %v", err)
	}
	ids := make([]string, len(layout.Sections))
	for i, s := range layout.Sections {
		ids[i] = s.ID
	}
	if !reflect.DeepEqual(ids, []string{"activity", "metrics", "priority", "revenue"}) {
		t.Fatalf("unexpected sections %v", ids)
	}
	if layout.Range != CurrentMonth(serviceNow) {
		t.Fatalf("expected current month range, got %+v", layout.Range)
	}
	if layout.SessionID == "" {
		t.Fatalf("expected session id")
	}
	metrics := layout.Sections[1]
	if cards, ok := metrics.Data["cards"].([]map[string]any); !ok || len(cards) != 4 {
		t.Fatalf("expected 4 metric cards, got %#v", metrics.Data["cards"])
	}
	if layout.Sections[2].Error == "" || layout.Sections[2].Data != nil {
		t.Fatalf("expected provider error on priority, got %+v", layout.Sections[2])
	}
	if !telemetry.has("dashboard.section.provider_error") {
		t.Fatalf("expected provider error telemetry")
	}
}

func TestLayoutSnapshotFailure(t *testing.T) {
	service := newTestService(NewInMemoryPreferenceStore(), func(o *Options) {
		o.Source = staticSource{err: errors.New("backend unavailable")}
	})
	_, err := service.Layout(context.Background(), ViewerContext{UserID: "user-1"}, LayoutInput{})
	if !errors.Is(err, ErrSnapshotUnavailable) {
		t.Fatalf("expected ErrSnapshotUnavailable, got %v", err)
	}
}

func TestMetricsUsesRequestedRange(t *testing.T) {
	service := newTestService(NewInMemoryPreferenceStore(), func(o *Options) {
		o.Source = staticSource{snapshot: sampleSnapshot()}
	})
	all, err := service.Metrics(context.Background(), ViewerContext{UserID: "user-1"}, DateRange{
		Start: time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		End:   serviceNow,
	})
	if err != nil {
		t.Fatalf("Metrics returned error: %v", err)
	}
	if all.TotalTenants != 3 || all.PendingMaintenance != 2 {
		t.Fatalf("unexpected report %+v", all)
	}
}

func TestPreferenceChangesEmitActivity(t *testing.T) {
	capture := &activity.CaptureHook{}
	service := newTestService(NewInMemoryPreferenceStore(), func(o *Options) {
		o.ActivityHooks = activity.Hooks{capture}
		o.ActivityConfig = activity.Config{Enabled: true}
	})
	ctx := ContextWithActivity(context.Background(), ActivityContext{ActorID: "admin-1", OrgID: "org-1"})
	viewer := ViewerContext{UserID: "user-1", Locale: "en"}

	if _, err := service.Reorder(ctx, viewer, "metrics", "priority"); err != nil {
		t.Fatalf("Reorder returned error: %v", err)
	}
	if _, err := service.SetHidden(ctx, viewer, "activity", true); err != nil {
		t.Fatalf("SetHidden returned error: %v", err)
	}
	if len(capture.Events) != 2 {
		t.Fatalf("expected 2 activity events, got %d", len(capture.Events))
	}
	reorder := capture.Events[0]
	if reorder.Verb != "dashboard.section.reorder" || reorder.ObjectType != "dashboard_preferences" || reorder.ObjectID != "user-1" {
		t.Fatalf("unexpected event payload: %+v", reorder)
	}
	if reorder.ActorID != "admin-1" || reorder.UserID != "user-1" || reorder.OrgID != "org-1" {
		t.Fatalf("unexpected actor context: %+v", reorder)
	}
	if reorder.Channel != "dashboard" || reorder.Metadata["dragged"] != "metrics" || reorder.Metadata["locale"] != "en" {
		t.Fatalf("unexpected metadata: %+v", reorder)
	}
	if capture.Events[1].Verb != "dashboard.section.hide" || capture.Events[1].Metadata["section"] != "activity" {
		t.Fatalf("unexpected hide event: %+v", capture.Events[1])
	}
}

func TestFailedReorderSurvivesLaterHide(t *testing.T) {
	store := &flakyStore{InMemoryPreferenceStore: NewInMemoryPreferenceStore(), updateErr: errors.New("timeout")}
	service := newTestService(store)
	viewer := ViewerContext{UserID: "user-1"}
	ctx := context.Background()

	if _, err := service.Reorder(ctx, viewer, "activity", "metrics"); !errors.Is(err, ErrPreferencesUpdate) {
		t.Fatalf("expected ErrPreferencesUpdate, got %v", err)
	}
	store.updateErr = nil
	if _, err := service.SetHidden(ctx, viewer, "revenue", true); err != nil {
		t.Fatalf("SetHidden returned error: %v", err)
	}

	sess, _ := service.Session(ctx, viewer)
	want := []string{"activity", "metrics", "priority"}
	if !reflect.DeepEqual(sess.VisibleOrder(), want) {
		t.Fatalf("expected reordered layout to survive, got %v", sess.VisibleOrder())
	}
	saved, _ := store.Load(ctx, viewer)
	if !reflect.DeepEqual(saved.HiddenSections, []string{"revenue"}) {
		t.Fatalf("expected hidden set persisted, got %v", saved.HiddenSections)
	}
}

func TestFailedHideSurvivesLaterReorder(t *testing.T) {
	store := &flakyStore{InMemoryPreferenceStore: NewInMemoryPreferenceStore(), updateErr: errors.New("timeout")}
	service := newTestService(store)
	viewer := ViewerContext{UserID: "user-1"}
	ctx := context.Background()

	if _, err := service.SetHidden(ctx, viewer, "priority", true); !errors.Is(err, ErrPreferencesUpdate) {
		t.Fatalf("expected ErrPreferencesUpdate, got %v", err)
	}
	store.updateErr = nil
	if _, err := service.Reorder(ctx, viewer, "activity", "metrics"); err != nil {
		t.Fatalf("Reorder returned error: %v", err)
	}

	sess, _ := service.Session(ctx, viewer)
	want := []string{"activity", "metrics", "revenue"}
	if !reflect.DeepEqual(sess.VisibleOrder(), want) {
		t.Fatalf("expected priority to stay hidden, got %v", sess.VisibleOrder())
	}
}

func TestConcurrentSessionCallsShareOneSession(t *testing.T) {
	service := newTestService(NewInMemoryPreferenceStore())
	viewer := ViewerContext{UserID: "user-1"}

	const callers = 16
	got := make([]*Session, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sess, err := service.Session(context.Background(), viewer)
			if err != nil {
				t.Errorf("Session returned error: %v", err)
				return
			}
			got[i] = sess
		}(i)
	}
	wg.Wait()
	for i := 1; i < callers; i++ {
		if got[i] != got[0] {
			t.Fatalf("caller %d received a different session", i)
		}
	}
	if service.SessionCount() != 1 {
		t.Fatalf("expected a single session, got %d", service.SessionCount())
	}
}

func TestIdleSessionsAreEvicted(t *testing.T) {
	var mu sync.Mutex
	now := serviceNow
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		now = now.Add(d)
		mu.Unlock()
	}
	store := NewInMemoryPreferenceStore()
	service := newTestService(store, func(o *Options) {
		o.Now = clock
		o.SessionIdleTimeout = time.Minute
	})
	ctx := context.Background()

	first, _ := service.Session(ctx, ViewerContext{UserID: "user-1"})
	if _, err := first.Move(ctx, "activity", "metrics"); err != nil {
		t.Fatalf("Move returned error: %v", err)
	}
	advance(30 * time.Second)
	if again, _ := service.Session(ctx, ViewerContext{UserID: "user-1"}); again != first {
		t.Fatalf("expected the active session to be reused")
	}

	advance(2 * time.Minute)
	if _, err := service.Session(ctx, ViewerContext{UserID: "user-2"}); err != nil {
		t.Fatalf("Session returned error: %v", err)
	}
	if service.SessionCount() != 1 {
		t.Fatalf("expected idle session evicted, got %d sessions", service.SessionCount())
	}
	reopened, _ := service.Session(ctx, ViewerContext{UserID: "user-1"})
	if reopened == first {
		t.Fatalf("expected a fresh session after eviction")
	}
	want := []string{"activity", "metrics", "priority", "revenue"}
	if !reflect.DeepEqual(reopened.VisibleOrder(), want) {
		t.Fatalf("expected persisted order on reopen, got %v", reopened.VisibleOrder())
	}

	service.CloseSession("user-1")
	service.CloseSession("user-2")
	if service.SessionCount() != 0 {
		t.Fatalf("expected no sessions after CloseSession, got %d", service.SessionCount())
	}
}
