package dashboard

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrPreferencesNotFound reports that no record exists for the viewer.
	// Stores may return it from Load; the service treats it as defaults.
	ErrPreferencesNotFound = errors.New("dashboard: preferences not found")
	errMissingViewer       = errors.New("dashboard: viewer context missing user id")
)

// InMemoryPreferenceStore provides a concurrency-safe default store.
type InMemoryPreferenceStore struct {
	mu   sync.RWMutex
	data map[string]Preferences
}

// NewInMemoryPreferenceStore creates an empty preference store.
func NewInMemoryPreferenceStore() *InMemoryPreferenceStore {
	return &InMemoryPreferenceStore{
		data: make(map[string]Preferences),
	}
}

// Load returns the stored record or ErrPreferencesNotFound.
func (s *InMemoryPreferenceStore) Load(_ context.Context, viewer ViewerContext) (Preferences, error) {
	if viewer.UserID == "" {
		return Preferences{}, errMissingViewer
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	prefs, ok := s.data[viewer.UserID]
	if !ok {
		return Preferences{}, ErrPreferencesNotFound
	}
	return prefs.Clone(), nil
}

// Update merges the patch into the stored record, creating it when absent.
func (s *InMemoryPreferenceStore) Update(_ context.Context, viewer ViewerContext, patch PreferencesPatch) (Preferences, error) {
	if viewer.UserID == "" {
		return Preferences{}, errMissingViewer
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	merged := s.data[viewer.UserID].Merge(patch)
	normalizePreferences(&merged)
	s.data[viewer.UserID] = merged
	return merged.Clone(), nil
}

func normalizePreferences(prefs *Preferences) {
	if prefs.WidgetOrder == nil {
		prefs.WidgetOrder = []string{}
	}
	if prefs.HiddenSections == nil {
		prefs.HiddenSections = []string{}
	}
}
