// Package firestore persists dashboard preferences in Cloud Firestore.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	dashboard "github.com/goliatone/go-property-dashboard/components/dashboard"
)

// DefaultCollection holds one document per user.
const DefaultCollection = "dashboard_preferences"

type preferencesDoc struct {
	WidgetOrder    []string  `firestore:"widget_order"`
	HiddenSections []string  `firestore:"hidden_sections"`
	UpdatedAt      time.Time `firestore:"updated_at"`
}

// Store implements dashboard.PreferenceStore.
type Store struct {
	client     *firestore.Client
	collection string
	now        func() time.Time
}

var _ dashboard.PreferenceStore = (*Store)(nil)

// New builds a store over client. An empty collection uses DefaultCollection.
func New(client *firestore.Client, collection string) *Store {
	if collection == "" {
		collection = DefaultCollection
	}
	return &Store{client: client, collection: collection, now: time.Now}
}

func (s *Store) doc(userID string) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(userID)
}

// Load returns the stored record or dashboard.ErrPreferencesNotFound.
func (s *Store) Load(ctx context.Context, viewer dashboard.ViewerContext) (dashboard.Preferences, error) {
	if viewer.UserID == "" {
		return dashboard.Preferences{}, errors.New("firestore: viewer user id is required")
	}
	snap, err := s.doc(viewer.UserID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return dashboard.Preferences{}, dashboard.ErrPreferencesNotFound
		}
		return dashboard.Preferences{}, fmt.Errorf("firestore: load preferences: %w", err)
	}
	var doc preferencesDoc
	if err := snap.DataTo(&doc); err != nil {
		return dashboard.Preferences{}, fmt.Errorf("firestore: parse preferences: %w", err)
	}
	return doc.preferences(), nil
}

// Update merges the patch inside a transaction and returns the merged record.
func (s *Store) Update(ctx context.Context, viewer dashboard.ViewerContext, patch dashboard.PreferencesPatch) (dashboard.Preferences, error) {
	if viewer.UserID == "" {
		return dashboard.Preferences{}, errors.New("firestore: viewer user id is required")
	}
	ref := s.doc(viewer.UserID)
	var merged dashboard.Preferences
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var current preferencesDoc
		snap, err := tx.Get(ref)
		switch {
		case status.Code(err) == codes.NotFound:
		case err != nil:
			return err
		default:
			if err := snap.DataTo(&current); err != nil {
				return err
			}
		}
		merged = current.preferences().Merge(patch)
		return tx.Set(ref, toDoc(merged, s.now()))
	})
	if err != nil {
		return dashboard.Preferences{}, fmt.Errorf("firestore: update preferences: %w", err)
	}
	return normalize(merged), nil
}

func (d preferencesDoc) preferences() dashboard.Preferences {
	return normalize(dashboard.Preferences{
		WidgetOrder:    d.WidgetOrder,
		HiddenSections: d.HiddenSections,
	})
}

func toDoc(prefs dashboard.Preferences, at time.Time) preferencesDoc {
	prefs = normalize(prefs)
	return preferencesDoc{
		WidgetOrder:    prefs.WidgetOrder,
		HiddenSections: prefs.HiddenSections,
		UpdatedAt:      at.UTC(),
	}
}

func normalize(prefs dashboard.Preferences) dashboard.Preferences {
	if prefs.WidgetOrder == nil {
		prefs.WidgetOrder = []string{}
	}
	if prefs.HiddenSections == nil {
		prefs.HiddenSections = []string{}
	}
	return prefs
}
