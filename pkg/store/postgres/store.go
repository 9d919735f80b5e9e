// Package postgres persists dashboard preferences in PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	dashboard "github.com/goliatone/go-property-dashboard/components/dashboard"
)

// Schema creates the preferences table.
const Schema = `CREATE TABLE IF NOT EXISTS dashboard_preferences (
	user_id         TEXT PRIMARY KEY,
	widget_order    TEXT[] NOT NULL DEFAULT '{}',
	hidden_sections TEXT[] NOT NULL DEFAULT '{}',
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const selectPreferences = `SELECT widget_order, hidden_sections
FROM dashboard_preferences WHERE user_id = $1`

// A NULL parameter keeps the stored column, so absent patch fields survive
// concurrent writers without a read-modify-write.
const upsertPreferences = `INSERT INTO dashboard_preferences (user_id, widget_order, hidden_sections, updated_at)
VALUES ($1, COALESCE($2::text[], '{}'), COALESCE($3::text[], '{}'), now())
ON CONFLICT (user_id) DO UPDATE SET
	widget_order    = COALESCE($2::text[], dashboard_preferences.widget_order),
	hidden_sections = COALESCE($3::text[], dashboard_preferences.hidden_sections),
	updated_at      = now()
RETURNING widget_order, hidden_sections`

// DB is the subset of pgxpool.Pool the store uses.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store implements dashboard.PreferenceStore.
type Store struct {
	db DB
}

var _ dashboard.PreferenceStore = (*Store)(nil)

// New wraps an existing connection or pool.
func New(db DB) *Store {
	return &Store{db: db}
}

// Open connects a pool from a connection string.
func Open(ctx context.Context, dsn string) (*Store, *pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return New(pool), pool, nil
}

// Migrate creates the table when missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("postgres: migrate preferences: %w", err)
	}
	return nil
}

// Load returns the stored record or dashboard.ErrPreferencesNotFound.
func (s *Store) Load(ctx context.Context, viewer dashboard.ViewerContext) (dashboard.Preferences, error) {
	if viewer.UserID == "" {
		return dashboard.Preferences{}, errors.New("postgres: viewer user id is required")
	}
	var prefs dashboard.Preferences
	err := s.db.QueryRow(ctx, selectPreferences, viewer.UserID).Scan(&prefs.WidgetOrder, &prefs.HiddenSections)
	if errors.Is(err, pgx.ErrNoRows) {
		return dashboard.Preferences{}, dashboard.ErrPreferencesNotFound
	}
	if err != nil {
		return dashboard.Preferences{}, fmt.Errorf("postgres: load preferences: %w", err)
	}
	return normalize(prefs), nil
}

// Update upserts the non-nil patch fields and returns the merged record.
func (s *Store) Update(ctx context.Context, viewer dashboard.ViewerContext, patch dashboard.PreferencesPatch) (dashboard.Preferences, error) {
	if viewer.UserID == "" {
		return dashboard.Preferences{}, errors.New("postgres: viewer user id is required")
	}
	var prefs dashboard.Preferences
	err := s.db.QueryRow(ctx, upsertPreferences, viewer.UserID, nullable(patch.WidgetOrder), nullable(patch.HiddenSections)).
		Scan(&prefs.WidgetOrder, &prefs.HiddenSections)
	if err != nil {
		return dashboard.Preferences{}, fmt.Errorf("postgres: update preferences: %w", err)
	}
	return normalize(prefs), nil
}

// nullable maps an absent field to SQL NULL and keeps empty slices as '{}'.
func nullable(ids []string) any {
	if ids == nil {
		return nil
	}
	return ids
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
