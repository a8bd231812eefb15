package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is portable between SQLite and Postgres. Timestamps are unix
// milliseconds; tags are a JSON array.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS daily_insights (
		id          TEXT PRIMARY KEY,
		position    INTEGER NOT NULL,
		date        TEXT NOT NULL,
		category    TEXT NOT NULL,
		title       TEXT NOT NULL,
		summary     TEXT NOT NULL,
		score       INTEGER NOT NULL,
		url         TEXT NOT NULL,
		source_name TEXT NOT NULL,
		created_at  BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS collections (
		id          TEXT PRIMARY KEY,
		insight_id  TEXT NOT NULL UNIQUE,
		title       TEXT NOT NULL,
		summary     TEXT NOT NULL,
		url         TEXT NOT NULL,
		category    TEXT NOT NULL,
		source_name TEXT NOT NULL,
		tags        TEXT NOT NULL DEFAULT '[]',
		created_at  BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS notes (
		collection_id TEXT PRIMARY KEY REFERENCES collections(id) ON DELETE CASCADE,
		content       TEXT NOT NULL,
		updated_at    BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS weekly_reviews (
		id                    TEXT PRIMARY KEY,
		week_range            TEXT NOT NULL,
		themes                TEXT NOT NULL,
		insights              TEXT NOT NULL,
		next_week_suggestions TEXT NOT NULL,
		created_at            BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_collections_created_at ON collections (created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_weekly_reviews_created_at ON weekly_reviews (created_at)`,
}

func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
