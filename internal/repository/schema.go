package repository

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS posting_history (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		task_id TEXT NOT NULL,
		platform TEXT NOT NULL,
		status TEXT NOT NULL,
		remote_post_id TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS posting_history_user_id_idx ON posting_history (user_id)`,
	`CREATE TABLE IF NOT EXISTS media_assets (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		file_name TEXT NOT NULL,
		file_type TEXT NOT NULL,
		file_size BIGINT NOT NULL DEFAULT 0,
		file_url TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Migrate creates the tables the repositories read and write.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
