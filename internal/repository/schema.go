package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const createSchema = `
CREATE TABLE IF NOT EXISTS notes (
	seq              BIGSERIAL,
	id               TEXT PRIMARY KEY,
	title            TEXT NOT NULL,
	description      TEXT NOT NULL DEFAULT '',
	category         TEXT NOT NULL,
	blob_id          TEXT NOT NULL,
	filename         TEXT NOT NULL,
	upload_timestamp TIMESTAMPTZ NOT NULL,
	share_token      TEXT NOT NULL UNIQUE,
	sort_order       INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS notes_category_seq_idx ON notes (category, seq);
CREATE INDEX IF NOT EXISTS notes_upload_timestamp_idx ON notes (upload_timestamp, seq);
CREATE INDEX IF NOT EXISTS notes_sort_order_idx ON notes (sort_order, seq);
CREATE INDEX IF NOT EXISTS notes_blob_id_idx ON notes (blob_id);
`

const dropSchema = `DROP TABLE IF EXISTS notes;`

// CreateSchema creates the notes table and its indexes if they are missing.
func CreateSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, createSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// DropSchema removes the notes table.
func DropSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, dropSchema); err != nil {
		return fmt.Errorf("drop schema: %w", err)
	}
	return nil
}
