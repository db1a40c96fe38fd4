package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// Migrate runs all schema migrations. Statements are idempotent so the full
// list is replayed on every open.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var migrations = []string{
	// Every collection shares one table; field values live in the JSON
	// document so collections can evolve without schema changes.
	`CREATE TABLE IF NOT EXISTS records (
		seq           INTEGER PRIMARY KEY AUTOINCREMENT,
		id            TEXT NOT NULL UNIQUE,
		collection    TEXT NOT NULL,
		data          TEXT NOT NULL DEFAULT '{}',
		password_hash TEXT NOT NULL DEFAULT '',
		created       TEXT NOT NULL,
		updated       TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_records_collection_created
		ON records(collection, created)`,
	`CREATE TABLE IF NOT EXISTS settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
}
