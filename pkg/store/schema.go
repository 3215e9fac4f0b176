package store

import (
	"context"
	"database/sql"
	"fmt"
)

// SchemaVersion is recorded in the meta table.
const SchemaVersion = 1

var schema = []struct {
	name string
	sql  string
}{
	{"persons", `
		CREATE TABLE IF NOT EXISTS persons (
			person_id TEXT PRIMARY KEY,
			full_name TEXT NOT NULL DEFAULT '',
			title     TEXT NOT NULL DEFAULT '',
			location  TEXT NOT NULL DEFAULT ''
		)`},
	{"companies", `
		CREATE TABLE IF NOT EXISTS companies (
			company_id TEXT PRIMARY KEY,
			name       TEXT NOT NULL DEFAULT ''
		)`},
	{"stints", `
		CREATE TABLE IF NOT EXISTS stints (
			person_id  TEXT NOT NULL,
			company_id TEXT NOT NULL,
			title      TEXT NOT NULL DEFAULT '',
			start_date TEXT,
			end_date   TEXT
		)`},
	{"person_handles", `
		CREATE TABLE IF NOT EXISTS person_handles (
			value     TEXT PRIMARY KEY,
			person_id TEXT NOT NULL
		)`},
	{"meta", `
		CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`},
	{"idx_stints_person", `CREATE INDEX IF NOT EXISTS idx_stints_person ON stints(person_id)`},
	{"idx_stints_company", `CREATE INDEX IF NOT EXISTS idx_stints_company ON stints(company_id)`},
	{"idx_handles_person", `CREATE INDEX IF NOT EXISTS idx_handles_person ON person_handles(person_id)`},
}

// createSchema creates every table and index and records the version.
func createSchema(ctx context.Context, db *sql.DB) error {
	for _, s := range schema {
		if _, err := db.ExecContext(ctx, s.sql); err != nil {
			return fmt.Errorf("create %s: %w", s.name, err)
		}
	}
	_, err := db.ExecContext(ctx,
		`INSERT OR REPLACE INTO meta (key, value) VALUES ('schema_version', ?)`,
		fmt.Sprint(SchemaVersion))
	if err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return nil
}
