package db

import (
	"database/sql"
	"fmt"
)

// schema holds the client's local storage: a flat key/value table that plays
// the role browser local storage has for the web dashboard.
const schema = `
CREATE TABLE IF NOT EXISTS local_storage (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// EnsureSchema creates all tables if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
