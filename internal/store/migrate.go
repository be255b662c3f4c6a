package store

import (
	"context"
	"database/sql"
	"fmt"
)

// column describes an optional column that may be missing from an
// older database file and must be added additively.
type column struct {
	table      string
	name       string
	definition string
}

// additiveColumns lists columns introduced after the initial schema. The
// base CREATE TABLE statements in schema.go are the initial-release shape;
// everything added later goes here instead of being edited into schema.go,
// so upgrading an existing database file never requires a destructive
// rebuild. This walks PRAGMA table_info output and issues ALTER TABLE ADD
// COLUMN for whatever is missing, same approach as a migrate_db.py script.
var additiveColumns = []column{
	{"jobs", "output_duration", "REAL NOT NULL DEFAULT 0"},
}

// ensureSchema creates the base tables if absent, then adds any additive
// columns that are missing from an existing database file.
func ensureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, baseSchema); err != nil {
		return fmt.Errorf("create base schema: %w", err)
	}
	for _, col := range additiveColumns {
		present, err := hasColumn(ctx, db, col.table, col.name)
		if err != nil {
			return fmt.Errorf("check column %s.%s: %w", col.table, col.name, err)
		}
		if present {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", col.table, col.name, col.definition)
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("add column %s.%s: %w", col.table, col.name, err)
		}
	}
	return nil
}

func hasColumn(ctx context.Context, db *sql.DB, table, name string) (bool, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid        int
			colName    string
			colType    string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &colName, &colType, &notNull, &defaultVal, &pk); err != nil {
			return false, err
		}
		if colName == name {
			return true, nil
		}
	}
	return false, rows.Err()
}
