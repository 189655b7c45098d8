// Package journal persists an audit log of every synthetic scrobble a
// run produced, backed by SQLite. It is write-mostly: the sync command
// appends, the history command reads back. Reconciliation state itself
// is in-memory only; the journal never feeds back into a run.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Journal is a SQLite-backed scrobble audit log.
type Journal struct {
	db *sql.DB
}

// Entry is one journaled scrobble.
type Entry struct {
	ID        int64
	Artist    string
	Title     string
	Timestamp time.Time
	DryRun    bool
	CreatedAt time.Time
}

// Open opens (creating if needed) the journal at dbPath.
func Open(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single connection keeps in-memory databases consistent and is
	// plenty for an append-only log.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA journal_mode = WAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS scrobbles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			artist TEXT NOT NULL,
			title TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			dry_run BOOLEAN NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
		);

		CREATE INDEX IF NOT EXISTS idx_created_at ON scrobbles(created_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

// Record appends one scrobble to the journal.
func (j *Journal) Record(artist, title string, timestamp time.Time, dryRun bool) error {
	query := `
		INSERT INTO scrobbles (artist, title, timestamp, dry_run)
		VALUES (?, ?, ?, ?)
	`
	if _, err := j.db.Exec(query, artist, title, timestamp.Unix(), dryRun); err != nil {
		return fmt.Errorf("failed to insert scrobble: %w", err)
	}
	return nil
}

// History returns the most recent entries, newest first. limit <= 0
// returns everything.
func (j *Journal) History(ctx context.Context, limit int) ([]Entry, error) {
	query := `
		SELECT id, artist, title, timestamp, dry_run, created_at
		FROM scrobbles
		ORDER BY created_at DESC, id DESC
	`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query scrobbles: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var ts, createdAt int64
		if err := rows.Scan(&e.ID, &e.Artist, &e.Title, &ts, &e.DryRun, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan scrobble: %w", err)
		}
		e.Timestamp = time.Unix(ts, 0)
		e.CreatedAt = time.Unix(createdAt, 0)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate scrobbles: %w", err)
	}

	return entries, nil
}
