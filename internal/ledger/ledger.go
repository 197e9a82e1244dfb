// Package ledger records documents that failed a pipeline stage so they can
// be inspected and resubmitted.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Stages a document can fail in.
const (
	StageDecode   = "decode"
	StageParse    = "parse"
	StageAssemble = "assemble"
	StageRoute    = "route"
	StageSubmit   = "submit"
)

// Entry is one recorded failure.
type Entry struct {
	ID         int64     `json:"id"`
	RunID      string    `json:"run_id"`
	DocumentID string    `json:"document_id"`
	Stage      string    `json:"stage"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"created_at"`
}

// Ledger is a SQLite-backed failure log.
type Ledger struct {
	db  *sql.DB
	now func() time.Time
}

var schema = []string{`CREATE TABLE IF NOT EXISTS failures (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL DEFAULT '',
	document_id TEXT NOT NULL,
	stage       TEXT NOT NULL,
	reason      TEXT NOT NULL,
	created_at  TEXT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_failures_document ON failures(document_id)`,
}

// Open opens (creating if needed) the ledger database at path.
func Open(ctx context.Context, path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=10000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create ledger schema: %w", err)
		}
	}
	return &Ledger{db: db, now: time.Now}, nil
}

// Record appends a failure.
func (l *Ledger) Record(ctx context.Context, runID, documentID, stage, reason string) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO failures (run_id, document_id, stage, reason, created_at) VALUES (?, ?, ?, ?, ?)`,
		runID, documentID, stage, reason, l.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("record failure %s: %w", documentID, err)
	}
	return nil
}

// List returns the most recent failures, newest first. limit <= 0 means 100.
func (l *Ledger) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, run_id, document_id, stage, reason, created_at FROM failures ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list failures: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var created string
		if err := rows.Scan(&e.ID, &e.RunID, &e.DocumentID, &e.Stage, &e.Reason, &created); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Count returns the number of recorded failures.
func (l *Ledger) Count(ctx context.Context) (int, error) {
	var n int
	if err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM failures`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count failures: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (l *Ledger) Close() error {
	return l.db.Close()
}
