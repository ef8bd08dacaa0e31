// Package history persists finished session summaries to a local SQLite
// database so past runs can be listed and compared.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/callum/sitecheck/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// Record is one stored session summary.
type Record struct {
	SessionID      string
	URL            string
	TotalPages     int
	TestsRun       int
	TestsSucceeded int
	TestsFailed    int
	Errors         []string
	StartedAt      time.Time
	FinishedAt     time.Time
}

// Store manages the SQLite session-history database.
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore opens (creating if needed) the database at dbPath and applies the
// schema. ":memory:" is supported for tests.
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// busy_timeout first so the remaining pragmas wait on locks held by a
	// concurrently initializing process.
	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordSession inserts a finished session summary.
func (s *Store) RecordSession(ctx context.Context, summary models.SessionSummary) error {
	errorsJSON, err := json.Marshal(summary.Errors)
	if err != nil {
		return fmt.Errorf("encode session errors: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (
			session_id, url, total_pages, tests_run, tests_succeeded,
			tests_failed, errors, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.SessionID, summary.URL, summary.TotalPages, summary.TestsRun,
		summary.TestsSucceeded, summary.TestsFailed, string(errorsJSON),
		summary.StartTime, summary.EndTime,
	)
	if err != nil {
		return fmt.Errorf("record session %s: %w", summary.SessionID, err)
	}
	return nil
}

// RecentSessions returns up to limit sessions, newest first.
func (s *Store) RecentSessions(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, url, total_pages, tests_run, tests_succeeded,
		       tests_failed, errors, started_at, finished_at
		FROM sessions
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var errorsJSON string
		if err := rows.Scan(&r.SessionID, &r.URL, &r.TotalPages, &r.TestsRun,
			&r.TestsSucceeded, &r.TestsFailed, &errorsJSON, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		if err := json.Unmarshal([]byte(errorsJSON), &r.Errors); err != nil {
			r.Errors = nil
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
