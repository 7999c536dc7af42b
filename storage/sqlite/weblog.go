// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package sqlite stores the web-search escalation audit log in SQLite.
//
// The log is append-only from the pipeline's point of view; the only
// mutation is an admin marking an entry as reviewed.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/merchantdesk/core"
	"github.com/poiesic/merchantdesk/storage"

	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database (testing).
const MemoryPath = ":memory:"

// defaultListLimit bounds ListWebSearchLogs when no limit is given.
const defaultListLimit = 50

const schema = `
CREATE TABLE IF NOT EXISTS web_search_log (
	id            TEXT PRIMARY KEY,
	query         TEXT NOT NULL,
	response      TEXT NOT NULL DEFAULT '',
	reason        TEXT NOT NULL DEFAULT '',
	review_needed INTEGER NOT NULL DEFAULT 1,
	user_id       TEXT NOT NULL DEFAULT '',
	created_at    DATETIME NOT NULL,
	reviewed_at   DATETIME
);
CREATE INDEX IF NOT EXISTS idx_web_search_log_review ON web_search_log(review_needed, created_at);
`

// WebSearchLog implements storage.WebSearchLogRepository on SQLite.
type WebSearchLog struct {
	db *sql.DB
}

var _ storage.WebSearchLogRepository = (*WebSearchLog)(nil)

// NewWebSearchLog opens (or creates) the audit database at path.
// Pass MemoryPath for an in-memory database.
func NewWebSearchLog(path string) (storage.WebSearchLogRepository, error) {
	return openWebSearchLog(path)
}

func openWebSearchLog(path string) (*WebSearchLog, error) {
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// Each connection to :memory: is a separate database
	if path == MemoryPath {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &WebSearchLog{db: db}, nil
}

// Close closes the database connection.
func (l *WebSearchLog) Close() error {
	return l.db.Close()
}

// AppendWebSearchLog inserts a new audit entry.
func (l *WebSearchLog) AppendWebSearchLog(ctx context.Context, entry *core.WebSearchLogEntry) error {
	if err := core.ValidateWebSearchLogEntry(entry); err != nil {
		return err
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := l.db.ExecContext(ctx,
		`INSERT INTO web_search_log (id, query, response, reason, review_needed, user_id, created_at, reviewed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Query, entry.Response, entry.Reason,
		entry.ReviewNeeded, entry.UserID, entry.CreatedAt, nullableTime(entry.ReviewedAt),
	)
	if err != nil {
		return fmt.Errorf("appending web search log: %w", err)
	}
	return nil
}

// ListWebSearchLogs returns entries newest first.
func (l *WebSearchLog) ListWebSearchLogs(ctx context.Context, reviewNeededOnly bool, limit int) ([]*core.WebSearchLogEntry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	where := ""
	if reviewNeededOnly {
		where = "WHERE review_needed = 1"
	}
	query := fmt.Sprintf(
		`SELECT id, query, response, reason, review_needed, user_id, created_at, reviewed_at
		 FROM web_search_log %s ORDER BY created_at DESC, rowid DESC LIMIT ?`, where)

	rows, err := l.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("listing web search log: %w", err)
	}
	defer rows.Close()

	var entries []*core.WebSearchLogEntry
	for rows.Next() {
		var e core.WebSearchLogEntry
		var reviewedAt sql.NullTime
		if err := rows.Scan(&e.ID, &e.Query, &e.Response, &e.Reason,
			&e.ReviewNeeded, &e.UserID, &e.CreatedAt, &reviewedAt); err != nil {
			return nil, fmt.Errorf("scanning web search log: %w", err)
		}
		if reviewedAt.Valid {
			t := reviewedAt.Time
			e.ReviewedAt = &t
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// MarkReviewed clears the review-needed flag of an entry.
func (l *WebSearchLog) MarkReviewed(ctx context.Context, id string) error {
	result, err := l.db.ExecContext(ctx,
		`UPDATE web_search_log SET review_needed = 0, reviewed_at = ? WHERE id = ?`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("marking web search log reviewed: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("marking web search log reviewed: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: web search log %s", storage.ErrNotFound, id)
	}
	return nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
