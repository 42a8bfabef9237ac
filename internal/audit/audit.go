// Package audit provides a SQLite-backed trail of admin actions.
package audit

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS audit_events (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	at      DATETIME NOT NULL,
	action  TEXT NOT NULL,
	subject TEXT NOT NULL DEFAULT '',
	detail  TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_audit_events_at ON audit_events(at);
`

// Event is one recorded admin action.
type Event struct {
	ID      int64     `json:"id"`
	At      time.Time `json:"at"`
	Action  string    `json:"action"`
	Subject string    `json:"subject,omitempty"`
	Detail  string    `json:"detail,omitempty"`
}

// Log wraps a sql.DB with audit-specific operations.
type Log struct {
	conn *sql.DB
}

// Open opens (or creates) the audit database and applies the schema.
func Open(dsn string) (*Log, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("audit: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("audit: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("audit: apply schema: %w", err)
	}
	return &Log{conn: conn}, nil
}

// Close closes the underlying database connection.
func (l *Log) Close() error {
	return l.conn.Close()
}

// Record appends one event. Failures are returned for the caller to log;
// an audit miss never blocks the admin action itself.
func (l *Log) Record(action, subject, detail string) error {
	_, err := l.conn.Exec(
		`INSERT INTO audit_events (at, action, subject, detail) VALUES (?, ?, ?, ?)`,
		time.Now().UTC(), action, subject, detail,
	)
	if err != nil {
		return fmt.Errorf("audit: record: %w", err)
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (l *Log) Recent(limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.conn.Query(
		`SELECT id, at, action, subject, detail FROM audit_events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: recent: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.At, &e.Action, &e.Subject, &e.Detail); err != nil {
			return nil, fmt.Errorf("audit: scan: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
