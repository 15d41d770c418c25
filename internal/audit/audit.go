// Package audit appends engine decisions to a durable log so resolutions,
// escalations, and sweep expirations can be traced after the fact.
package audit

import (
	"database/sql"
	"fmt"
	"time"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS decision_log (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	evidence_id  TEXT NOT NULL,
	actor        TEXT,
	action       TEXT NOT NULL,
	detail       TEXT,
	created_at   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decision_log_evidence
ON decision_log(evidence_id);
`

// #endregion schema

// #region entry
// Entry is one audit row.
type Entry struct {
	EvidenceID string
	Actor      string // validator/moderator id, or "system"
	Action     string // e.g. "approved", "rejected", "escalated", "expired"
	Detail     string
	CreatedAt  time.Time
}

// #endregion entry

// #region log
// Log is an append-only decision log sharing the engine's database.
type Log struct {
	db *sql.DB
}

// NewLog initializes the decision_log table and returns a Log.
func NewLog(db *sql.DB) (*Log, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate decision log: %w", err)
	}
	return &Log{db: db}, nil
}

// Record appends an entry. CreatedAt defaults to now when zero.
func (l *Log) Record(entry Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := l.db.Exec(
		`INSERT INTO decision_log (evidence_id, actor, action, detail, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		entry.EvidenceID,
		nullIfEmpty(entry.Actor),
		entry.Action,
		nullIfEmpty(entry.Detail),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record decision: %w", err)
	}
	return nil
}

// ForEvidence returns the log entries for one evidence item, oldest first.
func (l *Log) ForEvidence(evidenceID string) ([]Entry, error) {
	rows, err := l.db.Query(
		`SELECT evidence_id, actor, action, detail, created_at
		 FROM decision_log WHERE evidence_id = ? ORDER BY id`, evidenceID,
	)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var actor, detail sql.NullString
		var createdStr string
		if err := rows.Scan(&e.EvidenceID, &actor, &e.Action, &detail, &createdStr); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		if actor.Valid {
			e.Actor = actor.String
		}
		if detail.Valid {
			e.Detail = detail.String
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// #endregion log

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
