// Package store persists evidence, validators, assignments, and judgments
// in SQLite. Row operations accept a Querier so the engine can compose
// several writes into one transaction.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS evidence (
	evidence_id     TEXT PRIMARY KEY,
	challenge_id    TEXT NOT NULL,
	submitter_id    TEXT NOT NULL,
	category        TEXT NOT NULL DEFAULT '',
	content_type    TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL,
	required_count  INTEGER NOT NULL,
	completed_count INTEGER NOT NULL DEFAULT 0,
	positive_count  INTEGER NOT NULL DEFAULT 0,
	negative_count  INTEGER NOT NULL DEFAULT 0,
	score           REAL NOT NULL DEFAULT 0,
	feedback        TEXT,
	escalated       INTEGER NOT NULL DEFAULT 0,
	submitted_at    TEXT NOT NULL,
	validated_at    TEXT,
	CHECK (completed_count = positive_count + negative_count)
);

CREATE TABLE IF NOT EXISTS validators (
	validator_id     TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	status           TEXT NOT NULL,
	available        INTEGER NOT NULL DEFAULT 1,
	specialties      TEXT NOT NULL DEFAULT '[]',
	current_load     INTEGER NOT NULL DEFAULT 0,
	max_capacity     INTEGER NOT NULL,
	rating           REAL NOT NULL DEFAULT 0,
	last_assigned_at TEXT,
	CHECK (current_load >= 0 AND current_load <= max_capacity)
);

CREATE TABLE IF NOT EXISTS assignments (
	assignment_id TEXT PRIMARY KEY,
	evidence_id   TEXT NOT NULL,
	validator_id  TEXT NOT NULL,
	assigner_id   TEXT,
	status        TEXT NOT NULL,
	priority      TEXT NOT NULL,
	reason        TEXT,
	auto_assigned INTEGER NOT NULL DEFAULT 0,
	assigned_at   TEXT NOT NULL,
	due_at        TEXT NOT NULL,
	accepted_at   TEXT,
	started_at    TEXT,
	completed_at  TEXT,
	notified_at   TEXT,
	FOREIGN KEY (evidence_id) REFERENCES evidence(evidence_id),
	FOREIGN KEY (validator_id) REFERENCES validators(validator_id)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_assignments_active_pair
ON assignments(evidence_id, validator_id)
WHERE status IN ('ASSIGNED', 'ACCEPTED', 'IN_PROGRESS');

CREATE INDEX IF NOT EXISTS idx_assignments_due
ON assignments(due_at)
WHERE status IN ('ASSIGNED', 'ACCEPTED', 'IN_PROGRESS');

CREATE TABLE IF NOT EXISTS judgments (
	judgment_id   TEXT PRIMARY KEY,
	evidence_id   TEXT NOT NULL,
	validator_id  TEXT NOT NULL,
	decision      TEXT NOT NULL,
	quality       REAL NOT NULL,
	relevance     REAL NOT NULL,
	completeness  REAL NOT NULL,
	overall_score REAL NOT NULL,
	feedback      TEXT,
	confidence    TEXT NOT NULL,
	created_at    TEXT NOT NULL,
	UNIQUE (evidence_id, validator_id),
	FOREIGN KEY (evidence_id) REFERENCES evidence(evidence_id),
	FOREIGN KEY (validator_id) REFERENCES validators(validator_id)
);
`

// #endregion schema

// #region querier
// Querier is satisfied by both *sql.DB and *sql.Tx, letting row operations
// participate in engine transactions.
type Querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// #endregion querier

// #region store-struct
// Store manages engine state in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return nil, fmt.Errorf("pragma busy: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStoreWithDB wraps an already-open database. Used by tests that need
// an in-memory database or direct schema manipulation.
func NewStoreWithDB(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages (e.g. audit).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion close

// #region with-tx
// WithTx runs fn inside a transaction, committing on nil and rolling back
// on error.
func (s *Store) WithTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// #endregion with-tx

// #region time-helpers
// timeOrNull stores zero times as NULL.
func timeOrNull(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseNullTime reads a nullable RFC3339Nano column.
func parseNullTime(ns sql.NullString) time.Time {
	if !ns.Valid {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339Nano, ns.String)
	return t
}

// nullIfEmpty stores empty strings as NULL.
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// stringOrEmpty reads a nullable text column.
func stringOrEmpty(ns sql.NullString) string {
	if !ns.Valid {
		return ""
	}
	return ns.String
}

// #endregion time-helpers
