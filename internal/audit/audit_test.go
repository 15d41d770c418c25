package audit

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func memDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordAndForEvidence(t *testing.T) {
	l, err := NewLog(memDB(t))
	if err != nil {
		t.Fatalf("NewLog: %v", err)
	}

	if err := l.Record(Entry{EvidenceID: "ev-1", Actor: "val-1", Action: "approved", Detail: "rate=100.0"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := l.Record(Entry{EvidenceID: "ev-1", Action: "escalated"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := l.Record(Entry{EvidenceID: "ev-2", Action: "rejected"}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	entries, err := l.ForEvidence("ev-1")
	if err != nil {
		t.Fatalf("ForEvidence: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Action != "approved" || entries[1].Action != "escalated" {
		t.Fatalf("unexpected order: %v", entries)
	}
	if entries[0].Actor != "val-1" {
		t.Fatalf("expected actor val-1, got %q", entries[0].Actor)
	}
	if entries[1].Actor != "" {
		t.Fatalf("expected empty actor, got %q", entries[1].Actor)
	}
	if entries[0].CreatedAt.IsZero() {
		t.Fatal("expected CreatedAt defaulted")
	}
}

func TestRecordExplicitTimestamp(t *testing.T) {
	l, err := NewLog(memDB(t))
	if err != nil {
		t.Fatalf("NewLog: %v", err)
	}

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := l.Record(Entry{EvidenceID: "ev-1", Action: "expired", CreatedAt: at}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	entries, err := l.ForEvidence("ev-1")
	if err != nil {
		t.Fatalf("ForEvidence: %v", err)
	}
	if !entries[0].CreatedAt.Equal(at) {
		t.Fatalf("expected %v, got %v", at, entries[0].CreatedAt)
	}
}

func TestRecordFailsOnMissingTable(t *testing.T) {
	db := memDB(t)
	l, err := NewLog(db)
	if err != nil {
		t.Fatalf("NewLog: %v", err)
	}
	db.Exec("DROP TABLE decision_log")

	if err := l.Record(Entry{EvidenceID: "ev-1", Action: "approved"}); err == nil {
		t.Fatal("expected error when decision_log table is missing")
	}
	if _, err := l.ForEvidence("ev-1"); err == nil {
		t.Fatal("expected error when decision_log table is missing")
	}
}
