package events

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestLogBusPublish(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	bus := NewLogBus(logger)

	bus.Publish(context.Background(), Event{
		Type:       TypeEvidenceResolved,
		EvidenceID: "ev-1",
		Outcome:    "APPROVED",
	})

	out := buf.String()
	if !strings.Contains(out, "type=evidence_resolved") {
		t.Errorf("expected event type in output, got: %s", out)
	}
	if !strings.Contains(out, "evidence_id=ev-1") {
		t.Errorf("expected evidence id in output, got: %s", out)
	}
	if !strings.Contains(out, "outcome=APPROVED") {
		t.Errorf("expected outcome in output, got: %s", out)
	}
}

func TestCollectorDrain(t *testing.T) {
	c := NewCollector(4)
	ctx := context.Background()

	c.Publish(ctx, Event{Type: TypeAssignmentCreated, AssignmentID: "a-1"})
	c.Publish(ctx, Event{Type: TypeAssignmentOverdue, AssignmentID: "a-2"})

	got := c.Drain()
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].Type != TypeAssignmentCreated || got[1].Type != TypeAssignmentOverdue {
		t.Fatalf("unexpected event order: %v", got)
	}
	if len(c.Drain()) != 0 {
		t.Fatal("expected empty collector after drain")
	}
}

func TestCollectorDropsWhenFull(t *testing.T) {
	c := NewCollector(1)
	ctx := context.Background()

	c.Publish(ctx, Event{AssignmentID: "a-1"})
	c.Publish(ctx, Event{AssignmentID: "a-2"}) // dropped

	got := c.Drain()
	if len(got) != 1 || got[0].AssignmentID != "a-1" {
		t.Fatalf("expected only first event retained, got %v", got)
	}
}
