// Package events defines the outbound events the engine emits for
// downstream consumers (notification, gamification). The engine publishes
// after the owning transaction commits; delivery semantics beyond that are
// the consumer's concern.
package events

import (
	"context"
	"log/slog"
	"time"
)

// #region event-types
// Type names the event kinds emitted by the engine.
type Type string

const (
	TypeAssignmentCreated Type = "assignment_created"
	TypeAssignmentOverdue Type = "assignment_overdue"
	TypeEvidenceResolved  Type = "evidence_resolved"
	TypeEvidenceEscalated Type = "evidence_escalated"
)

// Event is a single outbound notification.
type Event struct {
	Type         Type
	EvidenceID   string
	AssignmentID string // set for assignment events
	ValidatorID  string // set for assignment events
	Outcome      string // APPROVED or REJECTED for evidence_resolved
	Detail       string
	OccurredAt   time.Time
}

// #endregion event-types

// #region bus
// Bus receives engine events. Implementations must be safe for concurrent
// use; Publish must not block engine operations.
type Bus interface {
	Publish(ctx context.Context, ev Event)
}

// #endregion bus

// #region log-bus
// LogBus writes every event to a structured logger. The default production
// wiring until a real broker integration exists downstream.
type LogBus struct {
	log *slog.Logger
}

// NewLogBus returns a bus backed by the given logger.
func NewLogBus(log *slog.Logger) *LogBus {
	return &LogBus{log: log}
}

// Publish logs the event with its fields as attributes.
func (b *LogBus) Publish(ctx context.Context, ev Event) {
	b.log.InfoContext(ctx, "event",
		slog.String("type", string(ev.Type)),
		slog.String("evidence_id", ev.EvidenceID),
		slog.String("assignment_id", ev.AssignmentID),
		slog.String("validator_id", ev.ValidatorID),
		slog.String("outcome", ev.Outcome),
		slog.String("detail", ev.Detail),
	)
}

// #endregion log-bus

// #region collector
// Collector buffers events for inspection in tests.
type Collector struct {
	ch chan Event
}

// NewCollector returns a collector able to hold up to size events.
func NewCollector(size int) *Collector {
	return &Collector{ch: make(chan Event, size)}
}

// Publish buffers the event, dropping it if the buffer is full.
func (c *Collector) Publish(_ context.Context, ev Event) {
	select {
	case c.ch <- ev:
	default:
	}
}

// Drain returns all buffered events.
func (c *Collector) Drain() []Event {
	var out []Event
	for {
		select {
		case ev := <-c.ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

// #endregion collector
