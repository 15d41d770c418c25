// Package engine coordinates evidence validation: it creates and drives
// validator assignments, records judgments, and aggregates them into a
// consensus decision per the fixed scoring policy. All mutations to a given
// evidence item are serialized by a per-evidence lock and a single SQLite
// transaction.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/evidenceworks/consensus/internal/audit"
	"github.com/evidenceworks/consensus/internal/events"
	"github.com/evidenceworks/consensus/internal/logging"
	"github.com/evidenceworks/consensus/internal/policy"
	"github.com/evidenceworks/consensus/internal/store"
)

// #region engine-struct
// Engine is the top-level coordinator for evidence validation and
// assignment lifecycle management.
type Engine struct {
	store  *store.Store
	policy policy.Policy
	bus    events.Bus
	audit  *audit.Log
	log    *slog.Logger
	locks  *keyedMutex
}

// #endregion engine-struct

// #region constructor
// New wires an engine over an open store. The audit log shares the store's
// database. bus may not be nil; use events.NewLogBus for plain logging.
func New(s *store.Store, p policy.Policy, bus events.Bus) (*Engine, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	auditLog, err := audit.NewLog(s.DB())
	if err != nil {
		return nil, err
	}
	return &Engine{
		store:  s,
		policy: p,
		bus:    bus,
		audit:  auditLog,
		log:    logging.New("engine"),
		locks:  newKeyedMutex(),
	}, nil
}

// Policy returns the active policy.
func (e *Engine) Policy() policy.Policy {
	return e.policy
}

// #endregion constructor

// #region helpers
func newID() string {
	return uuid.New().String()
}

func now() time.Time {
	return time.Now().UTC()
}

// recordAudit appends to the decision log, logging failures instead of
// propagating them: the audit trail is advisory, the decision is already
// committed.
func (e *Engine) recordAudit(entry audit.Entry) {
	if err := e.audit.Record(entry); err != nil {
		e.log.Warn("audit record failed", slog.String("evidence_id", entry.EvidenceID), slog.Any("error", err))
	}
}

func (e *Engine) publish(ctx context.Context, ev events.Event) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = now()
	}
	e.bus.Publish(ctx, ev)
}

// #endregion helpers
