package engine

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/evidenceworks/consensus/internal/audit"
	"github.com/evidenceworks/consensus/internal/domain"
	"github.com/evidenceworks/consensus/internal/events"
)

// #region assign
// Assign creates an assignment binding the given validator to the evidence.
// The validator's load counter is incremented in the same transaction; the
// partial unique index prevents a second active assignment for the pair.
func (e *Engine) Assign(ctx context.Context, evidenceID, validatorID, assignerID, reason string) (domain.Assignment, error) {
	unlock := e.locks.lock(evidenceID)
	defer unlock()

	var created domain.Assignment
	err := e.store.WithTx(func(tx *sql.Tx) error {
		ev, err := e.store.GetEvidence(tx, evidenceID)
		if err != nil {
			return err
		}
		validator, err := e.store.GetValidator(tx, validatorID)
		if err != nil {
			return err
		}
		created, err = e.createAssignment(tx, ev, validator, assignerID, reason, false)
		return err
	})
	if err != nil {
		return domain.Assignment{}, err
	}

	e.publish(ctx, events.Event{
		Type:         events.TypeAssignmentCreated,
		EvidenceID:   created.EvidenceID,
		AssignmentID: created.ID,
		ValidatorID:  created.ValidatorID,
	})
	e.log.InfoContext(ctx, "assignment created",
		slog.String("assignment_id", created.ID),
		slog.String("evidence_id", created.EvidenceID),
		slog.String("validator_id", created.ValidatorID))
	return created, nil
}

// createAssignment holds the shared path for manual, auto, and re-assignment.
// Caller holds the evidence lock and the transaction.
func (e *Engine) createAssignment(tx *sql.Tx, ev domain.Evidence, validator domain.Validator, assignerID, reason string, auto bool) (domain.Assignment, error) {
	if ev.Status.Terminal() {
		return domain.Assignment{}, &domain.InvalidStateError{EvidenceID: ev.ID, Status: ev.Status, Op: "assign"}
	}
	if validator.ID == ev.SubmitterID {
		return domain.Assignment{}, &domain.ValidationError{Field: "validator_id", Detail: "submitter cannot validate own evidence"}
	}

	judged, err := e.store.HasJudgment(tx, ev.ID, validator.ID)
	if err != nil {
		return domain.Assignment{}, err
	}
	if judged {
		return domain.Assignment{}, &domain.ConflictError{
			Detail: fmt.Sprintf("validator %s already judged evidence %s", validator.ID, ev.ID),
		}
	}

	active, err := e.store.ListActiveAssignments(tx, ev.ID)
	if err != nil {
		return domain.Assignment{}, err
	}
	limit := ev.RequiredCount - ev.CompletedCount + e.policy.AssignmentSlack
	if len(active) >= limit {
		return domain.Assignment{}, &domain.ConflictError{
			Detail: fmt.Sprintf("evidence %s already has %d active assignments (limit %d)", ev.ID, len(active), limit),
		}
	}
	for _, a := range active {
		if a.ValidatorID == validator.ID {
			return domain.Assignment{}, &domain.ConflictError{
				Detail: fmt.Sprintf("validator %s already holds an active assignment for evidence %s", validator.ID, ev.ID),
			}
		}
	}

	at := now()
	assignment := domain.Assignment{
		ID:           newID(),
		EvidenceID:   ev.ID,
		ValidatorID:  validator.ID,
		AssignerID:   assignerID,
		Status:       domain.AssignmentAssigned,
		Priority:     e.policy.DefaultPriority,
		Reason:       reason,
		AutoAssigned: auto,
		AssignedAt:   at,
		DueAt:        at.Add(e.policy.JudgmentDue),
	}
	if err := e.store.InsertAssignment(tx, assignment); err != nil {
		return domain.Assignment{}, err
	}
	if err := e.store.AdjustValidatorLoad(tx, validator.ID, 1); err != nil {
		return domain.Assignment{}, err
	}
	if err := e.store.TouchValidatorAssigned(tx, validator.ID, at); err != nil {
		return domain.Assignment{}, err
	}
	return assignment, nil
}

// #endregion assign

// #region accept-start
// Accept moves an assignment from ASSIGNED to ACCEPTED.
func (e *Engine) Accept(ctx context.Context, assignmentID string) (domain.Assignment, error) {
	return e.transition(ctx, assignmentID, domain.AssignmentAccepted, "", func(a *domain.Assignment) {
		a.AcceptedAt = now()
	}, onlyFrom(domain.AssignmentAssigned))
}

// Start moves an assignment from ACCEPTED to IN_PROGRESS.
func (e *Engine) Start(ctx context.Context, assignmentID string) (domain.Assignment, error) {
	return e.transition(ctx, assignmentID, domain.AssignmentInProgress, "", func(a *domain.Assignment) {
		a.StartedAt = now()
	}, onlyFrom(domain.AssignmentAccepted))
}

// #endregion accept-start

// #region terminal-transitions
// Cancel terminates an active assignment without a judgment, releasing the
// validator's slot.
func (e *Engine) Cancel(ctx context.Context, assignmentID, reason string) (domain.Assignment, error) {
	return e.transition(ctx, assignmentID, domain.AssignmentCancelled, reason, nil, nil)
}

// Reject records the validator declining the assignment. Valid only from
// ASSIGNED.
func (e *Engine) Reject(ctx context.Context, assignmentID, reason string) (domain.Assignment, error) {
	return e.transition(ctx, assignmentID, domain.AssignmentRejected, reason, nil, onlyFrom(domain.AssignmentAssigned))
}

// Expire terminates an overdue assignment. The evidence keeps its judgment
// need; the slot must be refilled for quorum to be reachable.
func (e *Engine) Expire(ctx context.Context, assignmentID string) (domain.Assignment, error) {
	a, err := e.transition(ctx, assignmentID, domain.AssignmentExpired, "judgment window elapsed", nil, nil)
	if err != nil {
		return domain.Assignment{}, err
	}
	e.publish(ctx, events.Event{
		Type:         events.TypeAssignmentOverdue,
		EvidenceID:   a.EvidenceID,
		AssignmentID: a.ID,
		ValidatorID:  a.ValidatorID,
	})
	e.recordAudit(audit.Entry{
		EvidenceID: a.EvidenceID,
		Actor:      "system",
		Action:     "expired",
		Detail:     fmt.Sprintf("assignment %s validator %s", a.ID, a.ValidatorID),
	})
	return a, nil
}

// onlyFrom builds a guard restricting the source status of a transition.
func onlyFrom(allowed domain.AssignmentStatus) func(domain.AssignmentStatus) bool {
	return func(from domain.AssignmentStatus) bool {
		return from == allowed
	}
}

// transition drives one assignment state change: guard, stamp, write, and
// load release for terminal states. No mutation happens on a failed guard.
func (e *Engine) transition(
	ctx context.Context,
	assignmentID string,
	to domain.AssignmentStatus,
	reason string,
	stamp func(*domain.Assignment),
	fromGuard func(domain.AssignmentStatus) bool,
) (domain.Assignment, error) {
	probe, err := e.store.GetAssignment(e.store.DB(), assignmentID)
	if err != nil {
		return domain.Assignment{}, err
	}

	unlock := e.locks.lock(probe.EvidenceID)
	defer unlock()

	var updated domain.Assignment
	err = e.store.WithTx(func(tx *sql.Tx) error {
		a, err := e.store.GetAssignment(tx, assignmentID)
		if err != nil {
			return err
		}
		if !domain.CanTransitionAssignment(a.Status, to) || (fromGuard != nil && !fromGuard(a.Status)) {
			return &domain.InvalidTransitionError{AssignmentID: a.ID, From: a.Status, To: to}
		}

		a.Status = to
		if reason != "" {
			a.Reason = reason
		}
		if stamp != nil {
			stamp(&a)
		}
		if err := e.store.UpdateAssignmentState(tx, a); err != nil {
			return err
		}
		if to.Terminal() {
			if err := e.store.AdjustValidatorLoad(tx, a.ValidatorID, -1); err != nil {
				return err
			}
		}
		updated = a
		return nil
	})
	if err != nil {
		return domain.Assignment{}, err
	}

	e.log.InfoContext(ctx, "assignment transition",
		slog.String("assignment_id", updated.ID),
		slog.String("status", string(updated.Status)))
	return updated, nil
}

// #endregion terminal-transitions

// #region reassign
// Reassign atomically cancels an active assignment and creates a
// replacement for the new validator, preserving priority and due date.
func (e *Engine) Reassign(ctx context.Context, assignmentID, newValidatorID, reason string) (domain.Assignment, error) {
	probe, err := e.store.GetAssignment(e.store.DB(), assignmentID)
	if err != nil {
		return domain.Assignment{}, err
	}

	unlock := e.locks.lock(probe.EvidenceID)
	defer unlock()

	var replacement domain.Assignment
	err = e.store.WithTx(func(tx *sql.Tx) error {
		original, err := e.store.GetAssignment(tx, assignmentID)
		if err != nil {
			return err
		}
		if original.Status.Terminal() {
			return &domain.InvalidTransitionError{
				AssignmentID: original.ID, From: original.Status, To: domain.AssignmentCancelled,
			}
		}
		ev, err := e.store.GetEvidence(tx, original.EvidenceID)
		if err != nil {
			return err
		}
		validator, err := e.store.GetValidator(tx, newValidatorID)
		if err != nil {
			return err
		}

		original.Status = domain.AssignmentCancelled
		original.Reason = reason
		if err := e.store.UpdateAssignmentState(tx, original); err != nil {
			return err
		}
		if err := e.store.AdjustValidatorLoad(tx, original.ValidatorID, -1); err != nil {
			return err
		}

		replacement, err = e.createAssignment(tx, ev, validator, original.AssignerID, reason, original.AutoAssigned)
		if err != nil {
			return err
		}
		// Preserve the original's priority and deadline.
		replacement.Priority = original.Priority
		replacement.DueAt = original.DueAt
		return e.store.UpdateAssignmentTerms(tx, replacement)
	})
	if err != nil {
		return domain.Assignment{}, err
	}

	e.publish(ctx, events.Event{
		Type:         events.TypeAssignmentCreated,
		EvidenceID:   replacement.EvidenceID,
		AssignmentID: replacement.ID,
		ValidatorID:  replacement.ValidatorID,
		Detail:       "reassigned from " + assignmentID,
	})
	return replacement, nil
}

// #endregion reassign
