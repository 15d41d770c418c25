package engine

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/evidenceworks/consensus/internal/audit"
	"github.com/evidenceworks/consensus/internal/domain"
	"github.com/evidenceworks/consensus/internal/events"
	"github.com/evidenceworks/consensus/internal/scoring"
)

// #region complete
// Complete finishes an assignment and records the validator's judgment as
// one logical operation: the assignment transition, the judgment insert,
// the evidence counter update, and the validator load release either all
// commit or none do. Valid from any active assignment state.
func (e *Engine) Complete(ctx context.Context, assignmentID string, draft domain.JudgmentDraft) (domain.Judgment, error) {
	if err := validateDraft(&draft); err != nil {
		return domain.Judgment{}, err
	}
	overall, err := scoring.Overall(draft.Quality, draft.Relevance, draft.Completeness)
	if err != nil {
		return domain.Judgment{}, err
	}

	probe, err := e.store.GetAssignment(e.store.DB(), assignmentID)
	if err != nil {
		return domain.Judgment{}, err
	}

	unlock := e.locks.lock(probe.EvidenceID)
	defer unlock()

	var (
		judgment domain.Judgment
		outcome  resolution
	)
	err = e.store.WithTx(func(tx *sql.Tx) error {
		a, err := e.store.GetAssignment(tx, assignmentID)
		if err != nil {
			return err
		}
		if !domain.CanTransitionAssignment(a.Status, domain.AssignmentCompleted) {
			return &domain.InvalidTransitionError{AssignmentID: a.ID, From: a.Status, To: domain.AssignmentCompleted}
		}

		ev, err := e.store.GetEvidence(tx, a.EvidenceID)
		if err != nil {
			return err
		}
		if ev.Status.Terminal() {
			return &domain.InvalidStateError{EvidenceID: ev.ID, Status: ev.Status, Op: "record judgment"}
		}

		judged, err := e.store.HasJudgment(tx, ev.ID, a.ValidatorID)
		if err != nil {
			return err
		}
		if judged {
			return &domain.ConflictError{
				Detail: fmt.Sprintf("judgment already recorded for evidence %s by validator %s", ev.ID, a.ValidatorID),
			}
		}

		a.Status = domain.AssignmentCompleted
		a.CompletedAt = now()
		if err := e.store.UpdateAssignmentState(tx, a); err != nil {
			return err
		}
		if err := e.store.AdjustValidatorLoad(tx, a.ValidatorID, -1); err != nil {
			return err
		}

		judgment = domain.Judgment{
			ID:           newID(),
			EvidenceID:   ev.ID,
			ValidatorID:  a.ValidatorID,
			Decision:     draft.Decision,
			Quality:      draft.Quality,
			Relevance:    draft.Relevance,
			Completeness: draft.Completeness,
			OverallScore: overall,
			Feedback:     draft.Feedback,
			Confidence:   draft.Confidence,
			CreatedAt:    now(),
		}
		if err := e.store.InsertJudgment(tx, judgment); err != nil {
			return err
		}

		outcome, err = e.recordJudgment(tx, ev, judgment)
		return err
	})
	if err != nil {
		return domain.Judgment{}, err
	}

	e.emitResolution(ctx, outcome)
	return judgment, nil
}

func validateDraft(draft *domain.JudgmentDraft) error {
	if !domain.ValidDecision(draft.Decision) {
		return &domain.ValidationError{Field: "decision", Detail: fmt.Sprintf("unknown decision %q", draft.Decision)}
	}
	if draft.Confidence == "" {
		draft.Confidence = domain.ConfidenceMedium
	}
	if !domain.ValidConfidence(draft.Confidence) {
		return &domain.ValidationError{Field: "confidence", Detail: fmt.Sprintf("unknown confidence %q", draft.Confidence)}
	}
	return nil
}

// #endregion complete

// #region record-judgment
// resolution captures what the aggregation decided, for post-commit events.
type resolution struct {
	evidence  domain.Evidence
	resolved  bool // reached a terminal status this pass
	escalated bool // entered the inconclusive band or needs_review
}

// recordJudgment applies one judgment to the evidence counters and runs the
// quorum decision. Caller holds the evidence lock and the transaction.
func (e *Engine) recordJudgment(tx *sql.Tx, ev domain.Evidence, j domain.Judgment) (resolution, error) {
	wasEscalated := ev.Escalated

	switch j.Decision {
	case domain.DecisionApprove:
		ev.CompletedCount++
		ev.PositiveCount++
	case domain.DecisionReject:
		ev.CompletedCount++
		ev.NegativeCount++
	case domain.DecisionNeedsReview:
		// Counts toward neither side: the validator is asking for a
		// moderator, so the evidence escalates without moving the quorum.
		ev.Escalated = true
	}

	res := resolution{}
	if ev.Status == domain.EvidencePending {
		ev.Status = domain.EvidenceUnderReview
	}

	if ev.CompletedCount >= ev.RequiredCount {
		rate := scoring.ApprovalRate(ev.PositiveCount, ev.CompletedCount)
		switch {
		case scoring.Approved(rate):
			ev.Status = domain.EvidenceApproved
			ev.Score = scoring.ApprovalScore(rate)
			ev.ValidatedAt = now()
			res.resolved = true
		case scoring.Rejected(rate):
			ev.Status = domain.EvidenceRejected
			ev.Score = 0
			ev.ValidatedAt = now()
			if fb, err := e.latestRejectionFeedback(tx, ev.ID, j); err != nil {
				return resolution{}, err
			} else if fb != "" {
				ev.Feedback = fb
			}
			res.resolved = true
		default:
			// Inconclusive band: hold for manual moderator resolution.
			ev.Status = domain.EvidenceUnderReview
			ev.Escalated = true
		}
	}

	if err := e.store.UpdateEvidenceResolution(tx, ev); err != nil {
		return resolution{}, err
	}

	res.evidence = ev
	res.escalated = ev.Escalated && !wasEscalated
	return res, nil
}

// latestRejectionFeedback returns the comment of the most recent rejecting
// judgment, preferring the one just recorded.
func (e *Engine) latestRejectionFeedback(tx *sql.Tx, evidenceID string, current domain.Judgment) (string, error) {
	if current.Decision == domain.DecisionReject {
		return current.Feedback, nil
	}
	all, err := e.store.ListJudgments(tx, evidenceID)
	if err != nil {
		return "", err
	}
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].Decision == domain.DecisionReject {
			return all[i].Feedback, nil
		}
	}
	return "", nil
}

// emitResolution publishes events and audit entries after the transaction
// committed.
func (e *Engine) emitResolution(ctx context.Context, res resolution) {
	ev := res.evidence
	if res.resolved {
		e.publish(ctx, events.Event{
			Type:       events.TypeEvidenceResolved,
			EvidenceID: ev.ID,
			Outcome:    string(ev.Status),
			Detail:     fmt.Sprintf("score=%.2f", ev.Score),
		})
		e.recordAudit(audit.Entry{
			EvidenceID: ev.ID,
			Actor:      "system",
			Action:     actionFor(ev.Status),
			Detail: fmt.Sprintf("rate=%.1f completed=%d/%d",
				scoring.ApprovalRate(ev.PositiveCount, ev.CompletedCount), ev.CompletedCount, ev.RequiredCount),
		})
		e.log.InfoContext(ctx, "evidence resolved",
			slog.String("evidence_id", ev.ID),
			slog.String("status", string(ev.Status)),
			slog.Float64("score", ev.Score))
		return
	}
	if res.escalated {
		e.publish(ctx, events.Event{
			Type:       events.TypeEvidenceEscalated,
			EvidenceID: ev.ID,
			Detail:     "manual moderator resolution required",
		})
		e.recordAudit(audit.Entry{
			EvidenceID: ev.ID,
			Actor:      "system",
			Action:     "escalated",
			Detail: fmt.Sprintf("rate=%.1f completed=%d/%d",
				scoring.ApprovalRate(ev.PositiveCount, ev.CompletedCount), ev.CompletedCount, ev.RequiredCount),
		})
		e.log.InfoContext(ctx, "evidence escalated", slog.String("evidence_id", ev.ID))
	}
}

func actionFor(status domain.EvidenceStatus) string {
	if status == domain.EvidenceApproved {
		return "approved"
	}
	return "rejected"
}

// #endregion record-judgment
