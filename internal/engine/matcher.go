package engine

import (
	"context"
	"database/sql"
	"log/slog"
	"sort"

	"github.com/evidenceworks/consensus/internal/domain"
	"github.com/evidenceworks/consensus/internal/events"
)

// #region auto-assign
// AutoAssign selects the best available validator for the evidence and
// creates exactly one assignment. Fails with NoEligibleValidatorError when
// the filtered candidate set is empty; callers retry later or fall back to
// manual assignment.
func (e *Engine) AutoAssign(ctx context.Context, evidenceID string) (domain.Assignment, error) {
	unlock := e.locks.lock(evidenceID)
	defer unlock()

	var created domain.Assignment
	err := e.store.WithTx(func(tx *sql.Tx) error {
		ev, err := e.store.GetEvidence(tx, evidenceID)
		if err != nil {
			return err
		}
		if ev.Status.Terminal() {
			return &domain.InvalidStateError{EvidenceID: ev.ID, Status: ev.Status, Op: "auto-assign"}
		}

		candidates, err := e.matchCandidates(tx, ev)
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			return &domain.NoEligibleValidatorError{EvidenceID: ev.ID}
		}

		created, err = e.createAssignment(tx, ev, candidates[0], "", "auto-assigned", true)
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
		Detail:       "auto-assigned",
	})
	e.log.InfoContext(ctx, "validator auto-assigned",
		slog.String("assignment_id", created.ID),
		slog.String("evidence_id", created.EvidenceID),
		slog.String("validator_id", created.ValidatorID))
	return created, nil
}

// #endregion auto-assign

// #region match
// matchCandidates applies the selection policy: eligibility filter,
// specialty preference with general fallback, exclusion of the submitter
// and of validators already involved with the evidence, then ranking by
// load, rating, and least-recent assignment.
func (e *Engine) matchCandidates(tx *sql.Tx, ev domain.Evidence) ([]domain.Validator, error) {
	all, err := e.store.ListValidators(tx, "")
	if err != nil {
		return nil, err
	}

	active, err := e.store.ListActiveAssignments(tx, ev.ID)
	if err != nil {
		return nil, err
	}
	holding := make(map[string]bool, len(active))
	for _, a := range active {
		holding[a.ValidatorID] = true
	}

	var matched, general []domain.Validator
	for _, v := range all {
		if !v.Eligible() || holding[v.ID] || v.ID == ev.SubmitterID {
			continue
		}
		judged, err := e.store.HasJudgment(tx, ev.ID, v.ID)
		if err != nil {
			return nil, err
		}
		if judged {
			continue
		}
		switch {
		case ev.Category != "" && v.HasSpecialty(ev.Category):
			matched = append(matched, v)
		case v.HasSpecialty(domain.SpecialtyGeneral):
			general = append(general, v)
		}
	}

	candidates := matched
	if len(candidates) == 0 {
		candidates = general
	}
	rankCandidates(candidates)
	return candidates, nil
}

// rankCandidates orders by lowest load, then highest rating, then least
// recently assigned (never-assigned first).
func rankCandidates(vs []domain.Validator) {
	sort.SliceStable(vs, func(i, j int) bool {
		if vs[i].CurrentLoad != vs[j].CurrentLoad {
			return vs[i].CurrentLoad < vs[j].CurrentLoad
		}
		if vs[i].Rating != vs[j].Rating {
			return vs[i].Rating > vs[j].Rating
		}
		return vs[i].LastAssignedAt.Before(vs[j].LastAssignedAt)
	})
}

// #endregion match
