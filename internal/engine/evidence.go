package engine

import (
	"context"
	"log/slog"

	"github.com/evidenceworks/consensus/internal/audit"
	"github.com/evidenceworks/consensus/internal/domain"
	"github.com/evidenceworks/consensus/internal/scoring"
)

// #region new-evidence
// NewEvidence is the submission contract from the evidence collaborator.
type NewEvidence struct {
	ChallengeID   string
	SubmitterID   string
	Category      string
	ContentType   string
	RequiredCount int // 0 = policy default; fixed at creation
}

// #endregion new-evidence

// #region submit
// SubmitEvidence creates evidence in PENDING with its judgment quorum fixed
// at creation time.
func (e *Engine) SubmitEvidence(ctx context.Context, in NewEvidence) (domain.Evidence, error) {
	if in.ChallengeID == "" {
		return domain.Evidence{}, &domain.ValidationError{Field: "challenge_id", Detail: "required"}
	}
	if in.SubmitterID == "" {
		return domain.Evidence{}, &domain.ValidationError{Field: "submitter_id", Detail: "required"}
	}
	if in.RequiredCount < 0 {
		return domain.Evidence{}, &domain.ValidationError{Field: "required_count", Detail: "must be >= 0"}
	}

	required := in.RequiredCount
	if required == 0 {
		required = e.policy.DefaultRequiredCount
	}

	ev := domain.Evidence{
		ID:            newID(),
		ChallengeID:   in.ChallengeID,
		SubmitterID:   in.SubmitterID,
		Category:      in.Category,
		ContentType:   in.ContentType,
		Status:        domain.EvidencePending,
		RequiredCount: required,
		SubmittedAt:   now(),
	}
	if err := e.store.InsertEvidence(e.store.DB(), ev); err != nil {
		return domain.Evidence{}, err
	}

	e.log.InfoContext(ctx, "evidence submitted",
		slog.String("evidence_id", ev.ID),
		slog.String("challenge_id", ev.ChallengeID),
		slog.Int("required_count", ev.RequiredCount))
	return ev, nil
}

// #endregion submit

// #region status
// StatusReport summarizes the validation state of one evidence item.
type StatusReport struct {
	EvidenceID     string
	Status         domain.EvidenceStatus
	ApprovalRate   float64
	Score          float64
	RequiredCount  int
	CompletedCount int
	PositiveCount  int
	NegativeCount  int
	Escalated      bool
}

// EvidenceStatus returns the current consensus state of an evidence item.
func (e *Engine) EvidenceStatus(ctx context.Context, evidenceID string) (StatusReport, error) {
	ev, err := e.store.GetEvidence(e.store.DB(), evidenceID)
	if err != nil {
		return StatusReport{}, err
	}
	return StatusReport{
		EvidenceID:     ev.ID,
		Status:         ev.Status,
		ApprovalRate:   scoring.ApprovalRate(ev.PositiveCount, ev.CompletedCount),
		Score:          ev.Score,
		RequiredCount:  ev.RequiredCount,
		CompletedCount: ev.CompletedCount,
		PositiveCount:  ev.PositiveCount,
		NegativeCount:  ev.NegativeCount,
		Escalated:      ev.Escalated,
	}, nil
}

// #endregion status

// #region directory
// ListEligibleValidators returns validators able to take on work,
// optionally filtered by specialty.
func (e *Engine) ListEligibleValidators(ctx context.Context, specialty string) ([]domain.Validator, error) {
	all, err := e.store.ListValidators(e.store.DB(), specialty)
	if err != nil {
		return nil, err
	}
	var out []domain.Validator
	for _, v := range all {
		if v.Eligible() {
			out = append(out, v)
		}
	}
	return out, nil
}

// AddValidator registers a validator directory record. Normally owned by
// account management; exposed for seeding and operational tooling.
func (e *Engine) AddValidator(ctx context.Context, v domain.Validator) (domain.Validator, error) {
	if v.Name == "" {
		return domain.Validator{}, &domain.ValidationError{Field: "name", Detail: "required"}
	}
	if v.MaxCapacity < 1 {
		return domain.Validator{}, &domain.ValidationError{Field: "max_capacity", Detail: "must be >= 1"}
	}
	if v.ID == "" {
		v.ID = newID()
	}
	if v.Status == "" {
		v.Status = domain.ValidatorActive
	}
	if len(v.Specialties) == 0 {
		v.Specialties = []string{domain.SpecialtyGeneral}
	}
	v.CurrentLoad = 0
	if err := e.store.InsertValidator(e.store.DB(), v); err != nil {
		return domain.Validator{}, err
	}
	return v, nil
}

// Judgments returns the recorded judgments for one evidence item.
func (e *Engine) Judgments(ctx context.Context, evidenceID string) ([]domain.Judgment, error) {
	return e.store.ListJudgments(e.store.DB(), evidenceID)
}

// #endregion directory

// #region audit-trail
// AuditTrail returns the decision log for one evidence item.
func (e *Engine) AuditTrail(ctx context.Context, evidenceID string) ([]audit.Entry, error) {
	return e.audit.ForEvidence(evidenceID)
}

// #endregion audit-trail
