// Package domain holds the core entities of the validation engine: evidence
// under review, per-validator judgments, work assignments, and the validator
// directory records the matcher reads. All relations are by identifier; no
// entity embeds another.
package domain

import "time"

// #region evidence-status
// EvidenceStatus enumerates the validation lifecycle of a piece of evidence.
type EvidenceStatus string

const (
	EvidencePending     EvidenceStatus = "PENDING"
	EvidenceUnderReview EvidenceStatus = "UNDER_REVIEW"
	EvidenceApproved    EvidenceStatus = "APPROVED"
	EvidenceRejected    EvidenceStatus = "REJECTED"
)

// Terminal reports whether the status is final.
func (s EvidenceStatus) Terminal() bool {
	return s == EvidenceApproved || s == EvidenceRejected
}

// #endregion evidence-status

// #region evidence
// Evidence is the artifact being judged. Counters are denormalized and
// mutated only by the consensus aggregator.
type Evidence struct {
	ID             string
	ChallengeID    string
	SubmitterID    string
	Category       string
	ContentType    string
	Status         EvidenceStatus
	RequiredCount  int
	CompletedCount int
	PositiveCount  int
	NegativeCount  int
	Score          float64
	Feedback       string
	Escalated      bool
	SubmittedAt    time.Time
	ValidatedAt    time.Time // zero until terminal
}

// #endregion evidence

// #region validator
// ValidatorStatus enumerates directory states for a validator account.
type ValidatorStatus string

const (
	ValidatorActive    ValidatorStatus = "active"
	ValidatorInactive  ValidatorStatus = "inactive"
	ValidatorSuspended ValidatorStatus = "suspended"
)

// SpecialtyGeneral is the fallback specialty matched when no validator
// covers the evidence category.
const SpecialtyGeneral = "general"

// Validator is a directory record. The engine only reads it and adjusts
// CurrentLoad as assignments open and close.
type Validator struct {
	ID             string
	Name           string
	Status         ValidatorStatus
	Available      bool
	Specialties    []string
	CurrentLoad    int
	MaxCapacity    int
	Rating         float64
	LastAssignedAt time.Time // zero when never assigned
}

// HasSpecialty reports whether the validator covers the given category.
func (v Validator) HasSpecialty(category string) bool {
	for _, s := range v.Specialties {
		if s == category {
			return true
		}
	}
	return false
}

// Eligible reports whether the validator can take on new work at all.
func (v Validator) Eligible() bool {
	return v.Status == ValidatorActive && v.Available && v.CurrentLoad < v.MaxCapacity
}

// #endregion validator
