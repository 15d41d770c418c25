package domain

import "time"

// #region decision
// Decision is a validator's verdict on one evidence item.
type Decision string

const (
	DecisionApprove     Decision = "approve"
	DecisionReject      Decision = "reject"
	DecisionNeedsReview Decision = "needs_review"
)

// ValidDecision reports whether d is a known decision value.
func ValidDecision(d Decision) bool {
	return d == DecisionApprove || d == DecisionReject || d == DecisionNeedsReview
}

// #endregion decision

// #region confidence
// Confidence grades how certain the validator is of their decision.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// ValidConfidence reports whether c is a known confidence level.
func ValidConfidence(c Confidence) bool {
	return c == ConfidenceLow || c == ConfidenceMedium || c == ConfidenceHigh
}

// #endregion confidence

// #region judgment
// Judgment is one validator's scored evaluation of one evidence item.
// Immutable once recorded; at most one per (evidence, validator) pair.
type Judgment struct {
	ID           string
	EvidenceID   string
	ValidatorID  string
	Decision     Decision
	Quality      float64
	Relevance    float64
	Completeness float64
	OverallScore float64 // derived, never supplied by the caller
	Feedback     string
	Confidence   Confidence
	CreatedAt    time.Time
}

// JudgmentDraft is the validator-supplied portion of a judgment, submitted
// when completing an assignment. The overall score is computed by the engine.
type JudgmentDraft struct {
	Decision     Decision
	Quality      float64
	Relevance    float64
	Completeness float64
	Feedback     string
	Confidence   Confidence
}

// #endregion judgment
