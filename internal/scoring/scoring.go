// Package scoring implements the fixed numeric contracts of the consensus
// policy: the weighted per-judgment overall score, the evidence approval
// rate, and the auto-resolution thresholds. The formulas are not
// configurable.
package scoring

import (
	"fmt"
	"math"

	"github.com/evidenceworks/consensus/internal/domain"
)

// #region constants
const (
	// Sub-score weights for the overall judgment score.
	WeightQuality      = 0.40
	WeightRelevance    = 0.35
	WeightCompleteness = 0.25

	// Sub-score bounds. Values outside fail validation, never clamp.
	ScoreMin = 0.0
	ScoreMax = 5.0

	// Approval-rate thresholds for auto-resolution, in percent.
	// The band [RejectThreshold, ApproveThreshold) is inconclusive.
	ApproveThreshold = 70.0
	RejectThreshold  = 30.0
)

// #endregion constants

// #region overall
// Overall computes the weighted judgment score from the three sub-scores,
// rounded to 2 decimals half-up. Out-of-range inputs fail with a
// ValidationError before anything is computed.
func Overall(quality, relevance, completeness float64) (float64, error) {
	if err := CheckSubScore("quality", quality); err != nil {
		return 0, err
	}
	if err := CheckSubScore("relevance", relevance); err != nil {
		return 0, err
	}
	if err := CheckSubScore("completeness", completeness); err != nil {
		return 0, err
	}
	return Round2(quality*WeightQuality + relevance*WeightRelevance + completeness*WeightCompleteness), nil
}

// CheckSubScore validates a single sub-score against [0.00, 5.00].
func CheckSubScore(field string, v float64) error {
	if math.IsNaN(v) || v < ScoreMin || v > ScoreMax {
		return &domain.ValidationError{
			Field:  field,
			Detail: fmt.Sprintf("score %.2f outside [%.2f, %.2f]", v, ScoreMin, ScoreMax),
		}
	}
	return nil
}

// #endregion overall

// #region approval
// ApprovalRate returns positive/completed as a percentage. Zero when no
// judgments are completed.
func ApprovalRate(positive, completed int) float64 {
	if completed == 0 {
		return 0
	}
	return float64(positive) / float64(completed) * 100
}

// ApprovalScore converts an approval rate to the 0-5 evidence score scale,
// rounded to 2 decimals half-up.
func ApprovalScore(rate float64) float64 {
	return Round2(rate / 20)
}

// Approved reports whether the rate auto-approves.
func Approved(rate float64) bool {
	return rate >= ApproveThreshold
}

// Rejected reports whether the rate auto-rejects.
func Rejected(rate float64) bool {
	return rate < RejectThreshold
}

// Inconclusive reports whether the rate falls in the manual-resolution band.
func Inconclusive(rate float64) bool {
	return !Approved(rate) && !Rejected(rate)
}

// #endregion approval

// #region rounding
// Round2 rounds to 2 decimal places, half-up.
func Round2(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}

// #endregion rounding
