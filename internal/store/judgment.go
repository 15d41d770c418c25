package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/evidenceworks/consensus/internal/domain"
)

// #region insert-judgment
// InsertJudgment records a judgment. The UNIQUE(evidence_id, validator_id)
// constraint backstops the engine's duplicate check; a violation surfaces
// as ConflictError.
func (s *Store) InsertJudgment(q Querier, j domain.Judgment) error {
	_, err := q.Exec(
		`INSERT INTO judgments (judgment_id, evidence_id, validator_id, decision,
		   quality, relevance, completeness, overall_score, feedback, confidence, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.ID, j.EvidenceID, j.ValidatorID, string(j.Decision),
		j.Quality, j.Relevance, j.Completeness, j.OverallScore,
		nullIfEmpty(j.Feedback), string(j.Confidence),
		j.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return &domain.ConflictError{
				Detail: fmt.Sprintf("judgment already recorded for evidence %s by validator %s",
					j.EvidenceID, j.ValidatorID),
			}
		}
		return fmt.Errorf("insert judgment: %w", err)
	}
	return nil
}

// #endregion insert-judgment

// #region has-judgment
// HasJudgment reports whether the (evidence, validator) pair already has a
// recorded judgment.
func (s *Store) HasJudgment(q Querier, evidenceID, validatorID string) (bool, error) {
	var n int
	err := q.QueryRow(
		`SELECT COUNT(*) FROM judgments WHERE evidence_id = ? AND validator_id = ?`,
		evidenceID, validatorID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check judgment: %w", err)
	}
	return n > 0, nil
}

// #endregion has-judgment

// #region list-judgments
// ListJudgments returns all judgments for one evidence item, oldest first.
func (s *Store) ListJudgments(q Querier, evidenceID string) ([]domain.Judgment, error) {
	rows, err := q.Query(
		`SELECT judgment_id, evidence_id, validator_id, decision,
		   quality, relevance, completeness, overall_score, feedback, confidence, created_at
		 FROM judgments WHERE evidence_id = ? ORDER BY created_at`, evidenceID,
	)
	if err != nil {
		return nil, fmt.Errorf("list judgments: %w", err)
	}
	defer rows.Close()

	var out []domain.Judgment
	for rows.Next() {
		var j domain.Judgment
		var decision, confidence, createdStr string
		var feedback sql.NullString
		if err := rows.Scan(&j.ID, &j.EvidenceID, &j.ValidatorID, &decision,
			&j.Quality, &j.Relevance, &j.Completeness, &j.OverallScore,
			&feedback, &confidence, &createdStr); err != nil {
			return nil, fmt.Errorf("scan judgment: %w", err)
		}
		j.Decision = domain.Decision(decision)
		j.Confidence = domain.Confidence(confidence)
		j.Feedback = stringOrEmpty(feedback)
		j.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		out = append(out, j)
	}
	return out, rows.Err()
}

// #endregion list-judgments
