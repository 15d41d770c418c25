package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/evidenceworks/consensus/internal/domain"
)

// #region insert-evidence
// InsertEvidence creates a new evidence row.
func (s *Store) InsertEvidence(q Querier, ev domain.Evidence) error {
	_, err := q.Exec(
		`INSERT INTO evidence (evidence_id, challenge_id, submitter_id, category, content_type,
		   status, required_count, completed_count, positive_count, negative_count,
		   score, feedback, escalated, submitted_at, validated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.ChallengeID, ev.SubmitterID, ev.Category, ev.ContentType,
		string(ev.Status), ev.RequiredCount, ev.CompletedCount, ev.PositiveCount, ev.NegativeCount,
		ev.Score, nullIfEmpty(ev.Feedback), boolToInt(ev.Escalated),
		ev.SubmittedAt.UTC().Format(time.RFC3339Nano), timeOrNull(ev.ValidatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert evidence: %w", err)
	}
	return nil
}

// #endregion insert-evidence

// #region get-evidence
// GetEvidence retrieves evidence by id.
func (s *Store) GetEvidence(q Querier, id string) (domain.Evidence, error) {
	row := q.QueryRow(
		`SELECT evidence_id, challenge_id, submitter_id, category, content_type,
		   status, required_count, completed_count, positive_count, negative_count,
		   score, feedback, escalated, submitted_at, validated_at
		 FROM evidence WHERE evidence_id = ?`, id,
	)
	ev, err := scanEvidence(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Evidence{}, &domain.NotFoundError{Kind: "evidence", ID: id}
	}
	if err != nil {
		return domain.Evidence{}, fmt.Errorf("get evidence %s: %w", id, err)
	}
	return ev, nil
}

func scanEvidence(row *sql.Row) (domain.Evidence, error) {
	var ev domain.Evidence
	var status string
	var feedback, submittedStr, validatedStr sql.NullString
	var escalated int

	err := row.Scan(&ev.ID, &ev.ChallengeID, &ev.SubmitterID, &ev.Category, &ev.ContentType,
		&status, &ev.RequiredCount, &ev.CompletedCount, &ev.PositiveCount, &ev.NegativeCount,
		&ev.Score, &feedback, &escalated, &submittedStr, &validatedStr)
	if err != nil {
		return domain.Evidence{}, err
	}

	ev.Status = domain.EvidenceStatus(status)
	ev.Feedback = stringOrEmpty(feedback)
	ev.Escalated = escalated != 0
	ev.SubmittedAt = parseNullTime(submittedStr)
	ev.ValidatedAt = parseNullTime(validatedStr)
	return ev, nil
}

// #endregion get-evidence

// #region update-evidence
// UpdateEvidenceResolution writes back the aggregator-owned fields:
// counters, status, score, feedback, escalation flag, validation timestamp.
func (s *Store) UpdateEvidenceResolution(q Querier, ev domain.Evidence) error {
	res, err := q.Exec(
		`UPDATE evidence
		 SET status = ?, completed_count = ?, positive_count = ?, negative_count = ?,
		     score = ?, feedback = ?, escalated = ?, validated_at = ?
		 WHERE evidence_id = ?`,
		string(ev.Status), ev.CompletedCount, ev.PositiveCount, ev.NegativeCount,
		ev.Score, nullIfEmpty(ev.Feedback), boolToInt(ev.Escalated), timeOrNull(ev.ValidatedAt),
		ev.ID,
	)
	if err != nil {
		return fmt.Errorf("update evidence %s: %w", ev.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update evidence %s: %w", ev.ID, err)
	}
	if n == 0 {
		return &domain.NotFoundError{Kind: "evidence", ID: ev.ID}
	}
	return nil
}

// #endregion update-evidence

// #region helpers
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// #endregion helpers
