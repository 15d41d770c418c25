package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/evidenceworks/consensus/internal/domain"
)

// #region insert-assignment
// InsertAssignment creates an assignment row. The partial unique index on
// active (evidence, validator) pairs backstops the engine's own check; a
// violation surfaces as ConflictError.
func (s *Store) InsertAssignment(q Querier, a domain.Assignment) error {
	_, err := q.Exec(
		`INSERT INTO assignments (assignment_id, evidence_id, validator_id, assigner_id,
		   status, priority, reason, auto_assigned, assigned_at, due_at,
		   accepted_at, started_at, completed_at, notified_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.EvidenceID, a.ValidatorID, nullIfEmpty(a.AssignerID),
		string(a.Status), string(a.Priority), nullIfEmpty(a.Reason), boolToInt(a.AutoAssigned),
		a.AssignedAt.UTC().Format(time.RFC3339Nano), a.DueAt.UTC().Format(time.RFC3339Nano),
		timeOrNull(a.AcceptedAt), timeOrNull(a.StartedAt), timeOrNull(a.CompletedAt), timeOrNull(a.NotifiedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return &domain.ConflictError{
				Detail: fmt.Sprintf("validator %s already holds an active assignment for evidence %s",
					a.ValidatorID, a.EvidenceID),
			}
		}
		return fmt.Errorf("insert assignment: %w", err)
	}
	return nil
}

// #endregion insert-assignment

// #region get-assignment
const assignmentSelect = `SELECT assignment_id, evidence_id, validator_id, assigner_id,
   status, priority, reason, auto_assigned, assigned_at, due_at,
   accepted_at, started_at, completed_at, notified_at
 FROM assignments`

// GetAssignment retrieves an assignment by id.
func (s *Store) GetAssignment(q Querier, id string) (domain.Assignment, error) {
	row := q.QueryRow(assignmentSelect+` WHERE assignment_id = ?`, id)
	a, err := scanAssignmentRow(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Assignment{}, &domain.NotFoundError{Kind: "assignment", ID: id}
	}
	if err != nil {
		return domain.Assignment{}, fmt.Errorf("get assignment %s: %w", id, err)
	}
	return a, nil
}

func scanAssignmentRow(scan func(dest ...any) error) (domain.Assignment, error) {
	var a domain.Assignment
	var status, priority string
	var assigner, reason sql.NullString
	var autoAssigned int
	var assignedStr, dueStr string
	var acceptedStr, startedStr, completedStr, notifiedStr sql.NullString

	err := scan(&a.ID, &a.EvidenceID, &a.ValidatorID, &assigner,
		&status, &priority, &reason, &autoAssigned, &assignedStr, &dueStr,
		&acceptedStr, &startedStr, &completedStr, &notifiedStr)
	if err != nil {
		return domain.Assignment{}, err
	}

	a.AssignerID = stringOrEmpty(assigner)
	a.Status = domain.AssignmentStatus(status)
	a.Priority = domain.Priority(priority)
	a.Reason = stringOrEmpty(reason)
	a.AutoAssigned = autoAssigned != 0
	a.AssignedAt, _ = time.Parse(time.RFC3339Nano, assignedStr)
	a.DueAt, _ = time.Parse(time.RFC3339Nano, dueStr)
	a.AcceptedAt = parseNullTime(acceptedStr)
	a.StartedAt = parseNullTime(startedStr)
	a.CompletedAt = parseNullTime(completedStr)
	a.NotifiedAt = parseNullTime(notifiedStr)
	return a, nil
}

// #endregion get-assignment

// #region update-assignment
// UpdateAssignmentState writes back the lifecycle-owned fields: status,
// reason, and the transition timestamps.
func (s *Store) UpdateAssignmentState(q Querier, a domain.Assignment) error {
	res, err := q.Exec(
		`UPDATE assignments
		 SET status = ?, reason = ?, accepted_at = ?, started_at = ?, completed_at = ?, notified_at = ?
		 WHERE assignment_id = ?`,
		string(a.Status), nullIfEmpty(a.Reason),
		timeOrNull(a.AcceptedAt), timeOrNull(a.StartedAt), timeOrNull(a.CompletedAt), timeOrNull(a.NotifiedAt),
		a.ID,
	)
	if err != nil {
		return fmt.Errorf("update assignment %s: %w", a.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update assignment %s: %w", a.ID, err)
	}
	if n == 0 {
		return &domain.NotFoundError{Kind: "assignment", ID: a.ID}
	}
	return nil
}

// UpdateAssignmentTerms writes priority and due date, used when a
// reassignment carries the original's terms over.
func (s *Store) UpdateAssignmentTerms(q Querier, a domain.Assignment) error {
	res, err := q.Exec(
		`UPDATE assignments SET priority = ?, due_at = ? WHERE assignment_id = ?`,
		string(a.Priority), a.DueAt.UTC().Format(time.RFC3339Nano), a.ID,
	)
	if err != nil {
		return fmt.Errorf("update assignment terms %s: %w", a.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update assignment terms %s: %w", a.ID, err)
	}
	if n == 0 {
		return &domain.NotFoundError{Kind: "assignment", ID: a.ID}
	}
	return nil
}

// #endregion update-assignment

// #region active-queries
// ListActiveAssignments returns the non-terminal assignments for one
// evidence item.
func (s *Store) ListActiveAssignments(q Querier, evidenceID string) ([]domain.Assignment, error) {
	rows, err := q.Query(
		assignmentSelect+` WHERE evidence_id = ? AND status IN ('ASSIGNED', 'ACCEPTED', 'IN_PROGRESS')
		 ORDER BY assigned_at`, evidenceID,
	)
	if err != nil {
		return nil, fmt.Errorf("list active assignments: %w", err)
	}
	defer rows.Close()
	return collectAssignments(rows)
}

// ListOverdueAssignments returns active assignments whose due date has
// passed as of now, across all evidence.
func (s *Store) ListOverdueAssignments(q Querier, now time.Time) ([]domain.Assignment, error) {
	rows, err := q.Query(
		assignmentSelect+` WHERE status IN ('ASSIGNED', 'ACCEPTED', 'IN_PROGRESS') AND due_at < ?
		 ORDER BY due_at`, now.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("list overdue assignments: %w", err)
	}
	defer rows.Close()
	return collectAssignments(rows)
}

func collectAssignments(rows *sql.Rows) ([]domain.Assignment, error) {
	var out []domain.Assignment
	for rows.Next() {
		a, err := scanAssignmentRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// #endregion active-queries
