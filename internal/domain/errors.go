package domain

import "fmt"

// #region validation-error
// ValidationError reports malformed or out-of-range input. It is returned
// before any mutation; the caller can resubmit corrected input.
type ValidationError struct {
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Detail)
}

// #endregion validation-error

// #region invalid-state-error
// InvalidStateError reports an operation attempted against evidence whose
// status does not allow it (e.g. recording a judgment on terminal evidence).
type InvalidStateError struct {
	EvidenceID string
	Status     EvidenceStatus
	Op         string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("evidence %s: cannot %s in status %s", e.EvidenceID, e.Op, e.Status)
}

// #endregion invalid-state-error

// #region invalid-transition-error
// InvalidTransitionError reports an assignment state transition that the
// state machine does not allow. No mutation occurs.
type InvalidTransitionError struct {
	AssignmentID string
	From         AssignmentStatus
	To           AssignmentStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("assignment %s: illegal transition %s -> %s", e.AssignmentID, e.From, e.To)
}

// #endregion invalid-transition-error

// #region conflict-error
// ConflictError reports a uniqueness violation: a duplicate judgment for a
// (evidence, validator) pair, or a second active assignment for the same pair.
// The caller should query current state rather than retry blindly.
type ConflictError struct {
	Detail string
}

func (e *ConflictError) Error() string {
	return "conflict: " + e.Detail
}

// #endregion conflict-error

// #region no-eligible-validator-error
// NoEligibleValidatorError reports that matching found zero candidates.
// Recoverable: retry later or fall back to manual assignment.
type NoEligibleValidatorError struct {
	EvidenceID string
}

func (e *NoEligibleValidatorError) Error() string {
	return fmt.Sprintf("no eligible validator for evidence %s", e.EvidenceID)
}

// #endregion no-eligible-validator-error

// #region not-found-error
// NotFoundError reports a lookup by identifier that matched no record.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// #endregion not-found-error
