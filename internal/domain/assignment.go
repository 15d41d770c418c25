package domain

import "time"

// #region assignment-status
// AssignmentStatus enumerates the lifecycle of a validator work assignment.
type AssignmentStatus string

const (
	AssignmentAssigned   AssignmentStatus = "ASSIGNED"
	AssignmentAccepted   AssignmentStatus = "ACCEPTED"
	AssignmentInProgress AssignmentStatus = "IN_PROGRESS"
	AssignmentCompleted  AssignmentStatus = "COMPLETED"
	AssignmentRejected   AssignmentStatus = "REJECTED"
	AssignmentCancelled  AssignmentStatus = "CANCELLED"
	AssignmentExpired    AssignmentStatus = "EXPIRED"
)

// Terminal reports whether the status is final.
func (s AssignmentStatus) Terminal() bool {
	switch s {
	case AssignmentCompleted, AssignmentRejected, AssignmentCancelled, AssignmentExpired:
		return true
	}
	return false
}

// Active reports whether the assignment still occupies a validator slot.
func (s AssignmentStatus) Active() bool {
	return !s.Terminal()
}

// ActiveAssignmentStatuses lists the non-terminal statuses, in lifecycle order.
func ActiveAssignmentStatuses() []AssignmentStatus {
	return []AssignmentStatus{AssignmentAssigned, AssignmentAccepted, AssignmentInProgress}
}

// #endregion assignment-status

// #region priority
// Priority orders assignments for validators; it carries over on reassignment.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// ValidPriority reports whether p is a known priority level.
func ValidPriority(p Priority) bool {
	return p == PriorityLow || p == PriorityNormal || p == PriorityHigh
}

// #endregion priority

// #region assignment
// Assignment binds one validator to one evidence item for a bounded time.
type Assignment struct {
	ID           string
	EvidenceID   string
	ValidatorID  string
	AssignerID   string // empty for auto-assignment
	Status       AssignmentStatus
	Priority     Priority
	Reason       string
	AutoAssigned bool
	AssignedAt   time.Time
	DueAt        time.Time
	AcceptedAt   time.Time
	StartedAt    time.Time
	CompletedAt  time.Time
	NotifiedAt   time.Time
}

// Overdue reports whether the assignment is active and past its due date.
func (a Assignment) Overdue(now time.Time) bool {
	return a.Status.Active() && now.After(a.DueAt)
}

// #endregion assignment
