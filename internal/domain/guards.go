package domain

// #region evidence-guard
// evidenceTransitions maps each evidence status to the statuses reachable
// from it. Forward-only: terminal statuses have no exits.
var evidenceTransitions = map[EvidenceStatus][]EvidenceStatus{
	EvidencePending:     {EvidenceUnderReview, EvidenceApproved, EvidenceRejected},
	EvidenceUnderReview: {EvidenceUnderReview, EvidenceApproved, EvidenceRejected},
	EvidenceApproved:    {},
	EvidenceRejected:    {},
}

// CanTransitionEvidence reports whether evidence may move from one status to
// another. UNDER_REVIEW re-enters itself while quorum builds or when the
// outcome is inconclusive.
func CanTransitionEvidence(from, to EvidenceStatus) bool {
	for _, next := range evidenceTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// #endregion evidence-guard

// #region assignment-guard
// assignmentTransitions maps each assignment status to its legal successors.
// CANCELLED and EXPIRED are reachable from any active status; REJECTED only
// from ASSIGNED (validator declines before accepting).
var assignmentTransitions = map[AssignmentStatus][]AssignmentStatus{
	AssignmentAssigned: {
		AssignmentAccepted, AssignmentCompleted, AssignmentRejected,
		AssignmentCancelled, AssignmentExpired,
	},
	AssignmentAccepted: {
		AssignmentInProgress, AssignmentCompleted,
		AssignmentCancelled, AssignmentExpired,
	},
	AssignmentInProgress: {
		AssignmentCompleted, AssignmentCancelled, AssignmentExpired,
	},
	AssignmentCompleted: {},
	AssignmentRejected:  {},
	AssignmentCancelled: {},
	AssignmentExpired:   {},
}

// CanTransitionAssignment reports whether an assignment may move from one
// status to another.
func CanTransitionAssignment(from, to AssignmentStatus) bool {
	for _, next := range assignmentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// #endregion assignment-guard
