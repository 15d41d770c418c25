package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/evidenceworks/consensus/internal/domain"
	"github.com/evidenceworks/consensus/internal/events"
	"github.com/evidenceworks/consensus/internal/policy"
)

func TestAcceptStartStamps(t *testing.T) {
	e, _ := newTestEngine(t, policy.Default())
	ctx := context.Background()
	ev := submitTestEvidence(t, e, 3)
	addTestValidator(t, e, "val-1", 3)

	a, err := e.Assign(ctx, ev.ID, "val-1", "mod-1", "")
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}

	accepted, err := e.Accept(ctx, a.ID)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if accepted.Status != domain.AssignmentAccepted || accepted.AcceptedAt.IsZero() {
		t.Fatalf("expected ACCEPTED with timestamp, got %+v", accepted)
	}

	started, err := e.Start(ctx, accepted.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if started.Status != domain.AssignmentInProgress || started.StartedAt.IsZero() {
		t.Fatalf("expected IN_PROGRESS with timestamp, got %+v", started)
	}
}

func TestTransitionGuards(t *testing.T) {
	e, _ := newTestEngine(t, policy.Default())
	ctx := context.Background()
	ev := submitTestEvidence(t, e, 3)
	addTestValidator(t, e, "val-1", 3)

	a, err := e.Assign(ctx, ev.ID, "val-1", "mod-1", "")
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}

	// Start requires ACCEPTED.
	var transition *domain.InvalidTransitionError
	if _, err := e.Start(ctx, a.ID); !errors.As(err, &transition) {
		t.Fatalf("expected InvalidTransitionError for start from ASSIGNED, got %v", err)
	}

	if _, err := e.Accept(ctx, a.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	// Reject only from ASSIGNED; the validator already accepted.
	if _, err := e.Reject(ctx, a.ID, "too busy"); !errors.As(err, &transition) {
		t.Fatalf("expected InvalidTransitionError for reject after accept, got %v", err)
	}

	// Accept is not repeatable.
	if _, err := e.Accept(ctx, a.ID); !errors.As(err, &transition) {
		t.Fatalf("expected InvalidTransitionError for double accept, got %v", err)
	}

	// Failed guards left the row alone.
	got, err := e.store.GetAssignment(e.store.DB(), a.ID)
	if err != nil {
		t.Fatalf("GetAssignment: %v", err)
	}
	if got.Status != domain.AssignmentAccepted {
		t.Fatalf("expected ACCEPTED, got %s", got.Status)
	}
}

func TestTransitionOnTerminalAssignment(t *testing.T) {
	e, _ := newTestEngine(t, policy.Default())
	ctx := context.Background()
	ev := submitTestEvidence(t, e, 3)
	addTestValidator(t, e, "val-1", 3)

	a, err := e.Assign(ctx, ev.ID, "val-1", "mod-1", "")
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if _, err := e.Cancel(ctx, a.ID, "mistake"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	var transition *domain.InvalidTransitionError
	for name, op := range map[string]func() error{
		"accept": func() error { _, err := e.Accept(ctx, a.ID); return err },
		"cancel": func() error { _, err := e.Cancel(ctx, a.ID, "again"); return err },
		"expire": func() error { _, err := e.Expire(ctx, a.ID); return err },
	} {
		if err := op(); !errors.As(err, &transition) {
			t.Fatalf("%s on cancelled assignment: expected InvalidTransitionError, got %v", name, err)
		}
	}
}

func TestCancelReleasesSlot(t *testing.T) {
	e, _ := newTestEngine(t, policy.Default())
	ctx := context.Background()
	ev := submitTestEvidence(t, e, 3)
	addTestValidator(t, e, "val-1", 1)

	a, err := e.Assign(ctx, ev.ID, "val-1", "mod-1", "")
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}

	// At capacity: cannot assign to other evidence.
	other := submitTestEvidence(t, e, 3)
	if _, err := e.Assign(ctx, other.ID, "val-1", "mod-1", ""); err == nil {
		t.Fatal("expected assignment beyond capacity to fail")
	}

	if _, err := e.Cancel(ctx, a.ID, "workload"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	// Slot released, and the same pair may be re-assigned after cancellation.
	if _, err := e.Assign(ctx, ev.ID, "val-1", "mod-1", "retry"); err != nil {
		t.Fatalf("re-assign after cancel: %v", err)
	}
}

func TestAssignRefusesSubmitter(t *testing.T) {
	e, _ := newTestEngine(t, policy.Default())
	ctx := context.Background()

	addTestValidator(t, e, "user-1", 3) // same id as the submitter
	ev := submitTestEvidence(t, e, 3)

	var verr *domain.ValidationError
	if _, err := e.Assign(ctx, ev.ID, "user-1", "mod-1", ""); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestAssignOverSaturation(t *testing.T) {
	p := policy.Default()
	p.AssignmentSlack = 0
	e, _ := newTestEngine(t, p)
	ctx := context.Background()
	ev := submitTestEvidence(t, e, 2)
	for _, id := range []string{"val-1", "val-2", "val-3"} {
		addTestValidator(t, e, id, 3)
	}

	if _, err := e.Assign(ctx, ev.ID, "val-1", "mod-1", ""); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if _, err := e.Assign(ctx, ev.ID, "val-2", "mod-1", ""); err != nil {
		t.Fatalf("Assign: %v", err)
	}

	// required=2, completed=0, slack=0: a third active assignment is refused.
	var conflict *domain.ConflictError
	if _, err := e.Assign(ctx, ev.ID, "val-3", "mod-1", ""); !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
}

func TestReassignPreservesTerms(t *testing.T) {
	e, bus := newTestEngine(t, policy.Default())
	ctx := context.Background()
	ev := submitTestEvidence(t, e, 3)
	addTestValidator(t, e, "val-1", 3)
	addTestValidator(t, e, "val-2", 3)

	a, err := e.Assign(ctx, ev.ID, "val-1", "mod-1", "")
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	bus.Drain()

	replacement, err := e.Reassign(ctx, a.ID, "val-2", "validator unresponsive")
	if err != nil {
		t.Fatalf("Reassign: %v", err)
	}
	if replacement.ValidatorID != "val-2" {
		t.Fatalf("expected val-2, got %s", replacement.ValidatorID)
	}
	if !replacement.DueAt.Equal(a.DueAt) || replacement.Priority != a.Priority {
		t.Fatalf("terms not preserved: original %+v replacement %+v", a, replacement)
	}

	original, err := e.store.GetAssignment(e.store.DB(), a.ID)
	if err != nil {
		t.Fatalf("GetAssignment: %v", err)
	}
	if original.Status != domain.AssignmentCancelled {
		t.Fatalf("expected original CANCELLED, got %s", original.Status)
	}

	// val-1's slot released, val-2's taken.
	v1, _ := e.store.GetValidator(e.store.DB(), "val-1")
	v2, _ := e.store.GetValidator(e.store.DB(), "val-2")
	if v1.CurrentLoad != 0 || v2.CurrentLoad != 1 {
		t.Fatalf("load not moved: val-1=%d val-2=%d", v1.CurrentLoad, v2.CurrentLoad)
	}

	created := eventsOfType(bus.Drain(), events.TypeAssignmentCreated)
	if len(created) != 1 || created[0].ValidatorID != "val-2" {
		t.Fatalf("expected one assignment_created for val-2, got %v", created)
	}

	// Terminal original cannot be reassigned again.
	var transition *domain.InvalidTransitionError
	if _, err := e.Reassign(ctx, a.ID, "val-1", "again"); !errors.As(err, &transition) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
}

func TestSweepOverdue(t *testing.T) {
	e, bus := newTestEngine(t, policy.Default())
	ctx := context.Background()
	ev := submitTestEvidence(t, e, 3)

	var ids []string
	for _, id := range []string{"val-1", "val-2", "val-3"} {
		addTestValidator(t, e, id, 3)
		a, err := e.Assign(ctx, ev.ID, id, "mod-1", "")
		if err != nil {
			t.Fatalf("Assign: %v", err)
		}
		ids = append(ids, a.ID)
	}
	// val-3 finishes before the deadline passes.
	if _, err := e.Complete(ctx, ids[2], approveDraft("done")); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	bus.Drain()

	expired, err := e.SweepOverdue(ctx, time.Now().UTC().Add(e.policy.JudgmentDue+time.Hour))
	if err != nil {
		t.Fatalf("SweepOverdue: %v", err)
	}
	if expired != 2 {
		t.Fatalf("expected 2 expired, got %d", expired)
	}

	for _, id := range ids[:2] {
		a, err := e.store.GetAssignment(e.store.DB(), id)
		if err != nil {
			t.Fatalf("GetAssignment: %v", err)
		}
		if a.Status != domain.AssignmentExpired {
			t.Fatalf("expected EXPIRED, got %s", a.Status)
		}
	}
	if got := eventsOfType(bus.Drain(), events.TypeAssignmentOverdue); len(got) != 2 {
		t.Fatalf("expected 2 overdue events, got %d", len(got))
	}

	// Second sweep finds nothing.
	expired, err = e.SweepOverdue(ctx, time.Now().UTC().Add(e.policy.JudgmentDue+time.Hour))
	if err != nil {
		t.Fatalf("SweepOverdue: %v", err)
	}
	if expired != 0 {
		t.Fatalf("expected idempotent sweep, got %d", expired)
	}
}

func TestConcurrentCompletions(t *testing.T) {
	e, _ := newTestEngine(t, policy.Default())
	ctx := context.Background()
	ev := submitTestEvidence(t, e, 5)

	validators := []string{"val-1", "val-2", "val-3", "val-4", "val-5"}
	assignments := make([]domain.Assignment, len(validators))
	for i, id := range validators {
		addTestValidator(t, e, id, 3)
		a, err := e.Assign(ctx, ev.ID, id, "mod-1", "")
		if err != nil {
			t.Fatalf("Assign: %v", err)
		}
		assignments[i] = a
	}

	var wg sync.WaitGroup
	errs := make([]error, len(assignments))
	for i, a := range assignments {
		i, a := i, a
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = e.Complete(ctx, a.ID, approveDraft("ok"))
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("Complete %d: %v", i, err)
		}
	}

	report, err := e.EvidenceStatus(ctx, ev.ID)
	if err != nil {
		t.Fatalf("EvidenceStatus: %v", err)
	}
	if report.CompletedCount != 5 || report.PositiveCount != 5 {
		t.Fatalf("lost judgment under concurrency: %+v", report)
	}
	if report.Status != domain.EvidenceApproved {
		t.Fatalf("expected APPROVED, got %s", report.Status)
	}
	js, err := e.Judgments(ctx, ev.ID)
	if err != nil {
		t.Fatalf("Judgments: %v", err)
	}
	if len(js) != 5 {
		t.Fatalf("expected 5 judgments, got %d", len(js))
	}
}
