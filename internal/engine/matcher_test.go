package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/evidenceworks/consensus/internal/domain"
	"github.com/evidenceworks/consensus/internal/policy"
)

func addValidatorSpec(t *testing.T, e *Engine, id string, specialties []string, capacity int, rating float64) {
	t.Helper()
	_, err := e.AddValidator(context.Background(), domain.Validator{
		ID:          id,
		Name:        "Validator " + id,
		Available:   true,
		Specialties: specialties,
		MaxCapacity: capacity,
		Rating:      rating,
	})
	if err != nil {
		t.Fatalf("AddValidator %s: %v", id, err)
	}
}

func TestAutoAssignPrefersSpecialty(t *testing.T) {
	e, _ := newTestEngine(t, policy.Default())
	ctx := context.Background()
	ev := submitTestEvidence(t, e, 3) // category fitness

	addValidatorSpec(t, e, "gen-1", []string{"general"}, 5, 5.0)
	addValidatorSpec(t, e, "fit-1", []string{"fitness"}, 5, 2.0)

	a, err := e.AutoAssign(ctx, ev.ID)
	if err != nil {
		t.Fatalf("AutoAssign: %v", err)
	}
	// Specialty match wins even against a higher-rated generalist.
	if a.ValidatorID != "fit-1" {
		t.Fatalf("expected fit-1, got %s", a.ValidatorID)
	}
	if !a.AutoAssigned {
		t.Fatal("expected auto_assigned flag")
	}
}

func TestAutoAssignGeneralFallback(t *testing.T) {
	e, _ := newTestEngine(t, policy.Default())
	ctx := context.Background()
	ev := submitTestEvidence(t, e, 3)

	addValidatorSpec(t, e, "gen-1", []string{"general"}, 5, 3.0)
	addValidatorSpec(t, e, "cook-1", []string{"cooking"}, 5, 5.0)

	a, err := e.AutoAssign(ctx, ev.ID)
	if err != nil {
		t.Fatalf("AutoAssign: %v", err)
	}
	// No fitness specialist: falls back to general, never to the
	// wrong specialty.
	if a.ValidatorID != "gen-1" {
		t.Fatalf("expected gen-1, got %s", a.ValidatorID)
	}
}

func TestAutoAssignRanking(t *testing.T) {
	e, _ := newTestEngine(t, policy.Default())
	ctx := context.Background()

	addValidatorSpec(t, e, "busy", []string{"fitness"}, 5, 5.0)
	addValidatorSpec(t, e, "idle-low", []string{"fitness"}, 5, 3.0)
	addValidatorSpec(t, e, "idle-high", []string{"fitness"}, 5, 4.5)

	// Give "busy" an existing assignment on other evidence.
	warmup := submitTestEvidence(t, e, 3)
	if _, err := e.Assign(ctx, warmup.ID, "busy", "mod-1", ""); err != nil {
		t.Fatalf("Assign: %v", err)
	}

	ev := submitTestEvidence(t, e, 3)
	a, err := e.AutoAssign(ctx, ev.ID)
	if err != nil {
		t.Fatalf("AutoAssign: %v", err)
	}
	// Lowest load first; rating breaks the tie among the idle pair.
	if a.ValidatorID != "idle-high" {
		t.Fatalf("expected idle-high, got %s", a.ValidatorID)
	}

	b, err := e.AutoAssign(ctx, ev.ID)
	if err != nil {
		t.Fatalf("AutoAssign: %v", err)
	}
	if b.ValidatorID != "idle-low" {
		t.Fatalf("expected idle-low next, got %s", b.ValidatorID)
	}
}

func TestAutoAssignExclusions(t *testing.T) {
	e, _ := newTestEngine(t, policy.Default())
	ctx := context.Background()
	ev := submitTestEvidence(t, e, 3)

	// The submitter, a saturated validator, an unavailable one, and one
	// already holding the evidence: none may be selected.
	addValidatorSpec(t, e, "user-1", []string{"fitness"}, 5, 5.0) // submitter
	addValidatorSpec(t, e, "full", []string{"fitness"}, 1, 5.0)
	addValidatorSpec(t, e, "away", []string{"fitness"}, 5, 5.0)
	addValidatorSpec(t, e, "holder", []string{"fitness"}, 5, 5.0)

	other := submitTestEvidence(t, e, 3)
	if _, err := e.Assign(ctx, other.ID, "full", "mod-1", ""); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	away, err := e.store.GetValidator(e.store.DB(), "away")
	if err != nil {
		t.Fatalf("GetValidator: %v", err)
	}
	away.Available = false
	if err := e.store.UpdateValidatorDirectory(e.store.DB(), away); err != nil {
		t.Fatalf("UpdateValidatorDirectory: %v", err)
	}
	if _, err := e.Assign(ctx, ev.ID, "holder", "mod-1", ""); err != nil {
		t.Fatalf("Assign: %v", err)
	}

	var noEligible *domain.NoEligibleValidatorError
	if _, err := e.AutoAssign(ctx, ev.ID); !errors.As(err, &noEligible) {
		t.Fatalf("expected NoEligibleValidatorError, got %v", err)
	}
}

func TestAutoAssignSkipsPriorJudges(t *testing.T) {
	e, _ := newTestEngine(t, policy.Default())
	ctx := context.Background()
	ev := submitTestEvidence(t, e, 3)

	addValidatorSpec(t, e, "val-1", []string{"fitness"}, 5, 5.0)
	a, err := e.Assign(ctx, ev.ID, "val-1", "mod-1", "")
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if _, err := e.Complete(ctx, a.ID, approveDraft("ok")); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	// val-1 already judged; no one else exists.
	var noEligible *domain.NoEligibleValidatorError
	if _, err := e.AutoAssign(ctx, ev.ID); !errors.As(err, &noEligible) {
		t.Fatalf("expected NoEligibleValidatorError, got %v", err)
	}
}

func TestRankCandidates(t *testing.T) {
	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(24 * time.Hour)
	vs := []domain.Validator{
		{ID: "recent", CurrentLoad: 0, Rating: 4.0, LastAssignedAt: newer},
		{ID: "stale", CurrentLoad: 0, Rating: 4.0, LastAssignedAt: older},
		{ID: "never", CurrentLoad: 0, Rating: 4.0},
		{ID: "loaded", CurrentLoad: 2, Rating: 5.0},
	}
	rankCandidates(vs)

	want := []string{"never", "stale", "recent", "loaded"}
	for i, id := range want {
		if vs[i].ID != id {
			t.Fatalf("rank %d: expected %s, got %s", i, id, vs[i].ID)
		}
	}
}
