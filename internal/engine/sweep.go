package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/evidenceworks/consensus/internal/domain"
)

// #region sweep
// SweepOverdue expires every active assignment whose due date has passed as
// of now. Idempotent and safe to run concurrently with live traffic: each
// expiry is its own guarded transaction, and assignments that raced into a
// terminal state are skipped. Individual failures are logged, not fatal;
// they retry on the next sweep cycle. Returns the number expired.
func (e *Engine) SweepOverdue(ctx context.Context, at time.Time) (int, error) {
	overdue, err := e.store.ListOverdueAssignments(e.store.DB(), at)
	if err != nil {
		return 0, err
	}
	if len(overdue) == 0 {
		return 0, nil
	}

	var expired atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.policy.SweepParallelism)

	for _, a := range overdue {
		a := a
		g.Go(func() error {
			if _, err := e.Expire(ctx, a.ID); err != nil {
				var transition *domain.InvalidTransitionError
				if errors.As(err, &transition) {
					// Lost the race to a live transition; nothing to do.
					return nil
				}
				e.log.WarnContext(ctx, "sweep skip",
					slog.String("assignment_id", a.ID),
					slog.Any("error", err))
				return nil
			}
			expired.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(expired.Load()), err
	}

	if n := expired.Load(); n > 0 {
		e.log.InfoContext(ctx, "sweep expired assignments", slog.Int64("count", n))
	}
	return int(expired.Load()), nil
}

// #endregion sweep

// #region sweeper-loop
// RunSweeper runs the due-date sweep on the policy cadence until ctx is
// cancelled.
func (e *Engine) RunSweeper(ctx context.Context) error {
	ticker := time.NewTicker(e.policy.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := e.SweepOverdue(ctx, now()); err != nil {
				e.log.ErrorContext(ctx, "sweep failed", slog.Any("error", err))
			}
		}
	}
}

// #endregion sweeper-loop
