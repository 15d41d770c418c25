package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var sweepFlags struct {
	watch bool
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Expire overdue assignments",
	Long: "Expires every active assignment whose judgment window has elapsed.\n" +
		"With --watch, keeps sweeping on the policy cadence until interrupted.",
	RunE: runSweep,
}

func init() {
	sweepCmd.Flags().BoolVar(&sweepFlags.watch, "watch", false, "Run continuously on the policy sweep interval")
}

func runSweep(cmd *cobra.Command, _ []string) error {
	e, closeStore, err := openEngine()
	if err != nil {
		return err
	}
	defer closeStore()

	expired, err := e.SweepOverdue(cmd.Context(), time.Now().UTC())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Expired %d overdue assignment(s)\n", expired)

	if !sweepFlags.watch {
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := e.RunSweeper(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
