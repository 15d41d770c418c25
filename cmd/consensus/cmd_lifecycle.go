package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evidenceworks/consensus/internal/domain"
)

var acceptCmd = &cobra.Command{
	Use:   "accept <assignment-id>",
	Short: "Accept an assignment",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccept,
}

var startCmd = &cobra.Command{
	Use:   "start <assignment-id>",
	Short: "Start working an accepted assignment",
	Args:  cobra.ExactArgs(1),
	RunE:  runStart,
}

var cancelFlags struct {
	reason string
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <assignment-id>",
	Short: "Cancel an active assignment",
	Args:  cobra.ExactArgs(1),
	RunE:  runCancel,
}

var rejectFlags struct {
	reason string
}

var rejectCmd = &cobra.Command{
	Use:   "reject <assignment-id>",
	Short: "Decline an assignment (validator side, before accepting)",
	Args:  cobra.ExactArgs(1),
	RunE:  runReject,
}

var completeFlags struct {
	decision     string
	quality      float64
	relevance    float64
	completeness float64
	feedback     string
	confidence   string
}

var completeCmd = &cobra.Command{
	Use:   "complete <assignment-id>",
	Short: "Complete an assignment with a judgment",
	Args:  cobra.ExactArgs(1),
	RunE:  runComplete,
}

func init() {
	cancelCmd.Flags().StringVar(&cancelFlags.reason, "reason", "", "Cancellation reason")
	rejectCmd.Flags().StringVar(&rejectFlags.reason, "reason", "", "Decline reason")

	f := completeCmd.Flags()
	f.StringVar(&completeFlags.decision, "decision", "", "approve, reject, or needs_review (required)")
	f.Float64Var(&completeFlags.quality, "quality", 0, "Quality sub-score, 0-5")
	f.Float64Var(&completeFlags.relevance, "relevance", 0, "Relevance sub-score, 0-5")
	f.Float64Var(&completeFlags.completeness, "completeness", 0, "Completeness sub-score, 0-5")
	f.StringVar(&completeFlags.feedback, "feedback", "", "Feedback for the submitter")
	f.StringVar(&completeFlags.confidence, "confidence", "", "low, medium, or high (default medium)")
	_ = completeCmd.MarkFlagRequired("decision")
}

func runAccept(cmd *cobra.Command, args []string) error {
	e, closeStore, err := openEngine()
	if err != nil {
		return err
	}
	defer closeStore()

	a, err := e.Accept(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Assignment %s: %s\n", a.ID, a.Status)
	return nil
}

func runStart(cmd *cobra.Command, args []string) error {
	e, closeStore, err := openEngine()
	if err != nil {
		return err
	}
	defer closeStore()

	a, err := e.Start(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Assignment %s: %s\n", a.ID, a.Status)
	return nil
}

func runCancel(cmd *cobra.Command, args []string) error {
	e, closeStore, err := openEngine()
	if err != nil {
		return err
	}
	defer closeStore()

	a, err := e.Cancel(cmd.Context(), args[0], cancelFlags.reason)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Assignment %s: %s\n", a.ID, a.Status)
	return nil
}

func runReject(cmd *cobra.Command, args []string) error {
	e, closeStore, err := openEngine()
	if err != nil {
		return err
	}
	defer closeStore()

	a, err := e.Reject(cmd.Context(), args[0], rejectFlags.reason)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Assignment %s: %s\n", a.ID, a.Status)
	return nil
}

func runComplete(cmd *cobra.Command, args []string) error {
	e, closeStore, err := openEngine()
	if err != nil {
		return err
	}
	defer closeStore()

	j, err := e.Complete(cmd.Context(), args[0], domain.JudgmentDraft{
		Decision:     domain.Decision(completeFlags.decision),
		Quality:      completeFlags.quality,
		Relevance:    completeFlags.relevance,
		Completeness: completeFlags.completeness,
		Feedback:     completeFlags.feedback,
		Confidence:   domain.Confidence(completeFlags.confidence),
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Judgment: %s\n", j.ID)
	fmt.Fprintf(out, "Decision: %s (%s confidence)\n", j.Decision, j.Confidence)
	fmt.Fprintf(out, "Score:    %.2f\n", j.OverallScore)
	return nil
}
