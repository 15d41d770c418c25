package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusFlags struct {
	judgments bool
	auditLog  bool
}

var statusCmd = &cobra.Command{
	Use:   "status <evidence-id>",
	Short: "Show the consensus state of an evidence item",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	f := statusCmd.Flags()
	f.BoolVar(&statusFlags.judgments, "judgments", false, "Include recorded judgments")
	f.BoolVar(&statusFlags.auditLog, "audit", false, "Include the decision log")
}

func runStatus(cmd *cobra.Command, args []string) error {
	e, closeStore, err := openEngine()
	if err != nil {
		return err
	}
	defer closeStore()

	ctx := cmd.Context()
	report, err := e.EvidenceStatus(ctx, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Evidence:  %s\n", report.EvidenceID)
	fmt.Fprintf(out, "Status:    %s\n", report.Status)
	fmt.Fprintf(out, "Judgments: %d/%d (%d approve, %d reject)\n",
		report.CompletedCount, report.RequiredCount, report.PositiveCount, report.NegativeCount)
	if report.CompletedCount > 0 {
		fmt.Fprintf(out, "Approval:  %.1f%%\n", report.ApprovalRate)
	}
	if report.Status.Terminal() {
		fmt.Fprintf(out, "Score:     %.2f\n", report.Score)
	}
	if report.Escalated {
		fmt.Fprintln(out, "Escalated: manual moderator resolution required")
	}

	if statusFlags.judgments {
		js, err := e.Judgments(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Judgments: (%d)\n", len(js))
		for _, j := range js {
			fmt.Fprintf(out, "  %s  %s  %.2f  [%s] %s\n",
				j.ValidatorID, j.Decision, j.OverallScore, j.Confidence, j.Feedback)
		}
	}

	if statusFlags.auditLog {
		entries, err := e.AuditTrail(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Audit: (%d)\n", len(entries))
		for _, en := range entries {
			fmt.Fprintf(out, "  %s  %s/%s  %s\n",
				en.CreatedAt.Format("2006-01-02 15:04:05"), en.Actor, en.Action, en.Detail)
		}
	}
	return nil
}
