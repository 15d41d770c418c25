package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evidenceworks/consensus/internal/domain"
)

var assignFlags struct {
	evidenceID  string
	validatorID string
	assignerID  string
	reason      string
}

var assignCmd = &cobra.Command{
	Use:   "assign",
	Short: "Assign a validator to evidence",
	RunE:  runAssign,
}

var autoAssignFlags struct {
	evidenceID string
}

var autoAssignCmd = &cobra.Command{
	Use:   "auto-assign",
	Short: "Let the matcher pick the best available validator",
	RunE:  runAutoAssign,
}

var reassignFlags struct {
	assignmentID string
	validatorID  string
	reason       string
}

var reassignCmd = &cobra.Command{
	Use:   "reassign",
	Short: "Move an active assignment to another validator",
	RunE:  runReassign,
}

func init() {
	f := assignCmd.Flags()
	f.StringVar(&assignFlags.evidenceID, "evidence-id", "", "Evidence to validate (required)")
	f.StringVar(&assignFlags.validatorID, "validator-id", "", "Validator to assign (required)")
	f.StringVar(&assignFlags.assignerID, "assigner-id", "", "Moderator making the assignment")
	f.StringVar(&assignFlags.reason, "reason", "", "Assignment reason")
	_ = assignCmd.MarkFlagRequired("evidence-id")
	_ = assignCmd.MarkFlagRequired("validator-id")

	autoAssignCmd.Flags().StringVar(&autoAssignFlags.evidenceID, "evidence-id", "", "Evidence to validate (required)")
	_ = autoAssignCmd.MarkFlagRequired("evidence-id")

	rf := reassignCmd.Flags()
	rf.StringVar(&reassignFlags.assignmentID, "assignment-id", "", "Assignment to replace (required)")
	rf.StringVar(&reassignFlags.validatorID, "validator-id", "", "Replacement validator (required)")
	rf.StringVar(&reassignFlags.reason, "reason", "", "Reassignment reason")
	_ = reassignCmd.MarkFlagRequired("assignment-id")
	_ = reassignCmd.MarkFlagRequired("validator-id")
}

func printAssignment(cmd *cobra.Command, a domain.Assignment) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Assignment: %s\n", a.ID)
	fmt.Fprintf(out, "Evidence:   %s\n", a.EvidenceID)
	fmt.Fprintf(out, "Validator:  %s\n", a.ValidatorID)
	fmt.Fprintf(out, "Status:     %s\n", a.Status)
	fmt.Fprintf(out, "Due:        %s\n", a.DueAt.Format("2006-01-02 15:04:05 MST"))
}

func runAssign(cmd *cobra.Command, _ []string) error {
	e, closeStore, err := openEngine()
	if err != nil {
		return err
	}
	defer closeStore()

	a, err := e.Assign(cmd.Context(), assignFlags.evidenceID, assignFlags.validatorID,
		assignFlags.assignerID, assignFlags.reason)
	if err != nil {
		return err
	}
	printAssignment(cmd, a)
	return nil
}

func runAutoAssign(cmd *cobra.Command, _ []string) error {
	e, closeStore, err := openEngine()
	if err != nil {
		return err
	}
	defer closeStore()

	a, err := e.AutoAssign(cmd.Context(), autoAssignFlags.evidenceID)
	if err != nil {
		return err
	}
	printAssignment(cmd, a)
	return nil
}

func runReassign(cmd *cobra.Command, _ []string) error {
	e, closeStore, err := openEngine()
	if err != nil {
		return err
	}
	defer closeStore()

	a, err := e.Reassign(cmd.Context(), reassignFlags.assignmentID,
		reassignFlags.validatorID, reassignFlags.reason)
	if err != nil {
		return err
	}
	printAssignment(cmd, a)
	return nil
}
