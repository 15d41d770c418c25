package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evidenceworks/consensus/internal/engine"
)

var submitFlags struct {
	challengeID string
	submitterID string
	category    string
	contentType string
	required    int
}

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit evidence for validation",
	RunE:  runSubmit,
}

func init() {
	f := submitCmd.Flags()
	f.StringVar(&submitFlags.challengeID, "challenge-id", "", "Challenge the evidence belongs to (required)")
	f.StringVar(&submitFlags.submitterID, "submitter-id", "", "Submitting user (required)")
	f.StringVar(&submitFlags.category, "category", "", "Evidence category, used for specialty matching")
	f.StringVar(&submitFlags.contentType, "content-type", "", "Content type (image, video, text, ...)")
	f.IntVar(&submitFlags.required, "required", 0, "Judgments required for consensus (0 = policy default)")

	_ = submitCmd.MarkFlagRequired("challenge-id")
	_ = submitCmd.MarkFlagRequired("submitter-id")
}

func runSubmit(cmd *cobra.Command, _ []string) error {
	e, closeStore, err := openEngine()
	if err != nil {
		return err
	}
	defer closeStore()

	ev, err := e.SubmitEvidence(cmd.Context(), engine.NewEvidence{
		ChallengeID:   submitFlags.challengeID,
		SubmitterID:   submitFlags.submitterID,
		Category:      submitFlags.category,
		ContentType:   submitFlags.contentType,
		RequiredCount: submitFlags.required,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Evidence: %s\n", ev.ID)
	fmt.Fprintf(out, "Status:   %s\n", ev.Status)
	fmt.Fprintf(out, "Quorum:   %d judgments\n", ev.RequiredCount)
	return nil
}
