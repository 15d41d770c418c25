package main

import (
	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "consensus",
	Short: "Evidence validation and consensus engine",
	Long: "Consensus manages the validation of challenge evidence: it assigns\n" +
		"validators, tracks assignment lifecycles, and aggregates judgments\n" +
		"into approve/reject decisions by weighted quorum.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(validatorsCmd)
	rootCmd.AddCommand(assignCmd)
	rootCmd.AddCommand(autoAssignCmd)
	rootCmd.AddCommand(reassignCmd)
	rootCmd.AddCommand(acceptCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(rejectCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.Version = version
}
