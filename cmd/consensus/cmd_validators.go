package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evidenceworks/consensus/internal/domain"
)

var validatorsCmd = &cobra.Command{
	Use:   "validators",
	Short: "Manage the validator directory",
}

var validatorAddFlags struct {
	id          string
	name        string
	specialties []string
	capacity    int
	rating      float64
}

var validatorAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a validator",
	RunE:  runValidatorAdd,
}

var validatorListFlags struct {
	specialty string
}

var validatorListCmd = &cobra.Command{
	Use:   "list",
	Short: "List validators eligible for new work",
	RunE:  runValidatorList,
}

func init() {
	f := validatorAddCmd.Flags()
	f.StringVar(&validatorAddFlags.id, "id", "", "Validator ID (default: generated)")
	f.StringVar(&validatorAddFlags.name, "name", "", "Display name (required)")
	f.StringSliceVar(&validatorAddFlags.specialties, "specialty", nil, "Specialty, repeatable (default: general)")
	f.IntVar(&validatorAddFlags.capacity, "capacity", 5, "Maximum concurrent assignments")
	f.Float64Var(&validatorAddFlags.rating, "rating", 0, "Initial rating")
	_ = validatorAddCmd.MarkFlagRequired("name")

	validatorListCmd.Flags().StringVar(&validatorListFlags.specialty, "specialty", "", "Filter by specialty")

	validatorsCmd.AddCommand(validatorAddCmd)
	validatorsCmd.AddCommand(validatorListCmd)
}

func runValidatorAdd(cmd *cobra.Command, _ []string) error {
	e, closeStore, err := openEngine()
	if err != nil {
		return err
	}
	defer closeStore()

	v, err := e.AddValidator(cmd.Context(), domain.Validator{
		ID:          validatorAddFlags.id,
		Name:        validatorAddFlags.name,
		Available:   true,
		Specialties: validatorAddFlags.specialties,
		MaxCapacity: validatorAddFlags.capacity,
		Rating:      validatorAddFlags.rating,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Validator: %s (%s)\n", v.ID, v.Name)
	return nil
}

func runValidatorList(cmd *cobra.Command, _ []string) error {
	e, closeStore, err := openEngine()
	if err != nil {
		return err
	}
	defer closeStore()

	vs, err := e.ListEligibleValidators(cmd.Context(), validatorListFlags.specialty)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(vs) == 0 {
		fmt.Fprintln(out, "No eligible validators.")
		return nil
	}
	for _, v := range vs {
		fmt.Fprintf(out, "%s  %-20s load %d/%d  rating %.1f  [%s]\n",
			v.ID, v.Name, v.CurrentLoad, v.MaxCapacity, v.Rating, strings.Join(v.Specialties, ", "))
	}
	return nil
}
