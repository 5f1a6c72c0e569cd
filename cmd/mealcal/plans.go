package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newPlansCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "plans",
		Short: "List stored meal plans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := a.store.List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(names) == 0 {
				fmt.Fprintf(out, "No meal plans found in %s\n", a.store.PlansDir())
				return nil
			}
			fmt.Fprintln(out, "PLAN\tSECTIONS\tMEALS")
			for _, n := range names {
				plan, err := a.store.Load(n)
				if err != nil {
					fmt.Fprintf(out, "%s\t-\t-\n", n)
					continue
				}
				fmt.Fprintf(out, "%s\t%d\t%d\n", n, plan.Len(), plan.MealCount())
			}
			return nil
		},
	}
}

func newResetCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every stored meal plan and calendar invite",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("reset deletes all plans and invites; pass --yes to confirm")
			}
			if err := a.store.Reset(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reset %s and %s\n", a.store.PlansDir(), a.store.InvitesDir())
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the reset")
	return cmd
}
