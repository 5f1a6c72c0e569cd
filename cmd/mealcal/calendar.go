package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"mealcal/internal/model"
	"mealcal/internal/store"
)

func newCalendarCmd(a *app) *cobra.Command {
	var stdout bool

	cmd := &cobra.Command{
		Use:   "calendar [plan]",
		Short: "Emit an iCalendar file for a stored meal plan (default: the newest plan)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			} else {
				names, err := a.store.List()
				if err != nil {
					return err
				}
				if len(names) == 0 {
					return fmt.Errorf("no meal plans found in %s", a.store.PlansDir())
				}
				name = names[len(names)-1]
			}

			plan, err := loadPlan(a.store, name)
			if err != nil {
				return err
			}

			if stdout {
				data, _, err := a.cfg.Emitter().Emit(plan)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			return emitCalendar(cmd.OutOrStdout(), a, name, plan)
		},
	}

	cmd.Flags().BoolVar(&stdout, "stdout", false, "Write the calendar to stdout instead of the invites directory")
	return cmd
}

// loadPlan resolves name against the plans directory first and falls back to
// treating it as a file path.
func loadPlan(st *store.Store, name string) (model.MealPlan, error) {
	plan, err := st.Load(name)
	if err == nil || !errors.Is(err, store.ErrPlanNotFound) {
		return plan, err
	}
	if _, serr := os.Stat(name); serr == nil {
		return store.LoadFile(name)
	}
	return model.MealPlan{}, err
}

func emitCalendar(out io.Writer, a *app, planName string, plan model.MealPlan) error {
	data, doc, err := a.cfg.Emitter().Emit(plan)
	if err != nil {
		return err
	}
	for _, n := range doc.Notices {
		fmt.Fprintf(out, "Warning: could not extract date from %q, using %s\n", n.SectionID, n.Date.Format("2006-01-02"))
	}
	path, err := a.store.SaveCalendar(filepath.Base(planName), data)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Calendar invite saved to %s (%d events)\n", path, len(doc.Events))
	return nil
}
