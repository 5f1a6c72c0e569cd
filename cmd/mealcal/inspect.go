package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"mealcal/internal/ics"
)

func newInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file.ics>",
		Short: "Print the events of a calendar file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			loc, _ := ics.ResolveZone(a.cfg.Timezone)
			cal, err := ics.ReadCalendar(f, loc)
			if err != nil {
				return fmt.Errorf("read calendar %s: %w", args[0], err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "PRODID: %s\nVERSION: %s\nEVENTS: %d\n", cal.ProductID, cal.Version, len(cal.Events))
			fmt.Fprintln(out, "START\tEND\tUID\tSUMMARY")
			for _, ev := range cal.Events {
				fmt.Fprintf(out, "%s\t%s\t%s\t%s\n",
					ev.Start.Format(time.DateTime), ev.End.Format(time.DateTime), ev.UID, ev.Summary)
			}
			return nil
		},
	}
}
