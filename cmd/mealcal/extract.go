package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/net/html"

	"mealcal/internal/extract"
	"mealcal/internal/store"
)

func newExtractCmd(a *app) *cobra.Command {
	var (
		name       string
		structured bool
		writeCSV   bool
		debug      bool
		calendar   bool
	)

	cmd := &cobra.Command{
		Use:   "extract <file.html>",
		Short: "Extract a meal plan from a saved planner page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			doc, err := readHTML(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Reading HTML file from: %s\n", args[0])

			if !cmd.Flags().Changed("structured") {
				structured = a.cfg.Structured
			}
			res, err := extract.New(a.cfg.Signatures, structured).Extract(doc)
			if errors.Is(err, extract.ErrNoDateSections) {
				fmt.Fprintln(out, "No date sections found")
				fmt.Fprintf(out, "Available classes in the HTML: %s\n", strings.Join(extract.ClassInventory(doc), " "))
				if debug {
					fmt.Fprintln(out, "Document structure:")
					if oerr := extract.Outline(out, doc, 3); oerr != nil {
						return oerr
					}
				}
				return err
			}
			if err != nil {
				return err
			}

			for _, id := range res.Sections {
				meals, _ := res.Plan.Get(id)
				fmt.Fprintf(out, "Processing date: %s (%d meals)\n", id, len(meals))
			}
			for _, w := range res.Warnings {
				fmt.Fprintf(out, "Warning: %s: %s\n", sectionLabel(w.SectionID), w.Message)
			}
			if res.Plan.Len() == 0 {
				fmt.Fprintln(out, "No meals found; saving an empty plan")
			}

			if name == "" {
				name = store.DefaultPlanName(time.Now())
			}
			path, err := a.store.Save(name, res.Plan)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Meal plan saved to %s\n", path)

			if writeCSV {
				csvPath, err := a.store.SaveCSV(name, res.Plan)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Meal plan saved to %s\n", csvPath)
			}

			if calendar {
				return emitCalendar(out, a, path, res.Plan)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Plan file name (default: meal_plan_<timestamp>.json)")
	cmd.Flags().BoolVar(&structured, "structured", false, "Keep recipe links as a name → URL mapping (default from config)")
	cmd.Flags().BoolVar(&writeCSV, "csv", false, "Also write a CSV summary next to the plan")
	cmd.Flags().BoolVar(&debug, "debug", false, "Print the document outline when no date sections are found")
	cmd.Flags().BoolVar(&calendar, "calendar", false, "Also emit the calendar invite for the new plan")
	return cmd
}

func readHTML(path string) (*html.Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read HTML file: %w", err)
	}
	defer f.Close()
	return extract.Parse(f)
}

func sectionLabel(id string) string {
	if id == "" {
		return "page"
	}
	return id
}
