package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"mealcal/internal/extract"
)

func newDebugCmd() *cobra.Command {
	var (
		depth int
		find  string
		sel   string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "debug <file.html>",
		Short: "Explore a page whose markers no longer match",
		Long: "debug prints the classes used in a page and its element outline. " +
			"--find searches text and --select lists elements matching a tag.class selector.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readHTML(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if find != "" {
				matches, total := extract.FindText(doc, find, limit)
				fmt.Fprintf(out, "Found %d elements containing '%s':\n", total, find)
				for i, m := range matches {
					fmt.Fprintf(out, "%d. %s - %s\n", i+1, m.Parent, m.Snippet)
				}
				if total > len(matches) {
					fmt.Fprintf(out, "...and %d more\n", total-len(matches))
				}
				return nil
			}

			if sel != "" {
				sig, err := extract.ParseSignature(sel)
				if err != nil {
					return err
				}
				elems, total := extract.Select(doc, sig, limit)
				fmt.Fprintf(out, "Found %d elements matching '%s':\n", total, sig)
				for _, e := range elems {
					fmt.Fprintf(out, "<%s%s>\n", e.Tag, formatAttrs(e.Attrs))
					if e.Text != "" {
						fmt.Fprintf(out, "  TEXT: %s\n", e.Text)
					}
				}
				if total > len(elems) {
					fmt.Fprintf(out, "... and %d more elements\n", total-len(elems))
				}
				return nil
			}

			fmt.Fprintf(out, "Available classes in the HTML: %s\n", strings.Join(extract.ClassInventory(doc), " "))
			fmt.Fprintln(out, "Document structure:")
			return extract.Outline(out, doc, depth)
		},
	}

	cmd.Flags().IntVar(&depth, "depth", 3, "Outline depth (1-5)")
	cmd.Flags().StringVar(&find, "find", "", "Search for text nodes containing this string")
	cmd.Flags().StringVar(&sel, "select", "", "Show elements matching a tag.class selector (e.g. div.date_cards)")
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum matches to print")
	return cmd
}

func formatAttrs(attrs map[string]string) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%q", k, attrs[k])
	}
	return b.String()
}
