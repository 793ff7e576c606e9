package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/couchcryptid/hazard-map-service/internal/domain"
	"github.com/spf13/cobra"
)

func newCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List the event categories and their map glyphs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "GLYPH\tCATEGORY")
			for _, c := range domain.Categories() {
				fmt.Fprintf(tw, "%s\t%s\n", c.Glyph, c.Category)
			}
			fmt.Fprintf(tw, "%s\t%s\n", domain.FallbackGlyph, "(any other category)")
			return tw.Flush()
		},
	}
}
