package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"sales-dashboard/internal/region"
)

func newRegionsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "regions",
		Short: "Print the state codes of each region",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "REGION\tSTATES")
			for _, r := range region.All() {
				fmt.Fprintf(tw, "%s\t%s\n", r, strings.Join(region.Codes(r), ", "))
			}
			return tw.Flush()
		},
	}
}
