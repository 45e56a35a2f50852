package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"sales-dashboard/internal/format"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/services"
)

// summaryRows caps each printed ranking.
const summaryRows = 5

func newSummaryCmd(c *cli) *cobra.Command {
	var (
		filters filterFlags
		topK    int
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print headline metrics and rankings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := filters.params()
			if err != nil {
				return err
			}
			analytics, err := c.analytics(cmd.Context())
			if err != nil {
				return err
			}
			report, err := analytics.Run(cmd.Context(), p, topK)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(c.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			return printSummary(c.stdout, report)
		},
	}
	filters.register(cmd)
	cmd.Flags().IntVarP(&topK, "top", "k", services.DefaultTopK,
		fmt.Sprintf("Sellers to rank (%d-%d)", services.MinTopK, services.MaxTopK))
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full report as JSON")
	return cmd
}

func printSummary(w io.Writer, r *models.Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "Revenue\t%s\n", r.Metrics.RevenueFormatted)
	fmt.Fprintf(tw, "Sales\t%s\n", r.Metrics.CountFormatted)

	fmt.Fprintln(tw, "\nLOCATION\tREVENUE")
	for _, row := range head(r.RevenueByLocation) {
		fmt.Fprintf(tw, "%s\t%s\n", row.Location, format.Magnitude(row.Revenue, services.RevenuePrefix))
	}

	fmt.Fprintln(tw, "\nCATEGORY\tSALES")
	for _, row := range head(r.CountByCategory) {
		fmt.Fprintf(tw, "%s\t%d\n", row.Category, row.Count)
	}

	fmt.Fprintf(tw, "\nTOP %d SELLERS\tREVENUE\tSALES\n", r.TopK)
	for _, row := range r.TopSellersRevenue {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", row.Seller, format.Magnitude(row.Revenue, services.RevenuePrefix), row.Count)
	}

	return tw.Flush()
}

func head[T any](rows []T) []T {
	if len(rows) > summaryRows {
		return rows[:summaryRows]
	}
	return rows
}
