package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"

	"github.com/spf13/cobra"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/dataset"
	"sales-dashboard/internal/filter"
	"sales-dashboard/internal/handlers"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/services"
)

// cli carries state shared by the subcommands of one invocation.
type cli struct {
	stdout io.Writer
	stderr io.Writer

	datasetPath string
	logLevel    string

	cfg    *config.Config
	logger *slog.Logger
}

// filterFlags are the selections common to summary and export.
type filterFlags struct {
	regions      []string
	year         string
	sellers      []string
	products     []string
	categories   []string
	locations    []string
	paymentTypes []string
	columns      []string

	// ranges maps query parameter names to bound flags, such as price_min.
	ranges map[string]*string
}

// rangeFlags are the closed-interval filters of the raw data page. Each
// pair must be given together.
var rangeFlags = []struct {
	name, query, usage string
}{
	{"price-min", "price_min", "Lowest price to keep"},
	{"price-max", "price_max", "Highest price to keep"},
	{"freight-min", "freight_min", "Lowest freight to keep"},
	{"freight-max", "freight_max", "Highest freight to keep"},
	{"date-from", "date_from", "First purchase date to keep (YYYY-MM-DD)"},
	{"date-to", "date_to", "Last purchase date to keep (YYYY-MM-DD)"},
	{"rating-min", "rating_min", "Lowest rating to keep (1-5)"},
	{"rating-max", "rating_max", "Highest rating to keep (1-5)"},
	{"installments-min", "installments_min", "Fewest installments to keep"},
	{"installments-max", "installments_max", "Most installments to keep"},
}

func (f *filterFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringSliceVarP(&f.regions, "region", "r", nil, "Region to keep (North, Northeast, Central-West, Southeast, South)")
	flags.StringVarP(&f.year, "year", "y", "", "Purchase year to keep, or \"all\"")
	// Free-text values may contain commas, so they are never split.
	flags.StringArrayVar(&f.sellers, "seller", nil, "Seller to keep (repeatable)")
	flags.StringArrayVar(&f.products, "product", nil, "Product to keep (repeatable)")
	flags.StringArrayVar(&f.categories, "category", nil, "Product category to keep (repeatable)")
	flags.StringSliceVar(&f.locations, "location", nil, "State code to keep (repeatable)")
	flags.StringArrayVar(&f.paymentTypes, "payment-type", nil, "Payment type to keep (repeatable)")

	f.ranges = make(map[string]*string, len(rangeFlags))
	for _, rf := range rangeFlags {
		f.ranges[rf.query] = flags.String(rf.name, "", rf.usage)
	}
}

// params validates the flags the same way the HTTP query string is validated.
func (f *filterFlags) params() (filter.Params, error) {
	q := url.Values{}
	add := func(name string, values []string) {
		for _, v := range values {
			q.Add(name, v)
		}
	}
	add("region", f.regions)
	add("seller", f.sellers)
	add("product", f.products)
	add("category", f.categories)
	add("location", f.locations)
	add("payment_type", f.paymentTypes)
	add("column", f.columns)
	if f.year != "" {
		q.Set("year", f.year)
	}
	for name, v := range f.ranges {
		if *v != "" {
			q.Set(name, *v)
		}
	}
	return handlers.ParseQuery(q)
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	c := &cli{stdout: stdout, stderr: stderr}

	cmd := &cobra.Command{
		Use:   "salesctl",
		Short: "Summarize and export the sales dataset",
		Long: `salesctl loads the sales dataset used by the dashboard and prints the
same metrics and rankings, or writes a filtered table to CSV or XLSX.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	cmd.PersistentFlags().StringVarP(&c.datasetPath, "dataset", "d", "", "Dataset file (.json or .csv); overrides SALES_DATASET_PATH")
	cmd.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(newSummaryCmd(c), newExportCmd(c), newRegionsCmd(c))
	return cmd
}

// setup loads configuration and sends logs to stderr, keeping stdout for
// command output.
func (c *cli) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if c.datasetPath != "" {
		cfg.Dataset.Path = c.datasetPath
	}
	if c.logLevel != "" {
		cfg.Logger.Level = c.logLevel
	}
	c.cfg = cfg
	c.logger = observability.NewLoggerTo(c.stderr, cfg.Logger)
	return nil
}

func (c *cli) analytics(ctx context.Context) (*services.Analytics, error) {
	data, err := dataset.NewLoader(c.logger).Load(ctx, c.cfg.Dataset.Path)
	if err != nil {
		return nil, fmt.Errorf("load dataset %s: %w", c.cfg.Dataset.Path, err)
	}
	c.logger.Debug("dataset loaded",
		"path", c.cfg.Dataset.Path,
		"records", len(data.Sales),
		"dropped", data.Stats.DroppedDate+data.Stats.DroppedInvalid,
	)
	return services.NewAnalytics(data, c.logger, nil), nil
}
