package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"sales-dashboard/internal/export"
)

func newExportCmd(c *cli) *cobra.Command {
	var (
		filters filterFlags
		formatS string
		name    string
		dir     string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the filtered table to CSV or XLSX",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(formatS)
			if err != nil {
				return err
			}
			p, err := filters.params()
			if err != nil {
				return err
			}
			analytics, err := c.analytics(cmd.Context())
			if err != nil {
				return err
			}
			table, err := analytics.Table(cmd.Context(), p)
			if err != nil {
				return err
			}

			payload, err := export.NewExporter(nil, nil, c.logger).Export(cmd.Context(), table, f, name)
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}

			path := filepath.Join(dir, payload.FileName)
			if err := os.WriteFile(path, payload.Data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			c.logger.Info("export written", "path", path, "rows", payload.Rows, "bytes", len(payload.Data))
			fmt.Fprintln(c.stdout, path)
			return nil
		},
	}
	filters.register(cmd)
	cmd.Flags().StringSliceVarP(&filters.columns, "column", "c", nil, "Column to include (repeatable; default all)")
	cmd.Flags().StringVarP(&formatS, "format", "f", string(export.FormatCSV), "Output format (csv or xlsx)")
	cmd.Flags().StringVarP(&name, "name", "n", export.DefaultFileName, "File name; the extension is added when missing")
	cmd.Flags().StringVarP(&dir, "output-dir", "o", ".", "Directory to write into")
	return cmd
}
