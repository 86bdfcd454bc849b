package main

import (
	"fmt"
	"io"
	"os"

	"github.com/klauspost/pgzip"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/water-accounting-dashboard/internal/adapter/export"
	"github.com/couchcryptid/water-accounting-dashboard/internal/domain"
	"github.com/couchcryptid/water-accounting-dashboard/internal/observability"
	"github.com/couchcryptid/water-accounting-dashboard/internal/pipeline"
	"github.com/couchcryptid/water-accounting-dashboard/internal/report"
)

var (
	exportFormat string
	exportOut    string
	exportGzip   bool
	exportYears  []string
	exportCounty string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the normalized records as csv, xlsx or parquet",
	RunE: func(cmd *cobra.Command, _ []string) error {
		f, err := export.ParseFormat(exportFormat)
		if err != nil {
			return err
		}
		schemas, err := domain.LoadSchemas(cfg.SchemaFile)
		if err != nil {
			return err
		}

		logger := observability.NewLoggerTo(os.Stderr, cfg)
		ds, err := pipeline.NewLoader(schemas, cfg.Paths(), logger).Load(cmd.Context())
		if err != nil {
			return err
		}
		recs := report.Filter{Years: exportYears, County: exportCounty}.Apply(ds.Records)

		w, closeOut, err := openOutput(exportOut)
		if err != nil {
			return err
		}
		if err := writeExport(w, f, recs, exportGzip); err != nil {
			closeOut() //nolint:errcheck // already failing
			return err
		}
		if err := closeOut(); err != nil {
			return err
		}
		logger.Info("records exported", "format", f, "records", len(recs), "out", exportOut, "gzip", exportGzip)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "output format: csv, xlsx or parquet")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "-", "output file, - for stdout")
	exportCmd.Flags().BoolVar(&exportGzip, "gzip", false, "gzip-compress the output")
	exportCmd.Flags().StringSliceVar(&exportYears, "year", nil, "water years to include (default: all)")
	exportCmd.Flags().StringVar(&exportCounty, "county", "", "county to include (default: all)")
}

// writeExport encodes recs to w, optionally through a parallel gzip writer.
func writeExport(w io.Writer, f export.Format, recs []domain.Record, gzip bool) error {
	if !gzip {
		return export.Write(w, f, recs)
	}
	zw := pgzip.NewWriter(w)
	if err := export.Write(zw, f, recs); err != nil {
		zw.Close() //nolint:errcheck // already failing
		return err
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close gzip stream: %w", err)
	}
	return nil
}

func openOutput(path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create %s: %w", path, err)
	}
	return f, f.Close, nil
}
