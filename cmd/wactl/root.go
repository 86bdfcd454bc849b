package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/water-accounting-dashboard/internal/config"
	"github.com/couchcryptid/water-accounting-dashboard/internal/domain"
	"github.com/couchcryptid/water-accounting-dashboard/internal/pipeline"
)

var (
	cfgFile string

	// Loaded before any subcommand runs.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "wactl",
	Short:         "Water accounting dashboard tooling",
	Long:          `wactl checks the four input files against their schemas, exports the normalized records and generates a demo dataset.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if cfgFile != "" {
			if err := os.Setenv("CONFIG_FILE", cfgFile); err != nil {
				return err
			}
		}
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c
		return nil
	},
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: environment only)")
	rootCmd.AddCommand(validateCmd, exportCmd, genmockCmd)
}

// sources binds the configured schemas to the configured paths.
func sources() ([]pipeline.Source, error) {
	schemas, err := domain.LoadSchemas(cfg.SchemaFile)
	if err != nil {
		return nil, err
	}
	return pipeline.NewLoader(schemas, cfg.Paths(), nil).Sources(), nil
}
