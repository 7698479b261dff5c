package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ConfabulousDev/wakalog/internal/db"
	"github.com/ConfabulousDev/wakalog/internal/ingest"
)

var importCmd = &cobra.Command{
	Use:   "import [dir]",
	Short: "Load saved summary files into the database",
	Long: `Upserts every *_YYYYMMDD.json file in dir (default: the current
directory). Files may hold an archived composite record or a bare summaries
response. Files that cannot be read or stored are reported and skipped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.RequireDatabase(); err != nil {
			return err
		}

		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}

		database, err := db.Connect(cfg.DatabaseURL, db.Options{MaxOpenConns: 2, QueryTimeout: cfg.QueryTimeout})
		if err != nil {
			return err
		}
		defer database.Close()

		report, err := ingest.Import(cmd.Context(), database, dir)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "imported %d file(s), skipped %d\n", len(report.Imported), len(report.Skipped))
		for _, path := range report.Skipped {
			fmt.Fprintf(out, "  skipped: %s\n", path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
