package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ConfabulousDev/wakalog/internal/db"
	"github.com/ConfabulousDev/wakalog/internal/ingest"
	"github.com/ConfabulousDev/wakalog/internal/storage"
	"github.com/ConfabulousDev/wakalog/internal/wakatime"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [start] [end]",
	Short: "Fetch daily summaries and store them",
	Long: `Fetches the account-wide summary and every project summary for each day
in [start, end], then upserts one row per day. With no arguments the previous
day is ingested. Dates are YYYY-MM-DD or YYYY/MM/DD.

A fetch failure stops the run. A failed database write is reported and the
run continues with the next day.`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.RequireAPIKey(); err != nil {
			return err
		}
		if err := cfg.RequireDatabase(); err != nil {
			return err
		}

		from, to, err := dateArgs(args, time.Now().AddDate(0, 0, -1))
		if err != nil {
			return err
		}

		database, err := db.Connect(cfg.DatabaseURL, db.Options{MaxOpenConns: 2, QueryTimeout: cfg.QueryTimeout})
		if err != nil {
			return err
		}
		defer database.Close()

		opts := []ingest.Option{ingest.WithProjectConcurrency(cfg.ProjectConcurrency)}
		if cfg.ArchiveDir != "" {
			opts = append(opts, ingest.WithArchivers(ingest.FileArchiver{Dir: cfg.ArchiveDir}))
		}
		if cfg.S3.Enabled() {
			store, err := storage.NewS3Storage(cmd.Context(), storage.S3Config{
				Endpoint:        cfg.S3.Endpoint,
				AccessKeyID:     cfg.S3.AccessKeyID,
				SecretAccessKey: cfg.S3.SecretAccessKey,
				BucketName:      cfg.S3.BucketName,
				Prefix:          cfg.S3.Prefix,
				UseSSL:          cfg.S3.UseSSL,
			})
			if err != nil {
				return err
			}
			opts = append(opts, ingest.WithArchivers(ingest.S3Archiver{Storage: store}))
		}

		pipeline := ingest.NewPipeline(newClient(), database, opts...)
		report, err := pipeline.IngestRange(cmd.Context(), from, to)
		if report != nil {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run %s: %d stored, %d failed\n", report.RunID, len(report.Succeeded), len(report.Failed))
			for _, d := range report.Failed {
				fmt.Fprintf(out, "  failed: %s\n", wakatime.FormatDate(d))
			}
		}
		if err != nil {
			return err
		}
		if len(report.Failed) > 0 {
			return fmt.Errorf("%d day(s) could not be stored", len(report.Failed))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
