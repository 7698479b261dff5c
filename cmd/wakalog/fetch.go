package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ConfabulousDev/wakalog/internal/ingest"
	"github.com/ConfabulousDev/wakalog/internal/wakatime"
)

var (
	fetchSave bool
	fetchDir  string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [start] [end]",
	Short: "Print or save the raw summaries response",
	Long: `Requests the account-wide summaries for [start, end] (default today) and
prints the response body. With --save the body is written to
res_YYYYMMDD.json, or res_YYYYMMDD-YYYYMMDD.json for a range, which
'wakalog import' can load later.`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.RequireAPIKey(); err != nil {
			return err
		}

		from, to, err := dateArgs(args, time.Now())
		if err != nil {
			return err
		}

		body, err := newClient().FetchRaw(cmd.Context(), wakatime.FormatDate(from), wakatime.FormatDate(to))
		if err != nil {
			return err
		}

		if !fetchSave {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), string(body))
			return err
		}

		path := filepath.Join(fetchDir, ingest.ArchiveName(from, to))
		if err := os.WriteFile(path, body, 0o644); err != nil {
			return fmt.Errorf("failed to save response: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().BoolVar(&fetchSave, "save", false, "write the response to a file instead of stdout")
	fetchCmd.Flags().StringVar(&fetchDir, "dir", ".", "directory for --save")
}
