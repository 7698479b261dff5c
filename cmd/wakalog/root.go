package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ConfabulousDev/wakalog/internal/config"
	"github.com/ConfabulousDev/wakalog/internal/logger"
	"github.com/ConfabulousDev/wakalog/internal/wakatime"
)

var version string

var (
	cfg       *config.Config
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "wakalog",
	Short: "Collect WakaTime summaries into Postgres and serve rankings",
	Long: `wakalog pulls daily coding-activity summaries from WakaTime, stores one
row per day in PostgreSQL, and serves editor, language and project rankings
over HTTP for the dashboard.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded
		logCloser = logger.UseFile(logger.FileOptions{Path: cfg.LogFile})
		return nil
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.Version = version
	if err := run(ctx, rootCmd); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// run executes cmd and closes the log file afterwards. cobra skips
// PersistentPostRun when RunE fails, so the close cannot live there.
func run(ctx context.Context, cmd *cobra.Command) error {
	defer func() {
		if logCloser != nil {
			logCloser.Close()
			logCloser = nil
		}
	}()
	return cmd.ExecuteContext(ctx)
}

// calendarDay is t's local calendar date as midnight UTC, the form every
// date key in this program takes.
func calendarDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// dateArgs reads an optional start and end date from args. A missing start
// is def; a missing end equals the start.
func dateArgs(args []string, def time.Time) (from, to time.Time, err error) {
	from = calendarDay(def)
	if len(args) >= 1 {
		if from, err = wakatime.ParseDate(args[0]); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	to = from
	if len(args) >= 2 {
		if to, err = wakatime.ParseDate(args[1]); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if from.After(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("start %s is after end %s",
			wakatime.FormatDate(from), wakatime.FormatDate(to))
	}
	return from, to, nil
}

func newClient() *wakatime.Client {
	return wakatime.NewClient(cfg.APIKey,
		wakatime.WithBaseURL(cfg.APIBaseURL),
		wakatime.WithTimeout(cfg.FetchTimeout),
		wakatime.WithRateLimit(cfg.FetchRatePerSecond),
	)
}
