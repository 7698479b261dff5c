// Package ingest pulls one day of activity from WakaTime, assembles the
// composite record and persists it keyed by date.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/ConfabulousDev/wakalog/internal/analytics"
	"github.com/ConfabulousDev/wakalog/internal/db"
	"github.com/ConfabulousDev/wakalog/internal/logger"
	"github.com/ConfabulousDev/wakalog/internal/wakatime"
)

// Fetcher retrieves a summary for a date range, optionally scoped to one
// project. *wakatime.Client satisfies it.
type Fetcher interface {
	FetchSummary(ctx context.Context, start, end, project string) (*wakatime.Summary, error)
}

// SummaryStore persists one normalized row per date. *db.DB satisfies it.
type SummaryStore interface {
	UpsertSummary(ctx context.Context, row *db.SummaryRow) (inserted bool, err error)
}

// Result describes a single successful day of ingestion.
type Result struct {
	Date          time.Time
	Projects      int
	Inserted      bool
	GrandTotalSec decimal.Decimal
	// Archived lists the locations the composite record was written to.
	Archived []string
}

// RangeReport summarizes an IngestRange run.
type RangeReport struct {
	RunID     string
	Succeeded []time.Time
	Failed    []time.Time
}

// Pipeline runs fetch, assemble, upsert and archive for single days.
type Pipeline struct {
	fetcher     Fetcher
	store       SummaryStore
	archivers   []Archiver
	concurrency int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithProjectConcurrency bounds how many per-project fetches run at once.
// Values below 1 mean sequential.
func WithProjectConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n < 1 {
			n = 1
		}
		p.concurrency = n
	}
}

// WithArchivers writes every stored composite record to each archiver.
func WithArchivers(archivers ...Archiver) Option {
	return func(p *Pipeline) {
		p.archivers = append(p.archivers, archivers...)
	}
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(fetcher Fetcher, store SummaryStore, opts ...Option) *Pipeline {
	p := &Pipeline{fetcher: fetcher, store: store, concurrency: 1}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ingest fetches the account-wide summary for date plus one summary per
// project it names, then upserts the normalized row. A failed fetch aborts
// before anything is written. Archiving happens after the write and its
// failures are logged only.
func (p *Pipeline) Ingest(ctx context.Context, date time.Time) (*Result, error) {
	day := wakatime.FormatDate(date)
	log := logger.Ctx(ctx).With("date", day)

	aggregate, err := p.fetcher.FetchSummary(ctx, day, day, "")
	if err != nil {
		return nil, fmt.Errorf("fetch summary for %s: %w", day, err)
	}

	names := aggregate.First().ProjectNames()
	projects, err := p.fetchProjects(ctx, day, names)
	if err != nil {
		return nil, err
	}
	log.Debug("fetched summaries", "projects", len(projects))

	composite := wakatime.NewComposite(*aggregate, projects)
	row, err := db.NewSummaryRow(date, composite)
	if err != nil {
		return nil, fmt.Errorf("normalize summary for %s: %w", day, err)
	}

	inserted, err := p.store.UpsertSummary(ctx, row)
	if err != nil {
		if !errors.Is(err, db.ErrWrite) {
			err = fmt.Errorf("%w: %w", db.ErrWrite, err)
		}
		return nil, err
	}

	result := &Result{
		Date:          row.Date,
		Projects:      len(projects),
		Inserted:      inserted,
		GrandTotalSec: row.GrandTotalSec,
	}
	result.Archived = p.archive(ctx, ArchiveName(date, date), composite)

	log.Info("summary stored",
		"inserted", inserted,
		"projects", result.Projects,
		"grand_total_sec", row.GrandTotalSec.String())
	return result, nil
}

func (p *Pipeline) fetchProjects(ctx context.Context, day string, names []string) (map[string]wakatime.Summary, error) {
	projects := make(map[string]wakatime.Summary, len(names))
	if len(names) == 0 {
		return projects, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for _, name := range names {
		g.Go(func() error {
			s, err := p.fetcher.FetchSummary(gctx, day, day, name)
			if err != nil {
				return fmt.Errorf("fetch project %q for %s: %w", name, day, err)
			}
			mu.Lock()
			projects[name] = *s
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return projects, nil
}

func (p *Pipeline) archive(ctx context.Context, name string, composite *wakatime.Composite) []string {
	if len(p.archivers) == 0 {
		return nil
	}

	data, err := json.MarshalIndent(composite, "", "  ")
	if err != nil {
		logger.Ctx(ctx).Warn("failed to encode composite for archive", "error", err)
		return nil
	}

	var locations []string
	for _, a := range p.archivers {
		loc, err := a.Archive(ctx, name, data)
		if err != nil {
			logger.Ctx(ctx).Warn("archive failed", "archive", name, "error", err)
			continue
		}
		locations = append(locations, loc)
	}
	return locations
}

// IngestRange ingests every day in [from, to] in order. A fetch failure
// stops the run and is returned; a write failure is logged, recorded in the
// report and the run moves on to the next day.
func (p *Pipeline) IngestRange(ctx context.Context, from, to time.Time) (*RangeReport, error) {
	if from.After(to) {
		return nil, fmt.Errorf("%w: %s is after %s", analytics.ErrInvalidRange,
			wakatime.FormatDate(from), wakatime.FormatDate(to))
	}

	report := &RangeReport{RunID: uuid.NewString()}
	ctx = logger.WithRun(ctx, report.RunID)
	log := logger.Ctx(ctx)
	log.Info("ingestion started", "from", wakatime.FormatDate(from), "to", wakatime.FormatDate(to))

	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if _, err := p.Ingest(ctx, day); err != nil {
			if errors.Is(err, db.ErrWrite) {
				log.Error("write failed, continuing", "date", wakatime.FormatDate(day), "error", err)
				report.Failed = append(report.Failed, day)
				continue
			}
			log.Error("fetch failed, aborting run", "date", wakatime.FormatDate(day), "error", err)
			return report, err
		}
		report.Succeeded = append(report.Succeeded, day)
	}

	log.Info("ingestion finished", "succeeded", len(report.Succeeded), "failed", len(report.Failed))
	return report, nil
}
