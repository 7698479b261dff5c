package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ConfabulousDev/wakalog/internal/wakatime"
)

// grandTotalPlaces is the fixed-point precision of grand_total_sec.
const grandTotalPlaces = 3

// SummaryRow is the decomposed storage shape of one day's activity.
// Date is the natural key: one row per calendar date.
type SummaryRow struct {
	Date          time.Time
	Editors       json.RawMessage
	Languages     json.RawMessage
	Machines      json.RawMessage
	Projects      json.RawMessage
	Dependencies  json.RawMessage
	GrandTotalSec decimal.Decimal
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewSummaryRow normalizes the aggregate part of a composite record into the
// stored shape. Absent categories become [] and a missing or non-finite
// grand total becomes 0.
func NewSummaryRow(date time.Time, c *wakatime.Composite) (*SummaryRow, error) {
	var data wakatime.SummaryData
	if c != nil {
		data = c.Summaries.First()
	} else {
		data = (*wakatime.Summary)(nil).First()
	}

	row := &SummaryRow{
		Date:          truncateDate(date),
		GrandTotalSec: grandTotal(data.GrandTotal.TotalSeconds),
	}

	for _, col := range []struct {
		dst  *json.RawMessage
		list []wakatime.SummaryDetail
		name string
	}{
		{&row.Editors, data.Editors, "editors"},
		{&row.Languages, data.Languages, "languages"},
		{&row.Machines, data.Machines, "machines"},
		{&row.Projects, data.Projects, "projects"},
		{&row.Dependencies, data.Dependencies, "dependencies"},
	} {
		list := col.list
		if list == nil {
			list = []wakatime.SummaryDetail{}
		}
		encoded, err := json.Marshal(list)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", col.name, err)
		}
		*col.dst = encoded
	}

	return row, nil
}

func grandTotal(seconds float64) decimal.Decimal {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(seconds).Round(grandTotalPlaces)
}

func truncateDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// UpsertSummary stores row keyed by its date. A second call for the same date
// overwrites every non-key column. inserted reports whether a new row was
// created (false means an existing row was updated).
func (db *DB) UpsertSummary(ctx context.Context, row *SummaryRow) (inserted bool, err error) {
	date := wakatime.FormatDate(row.Date)
	ctx, span := tracer.Start(ctx, "db.upsert_summary",
		trace.WithAttributes(attribute.String("summary.date", date)))
	defer span.End()

	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO wakatime_summary (date, editors, langs, machine, projects, depends, grand_total_sec)
		VALUES ($1::date, $2::jsonb, $3::jsonb, $4::jsonb, $5::jsonb, $6::jsonb, $7)
		ON CONFLICT (date) DO UPDATE SET
			editors = EXCLUDED.editors,
			langs = EXCLUDED.langs,
			machine = EXCLUDED.machine,
			projects = EXCLUDED.projects,
			depends = EXCLUDED.depends,
			grand_total_sec = EXCLUDED.grand_total_sec,
			updated_at = NOW()
		RETURNING (xmax = 0) AS inserted
	`

	err = db.conn.QueryRowContext(ctx, query,
		date,
		string(jsonOrEmpty(row.Editors)),
		string(jsonOrEmpty(row.Languages)),
		string(jsonOrEmpty(row.Machines)),
		string(jsonOrEmpty(row.Projects)),
		string(jsonOrEmpty(row.Dependencies)),
		row.GrandTotalSec.StringFixed(grandTotalPlaces),
	).Scan(&inserted)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("%w: date %s: %w", ErrWrite, date, err)
	}

	span.SetAttributes(attribute.Bool("summary.inserted", inserted))
	return inserted, nil
}

func jsonOrEmpty(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || string(raw) == "null" {
		return json.RawMessage("[]")
	}
	return raw
}

// GetSummary returns the stored row for date.
func (db *DB) GetSummary(ctx context.Context, date time.Time) (*SummaryRow, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	query := `
		SELECT date, editors, langs, machine, projects, depends, grand_total_sec::text, created_at, updated_at
		FROM wakatime_summary
		WHERE date = $1::date
	`

	var row SummaryRow
	var editors, langs, machines, projects, depends []byte
	var totalStr string
	err := db.conn.QueryRowContext(ctx, query, wakatime.FormatDate(date)).Scan(
		&row.Date,
		&editors,
		&langs,
		&machines,
		&projects,
		&depends,
		&totalStr,
		&row.CreatedAt,
		&row.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSummaryNotFound
		}
		return nil, fmt.Errorf("failed to get summary: %w", err)
	}

	row.GrandTotalSec, err = decimal.NewFromString(totalStr)
	if err != nil {
		return nil, fmt.Errorf("parsing grand_total_sec: %w", err)
	}
	row.Editors = editors
	row.Languages = langs
	row.Machines = machines
	row.Projects = projects
	row.Dependencies = depends
	return &row, nil
}

// CountSummaries returns how many rows exist for date (0 or 1 by the
// table's key).
func (db *DB) CountSummaries(ctx context.Context, date time.Time) (int, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM wakatime_summary WHERE date = $1::date`,
		wakatime.FormatDate(date),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count summaries: %w", err)
	}
	return count, nil
}

// ListSummaryDates returns the stored dates in [from, to], ascending.
func (db *DB) ListSummaryDates(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT date FROM wakatime_summary WHERE date >= $1::date AND date <= $2::date ORDER BY date`,
		wakatime.FormatDate(from), wakatime.FormatDate(to),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list summary dates: %w", err)
	}
	defer rows.Close()

	dates := []time.Time{}
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan summary date: %w", err)
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}
