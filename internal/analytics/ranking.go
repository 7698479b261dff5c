package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ConfabulousDev/wakalog/internal/wakatime"
)

var tracer = otel.Tracer("wakalog/analytics")

// RankingItem is one aggregated entry of a ranking.
type RankingItem struct {
	Title string  `json:"title"`
	Hours float64 `json:"hours"`
}

// Store answers ranking queries over wakatime_summary.
type Store struct {
	db           *sql.DB
	exclude      []string
	queryTimeout time.Duration
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithExcludedTitles drops entries with these exact titles from every ranking.
func WithExcludedTitles(titles []string) StoreOption {
	return func(s *Store) {
		s.exclude = append([]string(nil), titles...)
	}
}

// WithQueryTimeout bounds each ranking query.
func WithQueryTimeout(d time.Duration) StoreOption {
	return func(s *Store) {
		s.queryTimeout = d
	}
}

// NewStore creates a new ranking store.
func NewStore(db *sql.DB, opts ...StoreOption) *Store {
	s := &Store{db: db, exclude: []string{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Rank sums each entry's seconds across every stored day in [from, to] and
// returns one item per title, most hours first. Ties go to the entry seen
// first (earliest date, then position within that day's list).
// A range with no stored days yields an empty slice.
func (s *Store) Rank(ctx context.Context, item ItemType, from, to time.Time) ([]RankingItem, error) {
	column, err := item.column()
	if err != nil {
		return nil, err
	}
	if from.After(to) {
		return nil, fmt.Errorf("%w: %s is after %s", ErrInvalidRange,
			wakatime.FormatDate(from), wakatime.FormatDate(to))
	}

	ctx, span := tracer.Start(ctx, "analytics.rank",
		trace.WithAttributes(
			attribute.String("ranking.item", item.String()),
			attribute.String("ranking.from", wakatime.FormatDate(from)),
			attribute.String("ranking.to", wakatime.FormatDate(to)),
		))
	defer span.End()

	if s.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
	}

	query := fmt.Sprintf(`
		SELECT e.value->>'name' AS title,
		       (SUM(COALESCE((e.value->>'total_seconds')::numeric, 0)) / 3600)::float8 AS hours
		FROM wakatime_summary s
		CROSS JOIN LATERAL jsonb_array_elements(s.%s) WITH ORDINALITY AS e(value, ord)
		WHERE s.date >= $1::date
		  AND s.date <= $2::date
		  AND e.value->>'name' IS NOT NULL
		  AND e.value->>'name' <> ALL($3::text[])
		GROUP BY e.value->>'name'
		ORDER BY SUM(COALESCE((e.value->>'total_seconds')::numeric, 0)) DESC,
		         MIN(ARRAY[(s.date - DATE '1970-01-01')::bigint, e.ord])
	`, column)

	rows, err := s.db.QueryContext(ctx, query,
		wakatime.FormatDate(from), wakatime.FormatDate(to), pq.Array(s.exclude))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to query %s ranking: %w", item, err)
	}
	defer rows.Close()

	items := []RankingItem{}
	for rows.Next() {
		var ri RankingItem
		if err := rows.Scan(&ri.Title, &ri.Hours); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan ranking row: %w", err)
		}
		items = append(items, ri)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to read %s ranking: %w", item, err)
	}

	span.SetAttributes(attribute.Int("ranking.count", len(items)))
	return items, nil
}
